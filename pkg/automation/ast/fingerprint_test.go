package ast

import (
	"testing"
	"time"

	"mercator-hq/callisto/pkg/asset"
)

func TestFingerprint_Stable(t *testing.T) {
	a := Eager()
	b := Eager()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("structurally identical conditions should share a fingerprint")
	}
	if a.Fingerprint() != a.Fingerprint() {
		t.Error("fingerprint should be deterministic per condition")
	}
}

func TestFingerprint_ChangesOnStructure(t *testing.T) {
	base := And(Missing(), Not(InProgress()))
	tests := []struct {
		name  string
		other *Condition
	}{
		{"different operand", And(Failed(), Not(InProgress()))},
		{"different operator", Or(Missing(), Not(InProgress()))},
		{"extra child", And(Missing(), Not(InProgress()), Failed())},
		{"different cron expr", CronTickPassed("0 0 * * *", "")},
		{"different lookback", InLatestTimeWindow(time.Hour)},
		{"custom name", Custom("a")},
		{"selection added", AnyDepsMatch(Missing())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if base.Fingerprint() == tt.other.Fingerprint() {
				t.Errorf("fingerprint collision between %s and %s", base, tt.other)
			}
		})
	}

	withSel := AnyDepsMatch(Missing()).WithSelection(asset.Allow("a"))
	if withSel.Fingerprint() == AnyDepsMatch(Missing()).Fingerprint() {
		t.Error("selection should be part of the fingerprint")
	}
	ignoreSel := AnyDepsMatch(Missing()).WithSelection(asset.Ignore("a"))
	if withSel.Fingerprint() == ignoreSel.Fingerprint() {
		t.Error("selection mode should be part of the fingerprint")
	}
}

func TestFingerprint_IgnoresLabel(t *testing.T) {
	plain := Eager()
	labeled := Eager().WithLabel("eager policy")
	if plain.Fingerprint() != labeled.Fingerprint() {
		t.Error("labels are display metadata and must not change the fingerprint")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		name string
		cond *Condition
		want string
	}{
		{"operand", Missing(), "missing"},
		{"not", Not(Failed()), "~failed"},
		{"and", And(Missing(), Failed()), "(missing & failed)"},
		{"or", Or(Missing(), Failed()), "(missing | failed)"},
		{"custom", Custom("check-sla"), "custom(check-sla)"},
		{"cron", CronTickPassed("0 * * * *", ""), `cron_tick_passed("0 * * * *")`},
		{"newly true", NewlyTrue(Failed()), "newly_true(failed)"},
		{"since", Since(Missing(), Failed()), "since(missing, failed)"},
		{"deps", AnyDepsMatch(NewlyUpdated()), "any_deps_match(newly_updated)"},
		{
			"deps with selection",
			AllDepsMatch(Missing()).WithSelection(asset.Allow("a", "b")),
			"all_deps_match(missing).allow(a, b)",
		},
		{"downstream", AnyDownstreamCondition(), "any_downstream_condition()"},
		{"label short-circuits", Eager().WithLabel("eager"), "eager"},
		{
			"eager",
			Eager(),
			"(missing | (any_deps_match(newly_updated) & ~any_deps_match(missing) & ~any_deps_match(in_progress)))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
