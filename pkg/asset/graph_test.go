package asset

import (
	"errors"
	"strings"
	"testing"
)

func TestNewGraph_Valid(t *testing.T) {
	g, err := NewGraph([]*Def{
		{Key: "raw/events"},
		{Key: "reports/daily", Deps: []Dep{{Parent: "raw/events"}}},
		{Key: "checks/report-freshness", Kind: KindCheck, Deps: []Dep{{Parent: "reports/daily"}}},
	})
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}
	if g.Len() != 3 {
		t.Errorf("Len() = %d, want 3", g.Len())
	}
	if def := g.Def("raw/events"); def == nil || def.Kind != KindAsset {
		t.Errorf("Def(raw/events) = %+v, want asset kind defaulted", def)
	}
	if def := g.Def("checks/report-freshness"); def == nil || def.Kind != KindCheck {
		t.Errorf("Def(checks/report-freshness) = %+v, want check kind", def)
	}
	if g.Def("nope") != nil {
		t.Error("Def(nope) should be nil")
	}
}

func TestNewGraph_Errors(t *testing.T) {
	tests := []struct {
		name    string
		defs    []*Def
		wantMsg string
	}{
		{
			name:    "empty key",
			defs:    []*Def{{Key: ""}},
			wantMsg: "empty key",
		},
		{
			name:    "duplicate key",
			defs:    []*Def{{Key: "a"}, {Key: "a"}},
			wantMsg: `duplicate asset definition "a"`,
		},
		{
			name:    "dangling parent",
			defs:    []*Def{{Key: "child", Deps: []Dep{{Parent: "ghost"}}}},
			wantMsg: `asset "child" depends on undefined asset "ghost"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.defs)
			if err == nil {
				t.Fatal("NewGraph() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want substring %q", err, tt.wantMsg)
			}
		})
	}
}

func TestNewGraph_DanglingParentType(t *testing.T) {
	_, err := NewGraph([]*Def{{Key: "child", Deps: []Dep{{Parent: "ghost"}}}})
	var upe *UnknownParentError
	if !errors.As(err, &upe) {
		t.Fatalf("error = %T, want *UnknownParentError", err)
	}
	if upe.Child != "child" || upe.Parent != "ghost" {
		t.Errorf("UnknownParentError = %+v", upe)
	}
}

func TestNewGraph_Cycle(t *testing.T) {
	_, err := NewGraph([]*Def{
		{Key: "a", Deps: []Dep{{Parent: "c"}}},
		{Key: "b", Deps: []Dep{{Parent: "a"}}},
		{Key: "c", Deps: []Dep{{Parent: "b"}}},
		{Key: "outside"},
	})
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %T (%v), want *CycleError", err, err)
	}
	if len(ce.Members) != 3 {
		t.Fatalf("cycle members = %v, want 3 keys", ce.Members)
	}
	want := []Key{"a", "b", "c"}
	for i, k := range want {
		if ce.Members[i] != k {
			t.Errorf("Members[%d] = %q, want %q", i, ce.Members[i], k)
		}
	}
	if !strings.Contains(ce.Error(), "dependency cycle among assets: a, b, c") {
		t.Errorf("Error() = %q", ce.Error())
	}
}

func TestGraph_TopoOrder(t *testing.T) {
	g, err := NewGraph([]*Def{
		{Key: "reports/daily", Deps: []Dep{{Parent: "raw/events"}, {Parent: "raw/users"}}},
		{Key: "raw/users"},
		{Key: "raw/events"},
		{Key: "checks/freshness", Kind: KindCheck, Deps: []Dep{{Parent: "reports/daily"}}},
	})
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}
	order := g.TopoOrder()
	pos := make(map[Key]int, len(order))
	for i, k := range order {
		pos[k] = i
	}
	for _, k := range g.Keys() {
		for _, dep := range g.Parents(k) {
			if pos[dep.Parent] >= pos[k] {
				t.Errorf("parent %q ordered after child %q: %v", dep.Parent, k, order)
			}
		}
	}
	// Determinism: the zero-degree frontier is visited in sorted order.
	if order[0] != "raw/events" || order[1] != "raw/users" {
		t.Errorf("TopoOrder() = %v, want sorted roots first", order)
	}
}

func TestGraph_ParentsAndChildren(t *testing.T) {
	g, err := NewGraph([]*Def{
		{Key: "raw/events"},
		{Key: "reports/daily", Deps: []Dep{{Parent: "raw/events"}}},
		{Key: "reports/weekly", Deps: []Dep{{Parent: "raw/events"}}},
	})
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}
	children := g.Children("raw/events")
	if len(children) != 2 || children[0] != "reports/daily" || children[1] != "reports/weekly" {
		t.Errorf("Children(raw/events) = %v", children)
	}
	if got := g.Parents("reports/daily"); len(got) != 1 || got[0].Parent != "raw/events" {
		t.Errorf("Parents(reports/daily) = %v", got)
	}
	if got := g.Parents("missing"); got != nil {
		t.Errorf("Parents(missing) = %v, want nil", got)
	}
	if got := g.Children("reports/daily"); len(got) != 0 {
		t.Errorf("Children(reports/daily) = %v, want empty", got)
	}
}
