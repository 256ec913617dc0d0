package engine

import (
	"testing"

	"mercator-hq/callisto/pkg/asset"
	"mercator-hq/callisto/pkg/automation/ast"
	"mercator-hq/callisto/pkg/automation/facts"
	"mercator-hq/callisto/pkg/history"
	"mercator-hq/callisto/pkg/partition"
)

// twoParentGraph has a child with identity-mapped edges to two parents, all
// sharing the same static partition scheme.
func twoParentGraph(t *testing.T) *asset.Graph {
	t.Helper()
	regions := partition.NewStatic("us", "eu", "ap")
	return mustGraph(t,
		&asset.Def{Key: "p1", Partitions: regions},
		&asset.Def{Key: "p2", Partitions: regions},
		&asset.Def{Key: "child", Partitions: regions, Deps: []asset.Dep{{Parent: "p1"}, {Parent: "p2"}}},
	)
}

func TestDepsMatch_AnyVsAll(t *testing.T) {
	// p1 missing {us}; p2 missing {us, eu}.
	snap := facts.NewBuilder(tickTimes[0]).
		WithMaterialized("p1", 1, "eu", "ap").
		WithMaterialized("p2", 1, "ap").
		WithMaterialized("child", 1, "us", "eu", "ap").
		Build()

	tests := []struct {
		name string
		cond *ast.Condition
		want partition.Subset
	}{
		{"any unions parents", ast.AnyDepsMatch(ast.Missing()), partition.NewSubset("us", "eu")},
		{"all intersects parents", ast.AllDepsMatch(ast.Missing()), partition.Single("us")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := twoParentGraph(t)
			eng := mustEngine(t, nil, g, map[asset.Key]*ast.Condition{"child": tt.cond}, history.NewMemoryStore(), nil)
			result := mustEvaluate(t, eng, snap)
			if !result.Requests["child"].Equal(tt.want) {
				t.Errorf("Requests[child] = %v, want %v", result.Requests["child"], tt.want)
			}
		})
	}
}

func TestDepsMatch_Selection(t *testing.T) {
	// Only p1 is missing anywhere.
	snap := facts.NewBuilder(tickTimes[0]).
		WithMaterialized("p2", 1, "us", "eu", "ap").
		Build()

	tests := []struct {
		name string
		cond *ast.Condition
		want partition.Subset
	}{
		{
			"allow keeps the missing parent",
			ast.AnyDepsMatch(ast.Missing()).WithSelection(asset.Allow("p1")),
			partition.NewSubset("us", "eu", "ap"),
		},
		{
			"ignore excludes the missing parent",
			ast.AnyDepsMatch(ast.Missing()).WithSelection(asset.Ignore("p1")),
			partition.Empty(),
		},
		{
			"selection admitting no parent yields empty",
			ast.AllDepsMatch(ast.Missing()).WithSelection(asset.Allow("nobody")),
			partition.Empty(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := twoParentGraph(t)
			eng := mustEngine(t, nil, g, map[asset.Key]*ast.Condition{"child": tt.cond}, history.NewMemoryStore(), nil)
			result := mustEvaluate(t, eng, snap)
			got, ok := result.Requests["child"]
			if !ok {
				got = partition.Empty()
			}
			if !got.Equal(tt.want) {
				t.Errorf("Requests[child] = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDepsMatch_NoDeps(t *testing.T) {
	snap := snapshotAt(tickTimes[0])
	// A root asset has no participating parents: both forms are empty.
	if got := singleTargetResult(t, ast.AnyDepsMatch(ast.Missing()), snap); !got.IsEmpty() {
		t.Errorf("any_deps_match on root = %v, want empty", got)
	}
	if got := singleTargetResult(t, ast.AllDepsMatch(ast.Missing()), snap); !got.IsEmpty() {
		t.Errorf("all_deps_match on root = %v, want empty", got)
	}
}

func TestDepsMatch_UnpartitionedParent(t *testing.T) {
	// Unpartitioned parent feeds a partitioned child through the default
	// all-to-all mapping: a missing parent blankets the whole child space.
	g := mustGraph(t,
		&asset.Def{Key: "parent"},
		&asset.Def{Key: "child", Partitions: partition.NewStatic("us", "eu"), Deps: []asset.Dep{{Parent: "parent"}}},
	)
	eng := mustEngine(t, nil, g,
		map[asset.Key]*ast.Condition{"child": ast.AnyDepsMatch(ast.Missing())},
		history.NewMemoryStore(), nil)

	result := mustEvaluate(t, eng, snapshotAt(tickTimes[0]))
	if !result.Requests["child"].Equal(partition.NewSubset("us", "eu")) {
		t.Errorf("Requests[child] = %v, want full child space", result.Requests["child"])
	}

	snap := facts.NewBuilder(tickTimes[1]).WithMaterialized("parent", 1, partition.DefaultKey).Build()
	result = mustEvaluate(t, eng, snap)
	if _, ok := result.Requests["child"]; ok {
		t.Errorf("Requests[child] = %v, want empty", result.Requests["child"])
	}
}

func TestDepsMatch_PerParentTemporalState(t *testing.T) {
	// newly_true under a deps-match operator keeps distinct cross-tick
	// state per parent: p1 turning true must not be masked by p2 having
	// been true before.
	g := twoParentGraph(t)
	cond := ast.AnyDepsMatch(ast.NewlyTrue(ast.Failed()))
	store := history.NewMemoryStore()
	eng := mustEngine(t, nil, g, map[asset.Key]*ast.Condition{"child": cond}, store, nil)

	snap1 := facts.NewBuilder(tickTimes[0]).WithFailed("p2", "us").Build()
	first := mustEvaluate(t, eng, snap1)
	if !first.Requests["child"].Equal(partition.Single("us")) {
		t.Fatalf("first tick = %v, want {us}", first.Requests["child"])
	}

	// p2 stays failed (not newly), p1 fails for the first time.
	snap2 := facts.NewBuilder(tickTimes[1]).
		WithFailed("p2", "us").
		WithFailed("p1", "us").
		Build()
	second := mustEvaluate(t, eng, snap2)
	if !second.Requests["child"].Equal(partition.Single("us")) {
		t.Errorf("second tick = %v, want {us} from p1 alone", second.Requests["child"])
	}

	// Both unchanged: nothing is newly true on either edge.
	snap3 := facts.NewBuilder(tickTimes[2]).
		WithFailed("p2", "us").
		WithFailed("p1", "us").
		Build()
	third := mustEvaluate(t, eng, snap3)
	if _, ok := third.Requests["child"]; ok {
		t.Errorf("third tick = %v, want empty", third.Requests["child"])
	}
}

func TestAllDepsMatch_NewlyUpdated_IgnoreToggle(t *testing.T) {
	// Tick 1 establishes cursors for both parents; on tick 2 only p1 has
	// a new materialization. all_deps_match demands every participating
	// parent, so the requirement on p2 blocks the result until p2 is
	// ignored.
	baseline := func(at int) *facts.Builder {
		return facts.NewBuilder(tickTimes[at]).
			WithMaterialized("p1", 1, "us", "eu", "ap").
			WithMaterialized("p2", 1, "us", "eu", "ap").
			WithMaterialized("child", 1, "us", "eu", "ap")
	}

	tests := []struct {
		name string
		cond *ast.Condition
		want partition.Subset
	}{
		{"both parents required", ast.AllDepsMatch(ast.NewlyUpdated()), partition.Empty()},
		{
			"stale parent ignored",
			ast.AllDepsMatch(ast.NewlyUpdated()).WithSelection(asset.Ignore("p2")),
			partition.Single("us"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := twoParentGraph(t)
			store := history.NewMemoryStore()
			eng := mustEngine(t, nil, g, map[asset.Key]*ast.Condition{"child": tt.cond}, store, nil)

			mustEvaluate(t, eng, baseline(0).Build())
			result := mustEvaluate(t, eng, baseline(1).WithMaterialized("p1", 2, "us").Build())

			got, ok := result.Requests["child"]
			if !ok {
				got = partition.Empty()
			}
			if !got.Equal(tt.want) {
				t.Errorf("Requests[child] = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnyDownstream(t *testing.T) {
	regions := partition.NewStatic("us", "eu")
	g := mustGraph(t,
		&asset.Def{Key: "parent", Partitions: regions},
		&asset.Def{Key: "c1", Partitions: regions, Deps: []asset.Dep{{Parent: "parent"}}},
		&asset.Def{Key: "c2", Partitions: regions, Deps: []asset.Dep{{Parent: "parent"}}},
	)
	conditions := map[asset.Key]*ast.Condition{
		"parent": ast.AnyDownstreamCondition(),
		"c1":     ast.Missing(),
		"c2":     ast.Failed(),
	}
	store := history.NewMemoryStore()
	eng := mustEngine(t, nil, g, conditions, store, nil)

	// c1 missing {us}, c2 failed {eu}: the parent sees the union mapped
	// upstream through the identity edges.
	snap := facts.NewBuilder(tickTimes[0]).
		WithMaterialized("c1", 1, "eu").
		WithFailed("c2", "eu").
		Build()
	result := mustEvaluate(t, eng, snap)
	if !result.Requests["parent"].Equal(partition.NewSubset("us", "eu")) {
		t.Errorf("Requests[parent] = %v, want {us, eu}", result.Requests["parent"])
	}

	// No downstream condition fires.
	snap = facts.NewBuilder(tickTimes[1]).
		WithMaterialized("c1", 1, "us", "eu").
		WithMaterialized("c2", 1, "us", "eu").
		Build()
	result = mustEvaluate(t, eng, snap)
	if _, ok := result.Requests["parent"]; ok {
		t.Errorf("Requests[parent] = %v, want empty", result.Requests["parent"])
	}
}

func TestAnyDownstream_IgnoresConditionlessChildren(t *testing.T) {
	g := mustGraph(t,
		&asset.Def{Key: "parent"},
		&asset.Def{Key: "child", Deps: []asset.Dep{{Parent: "parent"}}},
	)
	conditions := map[asset.Key]*ast.Condition{
		"parent": ast.AnyDownstreamCondition(),
	}
	eng := mustEngine(t, nil, g, conditions, history.NewMemoryStore(), nil)
	result := mustEvaluate(t, eng, snapshotAt(tickTimes[0]))
	if _, ok := result.Requests["parent"]; ok {
		t.Errorf("Requests[parent] = %v, want empty", result.Requests["parent"])
	}
}

func TestEager_EndToEnd(t *testing.T) {
	regions := partition.NewStatic("us", "eu")
	g := mustGraph(t,
		&asset.Def{Key: "raw", Partitions: regions},
		&asset.Def{Key: "report", Partitions: regions, Deps: []asset.Dep{{Parent: "raw"}}},
	)
	store := history.NewMemoryStore()
	eng := mustEngine(t, nil, g, map[asset.Key]*ast.Condition{"report": ast.Eager()}, store, nil)

	// Tick 1: the report has never been built.
	snap := facts.NewBuilder(tickTimes[0]).WithMaterialized("raw", 1, "us", "eu").Build()
	result := mustEvaluate(t, eng, snap)
	if !result.Requests["report"].Equal(partition.NewSubset("us", "eu")) {
		t.Fatalf("tick 1 = %v, want full", result.Requests["report"])
	}

	// Tick 2: report built everywhere, nothing upstream changed.
	snap = facts.NewBuilder(tickTimes[1]).
		WithMaterialized("raw", 1, "us", "eu").
		WithMaterialized("report", 2, "us", "eu").
		Build()
	result = mustEvaluate(t, eng, snap)
	if _, ok := result.Requests["report"]; ok {
		t.Fatalf("tick 2 = %v, want empty", result.Requests["report"])
	}

	// Tick 3: raw/us freshly rematerialized triggers the report for us.
	snap = facts.NewBuilder(tickTimes[2]).
		WithMaterialized("raw", 1, "us", "eu").
		WithMaterialized("raw", 3, "us").
		WithMaterialized("report", 2, "us", "eu").
		Build()
	result = mustEvaluate(t, eng, snap)
	if !result.Requests["report"].Equal(partition.Single("us")) {
		t.Fatalf("tick 3 = %v, want {us}", result.Requests["report"])
	}

	// Tick 4: upstream updated again but the rebuild is already running:
	// eager holds off.
	snap = facts.NewBuilder(tickTimes[3]).
		WithMaterialized("raw", 4, "us").
		WithMaterialized("raw", 1, "eu").
		WithMaterialized("report", 2, "us", "eu").
		WithInProgress("raw", "us").
		Build()
	result = mustEvaluate(t, eng, snap)
	if _, ok := result.Requests["report"]; ok {
		t.Fatalf("tick 4 = %v, want empty", result.Requests["report"])
	}
}
