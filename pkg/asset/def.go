package asset

import (
	"time"

	"mercator-hq/callisto/pkg/partition"
)

// Key uniquely identifies an asset or check in the dependency graph.
type Key string

// Kind distinguishes materializable assets from checks.
type Kind string

const (
	// KindAsset is a materializable asset.
	KindAsset Kind = "asset"
	// KindCheck is an asset check.
	KindCheck Kind = "check"
)

// Dep is a dependency edge from a child to one of its parents.
type Dep struct {
	// Parent is the upstream asset key.
	Parent Key

	// Mapping translates partitions across the edge. When nil, a default is
	// chosen from the partitioning of both ends (identity when both ends are
	// partitioned, all-to-all otherwise).
	Mapping PartitionMapping
}

// Def is the definition of a single asset or check.
type Def struct {
	// Key is the unique identifier.
	Key Key

	// Kind is asset or check. Defaults to asset.
	Kind Kind

	// Partitions is the partition definition; nil means unpartitioned.
	Partitions partition.Definition

	// Deps are the upstream dependency edges.
	Deps []Dep

	// CodeVersion is the user-declared version of the computation backing
	// this asset. Changes are observable to version-sensitive conditions.
	CodeVersion string
}

// IsPartitioned reports whether the asset declares a partition definition.
func (d *Def) IsPartitioned() bool {
	return d.Partitions != nil
}

// PartitionSpace returns the asset's full partition space as of the given
// time. Unpartitioned assets yield the single implicit partition.
func (d *Def) PartitionSpace(asOf time.Time) partition.Subset {
	return partition.SpaceOf(d.Partitions, asOf)
}

// DepOn returns the dependency edge on the given parent, if any.
func (d *Def) DepOn(parent Key) (Dep, bool) {
	for _, dep := range d.Deps {
		if dep.Parent == parent {
			return dep, true
		}
	}
	return Dep{}, false
}
