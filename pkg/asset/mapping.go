package asset

import (
	"time"

	"mercator-hq/callisto/pkg/partition"
)

// PartitionMapping translates partition subsets across a dependency edge.
//
// ToDownstream maps a subset of the parent's partitions to the child
// partitions they correspond to; ToUpstream maps a subset of the child's
// partitions back to the parent partitions that feed them. Both directions
// are needed: downstream projection carries a parent condition's result onto
// the child, and upstream projection narrows the parent-side candidate from
// the child-side candidate.
type PartitionMapping interface {
	ToDownstream(parentSubset partition.Subset, child *Def, asOf time.Time) partition.Subset
	ToUpstream(childSubset partition.Subset, parent *Def, asOf time.Time) partition.Subset
}

// IdentityMapping maps each partition key to the same key on the other side,
// dropping keys that do not exist there. Suitable for parent and child
// sharing a partition scheme.
type IdentityMapping struct{}

// ToDownstream maps parent keys to identical child keys.
func (IdentityMapping) ToDownstream(parentSubset partition.Subset, child *Def, asOf time.Time) partition.Subset {
	return parentSubset.Intersect(child.PartitionSpace(asOf))
}

// ToUpstream maps child keys to identical parent keys.
func (IdentityMapping) ToUpstream(childSubset partition.Subset, parent *Def, asOf time.Time) partition.Subset {
	return childSubset.Intersect(parent.PartitionSpace(asOf))
}

// AllMapping maps any non-empty subset on one side to the full partition
// space on the other side. It is the default when either end of an edge is
// unpartitioned.
type AllMapping struct{}

// ToDownstream maps any non-empty parent subset to the child's full space.
func (AllMapping) ToDownstream(parentSubset partition.Subset, child *Def, asOf time.Time) partition.Subset {
	if parentSubset.IsEmpty() {
		return partition.Empty()
	}
	return child.PartitionSpace(asOf)
}

// ToUpstream maps any non-empty child subset to the parent's full space.
func (AllMapping) ToUpstream(childSubset partition.Subset, parent *Def, asOf time.Time) partition.Subset {
	if childSubset.IsEmpty() {
		return partition.Empty()
	}
	return parent.PartitionSpace(asOf)
}

// DefaultMapping picks the mapping used when an edge declares none: identity
// when both ends are partitioned, all-to-all otherwise.
func DefaultMapping(parent, child *Def) PartitionMapping {
	if parent.IsPartitioned() && child.IsPartitioned() {
		return IdentityMapping{}
	}
	return AllMapping{}
}

// MappingFor resolves the effective mapping of a dependency edge.
func MappingFor(dep Dep, parent, child *Def) PartitionMapping {
	if dep.Mapping != nil {
		return dep.Mapping
	}
	return DefaultMapping(parent, child)
}
