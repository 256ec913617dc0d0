// Package partition provides the partition-space model for automation targets:
// partition keys, partition-set definitions, and an immutable subset algebra.
//
// Every automation target owns a partition space. Partitioned targets declare a
// Definition (a static key list or cron-derived time windows); unpartitioned
// targets have exactly one implicit partition identified by DefaultKey, so the
// subset algebra degenerates to a boolean for them.
//
// Subsets are immutable: Union, Intersect and Subtract always return new
// values, and equality is set equality. All operations are proportional to the
// size of the subsets involved, never to the size of the full partition space.
package partition
