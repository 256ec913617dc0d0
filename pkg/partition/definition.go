package partition

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Definition describes a target's partition space.
//
// A nil Definition means the target is unpartitioned and owns the single
// implicit partition DefaultKey.
type Definition interface {
	// Subset returns the full partition space as of the given time.
	Subset(asOf time.Time) Subset

	// Contains reports whether key is a valid partition as of the given time.
	Contains(key Key, asOf time.Time) bool
}

// SpaceOf returns the full partition space of def as of the given time,
// treating a nil definition as the unpartitioned single-key space.
func SpaceOf(def Definition, asOf time.Time) Subset {
	if def == nil {
		return Single(DefaultKey)
	}
	return def.Subset(asOf)
}

// Static is a Definition with a fixed, explicitly enumerated key list.
type Static struct {
	keys []Key
}

// NewStatic creates a static partition definition from the given keys.
func NewStatic(keys ...Key) *Static {
	out := make([]Key, len(keys))
	copy(out, keys)
	return &Static{keys: out}
}

// Subset returns the full static partition space. The asOf time is ignored.
func (d *Static) Subset(_ time.Time) Subset {
	return NewSubset(d.keys...)
}

// Contains reports whether key is one of the static partitions.
func (d *Static) Contains(key Key, _ time.Time) bool {
	for _, k := range d.keys {
		if k == key {
			return true
		}
	}
	return false
}

// TimeWindow is a Definition whose partitions are time windows derived from a
// cron schedule: each cron tick opens a window that closes at the next tick.
// A window becomes a partition once it has closed, so the partition space
// grows over time. Keys are the window start formatted with Layout.
type TimeWindow struct {
	schedule cron.Schedule
	start    time.Time
	layout   string
}

// DefaultWindowLayout is the key format used when none is given.
const DefaultWindowLayout = "2006-01-02-15:04"

// Window is a single [Start, End) time window.
type Window struct {
	Start time.Time
	End   time.Time
}

// Key returns the partition key of the window under the given layout.
func (w Window) Key(layout string) Key {
	return Key(w.Start.UTC().Format(layout))
}

// NewTimeWindow creates a time-window partition definition. The cron
// expression uses standard five-field syntax (e.g. "0 0 * * *" for daily
// windows). Windows begin at the first tick at or after start.
func NewTimeWindow(cronExpr string, start time.Time, layout string) (*TimeWindow, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid window cron expression %q: %w", cronExpr, err)
	}
	if layout == "" {
		layout = DefaultWindowLayout
	}
	return &TimeWindow{
		schedule: schedule,
		start:    start.UTC(),
		layout:   layout,
	}, nil
}

// Windows returns all closed windows as of the given time, oldest first.
func (d *TimeWindow) Windows(asOf time.Time) []Window {
	var windows []Window
	// Next is strictly-after, so step back far enough to include a tick
	// landing exactly on the start boundary.
	cursor := d.start.Add(-time.Second)
	for {
		next := d.schedule.Next(cursor)
		if next.IsZero() || !next.Before(asOf) {
			break
		}
		end := d.schedule.Next(next)
		if end.IsZero() || end.After(asOf) {
			break
		}
		windows = append(windows, Window{Start: next.UTC(), End: end.UTC()})
		cursor = next
	}
	return windows
}

// LatestWindow returns the most recent closed window as of the given time,
// or false if no window has closed yet.
func (d *TimeWindow) LatestWindow(asOf time.Time) (Window, bool) {
	windows := d.Windows(asOf)
	if len(windows) == 0 {
		return Window{}, false
	}
	return windows[len(windows)-1], true
}

// Subset returns the keys of all closed windows as of the given time.
func (d *TimeWindow) Subset(asOf time.Time) Subset {
	windows := d.Windows(asOf)
	keys := make([]Key, len(windows))
	for i, w := range windows {
		keys[i] = w.Key(d.layout)
	}
	return NewSubset(keys...)
}

// Contains reports whether key names a closed window as of the given time.
func (d *TimeWindow) Contains(key Key, asOf time.Time) bool {
	return d.Subset(asOf).Contains(key)
}

// WindowsWithin returns the keys of closed windows whose end falls within
// lookback of asOf. A zero lookback selects only the latest window.
func (d *TimeWindow) WindowsWithin(asOf time.Time, lookback time.Duration) Subset {
	windows := d.Windows(asOf)
	if len(windows) == 0 {
		return Empty()
	}
	if lookback <= 0 {
		return Single(windows[len(windows)-1].Key(d.layout))
	}
	cutoff := asOf.Add(-lookback)
	var keys []Key
	for _, w := range windows {
		if !w.End.Before(cutoff) {
			keys = append(keys, w.Key(d.layout))
		}
	}
	return NewSubset(keys...)
}
