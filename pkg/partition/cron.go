package partition

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ParseCron parses a standard five-field cron expression, optionally
// prefixed with a timezone (e.g. "CRON_TZ=America/New_York 0 * * * *").
func ParseCron(expr string, timezone string) (cron.Schedule, error) {
	if timezone != "" {
		expr = fmt.Sprintf("CRON_TZ=%s %s", timezone, expr)
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

// TicksBetween returns the cron tick times of schedule in the half-open
// interval (after, until]. Mirrors the "has a tick passed since the previous
// evaluation" question asked by cron-driven conditions.
func TicksBetween(schedule cron.Schedule, after, until time.Time) []time.Time {
	var ticks []time.Time
	cursor := after
	for {
		next := schedule.Next(cursor)
		if next.IsZero() || next.After(until) {
			break
		}
		ticks = append(ticks, next)
		cursor = next
	}
	return ticks
}

// TickPassed reports whether schedule has at least one tick in (after, until].
func TickPassed(schedule cron.Schedule, after, until time.Time) bool {
	next := schedule.Next(after)
	return !next.IsZero() && !next.After(until)
}
