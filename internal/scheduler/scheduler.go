package scheduler

import (
	"fmt"
	"time"

	"wyckoff_watcher/internal/models"
)

// Config is the wall-clock policy for full runs. Times are "HH:MM" in
// Location; each one opens a window of +-Tolerance around it.
type Config struct {
	FullRunTimes []string
	Tolerance    time.Duration
	Location     *time.Location
}

// DecideMode picks the run mode from the wall clock alone. A full run fires
// when now falls inside a configured window that lastFullRun has not already
// satisfied. A window already satisfied yields ModeNone; everything outside
// any window is a plain command sync.
func DecideMode(now, lastFullRun time.Time, cfg Config) (models.RunMode, error) {
	now = now.In(cfg.Location)

	for _, hhmm := range cfg.FullRunTimes {
		anchor, err := anchorToday(now, hhmm, cfg.Location)
		if err != nil {
			return models.ModeSyncOnly, err
		}
		from := anchor.Add(-cfg.Tolerance)
		to := anchor.Add(cfg.Tolerance)
		if now.Before(from) || now.After(to) {
			continue
		}
		last := lastFullRun.In(cfg.Location)
		if !lastFullRun.IsZero() && !last.Before(from) && !last.After(to) {
			return models.ModeNone, nil
		}
		return models.ModeFull, nil
	}
	return models.ModeSyncOnly, nil
}

func anchorToday(now time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad full run time %q: %w", hhmm, err)
	}
	return time.Date(now.Year(), now.Month(), now.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, loc), nil
}
