package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wyckoff_watcher/internal/config"
	"wyckoff_watcher/internal/models"
)

func testCfg() Config {
	return Config{
		FullRunTimes: []string{"12:00", "15:15"},
		Tolerance:    5 * time.Minute,
		Location:     config.CstLoc,
	}
}

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, config.CstLoc)
}

func TestDecideMode_InsideWindowNoPriorRun(t *testing.T) {
	mode, err := DecideMode(at(12, 1), time.Time{}, testCfg())
	require.NoError(t, err)
	assert.Equal(t, models.ModeFull, mode)
}

func TestDecideMode_WindowEdges(t *testing.T) {
	cfg := testCfg()
	for _, tc := range []struct {
		name string
		now  time.Time
		want models.RunMode
	}{
		{"lower edge", at(11, 55), models.ModeFull},
		{"upper edge", at(12, 5), models.ModeFull},
		{"just below", at(11, 54), models.ModeSyncOnly},
		{"just above", at(12, 6), models.ModeSyncOnly},
		{"afternoon window", at(15, 15), models.ModeFull},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mode, err := DecideMode(tc.now, time.Time{}, cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, mode)
		})
	}
}

func TestDecideMode_WindowAlreadySatisfied(t *testing.T) {
	mode, err := DecideMode(at(12, 3), at(12, 0), testCfg())
	require.NoError(t, err)
	assert.Equal(t, models.ModeNone, mode)
}

func TestDecideMode_MorningRunDoesNotSatisfyAfternoon(t *testing.T) {
	mode, err := DecideMode(at(15, 16), at(12, 0), testCfg())
	require.NoError(t, err)
	assert.Equal(t, models.ModeFull, mode)
}

func TestDecideMode_YesterdayRunDoesNotSatisfyToday(t *testing.T) {
	yesterday := at(12, 0).AddDate(0, 0, -1)
	mode, err := DecideMode(at(12, 0), yesterday, testCfg())
	require.NoError(t, err)
	assert.Equal(t, models.ModeFull, mode)
}

func TestDecideMode_OutsideAnyWindow(t *testing.T) {
	mode, err := DecideMode(at(9, 30), time.Time{}, testCfg())
	require.NoError(t, err)
	assert.Equal(t, models.ModeSyncOnly, mode)
}

func TestDecideMode_BadTimeString(t *testing.T) {
	cfg := testCfg()
	cfg.FullRunTimes = []string{"noon"}
	mode, err := DecideMode(at(12, 0), time.Time{}, cfg)
	assert.Error(t, err)
	assert.Equal(t, models.ModeSyncOnly, mode)
}

func TestDecideMode_NormalizesCallerLocation(t *testing.T) {
	// 04:01 UTC is 12:01 CST.
	utcNow := time.Date(2026, 3, 2, 4, 1, 0, 0, time.UTC)
	mode, err := DecideMode(utcNow, time.Time{}, testCfg())
	require.NoError(t, err)
	assert.Equal(t, models.ModeFull, mode)
}
