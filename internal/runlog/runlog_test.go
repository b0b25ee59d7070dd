package runlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wyckoff_watcher/internal/models"
)

func TestJournal_RecordAndRecent(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer j.Close()

	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	for i, mode := range []models.RunMode{models.ModeSyncOnly, models.ModeFull} {
		err := j.Record(models.RunRecord{
			RunID:     string(rune('a' + i)),
			Mode:      mode,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			Outcome:   "ok",
		})
		require.NoError(t, err)
	}

	recs, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, models.ModeFull, recs[0].Mode, "newest first")
	assert.Equal(t, "ok", recs[0].Outcome)
}

func TestJournal_RecordIsIdempotentPerRunID(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer j.Close()

	rec := models.RunRecord{RunID: "r1", Mode: models.ModeFull, StartedAt: time.Now(), Outcome: "started"}
	require.NoError(t, j.Record(rec))
	rec.Outcome = "ok"
	require.NoError(t, j.Record(rec))

	recs, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "ok", recs[0].Outcome)
}
