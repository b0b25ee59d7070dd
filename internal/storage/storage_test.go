package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"wyckoff_watcher/internal/models"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch_state.json")

	added := time.Date(2025, 6, 2, 9, 35, 0, 0, time.UTC)
	state := models.WatchState{
		Cursor:      4210,
		LastFullRun: time.Date(2025, 6, 2, 12, 1, 0, 0, time.UTC),
		Entries: []models.WatchEntry{
			{Symbol: "600519", AddedAt: added},
			{Symbol: "000001", AddedAt: added.Add(time.Minute)},
		},
	}

	if err := SaveState(path, state); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	loaded, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}

	if loaded.Cursor != 4210 {
		t.Errorf("Cursor mismatch: got %d", loaded.Cursor)
	}
	if !loaded.LastFullRun.Equal(state.LastFullRun) {
		t.Errorf("LastFullRun mismatch: got %s", loaded.LastFullRun)
	}
	if len(loaded.Entries) != 2 || loaded.Entries[0].Symbol != "600519" || loaded.Entries[1].Symbol != "000001" {
		t.Errorf("Entries mismatch: got %+v", loaded.Entries)
	}
}

func TestLoadState_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch_state.json")

	s, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if s.Cursor != 0 || len(s.Entries) != 0 {
		t.Errorf("Expected empty state, got %+v", s)
	}
	if s.Version != CurrentVersion {
		t.Errorf("Expected version %d, got %d", CurrentVersion, s.Version)
	}
}

func TestLoadState_MigratesLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch_state.json")

	// Pre-versioned file: no version, no cursor, no last_full_run.
	legacyJSON := `{"entries": [{"symbol": "600519", "added_at": "2024-11-03T10:00:00Z"}]}`
	if err := os.WriteFile(path, []byte(legacyJSON), 0644); err != nil {
		t.Fatalf("Failed to write legacy state: %v", err)
	}

	s, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}

	if s.Version != CurrentVersion {
		t.Errorf("Expected migrated version %d, got %d", CurrentVersion, s.Version)
	}
	if s.Cursor != 0 {
		t.Errorf("Expected cursor backfill 0, got %d", s.Cursor)
	}
	if !s.LastFullRun.IsZero() {
		t.Errorf("Expected zero last_full_run, got %s", s.LastFullRun)
	}
	if len(s.Entries) != 1 || s.Entries[0].Symbol != "600519" {
		t.Errorf("Entries lost in migration: %+v", s.Entries)
	}
}

func TestLoadState_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch_state.json")
	if err := os.WriteFile(path, []byte(`{"entries": [`), 0644); err != nil {
		t.Fatalf("Failed to write corrupt state: %v", err)
	}

	if _, err := LoadState(path); err == nil {
		t.Fatal("Expected error for corrupt state file, got nil")
	}
}

func TestSaveState_LeavesPreviousStateOnAbandonedTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watch_state.json")

	first := models.WatchState{Cursor: 10, Entries: []models.WatchEntry{{Symbol: "600519"}}}
	if err := SaveState(path, first); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	// Simulate a crash between temp-write and rename: an orphan temp file
	// must not affect what the next run loads.
	if err := os.WriteFile(path+".tmp", []byte(`{"cursor": 99, "entr`), 0644); err != nil {
		t.Fatalf("Failed to plant temp file: %v", err)
	}

	loaded, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if loaded.Cursor != 10 || len(loaded.Entries) != 1 {
		t.Errorf("Loaded state does not equal last saved state: %+v", loaded)
	}

	// And a subsequent save overwrites the orphan cleanly.
	second := first
	second.Cursor = 11
	if err := SaveState(path, second); err != nil {
		t.Fatalf("SaveState over orphan temp failed: %v", err)
	}
	loaded, err = LoadState(path)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if loaded.Cursor != 11 {
		t.Errorf("Expected cursor 11 after resave, got %d", loaded.Cursor)
	}
}
