package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"wyckoff_watcher/internal/models"
)

// CurrentVersion is the state schema version written by this build.
const CurrentVersion = 2

// LoadState reads the watch state from disk. A missing file yields a fresh
// empty state; a file that exists but will not parse is an error, because
// silently starting from scratch would drop the watchlist and replay old
// chat commands.
func LoadState(path string) (models.WatchState, error) {
	var s models.WatchState

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Println("State file missing, starting with empty watchlist")
		return models.WatchState{Version: CurrentVersion, Entries: []models.WatchEntry{}}, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read state file: %w", err)
	}

	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("parse state file: %w", err)
	}

	if migrateState(&s) {
		log.Printf("INFO: State migrated to version %d", s.Version)
	}

	return s, nil
}

// migrateState handles schema evolution. Fields a newer schema adds simply
// default when missing; migrations only exist for defaults that are not the
// zero value. Returns true if anything changed.
func migrateState(s *models.WatchState) bool {
	updated := false

	// Pre-versioned files carried entries only.
	if s.Version == 0 {
		s.Version = 1
		updated = true
	}

	// 1 -> 2: last_full_run added. Zero time is the correct backfill: the
	// scheduler then treats the next window as unsatisfied.
	if s.Version < 2 {
		s.Version = 2
		updated = true
	}

	if s.Entries == nil {
		s.Entries = []models.WatchEntry{}
		updated = true
	}

	return updated
}

// SaveState writes the state to disk using an atomic write pattern:
// write a temp file in the same directory, sync, then rename over the
// destination. A crash mid-save leaves the previous state intact, so the
// next run never sees a partially-written mix of cursor and entries.
func SaveState(path string, s models.WatchState) error {
	s.Version = CurrentVersion

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmpFile := path + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}

	// Force data to disk before the rename makes it the authoritative copy.
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp state file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
