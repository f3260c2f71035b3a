package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"graft/internal/logging"
)

const migrationFlagKey = "migrated_from_json"

// MigrateFromJSON imports legacy per-session JSON files from dir into the
// database. It runs at most once; completion is flagged in the metadata
// table so later startups skip the scan. A missing directory is not an
// error and leaves the flag unset, so a directory restored later still
// migrates. Unreadable or malformed files are skipped.
func (s *Store) MigrateFromJSON(dir string) (int, error) {
	timer := logging.StartTimer(logging.CategoryStore, "MigrateFromJSON")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	var flag string
	err := s.db.QueryRow(
		"SELECT value FROM metadata WHERE key = ?", migrationFlagKey).Scan(&flag)
	if err == nil {
		logging.StoreDebug("JSON migration already completed at %s", flag)
		return 0, nil
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return 0, nil
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("failed to scan session directory: %w", err)
	}

	count := 0
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			logging.StoreDebug("Skipping unreadable session file %s: %v", p, err)
			continue
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			logging.StoreDebug("Skipping malformed session file %s: %v", p, err)
			continue
		}
		if sess.ID == "" {
			sess.ID = strings.TrimSuffix(filepath.Base(p), ".json")
		}
		if err := s.insertSession(&sess); err != nil {
			logging.Get(logging.CategoryStore).Warn("Failed to migrate session %s: %v", sess.ID, err)
			continue
		}
		count++
	}

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)",
		migrationFlagKey, nowUTC(),
	)
	if err != nil {
		return count, fmt.Errorf("failed to record migration flag: %w", err)
	}

	if count > 0 {
		logging.Store("Migrated %d JSON sessions to SQLite", count)
	}
	return count, nil
}
