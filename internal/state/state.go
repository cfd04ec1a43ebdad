// Package state persists the player snapshot to local durable storage so
// a session survives restarts. The whole snapshot lives as one JSON blob
// under a single fixed key; position-only updates are debounced so the
// progress ticker does not produce a write per tick.
package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // SQLite driver

	dbutil "github.com/lmeynard/chorus/internal/db"
	"github.com/lmeynard/chorus/internal/playback"
)

const (
	appName    = "chorus"
	dbFileName = "chorus.db"
	stateKey   = "player_state"

	// DefaultSaveDebounce coalesces position-only writes.
	DefaultSaveDebounce = time.Second
)

// legacyKeys are per-field keys written by early client versions. They
// are pruned on every write and on reset.
var legacyKeys = []string{
	"player_track",
	"player_queue",
	"player_volume",
	"player_current_time",
}

// Manager owns the storage handle and the debounced write pipeline.
type Manager struct {
	db       *sql.DB
	debounce time.Duration
	log      *logrus.Entry

	mu        sync.Mutex
	saveTimer *time.Timer
	pending   *playback.Snapshot
	// lastSavedPos mirrors the position currently on disk, so
	// preserve-time writes do not clobber it.
	lastSavedPos time.Duration
}

// Open opens (creating if needed) the player state database at the
// platform data path.
func Open() (*Manager, error) {
	dbPath, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return nil, err
	}
	return OpenPath(dbPath)
}

// OpenPath opens the state database at an explicit path.
func OpenPath(path string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := initSchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &Manager{
		db:       sqlDB,
		debounce: DefaultSaveDebounce,
		log:      logrus.WithField("component", "state"),
	}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	return err
}

// SetDebounce overrides the position write debounce (used by tests).
func (m *Manager) SetDebounce(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debounce = d
}

// Load reads the persisted snapshot. A missing or corrupt blob is treated
// as no prior session: corrupt data is cleared and nil returned.
func (m *Manager) Load() (*playback.Snapshot, error) {
	var raw string
	err := m.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, stateKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ps persistedState
	if err := json.Unmarshal([]byte(raw), &ps); err != nil {
		m.log.WithError(err).Warn("corrupt player state, falling back to defaults")
		_ = m.Reset()
		return nil, nil
	}

	snap := fromPersisted(ps)
	m.mu.Lock()
	m.lastSavedPos = snap.Position
	m.mu.Unlock()
	return &snap, nil
}

// Save writes a full snapshot immediately. With preserveTime the
// previously stored position is kept, for mutations incidental to
// transport (volume, mode changes); otherwise the snapshot's live
// position is written.
func (m *Manager) Save(snap playback.Snapshot, preserveTime bool) {
	m.mu.Lock()
	if preserveTime {
		snap.Position = m.lastSavedPos
	} else {
		m.lastSavedPos = snap.Position
	}
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}
	m.pending = nil
	m.mu.Unlock()

	m.write(snap)
}

// SavePosition schedules a debounced position-only write on top of the
// given snapshot.
func (m *Manager) SavePosition(snap playback.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending = &snap

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	m.saveTimer = time.AfterFunc(m.debounce, func() {
		m.mu.Lock()
		pending := m.pending
		m.pending = nil
		if pending != nil {
			m.lastSavedPos = pending.Position
		}
		m.mu.Unlock()

		if pending != nil {
			m.write(*pending)
		}
	})
}

// Flush synchronously writes any pending debounced snapshot. Used on
// shutdown as the best-effort final write.
func (m *Manager) Flush() {
	m.mu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}
	pending := m.pending
	m.pending = nil
	if pending != nil {
		m.lastSavedPos = pending.Position
	}
	m.mu.Unlock()

	if pending != nil {
		m.write(*pending)
	}
}

// Reset clears the stored snapshot and any legacy per-field keys.
func (m *Manager) Reset() error {
	m.mu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}
	m.pending = nil
	m.lastSavedPos = 0
	m.mu.Unlock()

	return dbutil.WithTx(m.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, stateKey); err != nil {
			return err
		}
		for _, key := range legacyKeys {
			if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close flushes pending writes and closes the database.
func (m *Manager) Close() error {
	m.Flush()
	return m.db.Close()
}

func (m *Manager) write(snap playback.Snapshot) {
	raw, err := json.Marshal(toPersisted(snap))
	if err != nil {
		m.log.WithError(err).Error("failed to encode player state")
		return
	}

	err = dbutil.WithTx(m.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO kv (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, stateKey, string(raw))
		if err != nil {
			return err
		}
		for _, key := range legacyKeys {
			if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		m.log.WithError(err).Error("failed to persist player state")
	}
}
