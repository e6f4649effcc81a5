// Package session persists the signed-in user's local state: bearer tokens,
// role, school scope, restart-detection markers and per-path badge counters.
// It is the terminal analog of the browser client's local storage, backed by
// a small SQLite database in the state directory.
package session

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"forumkit/internal/logging"
	"forumkit/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Storage keys. The fk_ prefix and badge: namespace are carried over from
// the web client so exported state stays recognizable.
const (
	keyToken            = "token"
	keyRefreshToken     = "refresh_token"
	keyRole             = "role"
	keySchoolID         = "school_id"
	keyRestartID        = "fk_restart_id"
	keyRestartTimestamp = "fk_restart_timestamp"
	badgePrefix         = "badge:"
)

// Store is the local key/value session store.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open initializes the store at <stateDir>/session.db.
func Open(stateDir string) (*Store, error) {
	timer := logging.StartTimer(logging.CategorySession, "session.Open")
	defer timer.Stop()

	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	path := filepath.Join(stateDir, "session.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.SessionDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.SessionDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Session("session store opened at %s", path)
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate session db: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// get returns "" when the key is absent.
func (s *Store) get(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) set(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *Store) delete(keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

// Save persists the session after a successful login or token refresh.
func (s *Store) Save(sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.set(keyToken, sess.Token); err != nil {
		return err
	}
	if err := s.set(keyRefreshToken, sess.RefreshToken); err != nil {
		return err
	}
	if err := s.set(keyRole, string(sess.Role)); err != nil {
		return err
	}
	return s.set(keySchoolID, strconv.FormatInt(sess.SchoolID, 10))
}

// Load returns the stored session. An empty session (no error) means no
// user is signed in.
func (s *Store) Load() (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sess model.Session
	token, err := s.get(keyToken)
	if err != nil {
		return sess, err
	}
	sess.Token = token

	if sess.RefreshToken, err = s.get(keyRefreshToken); err != nil {
		return sess, err
	}
	role, err := s.get(keyRole)
	if err != nil {
		return sess, err
	}
	sess.Role = model.Role(role)

	school, err := s.get(keySchoolID)
	if err != nil {
		return sess, err
	}
	if school != "" {
		sess.SchoolID, _ = strconv.ParseInt(school, 10, 64)
	}
	return sess, nil
}

// Clear removes all session keys. Idempotent: clearing with no session
// present succeeds and leaves the keys absent. Restart markers and badges
// survive a logout.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logging.Session("clearing local session")
	return s.delete(keyToken, keyRefreshToken, keyRole, keySchoolID)
}

// Token returns the current bearer token, or "" when signed out. Errors are
// swallowed: callers use this as the token source for outgoing requests and
// an unreadable store behaves like a logged-out session.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.get(keyToken)
	if err != nil {
		logging.SessionDebug("token read failed: %v", err)
		return ""
	}
	return token
}

// SetBadge stores the unread counter for a navigation path.
func (s *Store) SetBadge(path string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if count <= 0 {
		return s.delete(badgePrefix + path)
	}
	return s.set(badgePrefix+path, strconv.Itoa(count))
}

// Badge returns the stored counter for a path, 0 when absent.
func (s *Store) Badge(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.get(badgePrefix + path)
	if err != nil || raw == "" {
		return 0
	}
	n, _ := strconv.Atoi(raw)
	return n
}

// Badges returns all non-zero badge counters keyed by path.
func (s *Store) Badges() (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT key, value FROM kv WHERE key LIKE ?", badgePrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		n, _ := strconv.Atoi(value)
		if n > 0 {
			out[strings.TrimPrefix(key, badgePrefix)] = n
		}
	}
	return out, rows.Err()
}
