// Package prefs persists the small amount of local state a client keeps
// between runs: the currently selected account. It uses the dvote key-value
// database (pebble) so the state survives restarts of the CLI.
package prefs

import (
	"fmt"
	"path/filepath"
	"sync"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"
)

const (
	selectedAccountKey = "selected_account_id"
)

// Store keeps the preferences in a local key-value database. A nil *Store is
// valid: it stores nothing and always reports no selection.
type Store struct {
	db    db.Database
	mutex sync.RWMutex
}

// New opens (or creates) the preferences database in dataDir.
func New(dataDir string) (*Store, error) {
	database, err := metadb.New(db.TypePebble, filepath.Clean(dataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize preferences database: %w", err)
	}
	return &Store{db: database}, nil
}

// NewWithDB wraps an already open database.
func NewWithDB(database db.Database) *Store {
	return &Store{db: database}
}

// SelectedAccountID returns the persisted selected account ID, or an empty
// string when none is stored.
func (s *Store) SelectedAccountID() string {
	if s == nil {
		return ""
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	value, err := s.db.Get([]byte(selectedAccountKey))
	if err != nil {
		return ""
	}
	return string(value)
}

// SetSelectedAccountID persists the selected account ID. An empty ID clears
// the selection.
func (s *Store) SetSelectedAccountID(accountID string) error {
	if s == nil {
		return nil
	}
	if accountID == "" {
		return s.ClearSelectedAccountID()
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx := s.db.WriteTx()
	defer tx.Discard()
	if err := tx.Set([]byte(selectedAccountKey), []byte(accountID)); err != nil {
		return fmt.Errorf("failed to store selected account: %w", err)
	}
	return tx.Commit()
}

// ClearSelectedAccountID removes the persisted selection.
func (s *Store) ClearSelectedAccountID() error {
	if s == nil {
		return nil
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx := s.db.WriteTx()
	defer tx.Discard()
	if err := tx.Delete([]byte(selectedAccountKey)); err != nil {
		return fmt.Errorf("failed to clear selected account: %w", err)
	}
	return tx.Commit()
}

// Close closes the underlying database.
func (s *Store) Close() {
	if s == nil {
		return
	}
	if err := s.db.Close(); err != nil {
		log.Warnw("failed to close preferences database", "error", err)
	}
}
