package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	cgerrors "github.com/sweetpotato0/chatgraph/errors"
	"github.com/sweetpotato0/chatgraph/pkg/logging"
)

// Manager coordinates session records over a storage backend. It hands out
// working copies, so changes become visible to other callers only on Commit.
type Manager struct {
	mu      sync.RWMutex
	store   Store
	keyring *Keyring
	logger  *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore sets the storage backend.
func WithStore(s Store) Option {
	return func(m *Manager) {
		m.store = s
	}
}

// WithLogger overrides the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a session manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{keyring: NewKeyring()}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.WithComponent("session")
	}
	return m
}

// Acquire takes the per-session lock and returns its release function.
// Callers hold the lock across the load-process-commit cycle so concurrent
// requests for one session serialize.
func (m *Manager) Acquire(id string) func() {
	return m.keyring.Lock(id)
}

// GetOrCreate loads the session record, creating an empty one if it does not
// exist. The returned record is a working copy; it is not visible to other
// callers until Commit.
func (m *Manager) GetOrCreate(ctx context.Context, id, userID string) (*Record, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: session id cannot be empty", cgerrors.ErrInvalidInput)
	}
	if err := m.ensureStore(); err != nil {
		return nil, err
	}

	record, err := m.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, cgerrors.ErrNotFound) {
			m.logger.Info("creating session", "session_id", id)
			return NewRecord(id, userID), nil
		}
		m.logger.Error("session load failed", "session_id", id, "error", err)
		return nil, err
	}

	if userID != "" && record.UserID == "" {
		record.UserID = userID
	}
	return record, nil
}

// Commit persists the working copy.
func (m *Manager) Commit(ctx context.Context, record *Record) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("%w: session record cannot be empty", cgerrors.ErrInvalidInput)
	}
	if err := m.ensureStore(); err != nil {
		return err
	}
	if err := m.store.Save(ctx, record); err != nil {
		m.logger.Error("session commit failed", "session_id", record.ID, "error", err)
		return err
	}
	m.logger.Debug("session committed", "session_id", record.ID, "history_length", len(record.History))
	return nil
}

// Clear removes a session and its history.
func (m *Manager) Clear(ctx context.Context, id string) error {
	if err := m.ensureStore(); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, id); err != nil {
		m.logger.Error("session delete failed", "session_id", id, "error", err)
		return err
	}
	m.logger.Info("session cleared", "session_id", id)
	return nil
}

// List returns all stored session IDs.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	if err := m.ensureStore(); err != nil {
		return nil, err
	}
	return m.store.List(ctx)
}

// Count returns the number of stored sessions.
func (m *Manager) Count(ctx context.Context) (int, error) {
	if err := m.ensureStore(); err != nil {
		return 0, err
	}
	return m.store.Count(ctx)
}

// Exists reports whether a session is stored.
func (m *Manager) Exists(ctx context.Context, id string) (bool, error) {
	if err := m.ensureStore(); err != nil {
		return false, err
	}
	return m.store.Exists(ctx, id)
}

func (m *Manager) ensureStore() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.store == nil {
		return fmt.Errorf("session manager store is not configured")
	}
	return nil
}
