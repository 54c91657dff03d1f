// Package session owns conversation state. A session is a serializable
// record keyed by session ID; storage backends persist records and the
// manager hands out working copies so callers can abort without corrupting
// the stored history.
package session

import (
	"context"
	"time"

	"github.com/sweetpotato0/chatgraph/message"
)

// Record is the persisted form of a session.
type Record struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id,omitempty"`
	History   []*message.Message `json:"history"`
	Metadata  map[string]any     `json:"metadata,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NewRecord creates an empty session record.
func NewRecord(id, userID string) *Record {
	now := time.Now()
	return &Record{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendHistory adds messages to the record and bumps the update time.
func (r *Record) AppendHistory(msgs ...*message.Message) {
	r.History = message.Append(r.History, msgs...)
	r.UpdatedAt = time.Now()
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cloned := &Record{
		ID:        r.ID,
		UserID:    r.UserID,
		History:   message.CloneMessages(r.History),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Metadata != nil {
		cloned.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			cloned.Metadata[k] = v
		}
	}
	return cloned
}

// Store is the interface for session storage backends.
type Store interface {
	Save(ctx context.Context, record *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	Exists(ctx context.Context, id string) (bool, error)
}
