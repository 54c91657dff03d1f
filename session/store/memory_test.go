package store

import (
	"context"
	"errors"
	"testing"

	cgerrors "github.com/sweetpotato0/chatgraph/errors"
	"github.com/sweetpotato0/chatgraph/message"
	"github.com/sweetpotato0/chatgraph/session"
)

func TestMemoryStoreSaveLoad(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	record := session.NewRecord("sess-1", "user-1")
	record.AppendHistory(message.NewMessage(message.RoleUser, "hello"))

	if err := s.Save(ctx, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.UserID != "user-1" || len(loaded.History) != 1 {
		t.Errorf("Unexpected record: %+v", loaded)
	}
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Load(context.Background(), "nope")
	if !errors.Is(err, cgerrors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	record := session.NewRecord("sess-1", "")
	record.AppendHistory(message.NewMessage(message.RoleUser, "first"))
	if err := s.Save(ctx, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Mutating the caller's copy must not affect the stored record.
	record.AppendHistory(message.NewMessage(message.RoleUser, "second"))

	loaded, err := s.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.History) != 1 {
		t.Errorf("Expected stored history unchanged, got %d messages", len(loaded.History))
	}

	// Mutating a loaded copy must not affect the store either.
	loaded.History[0].Content = "tampered"
	again, _ := s.Load(ctx, "sess-1")
	if again.History[0].Text() == "tampered" {
		t.Error("Expected loaded record to be isolated from the store")
	}
}

func TestMemoryStoreDeleteAndCount(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Save(ctx, session.NewRecord("a", ""))
	_ = s.Save(ctx, session.NewRecord("b", ""))

	if count, _ := s.Count(ctx); count != 2 {
		t.Errorf("Expected 2 sessions, got %d", count)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if exists, _ := s.Exists(ctx, "a"); exists {
		t.Error("Expected session a gone")
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Errorf("Deleting absent session must not fail: %v", err)
	}

	ids, err := s.List(ctx)
	if err != nil || len(ids) != 1 || ids[0] != "b" {
		t.Errorf("Expected [b], got %v (err %v)", ids, err)
	}
}
