package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "conversation.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return store
}

func TestLoadUnknownUserIsEmpty(t *testing.T) {
	store := newTestStore(t)
	turns, err := store.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("len(turns) = %d, want 0", len(turns))
	}
}

func TestSavePreservesTurnOrderAcrossTurns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	var turns []Turn
	for i, pair := range [][2]string{
		{"hello", "hi, how are you feeling?"},
		{"tired lately", "how long has this been going on?"},
		{"a few weeks", "that sounds draining, tell me more"},
	} {
		turns = append(turns,
			Turn{Role: RoleUser, Content: pair[0], CreatedAt: now.Add(time.Duration(i) * time.Minute)},
			Turn{Role: RoleAssistant, Content: pair[1], CreatedAt: now.Add(time.Duration(i) * time.Minute)},
		)
		if err := store.Save(ctx, "alice", turns); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	got, err := store.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("len(turns) = %d, want 6", len(got))
	}
	want := []string{"hello", "hi, how are you feeling?", "tired lately",
		"how long has this been going on?", "a few weeks", "that sounds draining, tell me more"}
	for i, w := range want {
		if got[i].Content != w {
			t.Fatalf("turn[%d] = %q, want %q", i, got[i].Content, w)
		}
	}
}

func TestSaveIsolatesUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "alice", []Turn{{Role: RoleUser, Content: "a"}}); err != nil {
		t.Fatalf("Save(alice) error = %v", err)
	}
	if err := store.Save(ctx, "bob", []Turn{{Role: RoleUser, Content: "b"}}); err != nil {
		t.Fatalf("Save(bob) error = %v", err)
	}

	alice, err := store.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("Load(alice) error = %v", err)
	}
	if len(alice) != 1 || alice[0].Content != "a" {
		t.Fatalf("alice turns = %+v, want her single turn", alice)
	}
}

func TestClampToBudgetDropsOldestWholeTurns(t *testing.T) {
	long := make([]rune, 400) // ~100 tokens
	for i := range long {
		long[i] = 'x'
	}
	turns := []Turn{
		{Role: RoleUser, Content: string(long)},
		{Role: RoleAssistant, Content: string(long)},
		{Role: RoleUser, Content: string(long)},
	}

	got := ClampToBudget(turns, 210)
	if len(got) != 2 {
		t.Fatalf("len(clamped) = %d, want 2", len(got))
	}
	if got[0].Role != RoleAssistant {
		t.Fatalf("oldest surviving turn role = %q, want assistant", got[0].Role)
	}
	// Whole turns survive intact.
	if got[0].Content != string(long) {
		t.Fatalf("turn content truncated")
	}
}

func TestClampToBudgetNoBudgetKeepsAll(t *testing.T) {
	turns := []Turn{{Content: "a"}, {Content: "b"}}
	if got := ClampToBudget(turns, 0); len(got) != 2 {
		t.Fatalf("len(clamped) = %d, want 2", len(got))
	}
}
