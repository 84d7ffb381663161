package transcript

import (
	"context"
	"fmt"
	"testing"
)

func TestInMemoryAppendAndBySession(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := store.Append(ctx, Entry{
			SessionID: "s1",
			Role:      "user",
			Text:      fmt.Sprintf("line %d", i),
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := store.BySession(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("BySession() error = %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("BySession() returned %d entries, want 5", len(got))
	}
	for i, e := range got {
		if want := fmt.Sprintf("line %d", i); e.Text != want {
			t.Fatalf("entry %d text = %q, want %q", i, e.Text, want)
		}
		if e.ID == "" {
			t.Fatalf("entry %d has empty ID", i)
		}
		if e.CreatedAt.IsZero() {
			t.Fatalf("entry %d has zero CreatedAt", i)
		}
	}
}

func TestInMemoryBySessionLimit(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := store.Append(ctx, Entry{SessionID: "s1", Text: fmt.Sprintf("line %d", i)}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := store.BySession(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("BySession() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("BySession(limit=3) returned %d entries, want 3", len(got))
	}
	// Most recent three, oldest first.
	for i, want := range []string{"line 7", "line 8", "line 9"} {
		if got[i].Text != want {
			t.Fatalf("entry %d text = %q, want %q", i, got[i].Text, want)
		}
	}
}

func TestInMemoryUnknownSession(t *testing.T) {
	store := NewInMemoryStore()
	got, err := store.BySession(context.Background(), "nope", 10)
	if err != nil {
		t.Fatalf("BySession() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("BySession() for unknown session returned %d entries, want 0", len(got))
	}
}
