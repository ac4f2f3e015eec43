package memorystore

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func vec(x, y float64) []float32 {
	return []float32{float32(x), float32(y)}
}

func seedSession(t *testing.T, store *MemoryStore) uuid.UUID {
	t.Helper()
	sessionId := uuid.New()

	messages := []Message{
		{Role: "user", Text: "I want a personal loan", Embedding: vec(1, 0)},
		{Role: "assistant", Text: "What amount do you need?", Embedding: vec(0.9, 0.1)},
		{Role: "user", Text: "10 lakhs", Embedding: vec(0.95, 0.05)},
		{Role: "assistant", Text: "For how long?", Embedding: vec(0.1, 0.9)},
	}
	if err := store.Append(context.Background(), sessionId, "user-1", messages...); err != nil {
		t.Fatalf("Append: %v", err)
	}
	return sessionId
}

func TestRecentReturnsChronologicalTail(t *testing.T) {
	store := NewMemoryStore(nil)
	sessionId := seedSession(t, store)

	recent, err := store.Recent(context.Background(), sessionId, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[0].Text != "10 lakhs" || recent[1].Text != "For how long?" {
		t.Errorf("got [%q, %q], want the last two messages in order", recent[0].Text, recent[1].Text)
	}
}

func TestRecentLargerThanHistory(t *testing.T) {
	store := NewMemoryStore(nil)
	sessionId := seedSession(t, store)

	recent, err := store.Recent(context.Background(), sessionId, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 4 {
		t.Errorf("len = %d, want the full history", len(recent))
	}
}

func TestRelevantOrdersByDistanceAndExcludes(t *testing.T) {
	store := NewMemoryStore(nil)
	sessionId := seedSession(t, store)

	recent, err := store.Recent(context.Background(), sessionId, 2)
	if err != nil {
		t.Fatal(err)
	}
	exclude := []uuid.UUID{recent[0].Id, recent[1].Id}

	relevant, err := store.Relevant(context.Background(), sessionId, vec(1, 0), 5, 0.5, exclude)
	if err != nil {
		t.Fatal(err)
	}

	if len(relevant) != 2 {
		t.Fatalf("len = %d, want 2 (older loan messages only)", len(relevant))
	}
	if relevant[0].Message.Text != "I want a personal loan" {
		t.Errorf("closest = %q, want the exact-match message", relevant[0].Message.Text)
	}
	if relevant[0].Distance > relevant[1].Distance {
		t.Errorf("results not ordered by ascending distance: %v", relevant)
	}
	for _, sc := range relevant {
		for _, id := range exclude {
			if sc.Message.Id == id {
				t.Errorf("excluded message %s leaked into relevant set", id)
			}
		}
	}
}

func TestRelevantHonorsMaxDistance(t *testing.T) {
	store := NewMemoryStore(nil)
	sessionId := seedSession(t, store)

	relevant, err := store.Relevant(context.Background(), sessionId, vec(1, 0), 5, 0.01, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, sc := range relevant {
		if sc.Distance > 0.01 {
			t.Errorf("message at distance %v exceeds the cut-off", sc.Distance)
		}
	}
}

func TestClearIsIdempotent(t *testing.T) {
	store := NewMemoryStore(nil)
	sessionId := seedSession(t, store)

	removed, err := store.Clear(context.Background(), sessionId)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 4 {
		t.Errorf("removed = %d, want 4", removed)
	}

	removed, err = store.Clear(context.Background(), sessionId)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("second Clear removed = %d, want 0", removed)
	}

	recent, err := store.Recent(context.Background(), sessionId, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 0 {
		t.Errorf("history survived Clear: %v", recent)
	}
}

func TestClearLeavesOtherSessionsAlone(t *testing.T) {
	store := NewMemoryStore(nil)
	first := seedSession(t, store)
	second := seedSession(t, store)

	if _, err := store.Clear(context.Background(), first); err != nil {
		t.Fatal(err)
	}

	recent, err := store.Recent(context.Background(), second, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 4 {
		t.Errorf("unrelated session lost messages: len = %d", len(recent))
	}
}
