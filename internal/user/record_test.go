package user

import (
	"testing"
	"time"
)

func TestTouchCountsAndReportsTransition(t *testing.T) {
	now := time.Unix(100, 0).UTC()
	s := NewStats(now)
	if !s.FirstSeen.Equal(now) || !s.LastSeen.Equal(now) {
		t.Fatalf("unexpected timestamps: %+v", s)
	}

	for i := 0; i < 9; i++ {
		before, after := s.Touch(now.Add(time.Minute))
		if before.ID != 1 || after.ID != 1 {
			t.Fatalf("unexpected transition at msg %d: %d -> %d", i+1, before.ID, after.ID)
		}
	}
	if s.MessageCount != 9 {
		t.Fatalf("want 9 messages, got %d", s.MessageCount)
	}

	// the 10th message crosses into tier 2
	before, after := s.Touch(now.Add(time.Hour))
	if before.ID != 1 || after.ID != 2 {
		t.Fatalf("want 1 -> 2 transition, got %d -> %d", before.ID, after.ID)
	}
	if !s.FirstSeen.Equal(now) {
		t.Fatalf("FirstSeen must never change after creation")
	}
	if !s.LastSeen.Equal(now.Add(time.Hour)) {
		t.Fatalf("LastSeen not updated: %v", s.LastSeen)
	}
}

func TestAppendTurnCapsHistoryFIFO(t *testing.T) {
	var turns []Turn
	for i := 0; i < 10; i++ {
		turns = AppendTurn(turns, Turn{User: string(rune('a' + i))})
		if len(turns) > MaxContextTurns {
			t.Fatalf("cap exceeded after append %d: %d", i, len(turns))
		}
	}
	if len(turns) != MaxContextTurns {
		t.Fatalf("want %d retained turns, got %d", MaxContextTurns, len(turns))
	}
	// exactly the last K appended, order preserved
	want := []string{"g", "h", "i", "j"}
	for i, w := range want {
		if turns[i].User != w {
			t.Fatalf("turn %d = %q, want %q", i, turns[i].User, w)
		}
	}
}
