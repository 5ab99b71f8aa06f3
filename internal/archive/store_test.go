package archive

import (
	"context"
	"testing"
	"time"

	"github.com/zulandar/interviewer/internal/db"
	"github.com/zulandar/interviewer/internal/models"
	"github.com/zulandar/interviewer/internal/session"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenAndMigrate(db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close(gdb) })
	return gdb
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(StoreOpts{DB: openTestDB(t)})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func exchange(id, channelID string, at time.Time, turns ...session.Turn) session.Exchange {
	return session.Exchange{
		ID:        id,
		ChannelID: channelID,
		GuildID:   "G01",
		UserName:  "alice",
		Turns:     turns,
		At:        at,
	}
}

// ---------------------------------------------------------------------------
// NewStore
// ---------------------------------------------------------------------------

func TestNewStore_NilDB(t *testing.T) {
	if _, err := NewStore(StoreOpts{}); err == nil {
		t.Fatal("expected error for nil DB")
	}
}

// ---------------------------------------------------------------------------
// Record / ChannelHistory
// ---------------------------------------------------------------------------

func TestRecord_AssignsContiguousSequence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.Record(ctx, exchange("e1", "C01", now,
		session.SystemTurn("You are an interviewer."),
		session.AssistantTurn("What is closures?"),
	)); err != nil {
		t.Fatalf("record e1: %v", err)
	}
	if err := s.Record(ctx, exchange("e2", "C01", now,
		session.UserTurn("A function with its scope."),
		session.AssistantTurn("Next question."),
	)); err != nil {
		t.Fatalf("record e2: %v", err)
	}

	turns, err := s.ChannelHistory(ctx, "C01", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("got %d turns, want 4", len(turns))
	}
	wantRoles := []string{"system", "assistant", "user", "assistant"}
	for i, tr := range turns {
		if tr.Sequence != i+1 {
			t.Errorf("turn %d sequence = %d, want %d", i, tr.Sequence, i+1)
		}
		if tr.Role != wantRoles[i] {
			t.Errorf("turn %d role = %q, want %q", i, tr.Role, wantRoles[i])
		}
	}
	if turns[0].ExchangeID != "e1" || turns[2].ExchangeID != "e2" {
		t.Errorf("exchange ids = %q, %q", turns[0].ExchangeID, turns[2].ExchangeID)
	}
	if turns[2].UserName != "alice" {
		t.Errorf("user turn UserName = %q, want alice", turns[2].UserName)
	}
	if turns[1].UserName != "" {
		t.Errorf("assistant turn UserName = %q, want empty", turns[1].UserName)
	}
}

func TestRecord_ChannelsIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Record(ctx, exchange("e1", "C01", time.Now(), session.UserTurn("a")))
	s.Record(ctx, exchange("e2", "C02", time.Now(), session.UserTurn("b")))

	turns, _ := s.ChannelHistory(ctx, "C02", 0)
	if len(turns) != 1 || turns[0].Sequence != 1 || turns[0].Content != "b" {
		t.Errorf("C02 history = %+v", turns)
	}
}

func TestRecord_EmptyExchangeIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.Record(context.Background(), exchange("e1", "C01", time.Now())); err != nil {
		t.Fatalf("record: %v", err)
	}
	turns, _ := s.ChannelHistory(context.Background(), "C01", 0)
	if len(turns) != 0 {
		t.Errorf("got %d turns, want 0", len(turns))
	}
}

func TestRecord_EmptyContentStored(t *testing.T) {
	s := newTestStore(t)
	if err := s.Record(context.Background(), exchange("e1", "C01", time.Now(), session.AssistantTurn(""))); err != nil {
		t.Fatalf("record: %v", err)
	}
	turns, _ := s.ChannelHistory(context.Background(), "C01", 0)
	if len(turns) != 1 || turns[0].Content != "" {
		t.Errorf("history = %+v", turns)
	}
}

func TestRecord_ZeroTimeUsesNow(t *testing.T) {
	s := newTestStore(t)
	before := time.Now().Add(-time.Second)
	s.Record(context.Background(), exchange("e1", "C01", time.Time{}, session.UserTurn("x")))

	turns, _ := s.ChannelHistory(context.Background(), "C01", 0)
	if len(turns) != 1 || turns[0].CreatedAt.Before(before) {
		t.Errorf("CreatedAt = %v, want after %v", turns[0].CreatedAt, before)
	}
}

func TestChannelHistory_Limit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, c := range []string{"one", "two", "three", "four"} {
		s.Record(ctx, exchange(c, "C01", time.Now(), session.UserTurn(c)))
	}

	turns, err := s.ChannelHistory(ctx, "C01", 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 2 || turns[0].Content != "three" || turns[1].Content != "four" {
		t.Errorf("history = %+v, want the last two in order", turns)
	}
}

func TestChannelHistory_UnknownChannel(t *testing.T) {
	s := newTestStore(t)
	turns, err := s.ChannelHistory(context.Background(), "nope", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("got %d turns, want 0", len(turns))
	}
}

// ---------------------------------------------------------------------------
// Channels
// ---------------------------------------------------------------------------

func TestChannels_Summaries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	old := time.Now().Add(-2 * time.Hour)
	recent := time.Now().Add(-time.Minute)

	s.Record(ctx, exchange("e1", "C01", old, session.SystemTurn("s"), session.AssistantTurn("q")))
	s.Record(ctx, exchange("e2", "C02", recent, session.SystemTurn("s")))

	got, err := s.Channels(ctx)
	if err != nil {
		t.Fatalf("channels: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d channels, want 2", len(got))
	}
	if got[0].ChannelID != "C02" || got[1].ChannelID != "C01" {
		t.Errorf("order = %s, %s; want most recent first", got[0].ChannelID, got[1].ChannelID)
	}
	if got[1].Turns != 2 || got[0].Turns != 1 {
		t.Errorf("turns = %d, %d", got[1].Turns, got[0].Turns)
	}
	if got[0].GuildID != "G01" {
		t.Errorf("GuildID = %q, want G01", got[0].GuildID)
	}
}

func TestChannels_Empty(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Channels(context.Background())
	if err != nil {
		t.Fatalf("channels: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d channels, want 0", len(got))
	}
}

// ---------------------------------------------------------------------------
// Prune
// ---------------------------------------------------------------------------

func TestPrune_DeletesOlderTurns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	s.Record(ctx, exchange("old", "C01", now.Add(-48*time.Hour), session.UserTurn("old")))
	s.Record(ctx, exchange("new", "C01", now, session.UserTurn("new")))

	n, err := s.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}

	turns, _ := s.ChannelHistory(ctx, "C01", 0)
	if len(turns) != 1 || turns[0].Content != "new" {
		t.Fatalf("history = %+v", turns)
	}
	if turns[0].Sequence != 2 {
		t.Errorf("oldest remaining sequence = %d, want 2", turns[0].Sequence)
	}

	// Sequence keeps counting after a prune.
	s.Record(ctx, exchange("next", "C01", now, session.UserTurn("next")))
	turns, _ = s.ChannelHistory(ctx, "C01", 0)
	if last := turns[len(turns)-1]; last.Sequence != 3 {
		t.Errorf("sequence after prune = %d, want 3", last.Sequence)
	}
}

func TestPrune_Nothing(t *testing.T) {
	s := newTestStore(t)
	n, err := s.Prune(context.Background(), time.Now())
	if err != nil || n != 0 {
		t.Errorf("Prune = %d, %v; want 0, nil", n, err)
	}
}

func countTurns(t *testing.T, s *Store) int64 {
	t.Helper()
	var n int64
	if err := s.db.Model(&models.ArchivedTurn{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
