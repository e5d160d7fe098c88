package store

import (
	"context"
	"errors"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/suPer8Hu/im-archive/internal/archive"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func ms(sec int) time.Time {
	return time.Date(2024, 3, 1, 12, 0, sec, 0, time.UTC)
}

var (
	alice = archive.Address{Bare: "alice@example.org", Resource: "desktop"}
	bob   = archive.Address{Bare: "bob@example.org"}
)

func TestCreateAndLoadSession(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	id, err := repo.CreateSession(ctx, archive.SessionHeader{
		Room:         "lobby@rooms.example.org",
		External:     true,
		StartDate:    ms(0),
		LastActivity: ms(0),
	}, []archive.StoredParticipation{
		{Bare: alice.Bare, Resource: alice.Resource, Nickname: "Ali", Joined: ms(0)},
		{Bare: bob.Bare, Nickname: "Bobby", Joined: ms(0)},
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected generated id, got %d", id)
	}

	h, err := repo.LoadSessionHeader(ctx, id)
	if err != nil {
		t.Fatalf("load header: %v", err)
	}
	if h.ID != id || h.Room != "lobby@rooms.example.org" || !h.External {
		t.Fatalf("unexpected header: %+v", h)
	}
	if !h.StartDate.Equal(ms(0)) {
		t.Fatalf("start date not preserved: %v", h.StartDate)
	}

	parts, err := repo.LoadParticipations(ctx, id)
	if err != nil {
		t.Fatalf("load participations: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(parts))
	}
	if !parts[0].Left.IsZero() {
		t.Fatalf("open participation must load with zero left time")
	}
}

func TestLoadSessionHeaderNotFound(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	_, err := repo.LoadSessionHeader(context.Background(), 12345)
	if !errors.Is(err, archive.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadParticipationsOrderedByJoinTime(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	id, err := repo.CreateSession(ctx, archive.SessionHeader{StartDate: ms(0), LastActivity: ms(0)}, nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	// appended out of join order
	if err := repo.AppendParticipation(ctx, id, alice, "second", ms(5)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.AppendParticipation(ctx, id, alice, "first", ms(1)); err != nil {
		t.Fatalf("append: %v", err)
	}

	parts, err := repo.LoadParticipations(ctx, id)
	if err != nil {
		t.Fatalf("load participations: %v", err)
	}
	if parts[0].Nickname != "first" || parts[1].Nickname != "second" {
		t.Fatalf("rows not ordered by join time: %+v", parts)
	}
}

func TestCloseParticipation(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	id, err := repo.CreateSession(ctx, archive.SessionHeader{StartDate: ms(0), LastActivity: ms(0)}, nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := repo.AppendParticipation(ctx, id, alice, "Ali", ms(1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.AppendParticipation(ctx, id, alice, "Ali", ms(7)); err != nil {
		t.Fatalf("append: %v", err)
	}

	// closes only the row matching the join timestamp
	if err := repo.CloseParticipation(ctx, id, alice, ms(1), ms(3)); err != nil {
		t.Fatalf("close: %v", err)
	}

	parts, err := repo.LoadParticipations(ctx, id)
	if err != nil {
		t.Fatalf("load participations: %v", err)
	}
	if !parts[0].Left.Equal(ms(3)) {
		t.Fatalf("first row should be closed at %v, got %v", ms(3), parts[0].Left)
	}
	if !parts[1].Left.IsZero() {
		t.Fatalf("second row must stay open")
	}
}

func TestMessagesRoundTripOrderedBySentTime(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	id, err := repo.CreateSession(ctx, archive.SessionHeader{StartDate: ms(0), LastActivity: ms(0)}, nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	pm := archive.ParseAddress("carol@example.org")
	msgs := []archive.ArchivedMessage{
		{SessionID: id, From: bob, To: alice, Sent: ms(4), Body: "later", Stanza: "<message/>"},
		{SessionID: id, From: alice, To: bob, Sent: ms(2), Body: "earlier", PMFor: pm},
	}
	for _, m := range msgs {
		if err := repo.InsertMessage(ctx, m); err != nil {
			t.Fatalf("insert message: %v", err)
		}
	}

	got, err := repo.LoadMessages(ctx, id)
	if err != nil {
		t.Fatalf("load messages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].Body != "earlier" || got[1].Body != "later" {
		t.Fatalf("messages not ordered by sent time: %+v", got)
	}
	if got[0].PMFor.Bare != "carol@example.org" {
		t.Fatalf("pm recipient not preserved: %+v", got[0].PMFor)
	}
	if got[1].Stanza != "<message/>" {
		t.Fatalf("stanza not preserved")
	}
	if got[0].From.String() != alice.String() {
		t.Fatalf("full address not rebuilt: %s", got[0].From)
	}
}
