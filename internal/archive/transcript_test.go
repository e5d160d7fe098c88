package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
)

// fakePhrases renders phrases as "key|arg1|arg2" so tests can assert on the
// exact key and argument order.
type fakePhrases struct{}

func (fakePhrases) Phrase(key string, args ...any) string {
	out := key
	for _, a := range args {
		out += fmt.Sprintf("|%v", a)
	}
	return out
}

// fakeNames resolves only the names it was given.
type fakeNames struct {
	names map[string]string
}

func (f *fakeNames) DisplayName(_ context.Context, user Address) (string, error) {
	name, ok := f.names[user.Bare]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, user.Bare)
	}
	return name, nil
}

func roomSession(t *testing.T, mgr Manager, st Store) *Session {
	t.Helper()
	rooms := &fakeRooms{occupants: map[string][]Occupant{
		"lobby@rooms.example.org": {{User: alice, Nickname: "Ali"}},
	}}
	s, err := NewRoomSession(context.Background(), mgr, st, rooms, "lobby@rooms.example.org", false, ts(0))
	if err != nil {
		t.Fatalf("new room session: %v", err)
	}
	return s
}

func TestTranscriptRoomOrdering(t *testing.T) {
	st := newFakeStore()
	mgr := &fakeManager{metadata: true, message: true, room: true}
	s := roomSession(t, mgr, st)

	st.messages[s.ID()] = []ArchivedMessage{
		{SessionID: s.ID(), From: alice, To: ParseAddress("lobby@rooms.example.org"), Sent: ts(2), Body: "hello"},
	}
	s.ParticipantLeft(context.Background(), alice, ts(3))

	b := NewTranscriptBuilder(st, &fakeNames{names: map[string]string{alice.Bare: "Alice A"}}, fakePhrases{})
	entries, err := b.Build(context.Background(), s)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if !entries[0].Narrative || entries[0].Body != "conversation.joined|Ali|Alice A" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Narrative || entries[1].Body != "hello" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
	if !entries[2].Narrative || entries[2].Body != "conversation.left|Ali|Alice A" {
		t.Fatalf("unexpected third entry: %+v", entries[2])
	}
	// narrative lines are addressed to room/nickname
	if entries[0].To.String() != "lobby@rooms.example.org/Ali" {
		t.Fatalf("unexpected narrative addressing: %s", entries[0].To)
	}
}

func TestTranscriptAnonymousFallback(t *testing.T) {
	st := newFakeStore()
	mgr := &fakeManager{metadata: true, message: true, room: true}
	s := roomSession(t, mgr, st)

	b := NewTranscriptBuilder(st, &fakeNames{}, fakePhrases{})
	entries, err := b.Build(context.Background(), s)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Body != "conversation.joined.anonymous|Ali" {
		t.Fatalf("expected anonymous phrasing, got %q", entries[0].Body)
	}
}

func TestTranscriptTieBreakMessagesFirst(t *testing.T) {
	st := newFakeStore()
	mgr := &fakeManager{metadata: true, message: true, room: true}
	s := roomSession(t, mgr, st)

	// message shares the join timestamp
	st.messages[s.ID()] = []ArchivedMessage{
		{SessionID: s.ID(), From: alice, Sent: ts(0), Body: "same instant"},
	}

	b := NewTranscriptBuilder(st, &fakeNames{}, fakePhrases{})
	entries, err := b.Build(context.Background(), s)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Narrative || !entries[1].Narrative {
		t.Fatalf("at equal timestamps the real message must precede the narrative entry")
	}
}

func TestTranscriptDeterminism(t *testing.T) {
	st := newFakeStore()
	mgr := &fakeManager{metadata: true, message: true, room: true}
	rooms := &fakeRooms{occupants: map[string][]Occupant{
		"lobby@rooms.example.org": {
			{User: alice, Nickname: "Ali"},
			{User: bob, Nickname: "Bobby"},
			{User: carol, Nickname: "Caz"},
		},
	}}
	s, err := NewRoomSession(context.Background(), mgr, st, rooms, "lobby@rooms.example.org", false, ts(0))
	if err != nil {
		t.Fatalf("new room session: %v", err)
	}
	st.messages[s.ID()] = []ArchivedMessage{
		{SessionID: s.ID(), From: bob, Sent: ts(1), Body: "one"},
		{SessionID: s.ID(), From: carol, Sent: ts(2), Body: "two"},
	}

	b := NewTranscriptBuilder(st, &fakeNames{names: map[string]string{bob.Bare: "Bob B"}}, fakePhrases{})

	first, err := b.Build(context.Background(), s)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	second, err := b.Build(context.Background(), s)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	a, _ := json.Marshal(first)
	bts, _ := json.Marshal(second)
	if string(a) != string(bts) {
		t.Fatalf("transcript must be byte-identical across builds:\n%s\n%s", a, bts)
	}
}

func TestTranscriptSkipsRecordsWithoutJoinDate(t *testing.T) {
	st := newFakeStore()
	mgr := &fakeManager{metadata: true, message: true, room: true}
	s := roomSession(t, mgr, st)

	// corrupt history: a record with no join timestamp
	s.mu.Lock()
	s.participants[bob.String()] = NewLedger(true)
	s.participants[bob.String()].Append(Participation{Nickname: "ghost"})
	s.mu.Unlock()

	b := NewTranscriptBuilder(st, &fakeNames{}, fakePhrases{})
	entries, err := b.Build(context.Background(), s)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, e := range entries {
		if e.From.Bare == bob.Bare {
			t.Fatalf("corrupt record must be skipped, got %+v", e)
		}
	}
}

func TestTranscriptArchivingDisabled(t *testing.T) {
	st := newFakeStore()

	// room session with room archiving off
	mgrRoom := &fakeManager{metadata: true, message: true, room: false}
	s := roomSession(t, mgrRoom, st)
	st.messages[s.ID()] = []ArchivedMessage{{SessionID: s.ID(), From: alice, Sent: ts(1), Body: "x"}}

	b := NewTranscriptBuilder(st, &fakeNames{}, fakePhrases{})
	entries, err := b.Build(context.Background(), s)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("room archiving disabled: expected empty transcript, got %d entries", len(entries))
	}

	// one-to-one session with message archiving off
	mgrPair := &fakeManager{metadata: true, message: false}
	p, err := NewPairSession(context.Background(), mgrPair, st, []Address{alice, bob}, false, ts(0))
	if err != nil {
		t.Fatalf("new pair session: %v", err)
	}
	entries, err = b.Build(context.Background(), p)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("message archiving disabled: expected empty transcript, got %d entries", len(entries))
	}
}

func TestTranscriptPairPassThrough(t *testing.T) {
	st := newFakeStore()
	mgr := &fakeManager{metadata: true, message: true}
	s, err := NewPairSession(context.Background(), mgr, st, []Address{alice, bob}, false, ts(0))
	if err != nil {
		t.Fatalf("new pair session: %v", err)
	}
	st.messages[s.ID()] = []ArchivedMessage{
		{SessionID: s.ID(), From: alice, To: bob, Sent: ts(1), Body: "hi"},
		{SessionID: s.ID(), From: bob, To: alice, Sent: ts(2), Body: "hey"},
	}

	b := NewTranscriptBuilder(st, &fakeNames{}, fakePhrases{})
	entries, err := b.Build(context.Background(), s)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected the 2 stored messages, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Narrative {
			t.Fatalf("one-to-one transcripts must not contain narrative entries")
		}
	}
}
