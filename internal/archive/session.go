package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Session represents one bounded conversational exchange: a one-to-one chat
// between two users or a group chat taking place in a room. A session tracks
// its participants' join/leave history, the start and last-activity
// timestamps and the message count. The owning Manager decides when a
// session starts and ends; the session itself only reacts to the events it
// is handed.
//
// All mutating operations on one session are serialized by a per-session
// lock. Operations on different sessions never contend.
type Session struct {
	mu    sync.RWMutex
	mgr   Manager
	store Store

	id           int64
	room         string
	external     bool
	startDate    time.Time
	lastActivity time.Time
	messageCount int
	// keyed by the participant's full address string
	participants map[string]*Ledger
}

// NewPairSession constructs a one-to-one session between exactly two users.
// Returns ErrInvalidArgument for any other participant count. If metadata
// archiving is enabled the session header and initial participations are
// written through immediately; a persistence failure is logged and swallowed
// and the in-memory session stays valid with id -1.
func NewPairSession(ctx context.Context, mgr Manager, store Store, users []Address, external bool, startDate time.Time) (*Session, error) {
	if len(users) != 2 {
		return nil, fmt.Errorf("%w: illegal number of participants: %d", ErrInvalidArgument, len(users))
	}
	s := &Session{
		mgr:          mgr,
		store:        store,
		id:           -1,
		external:     external,
		startDate:    startDate,
		lastActivity: startDate,
		participants: make(map[string]*Ledger, 2),
	}
	for _, u := range users {
		led := NewLedger(false)
		led.Open(startDate, "")
		s.participants[u.String()] = led
	}
	if mgr.MetadataArchivingEnabled() {
		s.persistNew(ctx)
	}
	return s, nil
}

// NewRoomSession constructs a group-chat session seeded with the room's
// current occupants. Each occupant's ledger is opened at startDate with the
// occupant's current nickname. Persistence follows the same best-effort rule
// as NewPairSession.
func NewRoomSession(ctx context.Context, mgr Manager, store Store, rooms RoomDirectory, room string, external bool, startDate time.Time) (*Session, error) {
	s := &Session{
		mgr:          mgr,
		store:        store,
		id:           -1,
		room:         room,
		external:     external,
		startDate:    startDate,
		lastActivity: startDate,
		participants: make(map[string]*Ledger),
	}
	occupants, err := rooms.Occupants(ctx, room)
	if err != nil {
		return nil, err
	}
	for _, o := range occupants {
		led := NewLedger(true)
		led.Open(startDate, o.Nickname)
		s.participants[o.User.String()] = led
	}
	if mgr.MetadataArchivingEnabled() {
		s.persistNew(ctx)
	}
	return s, nil
}

// LoadSession reconstructs a session from storage by id. Returns ErrNotFound
// when no header row exists for the id.
func LoadSession(ctx context.Context, mgr Manager, store Store, sessionID int64) (*Session, error) {
	h, err := store.LoadSessionHeader(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s := &Session{
		mgr:          mgr,
		store:        store,
		id:           h.ID,
		room:         h.Room,
		external:     h.External,
		startDate:    h.StartDate,
		lastActivity: h.LastActivity,
		messageCount: h.MessageCount,
		participants: make(map[string]*Ledger),
	}
	parts, err := store.LoadParticipations(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		user := NewAddress(p.Bare, p.Resource)
		led := s.participants[user.String()]
		if led == nil {
			led = NewLedger(s.room != "")
			s.participants[user.String()] = led
		}
		led.Append(Participation{Joined: p.Joined, Left: p.Left, Nickname: p.Nickname})
	}
	return s, nil
}

// ID returns the session id, or -1 while the session has not been persisted.
func (s *Session) ID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Room returns the room address of a group session, or "" for a one-to-one
// chat.
func (s *Session) Room() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room
}

// External reports whether one of the participants is on another server.
func (s *Session) External() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.external
}

// StartDate returns the starting timestamp of the session.
func (s *Session) StartDate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startDate
}

// LastActivity returns the timestamp of the last received message.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// MessageCount returns the number of messages in the session, including
// private messages exchanged inside a room.
func (s *Session) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messageCount
}

// Participants returns the full addresses of every participant that ever
// took part in the session.
func (s *Session) Participants() []Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Address, 0, len(s.participants))
	for key := range s.participants {
		out = append(out, ParseAddress(key))
	}
	return out
}

// Participations returns the participation history of the given user, most
// recent first. The result is empty for an unknown user; a read never
// allocates a ledger.
func (s *Session) Participations(user Address) []Participation {
	s.mu.RLock()
	led := s.participants[user.String()]
	s.mu.RUnlock()
	if led == nil {
		return nil
	}
	return led.Records()
}

// MessageReceived records that a message was sent within the session: the
// last-activity timestamp takes the message's date and the message count is
// incremented. Safe under concurrent delivery from multiple senders; the
// count is delivery-order independent while last activity is last-write-wins
// in delivery order.
func (s *Session) MessageReceived(_ Address, date time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = date
	s.messageCount++
}

// closedParticipation pairs a participant with a participation record that
// was just closed. Manager notifications are collected under the session
// lock and fired after it is released, so a manager implementation is free
// to call back into the session.
type closedParticipation struct {
	user Address
	rec  Participation
}

// ParticipantJoined records that a user joined the session. A join arriving
// while the user's previous participation is still open is an out-of-order
// anomaly: the stale record is force-closed at the join timestamp, a warning
// is logged and the manager is notified so the closure reaches storage. The
// new participation is opened either way.
func (s *Session) ParticipantJoined(ctx context.Context, user Address, nickname string, date time.Time) {
	var forced []closedParticipation

	s.mu.Lock()
	key := user.String()
	led := s.participants[key]
	if led == nil {
		led = NewLedger(true)
		s.participants[key] = led
	} else if stale, ok := led.CloseRecent(date); ok {
		slog.Warn("participant joined without leaving previous participation",
			"session", s.id, "user", key)
		forced = append(forced, closedParticipation{user: user, rec: stale})
	}
	led.Open(date, nickname)

	if s.mgr.MetadataArchivingEnabled() {
		if s.id == -1 {
			s.persistNewLocked(ctx)
		} else if err := s.store.AppendParticipation(ctx, s.id, user, nickname, date); err != nil {
			slog.Error("failed to persist participation", "session", s.id, "user", key, "err", err)
		}
	}
	s.mu.Unlock()

	s.notifyLeft(ctx, forced)
}

// ParticipantLeft records that a user left the session. A leave for an
// unknown user or for an already-closed participation is a no-op anomaly:
// it is logged and otherwise ignored.
func (s *Session) ParticipantLeft(ctx context.Context, user Address, date time.Time) {
	var closures []closedParticipation

	s.mu.Lock()
	led := s.participants[user.String()]
	if led == nil {
		slog.Warn("participant left a session it never joined", "session", s.id, "user", user.String())
	} else if closed, ok := led.CloseRecent(date); ok {
		closures = append(closures, closedParticipation{user: user, rec: closed})
	} else {
		slog.Warn("participant left a session it never joined", "session", s.id, "user", user.String())
	}
	s.mu.Unlock()

	s.notifyLeft(ctx, closures)
}

// End closes every still-open participation at the given timestamp and
// notifies the manager for each, so no ledger is left dangling open once the
// session is considered finished.
func (s *Session) End(ctx context.Context, date time.Time) {
	var closures []closedParticipation

	s.mu.Lock()
	for key, led := range s.participants {
		if closed, ok := led.CloseRecent(date); ok {
			closures = append(closures, closedParticipation{user: ParseAddress(key), rec: closed})
		}
	}
	s.mu.Unlock()

	s.notifyLeft(ctx, closures)
}

func (s *Session) notifyLeft(ctx context.Context, closures []closedParticipation) {
	for _, c := range closures {
		s.mgr.QueueParticipantLeft(ctx, s, c.user, c.rec)
	}
}

// persistNew writes the session header and every current participation row.
// Failures are logged and swallowed: in-memory state stays authoritative and
// the id stays -1 so a later event can retry the full persist.
func (s *Session) persistNew(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistNewLocked(ctx)
}

func (s *Session) persistNewLocked(ctx context.Context) {
	h := SessionHeader{
		Room:         s.room,
		External:     s.external,
		StartDate:    s.startDate,
		LastActivity: s.lastActivity,
		MessageCount: s.messageCount,
	}
	var parts []StoredParticipation
	for key, led := range s.participants {
		user := ParseAddress(key)
		for _, p := range led.Records() {
			parts = append(parts, StoredParticipation{
				Bare:     user.Bare,
				Resource: user.Resource,
				Nickname: p.Nickname,
				Joined:   p.Joined,
				Left:     p.Left,
			})
		}
	}
	id, err := s.store.CreateSession(ctx, h, parts)
	if err != nil {
		slog.Error("failed to persist new session", "room", s.room, "err", err)
		return
	}
	s.id = id
}

func (s *Session) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := fmt.Sprintf("Session [%d]", s.id)
	if s.room != "" {
		out += " in room " + s.room
	}
	return fmt.Sprintf("%s, started %s, last active %s, total messages: %d",
		out, s.startDate.Format(time.RFC3339), s.lastActivity.Format(time.RFC3339), s.messageCount)
}
