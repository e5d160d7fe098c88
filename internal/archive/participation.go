package archive

import (
	"sync"
	"time"
)

// Participation is one contiguous join-to-leave interval for one participant.
// Left is the zero time while the participant is still present. Once set it
// is never cleared and is always >= Joined. Nickname is only meaningful for
// room participations.
type Participation struct {
	Joined   time.Time
	Left     time.Time
	Nickname string
}

// Open reports whether the participation has not ended yet.
func (p Participation) Open() bool {
	return p.Left.IsZero()
}

// Ledger holds the participation history of one participant within one
// session, most recent first. A participant may join, leave and rejoin any
// number of times (possibly under a different nickname); every join starts a
// new record.
//
// The ledger is safe for concurrent use regardless of whether it belongs to
// a room or a one-to-one session: appends and record mutation take the write
// lock, snapshot reads take the read lock and copy.
type Ledger struct {
	mu      sync.RWMutex
	room    bool
	records []Participation // index 0 is the most recent
}

// NewLedger creates an empty ledger. room marks the participations as
// belonging to a group-room session.
func NewLedger(room bool) *Ledger {
	return &Ledger{room: room}
}

// RoomParticipation reports whether this ledger tracks room participations.
func (l *Ledger) RoomParticipation() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.room
}

// Open prepends a new open participation record.
func (l *Ledger) Open(joined time.Time, nickname string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append([]Participation{{Joined: joined, Nickname: nickname}}, l.records...)
}

// Append adds an already-built record at the most-recent position. Used when
// rebuilding a ledger from storage or from the wire.
func (l *Ledger) Append(p Participation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append([]Participation{p}, l.records...)
}

// Recent returns a copy of the most recent record. ok is false when the
// ledger is empty.
func (l *Ledger) Recent() (p Participation, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.records) == 0 {
		return Participation{}, false
	}
	return l.records[0], true
}

// CloseRecent sets the left timestamp on the most recent record if that
// record is still open, and returns a copy of the closed record. ok is false
// when the ledger is empty or the most recent record was already closed.
func (l *Ledger) CloseRecent(left time.Time) (p Participation, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records) == 0 || !l.records[0].Left.IsZero() {
		return Participation{}, false
	}
	l.records[0].Left = left
	return l.records[0], true
}

// Records returns a snapshot copy of all records, most recent first.
func (l *Ledger) Records() []Participation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Participation, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
