package archive

import (
	"context"
	"time"
)

// SessionHeader carries the scalar session fields as they exist in storage.
type SessionHeader struct {
	ID           int64
	Room         string
	External     bool
	StartDate    time.Time
	LastActivity time.Time
	MessageCount int
}

// StoredParticipation is one participation row as it exists in storage.
// Left is the zero time while the participation is still open.
type StoredParticipation struct {
	Bare     string
	Resource string
	Nickname string
	Joined   time.Time
	Left     time.Time
}

// ArchivedMessage is one transcript entry: either a real archived message or
// a synthesized join/left narrative line. PMFor is set when the message was a
// private message inside a room.
type ArchivedMessage struct {
	SessionID int64
	From      Address
	To        Address
	Sent      time.Time
	Body      string
	Stanza    string
	Narrative bool
	PMFor     Address
}

// Store is the persistence collaborator. Implementations must return
// ErrNotFound (possibly wrapped) from LoadSessionHeader when no header row
// exists for the given id.
type Store interface {
	// CreateSession durably writes a new session header together with its
	// initial participations and returns the assigned session id.
	CreateSession(ctx context.Context, h SessionHeader, parts []StoredParticipation) (int64, error)

	// AppendParticipation writes one new open participation row.
	AppendParticipation(ctx context.Context, sessionID int64, user Address, nickname string, joined time.Time) error

	// CloseParticipation sets the left timestamp on the participation row
	// identified by (sessionID, user, joined).
	CloseParticipation(ctx context.Context, sessionID int64, user Address, joined, left time.Time) error

	LoadSessionHeader(ctx context.Context, sessionID int64) (SessionHeader, error)

	// LoadParticipations returns all participation rows ordered by join time.
	LoadParticipations(ctx context.Context, sessionID int64) ([]StoredParticipation, error)

	// LoadMessages returns the archived messages ordered by sent time.
	LoadMessages(ctx context.Context, sessionID int64) ([]ArchivedMessage, error)
}

// Occupant is one current member of a room.
type Occupant struct {
	User     Address
	Nickname string
}

// RoomDirectory is the room membership collaborator. It answers the current
// occupant snapshot used when a room session is constructed.
type RoomDirectory interface {
	Occupants(ctx context.Context, room string) ([]Occupant, error)
}

// NameResolver is the identity-resolution collaborator. DisplayName returns
// ErrNotFound (possibly wrapped) when the user is unknown; the transcript
// builder then falls back to the bare address and anonymous phrasing.
type NameResolver interface {
	DisplayName(ctx context.Context, user Address) (string, error)
}

// Localizer renders narrative entry bodies.
type Localizer interface {
	Phrase(key string, args ...any) string
}

// Manager is the session-lifecycle manager the core notifies and consults.
// It decides when sessions start and end (out of scope here), owns the
// archiving feature flags, and receives closed participations for
// write-behind persistence.
type Manager interface {
	MetadataArchivingEnabled() bool
	MessageArchivingEnabled() bool
	RoomArchivingEnabled() bool

	// QueueParticipantLeft hands a closed participation record to the
	// manager for durable write-behind. Failures are the manager's problem;
	// the call must not propagate errors back into session state.
	QueueParticipantLeft(ctx context.Context, s *Session, user Address, p Participation)
}
