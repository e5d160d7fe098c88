package archive

import (
	"context"
	"log/slog"
	"sync"
)

// ParticipantLeftEvent is the write-behind payload describing one closed
// participation. It identifies the row to close by (session, user, joined).
type ParticipantLeftEvent struct {
	EventID   string `json:"event_id"`
	SessionID int64  `json:"session_id"`
	User      string `json:"user"`
	Nickname  string `json:"nickname,omitempty"`
	JoinedMS  int64  `json:"joined_ms"`
	LeftMS    int64  `json:"left_ms"`
}

// ParticipationQueue publishes participation closures for deferred, batched
// persistence by a worker.
type ParticipationQueue interface {
	PublishParticipantLeft(ctx context.Context, ev ParticipantLeftEvent) error
}

// EventIDFunc mints ids for queued events.
type EventIDFunc func() (string, error)

// Flags holds the archiving feature switches.
type Flags struct {
	MetadataArchiving bool
	MessageArchiving  bool
	RoomArchiving     bool
}

// Coordinator is the concrete session-lifecycle manager: it owns the
// archiving flags, keeps a registry of live sessions and forwards closed
// participations to the write-behind queue, falling back to a synchronous
// store write when no queue is configured or the publish fails.
type Coordinator struct {
	flags   Flags
	store   Store
	queue   ParticipationQueue // may be nil
	eventID EventIDFunc

	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewCoordinator builds a coordinator. queue may be nil, in which case every
// closure is written through synchronously. eventID may be nil when queue is
// nil.
func NewCoordinator(flags Flags, store Store, queue ParticipationQueue, eventID EventIDFunc) *Coordinator {
	return &Coordinator{
		flags:    flags,
		store:    store,
		queue:    queue,
		eventID:  eventID,
		sessions: make(map[int64]*Session),
	}
}

func (c *Coordinator) MetadataArchivingEnabled() bool { return c.flags.MetadataArchiving }
func (c *Coordinator) MessageArchivingEnabled() bool  { return c.flags.MessageArchiving }
func (c *Coordinator) RoomArchivingEnabled() bool     { return c.flags.RoomArchiving }

// QueueParticipantLeft hands a closed participation to the write-behind
// queue. Persistence failures never reach the caller: the in-memory session
// stays authoritative.
func (c *Coordinator) QueueParticipantLeft(ctx context.Context, s *Session, user Address, p Participation) {
	if !c.flags.MetadataArchiving {
		return
	}
	sessionID := s.ID()
	if sessionID == -1 {
		// Never persisted; there is no row to close.
		return
	}

	if c.queue != nil {
		ev := ParticipantLeftEvent{
			SessionID: sessionID,
			User:      user.String(),
			Nickname:  p.Nickname,
			JoinedMS:  p.Joined.UnixMilli(),
			LeftMS:    p.Left.UnixMilli(),
		}
		if c.eventID != nil {
			if id, err := c.eventID(); err == nil {
				ev.EventID = id
			}
		}
		err := c.queue.PublishParticipantLeft(ctx, ev)
		if err == nil {
			return
		}
		slog.Error("failed to queue participation closure, writing through",
			"session", sessionID, "user", user.String(), "err", err)
	}

	if err := c.store.CloseParticipation(ctx, sessionID, user, p.Joined, p.Left); err != nil {
		slog.Error("failed to persist participation closure",
			"session", sessionID, "user", user.String(), "err", err)
	}
}

// Track registers a live session so it can be found by id. Sessions that
// were never persisted have id -1 and are not registered.
func (c *Coordinator) Track(s *Session) {
	id := s.ID()
	if id == -1 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[id] = s
}

// Untrack drops a session from the live registry, typically after End.
func (c *Coordinator) Untrack(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, id)
}

// Find returns the live session with the given id, or nil.
func (c *Coordinator) Find(id int64) *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions[id]
}

// FindOrLoad returns the live session with the given id, reconstructing it
// from storage when it is not in the registry. Loaded sessions are not
// registered: a stored session is finished history, not a live one.
func (c *Coordinator) FindOrLoad(ctx context.Context, id int64) (*Session, error) {
	if s := c.Find(id); s != nil {
		return s, nil
	}
	return LoadSession(ctx, c, c.store, id)
}
