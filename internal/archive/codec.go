package archive

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire format versions. Bump when a payload shape changes incompatibly.
const (
	envelopeVersion = 1
	ledgerVersion   = 1
)

// The wire representation must survive the two sides of a transfer running
// different builds of this code. Each nested aggregate is therefore
// independently marshalled into its own tagged, versioned payload and
// embedded in the envelope as an opaque string, instead of leaning on the
// envelope's own structure for nested types.

type sessionEnvelope struct {
	Version      int                   `json:"v"`
	SessionID    int64                 `json:"session_id"`
	Participants []participantPayload  `json:"participants"`
	External     bool                  `json:"external"`
	StartMS      int64                 `json:"start_ms"`
	ActivityMS   int64                 `json:"last_activity_ms"`
	MessageCount int                   `json:"message_count"`
	Room         string                `json:"room,omitempty"`
}

type participantPayload struct {
	Key    string `json:"key"`
	Ledger string `json:"ledger"` // independently marshalled ledgerPayload
}

type ledgerPayload struct {
	Version int             `json:"v"`
	Room    bool            `json:"room"`
	Records []recordPayload `json:"records"` // most recent first
}

type recordPayload struct {
	JoinedMS int64  `json:"joined_ms"`
	LeftMS   int64  `json:"left_ms,omitempty"` // 0 while still open
	Nickname string `json:"nickname,omitempty"`
}

// EncodeSession serializes a session, its ledgers and their records into the
// self-describing wire form used for cross-node transfer.
func EncodeSession(s *Session) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	env := sessionEnvelope{
		Version:      envelopeVersion,
		SessionID:    s.id,
		External:     s.external,
		StartMS:      s.startDate.UnixMilli(),
		ActivityMS:   s.lastActivity.UnixMilli(),
		MessageCount: s.messageCount,
		Room:         s.room,
	}
	for key, led := range s.participants {
		lp := ledgerPayload{Version: ledgerVersion, Room: led.RoomParticipation()}
		for _, p := range led.Records() {
			rp := recordPayload{JoinedMS: p.Joined.UnixMilli(), Nickname: p.Nickname}
			if !p.Left.IsZero() {
				rp.LeftMS = p.Left.UnixMilli()
			}
			lp.Records = append(lp.Records, rp)
		}
		inner, err := json.Marshal(lp)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal ledger for %s: %v", ErrCodec, key, err)
		}
		env.Participants = append(env.Participants, participantPayload{Key: key, Ledger: string(inner)})
	}

	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal envelope: %v", ErrCodec, err)
	}
	return out, nil
}

// DecodeSession rebuilds a session from its wire form. The owning manager
// and store cannot travel over the wire; the caller supplies live handles
// for the receiving process. Any decode problem fails the whole call with
// ErrCodec.
func DecodeSession(data []byte, mgr Manager, store Store) (*Session, error) {
	var env sessionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: unmarshal envelope: %v", ErrCodec, err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("%w: unsupported envelope version %d", ErrCodec, env.Version)
	}

	s := &Session{
		mgr:          mgr,
		store:        store,
		id:           env.SessionID,
		room:         env.Room,
		external:     env.External,
		startDate:    time.UnixMilli(env.StartMS),
		lastActivity: time.UnixMilli(env.ActivityMS),
		messageCount: env.MessageCount,
		participants: make(map[string]*Ledger, len(env.Participants)),
	}
	for _, pp := range env.Participants {
		var lp ledgerPayload
		if err := json.Unmarshal([]byte(pp.Ledger), &lp); err != nil {
			return nil, fmt.Errorf("%w: unmarshal ledger for %s: %v", ErrCodec, pp.Key, err)
		}
		if lp.Version != ledgerVersion {
			return nil, fmt.Errorf("%w: unsupported ledger version %d for %s", ErrCodec, lp.Version, pp.Key)
		}
		led := NewLedger(lp.Room)
		// Records travel most-recent-first; append back-to-front so the
		// rebuilt ledger keeps the original ordering.
		for i := len(lp.Records) - 1; i >= 0; i-- {
			rp := lp.Records[i]
			rec := Participation{Joined: time.UnixMilli(rp.JoinedMS), Nickname: rp.Nickname}
			if rp.LeftMS != 0 {
				rec.Left = time.UnixMilli(rp.LeftMS)
			}
			led.Append(rec)
		}
		s.participants[pp.Key] = led
	}
	return s, nil
}
