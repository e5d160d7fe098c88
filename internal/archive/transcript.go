package archive

import (
	"context"
	"log/slog"
	"sort"
)

// Phrase keys used for synthesized narrative entry bodies.
const (
	PhraseJoined          = "conversation.joined"
	PhraseJoinedAnonymous = "conversation.joined.anonymous"
	PhraseLeft            = "conversation.left"
	PhraseLeftAnonymous   = "conversation.left.anonymous"
)

// TranscriptBuilder merges a session's archived messages with synthesized
// join/left narrative entries into one time-ordered transcript. It is
// stateless: every call recomputes the transcript from current state, since
// the session's ledgers can keep mutating between calls.
type TranscriptBuilder struct {
	store   Store
	names   NameResolver
	phrases Localizer
}

// NewTranscriptBuilder returns a builder reading messages from store,
// resolving display names through names and rendering narrative bodies
// through phrases.
func NewTranscriptBuilder(store Store, names NameResolver, phrases Localizer) *TranscriptBuilder {
	return &TranscriptBuilder{store: store, names: names, phrases: phrases}
}

// Build produces the transcript for s.
//
// When archiving is disabled for the session's kind (message archiving for
// one-to-one chats, room archiving for group chats) the result is empty.
// One-to-one transcripts are the stored messages as-is. Room transcripts
// additionally contain one "joined" narrative entry per participation record
// and a matching "left" entry for each closed record, with the whole
// sequence stable-sorted by timestamp. Real messages are gathered before the
// narrative entries, so at equal timestamps a message precedes a narrative
// line.
func (b *TranscriptBuilder) Build(ctx context.Context, s *Session) ([]ArchivedMessage, error) {
	room := s.Room()
	if room == "" && !s.mgr.MessageArchivingEnabled() {
		return nil, nil
	}
	if room != "" && !s.mgr.RoomArchivingEnabled() {
		return nil, nil
	}

	messages, err := b.store.LoadMessages(ctx, s.ID())
	if err != nil {
		return nil, err
	}
	if room == "" {
		return messages, nil
	}

	messages = append(messages, b.narrativeEntries(ctx, s)...)
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Sent.Before(messages[j].Sent)
	})
	return messages, nil
}

// narrativeEntries synthesizes the join/left lines of a room session. A
// participant whose display name cannot be resolved is reported with
// anonymous phrasing under the bare address. Records without a join
// timestamp are corrupt history: they are skipped with a warning.
func (b *TranscriptBuilder) narrativeEntries(ctx context.Context, s *Session) []ArchivedMessage {
	var entries []ArchivedMessage
	sessionID := s.ID()
	room := s.Room()

	// Deterministic participant order keeps repeated builds byte-identical.
	users := s.Participants()
	sort.Slice(users, func(i, j int) bool { return users[i].String() < users[j].String() })

	for _, user := range users {
		anonymous := false
		name, err := b.names.DisplayName(ctx, user)
		if err != nil {
			name = user.Bare
			anonymous = true
		}
		for _, p := range s.Participations(user) {
			if p.Joined.IsZero() {
				slog.Warn("found room participant with no join date", "session", sessionID, "user", user.String())
				continue
			}
			// Room occupants are addressed as room + "/" + nickname.
			to := NewAddress(room, p.Nickname)
			var joinBody, leftBody string
			if anonymous {
				joinBody = b.phrases.Phrase(PhraseJoinedAnonymous, p.Nickname)
				leftBody = b.phrases.Phrase(PhraseLeftAnonymous, p.Nickname)
			} else {
				joinBody = b.phrases.Phrase(PhraseJoined, p.Nickname, name)
				leftBody = b.phrases.Phrase(PhraseLeft, p.Nickname, name)
			}
			entries = append(entries, ArchivedMessage{
				SessionID: sessionID,
				From:      user,
				To:        to,
				Sent:      p.Joined,
				Body:      joinBody,
				Narrative: true,
			})
			if !p.Left.IsZero() {
				entries = append(entries, ArchivedMessage{
					SessionID: sessionID,
					From:      user,
					To:        to,
					Sent:      p.Left,
					Body:      leftBody,
					Narrative: true,
				})
			}
		}
	}
	return entries
}
