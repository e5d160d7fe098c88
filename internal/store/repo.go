package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/suPer8Hu/im-archive/internal/archive"
)

// Repo is the gorm-backed persistence collaborator for the archive core.
type Repo struct {
	db *gorm.DB
}

var _ archive.Store = (*Repo)(nil)

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// AutoMigrate creates or updates the archive tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&SessionRow{}, &ParticipationRow{}, &MessageRow{})
}

func msOf(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func timeOf(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// CreateSession inserts the header and the initial participation rows in one
// transaction and returns the generated session id.
func (r *Repo) CreateSession(ctx context.Context, h archive.SessionHeader, parts []archive.StoredParticipation) (int64, error) {
	row := SessionRow{
		Room:         h.Room,
		External:     h.External,
		StartMS:      msOf(h.StartDate),
		ActivityMS:   msOf(h.LastActivity),
		MessageCount: h.MessageCount,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for _, p := range parts {
			pr := ParticipationRow{
				SessionID: row.ID,
				Bare:      p.Bare,
				Resource:  p.Resource,
				Nickname:  p.Nickname,
				JoinedMS:  msOf(p.Joined),
				LeftMS:    msOf(p.Left),
			}
			if err := tx.Create(&pr).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return -1, err
	}
	return row.ID, nil
}

func (r *Repo) AppendParticipation(ctx context.Context, sessionID int64, user archive.Address, nickname string, joined time.Time) error {
	row := ParticipationRow{
		SessionID: sessionID,
		Bare:      user.Bare,
		Resource:  user.Resource,
		Nickname:  nickname,
		JoinedMS:  msOf(joined),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repo) CloseParticipation(ctx context.Context, sessionID int64, user archive.Address, joined, left time.Time) error {
	return r.db.WithContext(ctx).Model(&ParticipationRow{}).
		Where("session_id = ? AND bare = ? AND resource = ? AND joined_ms = ?",
			sessionID, user.Bare, user.Resource, msOf(joined)).
		Update("left_ms", msOf(left)).Error
}

func (r *Repo) LoadSessionHeader(ctx context.Context, sessionID int64) (archive.SessionHeader, error) {
	var row SessionRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return archive.SessionHeader{}, fmt.Errorf("%w: session %d", archive.ErrNotFound, sessionID)
		}
		return archive.SessionHeader{}, err
	}
	return archive.SessionHeader{
		ID:           row.ID,
		Room:         row.Room,
		External:     row.External,
		StartDate:    timeOf(row.StartMS),
		LastActivity: timeOf(row.ActivityMS),
		MessageCount: row.MessageCount,
	}, nil
}

// LoadParticipations returns all participation rows ordered by join time.
func (r *Repo) LoadParticipations(ctx context.Context, sessionID int64) ([]archive.StoredParticipation, error) {
	var rows []ParticipationRow
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("joined_ms ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]archive.StoredParticipation, 0, len(rows))
	for _, row := range rows {
		out = append(out, archive.StoredParticipation{
			Bare:     row.Bare,
			Resource: row.Resource,
			Nickname: row.Nickname,
			Joined:   timeOf(row.JoinedMS),
			Left:     timeOf(row.LeftMS),
		})
	}
	return out, nil
}

// LoadMessages returns the archived messages ordered by sent time.
func (r *Repo) LoadMessages(ctx context.Context, sessionID int64) ([]archive.ArchivedMessage, error) {
	var rows []MessageRow
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sent_ms ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]archive.ArchivedMessage, 0, len(rows))
	for _, row := range rows {
		m := archive.ArchivedMessage{
			SessionID: row.SessionID,
			From:      archive.NewAddress(row.FromBare, row.FromResource),
			To:        archive.NewAddress(row.ToBare, row.ToResource),
			Sent:      timeOf(row.SentMS),
			Body:      row.Body,
			Stanza:    row.Stanza,
		}
		if row.PMFor != nil {
			m.PMFor = archive.ParseAddress(*row.PMFor)
		}
		out = append(out, m)
	}
	return out, nil
}

// InsertMessage archives one message. Used by the batch archiver, not by the
// session core itself.
func (r *Repo) InsertMessage(ctx context.Context, m archive.ArchivedMessage) error {
	row := MessageRow{
		SessionID:    m.SessionID,
		FromBare:     m.From.Bare,
		FromResource: m.From.Resource,
		ToBare:       m.To.Bare,
		ToResource:   m.To.Resource,
		SentMS:       msOf(m.Sent),
		Body:         m.Body,
		Stanza:       m.Stanza,
	}
	if !m.PMFor.IsZero() {
		pm := m.PMFor.String()
		row.PMFor = &pm
	}
	return r.db.WithContext(ctx).Create(&row).Error
}
