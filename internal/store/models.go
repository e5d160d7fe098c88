package store

// Timestamps are stored as epoch milliseconds so rows round-trip exactly,
// independent of database timezone handling.

type SessionRow struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Room         string `gorm:"type:varchar(255);index"`
	External     bool   `gorm:"not null"`
	StartMS      int64  `gorm:"not null"`
	ActivityMS   int64  `gorm:"not null"`
	MessageCount int    `gorm:"not null"`
}

func (SessionRow) TableName() string { return "archive_sessions" }

type ParticipationRow struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	SessionID int64  `gorm:"not null;index:idx_participation_session_joined,priority:1"`
	Bare      string `gorm:"type:varchar(255);not null"`
	Resource  string `gorm:"type:varchar(255);not null"`
	Nickname  string `gorm:"type:varchar(255)"`
	JoinedMS  int64  `gorm:"not null;index:idx_participation_session_joined,priority:2"`
	// 0 while the participation is still open.
	LeftMS int64 `gorm:"not null"`
}

func (ParticipationRow) TableName() string { return "archive_participations" }

type MessageRow struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	SessionID    int64  `gorm:"not null;index:idx_message_session_sent,priority:1"`
	FromBare     string `gorm:"type:varchar(255);not null"`
	FromResource string `gorm:"type:varchar(255)"`
	ToBare       string `gorm:"type:varchar(255);not null"`
	ToResource   string `gorm:"type:varchar(255)"`
	SentMS       int64  `gorm:"not null;index:idx_message_session_sent,priority:2"`
	Body         string `gorm:"type:text"`
	Stanza       string `gorm:"type:text"`
	// Bare address of the private-message recipient inside a room, when the
	// message was a PM.
	PMFor *string `gorm:"type:varchar(255)"`
}

func (MessageRow) TableName() string { return "archive_messages" }
