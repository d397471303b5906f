package storage

import (
	"context"
	"time"
)

// Dream is one saved diary entry. Append-only from the bot's perspective;
// deletion happens only on explicit user request.
type Dream struct {
	ID                         uint   `gorm:"primaryKey"`
	ChatID                     int64  `gorm:"index:idx_dreams_chat_created,priority:1;not null"`
	DreamText                  string `gorm:"not null"`
	Interpretation             string `gorm:"not null"`
	AstrologicalInterpretation *string
	SourceType                 string    `gorm:"size:25;not null;default:text"`
	DreamDate                  string    `gorm:"size:10"`
	CreatedAt                  time.Time `gorm:"index:idx_dreams_chat_created,priority:2,sort:desc"`
}

// PendingDream is the latest interpretation for a chat not yet confirmed
// into the diary. At most one live row per chat; a newer dream replaces it.
type PendingDream struct {
	ID                         uint  `gorm:"primaryKey"`
	ChatID                     int64 `gorm:"index;not null"`
	DreamText                  string
	Interpretation             string
	SourceType                 string `gorm:"size:25"`
	AstrologicalInterpretation *string
	// DreamDate (YYYY-MM-DD) defaults to the day the dream was told and
	// is overwritten by the user-chosen date of the astrological reading.
	DreamDate string `gorm:"size:10"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageRecord is one turn of the conversation history fed back to the model.
type MessageRecord struct {
	ID        uint  `gorm:"primaryKey"`
	ChatID    int64 `gorm:"index:idx_messages_chat_ts,priority:1;not null"`
	Role      string
	Content   string
	Timestamp time.Time `gorm:"index:idx_messages_chat_ts,priority:2,sort:desc"`
}

// UserProfile holds the onboarding questionnaire answers.
type UserProfile struct {
	ChatID        int64 `gorm:"primaryKey"`
	Username      string
	Gender        string `gorm:"size:20"`
	AgeGroup      string `gorm:"size:20"`
	LucidDreaming string `gorm:"size:20"`
	UpdatedAt     time.Time
}

// UserStat is the per-chat usage counter row.
type UserStat struct {
	ChatID       int64 `gorm:"primaryKey"`
	Username     string
	MessagesSent int
	SymbolsSent  int
	StartsCount  int
	UpdatedAt    time.Time
}

// ActivityRecord is one structured audit entry (message received, voice
// rejected, dream saved, errors). The daily report aggregates these.
type ActivityRecord struct {
	ID        uint `gorm:"primaryKey"`
	UserID    int64
	Username  string
	ChatID    int64  `gorm:"index"`
	Action    string `gorm:"size:50"`
	Content   string
	Timestamp time.Time
}

// DreamRepository persists the diary.
type DreamRepository interface {
	Save(ctx context.Context, d *Dream) error
	ListByChat(ctx context.Context, chatID int64, limit, offset int) ([]Dream, error)
	CountByChat(ctx context.Context, chatID int64) (int64, error)
	GetByID(ctx context.Context, chatID int64, id uint) (*Dream, error)
	Delete(ctx context.Context, chatID int64, id uint) (bool, error)
}

// PendingDreamRepository holds at most one unsaved interpretation per chat.
// Put overwrites any previous record (last write wins) and stamps DreamDate
// with the current day. Get returns nil when nothing is pending.
// AttachAstrological stores the reading and the dream date it was cast for,
// reporting false when there is no record to attach to. Clear is idempotent.
// Implementations must be safe for concurrent use across chats.
type PendingDreamRepository interface {
	Put(ctx context.Context, chatID int64, dreamText, interpretation, sourceType string) error
	Get(ctx context.Context, chatID int64) (*PendingDream, error)
	AttachAstrological(ctx context.Context, chatID int64, interpretation, dreamDate string) (bool, error)
	Clear(ctx context.Context, chatID int64) error
}

// MessageRepository stores conversation history in chronological order.
type MessageRepository interface {
	Append(ctx context.Context, chatID int64, role, content string) error
	// History returns up to limit recent user/assistant pairs, oldest first.
	History(ctx context.Context, chatID int64, limit int) ([]MessageRecord, error)
}

// ProfileRepository stores questionnaire answers.
type ProfileRepository interface {
	Upsert(ctx context.Context, p *UserProfile) error
	Get(ctx context.Context, chatID int64) (*UserProfile, error)
}

// StatsRepository records usage counters and the activity audit log.
type StatsRepository interface {
	LogActivity(ctx context.Context, rec ActivityRecord) error
	BumpMessage(ctx context.Context, chatID int64, username string, symbols int) error
	BumpStart(ctx context.Context, chatID int64, username string) error
	AllChatIDs(ctx context.Context) ([]int64, error)
	ListActivity(ctx context.Context, from, to time.Time) ([]ActivityRecord, error)
}
