package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dream-chatter/internal/storage"
)

// Open connects to Postgres and migrates the schema.
func Open(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql db: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(
		&storage.Dream{},
		&storage.PendingDream{},
		&storage.MessageRecord{},
		&storage.UserProfile{},
		&storage.UserStat{},
		&storage.ActivityRecord{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

type DreamRepo struct{ db *gorm.DB }

func NewDreamRepo(db *gorm.DB) *DreamRepo { return &DreamRepo{db: db} }

func (r *DreamRepo) Save(ctx context.Context, d *storage.Dream) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DreamRepo) ListByChat(ctx context.Context, chatID int64, limit, offset int) ([]storage.Dream, error) {
	var rows []storage.Dream
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, err
}

func (r *DreamRepo) CountByChat(ctx context.Context, chatID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&storage.Dream{}).Where("chat_id = ?", chatID).Count(&n).Error
	return n, err
}

func (r *DreamRepo) GetByID(ctx context.Context, chatID int64, id uint) (*storage.Dream, error) {
	var d storage.Dream
	err := r.db.WithContext(ctx).Where("chat_id = ? AND id = ?", chatID, id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DreamRepo) Delete(ctx context.Context, chatID int64, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("chat_id = ? AND id = ?", chatID, id).Delete(&storage.Dream{})
	return res.RowsAffected > 0, res.Error
}

type PendingDreamRepo struct{ db *gorm.DB }

func NewPendingDreamRepo(db *gorm.DB) *PendingDreamRepo { return &PendingDreamRepo{db: db} }

// Put replaces the chat's pending record inside one transaction so
// concurrent writers resolve to a single winner.
func (r *PendingDreamRepo) Put(ctx context.Context, chatID int64, dreamText, interpretation, sourceType string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", chatID).Delete(&storage.PendingDream{}).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		return tx.Create(&storage.PendingDream{
			ChatID:         chatID,
			DreamText:      dreamText,
			Interpretation: interpretation,
			SourceType:     sourceType,
			DreamDate:      now.Format("2006-01-02"),
			CreatedAt:      now,
			UpdatedAt:      now,
		}).Error
	})
}

func (r *PendingDreamRepo) Get(ctx context.Context, chatID int64) (*storage.PendingDream, error) {
	var p storage.PendingDream
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PendingDreamRepo) AttachAstrological(ctx context.Context, chatID int64, interpretation, dreamDate string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&storage.PendingDream{}).
		Where("chat_id = ?", chatID).
		Updates(map[string]interface{}{
			"astrological_interpretation": interpretation,
			"dream_date":                  dreamDate,
			"updated_at":                  time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *PendingDreamRepo) Clear(ctx context.Context, chatID int64) error {
	return r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&storage.PendingDream{}).Error
}

type MessageRepo struct{ db *gorm.DB }

func NewMessageRepo(db *gorm.DB) *MessageRepo { return &MessageRepo{db: db} }

func (r *MessageRepo) Append(ctx context.Context, chatID int64, role, content string) error {
	return r.db.WithContext(ctx).Create(&storage.MessageRecord{
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}).Error
}

func (r *MessageRepo) History(ctx context.Context, chatID int64, limit int) ([]storage.MessageRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []storage.MessageRecord
	// limit counts user/assistant pairs, hence *2
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("timestamp DESC").
		Limit(limit * 2).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

type ProfileRepo struct{ db *gorm.DB }

func NewProfileRepo(db *gorm.DB) *ProfileRepo { return &ProfileRepo{db: db} }

func (r *ProfileRepo) Upsert(ctx context.Context, p *storage.UserProfile) error {
	p.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "gender", "age_group", "lucid_dreaming", "updated_at"}),
		}).
		Create(p).Error
}

func (r *ProfileRepo) Get(ctx context.Context, chatID int64) (*storage.UserProfile, error) {
	var p storage.UserProfile
	err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type StatsRepo struct{ db *gorm.DB }

func NewStatsRepo(db *gorm.DB) *StatsRepo { return &StatsRepo{db: db} }

func (r *StatsRepo) LogActivity(ctx context.Context, rec storage.ActivityRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	rec.Content = clampContent(rec.Content, 1000)
	return r.db.WithContext(ctx).Create(&rec).Error
}

// clampContent truncates on rune boundaries: activity content is mostly
// Cyrillic, and a byte-offset cut can split a rune into invalid UTF-8 that
// Postgres refuses to store.
func clampContent(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func (r *StatsRepo) BumpMessage(ctx context.Context, chatID int64, username string, symbols int) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "chat_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"messages_sent": gorm.Expr("user_stats.messages_sent + 1"),
				"symbols_sent":  gorm.Expr("user_stats.symbols_sent + ?", symbols),
				"username":      username,
				"updated_at":    time.Now().UTC(),
			}),
		}).
		Create(&storage.UserStat{
			ChatID:       chatID,
			Username:     username,
			MessagesSent: 1,
			SymbolsSent:  symbols,
			UpdatedAt:    time.Now().UTC(),
		}).Error
}

func (r *StatsRepo) BumpStart(ctx context.Context, chatID int64, username string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "chat_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"starts_count": gorm.Expr("user_stats.starts_count + 1"),
				"username":     username,
				"updated_at":   time.Now().UTC(),
			}),
		}).
		Create(&storage.UserStat{
			ChatID:      chatID,
			Username:    username,
			StartsCount: 1,
			UpdatedAt:   time.Now().UTC(),
		}).Error
}

func (r *StatsRepo) AllChatIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&storage.UserStat{}).
		Order("updated_at DESC").
		Pluck("chat_id", &ids).Error
	return ids, err
}

func (r *StatsRepo) ListActivity(ctx context.Context, from, to time.Time) ([]storage.ActivityRecord, error) {
	var rows []storage.ActivityRecord
	err := r.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Order("timestamp ASC").
		Find(&rows).Error
	return rows, err
}
