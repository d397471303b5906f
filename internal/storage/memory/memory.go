// Package memory holds mutex-guarded implementations of the storage
// repositories. They back unit tests and let the bot run without a
// database; semantics match the postgres implementations.
package memory

import (
	"context"
	"sync"
	"time"

	"dream-chatter/internal/storage"
)

type DreamRepo struct {
	mu     sync.Mutex
	nextID uint
	byChat map[int64][]storage.Dream
}

func NewDreamRepo() *DreamRepo {
	return &DreamRepo{nextID: 1, byChat: make(map[int64][]storage.Dream)}
}

func (r *DreamRepo) Save(_ context.Context, d *storage.Dream) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = r.nextID
	r.nextID++
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	// newest first, matching the postgres ORDER BY created_at DESC
	r.byChat[d.ChatID] = append([]storage.Dream{*d}, r.byChat[d.ChatID]...)
	return nil
}

func (r *DreamRepo) ListByChat(_ context.Context, chatID int64, limit, offset int) ([]storage.Dream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.byChat[chatID]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]storage.Dream, end-offset)
	copy(out, all[offset:end])
	return out, nil
}

func (r *DreamRepo) CountByChat(_ context.Context, chatID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byChat[chatID])), nil
}

func (r *DreamRepo) GetByID(_ context.Context, chatID int64, id uint) (*storage.Dream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.byChat[chatID] {
		if d.ID == id {
			cp := d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *DreamRepo) Delete(_ context.Context, chatID int64, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.byChat[chatID]
	for i, d := range all {
		if d.ID == id {
			r.byChat[chatID] = append(all[:i], all[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type PendingDreamRepo struct {
	mu     sync.Mutex
	byChat map[int64]*storage.PendingDream
}

func NewPendingDreamRepo() *PendingDreamRepo {
	return &PendingDreamRepo{byChat: make(map[int64]*storage.PendingDream)}
}

func (r *PendingDreamRepo) Put(_ context.Context, chatID int64, dreamText, interpretation, sourceType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	r.byChat[chatID] = &storage.PendingDream{
		ChatID:         chatID,
		DreamText:      dreamText,
		Interpretation: interpretation,
		SourceType:     sourceType,
		DreamDate:      now.Format("2006-01-02"),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return nil
}

func (r *PendingDreamRepo) Get(_ context.Context, chatID int64) (*storage.PendingDream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byChat[chatID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *PendingDreamRepo) AttachAstrological(_ context.Context, chatID int64, interpretation, dreamDate string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byChat[chatID]
	if !ok {
		return false, nil
	}
	p.AstrologicalInterpretation = &interpretation
	p.DreamDate = dreamDate
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *PendingDreamRepo) Clear(_ context.Context, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byChat, chatID)
	return nil
}

type MessageRepo struct {
	mu     sync.Mutex
	byChat map[int64][]storage.MessageRecord
}

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{byChat: make(map[int64][]storage.MessageRecord)}
}

func (r *MessageRepo) Append(_ context.Context, chatID int64, role, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byChat[chatID] = append(r.byChat[chatID], storage.MessageRecord{
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (r *MessageRepo) History(_ context.Context, chatID int64, limit int) ([]storage.MessageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 10
	}
	all := r.byChat[chatID]
	n := limit * 2
	if n > len(all) {
		n = len(all)
	}
	out := make([]storage.MessageRecord, n)
	copy(out, all[len(all)-n:])
	return out, nil
}

type ProfileRepo struct {
	mu     sync.Mutex
	byChat map[int64]storage.UserProfile
}

func NewProfileRepo() *ProfileRepo {
	return &ProfileRepo{byChat: make(map[int64]storage.UserProfile)}
}

func (r *ProfileRepo) Upsert(_ context.Context, p *storage.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.UpdatedAt = time.Now().UTC()
	r.byChat[p.ChatID] = *p
	return nil
}

func (r *ProfileRepo) Get(_ context.Context, chatID int64) (*storage.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byChat[chatID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

type StatsRepo struct {
	mu       sync.Mutex
	nextID   uint
	activity []storage.ActivityRecord
	byChat   map[int64]*storage.UserStat
}

func NewStatsRepo() *StatsRepo {
	return &StatsRepo{nextID: 1, byChat: make(map[int64]*storage.UserStat)}
}

func (r *StatsRepo) LogActivity(_ context.Context, rec storage.ActivityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = r.nextID
	r.nextID++
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	r.activity = append(r.activity, rec)
	return nil
}

func (r *StatsRepo) BumpMessage(_ context.Context, chatID int64, username string, symbols int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stat(chatID, username)
	s.MessagesSent++
	s.SymbolsSent += symbols
	return nil
}

func (r *StatsRepo) BumpStart(_ context.Context, chatID int64, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stat(chatID, username)
	s.StartsCount++
	return nil
}

func (r *StatsRepo) stat(chatID int64, username string) *storage.UserStat {
	s, ok := r.byChat[chatID]
	if !ok {
		s = &storage.UserStat{ChatID: chatID}
		r.byChat[chatID] = s
	}
	if username != "" {
		s.Username = username
	}
	s.UpdatedAt = time.Now().UTC()
	return s
}

func (r *StatsRepo) AllChatIDs(_ context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.byChat))
	for id := range r.byChat {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *StatsRepo) ListActivity(_ context.Context, from, to time.Time) ([]storage.ActivityRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []storage.ActivityRecord
	for _, rec := range r.activity {
		if !rec.Timestamp.Before(from) && rec.Timestamp.Before(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}
