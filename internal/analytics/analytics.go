package analytics

import (
	"fmt"
	"sort"
	"time"

	"dream-chatter/internal/storage"
)

// DailyStats aggregates one day of activity-log records for the admin report.
type DailyStats struct {
	Date            string
	TotalMessages   int
	VoiceMessages   int
	VoiceRejected   int
	DreamsSaved     int
	UniqueUsers     int
	RejectionReason map[string]int
	UserMessages    map[int64]int
}

// Analyze folds activity records for the day containing targetDate.
func Analyze(records []storage.ActivityRecord, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	stats := &DailyStats{
		Date:            startOfDay.Format("2006-01-02"),
		RejectionReason: make(map[string]int),
		UserMessages:    make(map[int64]int),
	}
	uniqueUsers := make(map[int64]bool)

	for _, rec := range records {
		if rec.Timestamp.Before(startOfDay) || !rec.Timestamp.Before(endOfDay) {
			continue
		}
		switch rec.Action {
		case "message":
			stats.TotalMessages++
			stats.UserMessages[rec.ChatID]++
			uniqueUsers[rec.ChatID] = true
		case "voice_message":
			stats.VoiceMessages++
			uniqueUsers[rec.ChatID] = true
		case "voice_rejected":
			stats.VoiceRejected++
			stats.RejectionReason[rejectionReason(rec.Content)]++
		case "dream_saved_to_diary":
			stats.DreamsSaved++
		}
	}

	stats.UniqueUsers = len(uniqueUsers)
	return stats
}

// rejectionReason pulls the reason tag out of a "reason: X, text: ..." entry.
func rejectionReason(content string) string {
	const prefix = "reason: "
	if len(content) < len(prefix) || content[:len(prefix)] != prefix {
		return "unknown"
	}
	rest := content[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == ':' || rest[i] == ',' {
			return rest[:i]
		}
	}
	return rest
}

// Summary renders the report sent to the admin chat.
func (ds *DailyStats) Summary() string {
	out := fmt.Sprintf("📊 Статистика Dream Chatter за %s:\n\n", ds.Date)
	out += fmt.Sprintf("- Сообщений: %d\n", ds.TotalMessages)
	out += fmt.Sprintf("- Голосовых: %d (отклонено: %d)\n", ds.VoiceMessages, ds.VoiceRejected)
	out += fmt.Sprintf("- Снов сохранено: %d\n", ds.DreamsSaved)
	out += fmt.Sprintf("- Уникальных пользователей: %d\n", ds.UniqueUsers)

	if len(ds.RejectionReason) > 0 {
		out += "\nПричины отклонения голосовых:\n"
		reasons := make([]string, 0, len(ds.RejectionReason))
		for r := range ds.RejectionReason {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			out += fmt.Sprintf("- %s: %d\n", r, ds.RejectionReason[r])
		}
	}
	return out
}
