package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Content is one admin broadcast: either plain text or a media file with
// an optional caption.
type Content struct {
	Text        string
	MediaType   string // photo, video, document, audio, voice, sticker
	MediaFileID string
	Caption     string
}

// Result classifies delivery outcomes per recipient. Blocked recipients
// (bot kicked or chat deactivated) are counted separately from transient
// failures so the admin can tell churn from outages.
type Result struct {
	Successful []int64
	Blocked    []int64
	Failed     []int64
}

func (r *Result) TotalSent() int   { return len(r.Successful) }
func (r *Result) TotalFailed() int { return len(r.Blocked) + len(r.Failed) }

func (r *Result) SuccessRate() float64 {
	total := r.TotalSent() + r.TotalFailed()
	if total == 0 {
		return 0
	}
	return float64(r.TotalSent()) / float64(total) * 100
}

func (r *Result) Summary() string {
	return fmt.Sprintf("📢 Рассылка завершена\n\n✅ Доставлено: %d\n🚫 Заблокировали бота: %d\n❌ Ошибки: %d\n📈 Успешность: %.1f%%",
		r.TotalSent(), len(r.Blocked), len(r.Failed), r.SuccessRate())
}

// sendDelay keeps the loop under Telegram's ~30 msg/s bot limit.
const sendDelay = 50 * time.Millisecond

// Run delivers content to every recipient sequentially, classifying
// failures per recipient. A failed send never aborts the loop.
func Run(ctx context.Context, s sender, recipients []int64, content Content) *Result {
	res := &Result{}
	for _, chatID := range recipients {
		if ctx.Err() != nil {
			log.Printf("broadcast cancelled after %d recipients", res.TotalSent()+res.TotalFailed())
			break
		}
		if _, err := s.Send(buildMessage(chatID, content)); err != nil {
			if isBlocked(err) {
				res.Blocked = append(res.Blocked, chatID)
			} else {
				log.Printf("broadcast to %d failed: %v", chatID, err)
				res.Failed = append(res.Failed, chatID)
			}
		} else {
			res.Successful = append(res.Successful, chatID)
		}
		time.Sleep(sendDelay)
	}
	return res
}

func buildMessage(chatID int64, content Content) tgbotapi.Chattable {
	switch content.MediaType {
	case "photo":
		m := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(content.MediaFileID))
		m.Caption = content.Caption
		return m
	case "video":
		m := tgbotapi.NewVideo(chatID, tgbotapi.FileID(content.MediaFileID))
		m.Caption = content.Caption
		return m
	case "document":
		m := tgbotapi.NewDocument(chatID, tgbotapi.FileID(content.MediaFileID))
		m.Caption = content.Caption
		return m
	case "audio":
		m := tgbotapi.NewAudio(chatID, tgbotapi.FileID(content.MediaFileID))
		m.Caption = content.Caption
		return m
	case "voice":
		return tgbotapi.NewVoice(chatID, tgbotapi.FileID(content.MediaFileID))
	case "sticker":
		return tgbotapi.NewSticker(chatID, tgbotapi.FileID(content.MediaFileID))
	default:
		return tgbotapi.NewMessage(chatID, content.Text)
	}
}

// isBlocked reports whether the recipient made the bot unreachable
// (blocked it, deleted the chat, was deactivated).
func isBlocked(err error) bool {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return tgErr.Code == 403
	}
	return false
}
