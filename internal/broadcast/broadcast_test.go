package broadcast

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	// errs maps chat id to the error its send returns
	errs map[int64]error
	sent []int64
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	chatID := c.(tgbotapi.MessageConfig).ChatID
	f.sent = append(f.sent, chatID)
	return tgbotapi.Message{}, f.errs[chatID]
}

func TestRunClassifiesOutcomes(t *testing.T) {
	s := &fakeSender{errs: map[int64]error{
		2: &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"},
		3: errors.New("connection reset"),
	}}

	res := Run(context.Background(), s, []int64{1, 2, 3, 4}, Content{Text: "привет"})

	if got := res.TotalSent(); got != 2 {
		t.Errorf("TotalSent = %d, want 2", got)
	}
	if len(res.Blocked) != 1 || res.Blocked[0] != 2 {
		t.Errorf("Blocked = %v, want [2]", res.Blocked)
	}
	if len(res.Failed) != 1 || res.Failed[0] != 3 {
		t.Errorf("Failed = %v, want [3]", res.Failed)
	}
	if res.SuccessRate() != 50 {
		t.Errorf("SuccessRate = %g, want 50", res.SuccessRate())
	}
	// One failure never stops the loop.
	if len(s.sent) != 4 {
		t.Errorf("attempted %d sends, want 4", len(s.sent))
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &fakeSender{}
	res := Run(ctx, s, []int64{1, 2, 3}, Content{Text: "привет"})
	if len(s.sent) != 0 {
		t.Errorf("cancelled broadcast still sent to %v", s.sent)
	}
	if res.TotalSent() != 0 {
		t.Errorf("TotalSent = %d", res.TotalSent())
	}
}

func TestSummary(t *testing.T) {
	res := &Result{Successful: []int64{1, 2, 3}, Blocked: []int64{4}, Failed: []int64{5}}
	s := res.Summary()
	for _, want := range []string{"Доставлено: 3", "Заблокировали бота: 1", "Ошибки: 1", "60.0%"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestSummaryEmpty(t *testing.T) {
	res := &Result{}
	if res.SuccessRate() != 0 {
		t.Errorf("empty SuccessRate = %g", res.SuccessRate())
	}
}

func TestBuildMessageMediaTypes(t *testing.T) {
	if _, ok := buildMessage(1, Content{Text: "текст"}).(tgbotapi.MessageConfig); !ok {
		t.Error("text content did not build a MessageConfig")
	}
	if _, ok := buildMessage(1, Content{MediaType: "photo", MediaFileID: "f", Caption: "c"}).(tgbotapi.PhotoConfig); !ok {
		t.Error("photo content did not build a PhotoConfig")
	}
	if _, ok := buildMessage(1, Content{MediaType: "voice", MediaFileID: "f"}).(tgbotapi.VoiceConfig); !ok {
		t.Error("voice content did not build a VoiceConfig")
	}
	if _, ok := buildMessage(1, Content{MediaType: "sticker", MediaFileID: "f"}).(tgbotapi.StickerConfig); !ok {
		t.Error("sticker content did not build a StickerConfig")
	}
}
