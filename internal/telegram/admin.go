package telegram

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dream-chatter/internal/analytics"
	"dream-chatter/internal/broadcast"
)

// broadcastDraft is an admin's in-progress broadcast. It exists from the
// moment the admin presses the broadcast button until confirm or cancel.
type broadcastDraft struct {
	content *broadcast.Content
}

func (b *Bot) pendingBroadcast(chatID int64) *broadcastDraft {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.broadcastState[chatID]
}

func (b *Bot) clearBroadcast(chatID int64) bool {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	_, ok := b.broadcastState[chatID]
	delete(b.broadcastState, chatID)
	return ok
}

func (b *Bot) showAdminPanel(ctx context.Context, chatID int64) {
	if !b.cfg.IsAdmin(chatID) {
		b.sendMarkdown(chatID, "Не знаю такой команды. Просто расскажи мне свой сон 🌙", mainMenu)
		return
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📣 Рассылка", "admin_broadcast"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика за сегодня", "admin_stats"),
			tgbotapi.NewInlineKeyboardButtonData("👥 Пользователи", "admin_users"),
		),
	)
	b.sendMarkdown(chatID, "🛠 *Панель администратора*", kb)
}

func (b *Bot) startBroadcast(chatID int64) {
	if !b.cfg.IsAdmin(chatID) {
		return
	}
	b.stateMu.Lock()
	b.broadcastState[chatID] = &broadcastDraft{}
	b.stateMu.Unlock()

	b.sendText(chatID, "Отправьте сообщение для рассылки: текст, фото, видео, документ, аудио, голосовое или стикер.\n\n/cancel — отменить.")
}

// captureBroadcastContent turns the admin's message into broadcast content
// and shows a preview with confirm/cancel.
func (b *Bot) captureBroadcastContent(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	content := contentFromMessage(msg)
	if content == nil {
		b.sendText(chatID, "Такой тип сообщения не поддерживается для рассылки. Отправьте текст, фото, видео, документ, аудио, голосовое или стикер.")
		return
	}

	b.stateMu.Lock()
	if draft := b.broadcastState[chatID]; draft != nil {
		draft.content = content
	}
	b.stateMu.Unlock()

	kind := content.MediaType
	if kind == "" {
		kind = "текст"
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Отправить всем", "broadcast_confirm"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "broadcast_cancel"),
		),
	)
	b.sendMarkdown(chatID, fmt.Sprintf("Сообщение для рассылки готово (тип: %s).\n\nОтправить всем пользователям?", kind), kb)
}

func contentFromMessage(msg *tgbotapi.Message) *broadcast.Content {
	switch {
	case len(msg.Photo) > 0:
		// The last size is the largest.
		return &broadcast.Content{MediaType: "photo", MediaFileID: msg.Photo[len(msg.Photo)-1].FileID, Caption: msg.Caption}
	case msg.Video != nil:
		return &broadcast.Content{MediaType: "video", MediaFileID: msg.Video.FileID, Caption: msg.Caption}
	case msg.Document != nil:
		return &broadcast.Content{MediaType: "document", MediaFileID: msg.Document.FileID, Caption: msg.Caption}
	case msg.Audio != nil:
		return &broadcast.Content{MediaType: "audio", MediaFileID: msg.Audio.FileID, Caption: msg.Caption}
	case msg.Voice != nil:
		return &broadcast.Content{MediaType: "voice", MediaFileID: msg.Voice.FileID}
	case msg.Sticker != nil:
		return &broadcast.Content{MediaType: "sticker", MediaFileID: msg.Sticker.FileID}
	case msg.Text != "":
		return &broadcast.Content{Text: msg.Text}
	default:
		return nil
	}
}

func (b *Bot) runBroadcast(ctx context.Context, chatID int64, messageID int) {
	if !b.cfg.IsAdmin(chatID) {
		return
	}

	b.stateMu.Lock()
	draft := b.broadcastState[chatID]
	delete(b.broadcastState, chatID)
	b.stateMu.Unlock()

	if draft == nil || draft.content == nil {
		b.editOrSend(chatID, messageID, "❌ Рассылка не подготовлена. Начните заново через /admin.", nil)
		return
	}

	recipients, err := b.stats.AllChatIDs(ctx)
	if err != nil {
		log.Printf("failed to load broadcast recipients: %v", err)
		b.editOrSend(chatID, messageID, "❌ Не удалось загрузить список пользователей.", nil)
		return
	}

	b.editOrSend(chatID, messageID, fmt.Sprintf("📣 Рассылка запущена: %d получателей...", len(recipients)), nil)

	res := broadcast.Run(ctx, b.api, recipients, *draft.content)
	b.metrics.BroadcastDelivery("delivered", len(res.Successful))
	b.metrics.BroadcastDelivery("blocked", len(res.Blocked))
	b.metrics.BroadcastDelivery("failed", len(res.Failed))

	b.sendText(chatID, res.Summary())
}

func (b *Bot) showAdminStats(ctx context.Context, chatID int64, messageID int) {
	if !b.cfg.IsAdmin(chatID) {
		return
	}
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	records, err := b.stats.ListActivity(ctx, from, now)
	if err != nil {
		log.Printf("failed to load activity for stats: %v", err)
		b.editOrSend(chatID, messageID, "❌ Не удалось загрузить статистику.", nil)
		return
	}
	stats := analytics.Analyze(records, now)
	b.editOrSend(chatID, messageID, stats.Summary(), nil)
}

func (b *Bot) showAdminUsers(ctx context.Context, chatID int64, messageID int) {
	if !b.cfg.IsAdmin(chatID) {
		return
	}
	now := time.Now().UTC()
	records, err := b.stats.ListActivity(ctx, now.AddDate(0, 0, -7), now)
	if err != nil {
		log.Printf("failed to load activity for users view: %v", err)
		b.editOrSend(chatID, messageID, "❌ Не удалось загрузить пользователей.", nil)
		return
	}

	counts := make(map[int64]int)
	names := make(map[int64]string)
	for _, r := range records {
		counts[r.ChatID]++
		if r.Username != "" {
			names[r.ChatID] = r.Username
		}
	}
	ids := make([]int64, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return counts[ids[i]] > counts[ids[j]] })

	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 Активные пользователи за 7 дней: %d\n\n", len(ids))
	for i, id := range ids {
		if i >= 20 {
			fmt.Fprintf(&sb, "... и ещё %d", len(ids)-i)
			break
		}
		name := names[id]
		if name == "" {
			name = fmt.Sprintf("id %d", id)
		}
		fmt.Fprintf(&sb, "%d. %s — %d событий\n", i+1, name, counts[id])
	}
	b.editOrSend(chatID, messageID, sb.String(), nil)
}
