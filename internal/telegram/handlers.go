package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dream-chatter/internal/dream"
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// An admin mid-broadcast gets their content captured before anything else.
	if b.cfg.IsAdmin(chatID) && b.pendingBroadcast(chatID) != nil {
		b.captureBroadcastContent(msg)
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	switch text {
	case menuAnalyzeDream:
		b.sendMarkdown(chatID,
			"✨ Расскажи мне свой сон, даже если он странный, запутанный или пугающий – так подробно, как можешь. "+
				"Опиши атмосферу, эмоции, персонажей и, если хочешь, укажи дату и место сна (можно просто город).",
			mainMenu)
		return
	case menuDiary:
		b.showDiary(ctx, chatID, 0, 0)
		return
	case menuChannel:
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("✅ Подписаться на канал", b.cfg.AuthorChannelURL),
			),
		)
		b.sendMarkdown(chatID, "Лучшая поддержка сейчас — подписаться на канал автора.\n\nСпасибо! ❤️", kb)
		return
	}

	if text == "" {
		b.sendMarkdown(chatID,
			"🤔 Я анализирую только текстовые описания снов. Расскажи мне свой сон словами или запиши голосовое сообщение, и я помогу его понять.",
			mainMenu)
		return
	}

	// A chat waiting for a typed dream date treats the next message as that date.
	if source, ok := b.takeAwaitingDate(chatID); ok {
		b.handleDateInput(ctx, msg, source, text)
		return
	}

	b.processDreamText(ctx, msg, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		if err := b.stats.BumpStart(ctx, chatID, username(msg.From)); err != nil {
			log.Printf("failed to bump start count for %d: %v", chatID, err)
		}
		b.sendStartMenu(chatID)
	case "admin":
		b.showAdminPanel(ctx, chatID)
	case "cancel":
		if b.cfg.IsAdmin(chatID) && b.clearBroadcast(chatID) {
			b.sendText(chatID, "Рассылка отменена.")
			return
		}
		b.clearAwaitingDate(chatID)
		b.sendMarkdown(chatID, "Действие отменено.", mainMenu)
	default:
		b.sendMarkdown(chatID, "Не знаю такой команды. Просто расскажи мне свой сон 🌙", mainMenu)
	}
}

func (b *Bot) processDreamText(ctx context.Context, msg *tgbotapi.Message, text string) {
	chatID := msg.Chat.ID

	b.sendTyping(chatID)
	thinking := b.sendPlaceholder(chatID, "〰️ Размышляю...")

	reply, err := b.svc.HandleText(ctx, chatID, username(msg.From), text)
	if err != nil {
		b.replyWithError(chatID, thinking, err)
		return
	}
	b.deliverReply(chatID, thinking, reply)
}

func (b *Bot) handleVoice(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	voiceMsg := msg.Voice

	processing := b.sendPlaceholder(chatID, "🎤 Получил голосовое сообщение, расшифровываю...")

	audio, err := b.downloadFile(ctx, voiceMsg.FileID)
	if err != nil {
		log.Printf("failed to download voice file for %d: %v", chatID, err)
		b.editOrSend(chatID, processing, "❌ Ошибка при обработке голосового сообщения.\n\nПопробуйте отправить текстом.", nil)
		return
	}

	reply, err := b.svc.HandleVoice(ctx, chatID, username(msg.From), audio, float64(voiceMsg.Duration))
	if err != nil {
		var rej *dream.RejectionError
		if errors.As(err, &rej) {
			b.editOrSend(chatID, processing,
				"🤔 Не удалось распознать речь. Попробуйте записать сообщение четче или написать текстом.", nil)
			return
		}
		b.replyWithError(chatID, processing, err)
		return
	}

	// Keep the transcript visible and deliver the interpretation separately.
	b.editOrSend(chatID, processing, fmt.Sprintf("🎤 ➜ 📝 *Расшифровка:* %s", reply.Transcript), nil)
	thinking := b.sendPlaceholder(chatID, "〰️ Размышляю над твоим сном...")
	b.deliverReply(chatID, thinking, reply)
}

func (b *Bot) handleDateInput(ctx context.Context, msg *tgbotapi.Message, source, text string) {
	chatID := msg.Chat.ID

	date, err := parseDreamDate(text)
	if err != nil {
		b.setAwaitingDate(chatID, source)
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Отмена", "cancel_date_input"),
			),
		)
		b.sendMarkdown(chatID, "❌ Неверный формат даты. Используй формат ДД.ММ.ГГГГ\n\nНапример: 15.01.2024", kb)
		return
	}

	b.runAstrological(ctx, chatID, username(msg.From), date)
}

func (b *Bot) runAstrological(ctx context.Context, chatID int64, user string, date time.Time) {
	b.sendTyping(chatID)
	thinking := b.sendPlaceholder(chatID, "🔮 Размышляю над астрологическим значением твоего сна...")

	reply, err := b.svc.RequestAstrological(ctx, chatID, user, date)
	if err != nil {
		if errors.Is(err, dream.ErrNoPendingDream) {
			b.editOrSend(chatID, thinking, "❌ Данные сна не найдены. Попробуйте еще раз.", nil)
			return
		}
		b.replyWithError(chatID, thinking, err)
		return
	}

	var kb *tgbotapi.InlineKeyboardMarkup
	if reply.OfferSave {
		k := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📖 Сохранить в дневник снов", saveDreamData(reply.SourceType)),
			),
		)
		kb = &k
	}
	b.editOrSend(chatID, thinking, reply.Text, kb)
}

// deliverReply shows an interpretation, attaching the save/astrological
// actions when a pending record was created.
func (b *Bot) deliverReply(chatID int64, placeholderID int, reply dream.Reply) {
	var kb *tgbotapi.InlineKeyboardMarkup
	if reply.OfferSave {
		k := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📖 Сохранить в дневник снов", saveDreamData(reply.SourceType)),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔮 Астрологическое толкование", astrologicalData(reply.SourceType)),
			),
		)
		kb = &k
	}
	b.editOrSend(chatID, placeholderID, reply.Text, kb)
}

func (b *Bot) replyWithError(chatID int64, placeholderID int, err error) {
	var pe *dream.PersistenceError
	text := "❌ Ошибка, повторите ещё раз."
	if errors.As(err, &pe) {
		text = "❌ Ошибка сохранения данных. Попробуйте позже."
	}
	log.Printf("handler error for chat %d: %v", chatID, err)
	b.editOrSend(chatID, placeholderID, text, nil)
}

func (b *Bot) sendTyping(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		log.Printf("failed to send typing action to %d: %v", chatID, err)
	}
}

// sendPlaceholder sends an interim message and returns its id for editing.
func (b *Bot) sendPlaceholder(chatID int64, text string) int {
	sent, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		log.Printf("failed to send placeholder to %d: %v", chatID, err)
		return 0
	}
	return sent.MessageID
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// parseDreamDate accepts the ДД.ММ.ГГГГ format within sane year bounds.
func parseDreamDate(s string) (time.Time, error) {
	t, err := time.Parse("02.01.2006", s)
	if err != nil {
		return time.Time{}, err
	}
	if t.Year() < 1900 || t.Year() > 2100 {
		return time.Time{}, fmt.Errorf("year %d out of range", t.Year())
	}
	return t, nil
}

// awaiting-date state helpers

func (b *Bot) setAwaitingDate(chatID int64, source string) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	b.awaitingDate[chatID] = source
}

func (b *Bot) takeAwaitingDate(chatID int64) (string, bool) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	source, ok := b.awaitingDate[chatID]
	if ok {
		delete(b.awaitingDate, chatID)
	}
	return source, ok
}

func (b *Bot) clearAwaitingDate(chatID int64) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	delete(b.awaitingDate, chatID)
}
