package telegram

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dream-chatter/internal/config"
	"dream-chatter/internal/dream"
	"dream-chatter/internal/observability"
	"dream-chatter/internal/storage"
)

// mainMenu is the persistent reply keyboard.
var mainMenu = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(menuAnalyzeDream),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(menuDiary),
		tgbotapi.NewKeyboardButton(menuChannel),
	),
)

const (
	menuAnalyzeDream = "🌙 Разобрать мой сон"
	menuDiary        = "📖 Дневник снов"
	menuChannel      = "💬 Подписаться на канал автора"
)

type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config
	svc *dream.Service

	dreams   storage.DreamRepository
	profiles storage.ProfileRepository
	stats    storage.StatsRepository

	metrics *observability.Metrics

	httpClient *http.Client

	// dispatch serializes handling per chat in arrival order; different
	// chats run concurrently. The chat id is the natural queue key.
	dispatch *dispatcher

	// dialog state kept per chat
	stateMu        sync.Mutex
	awaitingDate   map[int64]string          // chat -> source kind, waiting for a typed dream date
	broadcastState map[int64]*broadcastDraft // admin chat -> draft
}

func New(cfg *config.Config, svc *dream.Service, dreams storage.DreamRepository, profiles storage.ProfileRepository, stats storage.StatsRepository, metrics *observability.Metrics) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, err
	}
	b := &Bot{
		api:            api,
		cfg:            cfg,
		svc:            svc,
		dreams:         dreams,
		profiles:       profiles,
		stats:          stats,
		metrics:        metrics,
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		awaitingDate:   make(map[int64]string),
		broadcastState: make(map[int64]*broadcastDraft),
	}
	b.dispatch = newDispatcher(b.process)
	return b, nil
}

// API exposes the underlying client for webhook registration and the
// daily-report sender.
func (b *Bot) API() *tgbotapi.BotAPI { return b.api }

// Start runs the long-polling loop until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate queues one update for its chat. Enqueueing preserves call
// order, so within one chat updates are processed exactly in the order
// they arrive here; different chats are handled concurrently.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	chatID := updateChatID(update)
	if chatID == 0 {
		return
	}
	b.dispatch.enqueue(ctx, chatID, update)
}

// process handles one update end-to-end. A panic in one chat's handling
// never takes down others.
func (b *Bot) process(ctx context.Context, update tgbotapi.Update) {
	chatID := updateChatID(update)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic handling update for chat %d: %v", chatID, r)
			b.sendText(chatID, "❌ Произошла неожиданная ошибка. Мы уже работаем над исправлением.")
		}
	}()

	switch {
	case update.Message != nil && update.Message.Voice != nil:
		b.metrics.UpdateHandled("voice")
		b.handleVoice(ctx, update.Message)
	case update.Message != nil:
		b.metrics.UpdateHandled("message")
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.metrics.UpdateHandled("callback")
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func updateChatID(update tgbotapi.Update) int64 {
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}

func username(u *tgbotapi.User) string {
	if u == nil || u.UserName == "" {
		return ""
	}
	return "@" + u.UserName
}

func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string, kb interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("failed to send message to %d: %v", chatID, err)
	}
}

// editOrSend replaces the placeholder ("Размышляю...") with the final
// text, falling back to a fresh message when editing fails.
func (b *Bot) editOrSend(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = kb
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("failed to edit message %d in %d, sending new: %v", messageID, chatID, err)
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if kb != nil {
			msg.ReplyMarkup = kb
		}
		if _, err := b.api.Send(msg); err != nil {
			log.Printf("failed to send message to %d: %v", chatID, err)
		}
	}
}

func (b *Bot) removeButtons(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("failed to remove buttons from message %d in %d: %v", messageID, chatID, err)
	}
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		log.Printf("failed to answer callback: %v", err)
	}
}
