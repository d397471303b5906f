package telegram

import (
	"context"
	"errors"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dream-chatter/internal/dream"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		b.answerCallback(cb.ID, "")
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	action := decodeAction(cb.Data)

	switch action.Kind {
	case ActionMainMenu:
		b.answerCallback(cb.ID, "")
		b.sendMarkdown(chatID, "Чем могу помочь? 🌙", mainMenu)

	case ActionStartProfile:
		b.answerCallback(cb.ID, "")
		b.askGender(chatID, messageID)

	case ActionProfileGender:
		b.answerCallback(cb.ID, "")
		b.saveProfileField(ctx, chatID, username(cb.From), "gender", action.Value)
		b.askAgeGroup(chatID, messageID)

	case ActionProfileAge:
		b.answerCallback(cb.ID, "")
		b.saveProfileField(ctx, chatID, username(cb.From), "age", action.Value)
		b.askLucidDreaming(chatID, messageID)

	case ActionProfileLucid:
		b.answerCallback(cb.ID, "")
		b.saveProfileField(ctx, chatID, username(cb.From), "lucid", action.Value)
		b.finishProfile(chatID, messageID)

	case ActionProfileSkip:
		b.answerCallback(cb.ID, "")
		b.finishProfile(chatID, messageID)

	case ActionAbout:
		b.answerCallback(cb.ID, "")
		b.showAbout(chatID, messageID)

	case ActionDonate:
		b.answerCallback(cb.ID, "")
		b.showDonate(chatID, messageID)

	case ActionStartFirstDream:
		b.answerCallback(cb.ID, "")
		b.editOrSend(chatID, messageID,
			"✨ Расскажи мне свой сон – так подробно, как можешь. Можно текстом или голосовым сообщением.", nil)
		b.sendMarkdown(chatID, "Я слушаю 🌙", mainMenu)

	case ActionDiaryPage:
		b.answerCallback(cb.ID, "")
		b.showDiary(ctx, chatID, action.Page, messageID)

	case ActionDreamView:
		b.answerCallback(cb.ID, "")
		b.showDreamDetail(ctx, chatID, messageID, action.DreamID)

	case ActionDreamDeleteConfirm:
		b.answerCallback(cb.ID, "")
		b.askDreamDelete(chatID, messageID, action.DreamID)

	case ActionDreamDelete:
		b.deleteDream(ctx, cb, action.DreamID)

	case ActionSaveDream:
		b.confirmSave(ctx, cb)

	case ActionAstrological:
		b.answerCallback(cb.ID, "")
		b.removeButtons(chatID, messageID)
		b.askDreamDate(chatID, action.Value)

	case ActionAstrologicalDate:
		b.handleAstrologicalDate(ctx, cb, action)

	case ActionCancelDateInput:
		b.answerCallback(cb.ID, "")
		b.clearAwaitingDate(chatID)
		b.editOrSend(chatID, messageID, "Ввод даты отменен.", nil)

	case ActionAdminBroadcast:
		b.answerCallback(cb.ID, "")
		b.startBroadcast(chatID)

	case ActionAdminStats:
		b.answerCallback(cb.ID, "")
		b.showAdminStats(ctx, chatID, messageID)

	case ActionAdminUsers:
		b.answerCallback(cb.ID, "")
		b.showAdminUsers(ctx, chatID, messageID)

	case ActionBroadcastConfirm:
		b.answerCallback(cb.ID, "Запускаю рассылку...")
		b.runBroadcast(ctx, chatID, messageID)

	case ActionBroadcastCancel:
		b.answerCallback(cb.ID, "")
		b.clearBroadcast(chatID)
		b.editOrSend(chatID, messageID, "Рассылка отменена.", nil)

	default:
		// Stale button from an older bot version.
		b.answerCallback(cb.ID, "")
		log.Printf("unknown callback data %q from chat %d", cb.Data, chatID)
	}
}

func (b *Bot) confirmSave(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID

	hasAstrological, err := b.svc.ConfirmSave(ctx, chatID, username(cb.From))
	if err != nil {
		if errors.Is(err, dream.ErrNoPendingDream) {
			b.answerCallback(cb.ID, "Сон уже сохранен или устарел")
			b.removeButtons(chatID, cb.Message.MessageID)
			return
		}
		log.Printf("failed to save dream for %d: %v", chatID, err)
		b.answerCallback(cb.ID, "Ошибка при сохранении")
		return
	}

	b.answerCallback(cb.ID, "Сохранено!")
	b.removeButtons(chatID, cb.Message.MessageID)
	if hasAstrological {
		b.sendMarkdown(chatID, "✅ Сон с обычным и астрологическим толкованием сохранен в дневник!", mainMenu)
	} else {
		b.sendMarkdown(chatID, "✅ Сон сохранен в дневник!", mainMenu)
	}
}

// askDreamDate offers the dream-date choices for the astrological reading.
func (b *Bot) askDreamDate(chatID int64, source string) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Сегодня", astrologicalDateData("today", source)),
			tgbotapi.NewInlineKeyboardButtonData("Вчера", astrologicalDateData("yesterday", source)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Ввести дату", astrologicalDateData("custom", source)),
		),
	)
	b.sendMarkdown(chatID, "🔮 Когда тебе приснился этот сон?\n\nДата нужна для расчета положения планет.", kb)
}

func (b *Bot) handleAstrologicalDate(ctx context.Context, cb *tgbotapi.CallbackQuery, action Action) {
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	switch action.DateChoice {
	case "today":
		b.answerCallback(cb.ID, "")
		b.removeButtons(chatID, messageID)
		b.runAstrological(ctx, chatID, username(cb.From), time.Now().UTC())
	case "yesterday":
		b.answerCallback(cb.ID, "")
		b.removeButtons(chatID, messageID)
		b.runAstrological(ctx, chatID, username(cb.From), time.Now().UTC().AddDate(0, 0, -1))
	case "custom":
		b.answerCallback(cb.ID, "")
		b.setAwaitingDate(chatID, action.Value)
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Отмена", "cancel_date_input"),
			),
		)
		b.editOrSend(chatID, messageID, "📅 Введи дату сна в формате ДД.ММ.ГГГГ\n\nНапример: 15.01.2024", &kb)
	default:
		b.answerCallback(cb.ID, "")
	}
}
