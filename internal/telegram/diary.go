package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// showDiary renders one page of the dream diary. messageID 0 sends a new
// message, otherwise the existing list message is edited in place.
func (b *Bot) showDiary(ctx context.Context, chatID int64, page, messageID int) {
	perPage := b.cfg.DreamsPerPage

	total, err := b.dreams.CountByChat(ctx, chatID)
	if err != nil {
		log.Printf("failed to count dreams for %d: %v", chatID, err)
		b.sendText(chatID, "❌ Не удалось загрузить дневник. Попробуйте позже.")
		return
	}
	if total == 0 {
		b.sendMarkdown(chatID,
			"📖 Твой дневник снов пока пуст.\n\nРасскажи мне свой сон, и после толкования его можно будет сохранить сюда.",
			mainMenu)
		return
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	if page >= totalPages {
		page = totalPages - 1
	}

	dreams, err := b.dreams.ListByChat(ctx, chatID, perPage, page*perPage)
	if err != nil {
		log.Printf("failed to list dreams for %d: %v", chatID, err)
		b.sendText(chatID, "❌ Не удалось загрузить дневник. Попробуйте позже.")
		return
	}

	text := fmt.Sprintf("📖 *Дневник снов* — страница %d из %d\n\nВыбери сон, чтобы перечитать толкование:", page+1, totalPages)

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(dreams)+1)
	for _, d := range dreams {
		label := fmt.Sprintf("%s %s", d.CreatedAt.Format("02.01.2006"), dreamPreview(d.DreamText))
		if d.AstrologicalInterpretation != nil {
			label = "🔮 " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, dreamViewData(d.ID)),
		))
	}
	if nav := diaryNavRow(page, totalPages); len(nav) > 0 {
		rows = append(rows, nav)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)

	if messageID != 0 {
		b.editOrSend(chatID, messageID, text, &kb)
		return
	}
	b.sendMarkdown(chatID, text, kb)
}

func diaryNavRow(page, totalPages int) []tgbotapi.InlineKeyboardButton {
	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", diaryPageData(page-1)))
	}
	if page < totalPages-1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Вперед ➡️", diaryPageData(page+1)))
	}
	return nav
}

// dreamPreview shortens the dream text to a button-sized label.
func dreamPreview(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	runes := []rune(text)
	if len(runes) > 30 {
		return string(runes[:30]) + "..."
	}
	return text
}

func (b *Bot) showDreamDetail(ctx context.Context, chatID int64, messageID int, dreamID uint) {
	d, err := b.dreams.GetByID(ctx, chatID, dreamID)
	if err != nil {
		log.Printf("failed to load dream %d for %d: %v", dreamID, chatID, err)
		b.editOrSend(chatID, messageID, "❌ Не удалось загрузить сон. Попробуйте позже.", nil)
		return
	}
	if d == nil {
		b.editOrSend(chatID, messageID, "❌ Сон не найден. Возможно, он был удален.", nil)
		return
	}

	// The dream date can differ from the save date when the user dated
	// the dream for an astrological reading.
	date := d.CreatedAt.Format("02.01.2006")
	if t, err := time.Parse("2006-01-02", d.DreamDate); err == nil {
		date = t.Format("02.01.2006")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🌙 *Сон от %s*\n\n", date)
	fmt.Fprintf(&sb, "*Описание:*\n%s\n\n", d.DreamText)
	fmt.Fprintf(&sb, "*Толкование:*\n%s", d.Interpretation)
	if d.AstrologicalInterpretation != nil {
		fmt.Fprintf(&sb, "\n\n🔮 *Астрологическое толкование:*\n%s", *d.AstrologicalInterpretation)
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", dreamDeleteAskData(d.ID)),
			tgbotapi.NewInlineKeyboardButtonData("📖 К дневнику", diaryPageData(0)),
		),
	)
	b.editOrSend(chatID, messageID, sb.String(), &kb)
}

func (b *Bot) askDreamDelete(chatID int64, messageID int, dreamID uint) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Да, удалить", dreamDeleteData(dreamID)),
			tgbotapi.NewInlineKeyboardButtonData("Отмена", dreamViewData(dreamID)),
		),
	)
	b.editOrSend(chatID, messageID, "Точно удалить этот сон из дневника? Это действие нельзя отменить.", &kb)
}

func (b *Bot) deleteDream(ctx context.Context, cb *tgbotapi.CallbackQuery, dreamID uint) {
	chatID := cb.Message.Chat.ID

	deleted, err := b.dreams.Delete(ctx, chatID, dreamID)
	if err != nil {
		log.Printf("failed to delete dream %d for %d: %v", dreamID, chatID, err)
		b.answerCallback(cb.ID, "Ошибка при удалении")
		return
	}
	if !deleted {
		b.answerCallback(cb.ID, "Сон уже удален")
	} else {
		b.answerCallback(cb.ID, "Удалено")
	}
	b.showDiary(ctx, chatID, 0, cb.Message.MessageID)
}
