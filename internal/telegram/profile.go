package telegram

import (
	"context"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dream-chatter/internal/storage"
)

// sendStartMenu greets a new user and offers the onboarding questionnaire.
func (b *Bot) sendStartMenu(chatID int64) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✨ Пройти короткий опрос", "start_profile"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌙 Сразу разобрать сон", "start_first_dream"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ О боте", "about"),
			tgbotapi.NewInlineKeyboardButtonData("❤️ Поддержать", "donate"),
		),
	)
	b.sendMarkdown(chatID,
		"🌙 Привет! Я помогу тебе понять, что скрывается за твоими снами.\n\n"+
			"Расскажи мне свой сон текстом или голосовым сообщением, и я разберу его символы и образы.\n\n"+
			"Чтобы толкования были точнее, можешь ответить на три коротких вопроса о себе.",
		kb)
}

func (b *Bot) askGender(chatID int64, messageID int) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Мужской", "gender:male"),
			tgbotapi.NewInlineKeyboardButtonData("Женский", "gender:female"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Пропустить", "profile_step:skip"),
		),
	)
	b.editOrSend(chatID, messageID, "Вопрос 1 из 3\n\nУкажи свой пол:", &kb)
}

func (b *Bot) askAgeGroup(chatID int64, messageID int) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("До 18", "age:under_18"),
			tgbotapi.NewInlineKeyboardButtonData("18–30", "age:18-30"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("30–45", "age:30-45"),
			tgbotapi.NewInlineKeyboardButtonData("45+", "age:45+"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Пропустить", "profile_step:skip"),
		),
	)
	b.editOrSend(chatID, messageID, "Вопрос 2 из 3\n\nТвоя возрастная группа:", &kb)
}

func (b *Bot) askLucidDreaming(chatID int64, messageID int) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Да", "lucid:yes"),
			tgbotapi.NewInlineKeyboardButtonData("Нет", "lucid:no"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Иногда", "lucid:sometimes"),
			tgbotapi.NewInlineKeyboardButtonData("Пропустить", "profile_step:skip"),
		),
	)
	b.editOrSend(chatID, messageID, "Вопрос 3 из 3\n\nБывают ли у тебя осознанные сновидения?", &kb)
}

func (b *Bot) finishProfile(chatID int64, messageID int) {
	b.editOrSend(chatID, messageID, "✅ Спасибо! Теперь толкования будут учитывать твой контекст.", nil)
	b.sendMarkdown(chatID, "Расскажи мне свой сон, когда будешь готов 🌙", mainMenu)
}

// saveProfileField merges one quiz answer into the stored profile.
func (b *Bot) saveProfileField(ctx context.Context, chatID int64, user, field, value string) {
	profile, err := b.profiles.Get(ctx, chatID)
	if err != nil {
		log.Printf("failed to load profile for %d: %v", chatID, err)
	}
	if profile == nil {
		profile = &storage.UserProfile{ChatID: chatID}
	}
	profile.Username = user
	switch field {
	case "gender":
		profile.Gender = value
	case "age":
		profile.AgeGroup = value
	case "lucid":
		profile.LucidDreaming = value
	}
	profile.UpdatedAt = time.Now().UTC()
	if err := b.profiles.Upsert(ctx, profile); err != nil {
		log.Printf("failed to save profile for %d: %v", chatID, err)
	}
}

func (b *Bot) showAbout(chatID int64, messageID int) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "main_menu"),
		),
	)
	b.editOrSend(chatID, messageID,
		"🌙 *О боте*\n\n"+
			"Я толкую сны в юнгианской традиции: разбираю образы, архетипы и символы "+
			"и предлагаю гипотезы о том, что они могут значить для тебя.\n\n"+
			"Понимаю текст и голосовые сообщения, веду дневник снов и умею "+
			"смотреть на сон с астрологической точки зрения.",
		&kb)
}

func (b *Bot) showDonate(chatID int64, messageID int) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("❤️ Поддержать автора", b.cfg.DonationURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("✅ Подписаться на канал", b.cfg.AuthorChannelURL),
		),
	)
	b.editOrSend(chatID, messageID,
		"Бот бесплатный. Если он тебе полезен, можно поддержать автора или подписаться на канал 🙏",
		&kb)
}
