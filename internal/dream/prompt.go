package dream

import (
	"fmt"
	"strings"
	"time"

	"dream-chatter/internal/storage"
)

// defaultSystemPrompt is the Jungian-analyst persona. The classification
// contract (sentinel emoji prefix) lives here; Classify depends on the
// model honoring it.
const defaultSystemPrompt = `#Role You are a qualified Jungian dream analyst with knowledge of astrology & esotericism, working in the Western psychological tradition. Interpret dreams as unique messages from the unconscious, using archetypes, symbols, and the collective unconscious. Reference mythology, astrology, or esoteric ideas metaphorically if they enrich meaning. Use simple clear language; no quotation marks for symbols; avoid specialized terms. #Task Identify key images, archetypes, and symbols, explain their significance for inner development. Interpretations must be hypothetical, respectful, not rigid, predictive, advisory, or therapeutic. If the dream is brief, ask 1–3 clarifying questions; if declined, interpret what is available. Maintain a supportive tone, match the user’s style. Never use obscene words; replace with neutral synonyms. Redirect off-topic to dream analysis. Use Telegram Markdown and emojis (🌑, 👁, 🪞); no HTML. #Classification Start with 🌙 dream; ❓ clarification; 💭 general. # User context Suggest emotional tone in 1 paragraph; end inviting reflection/response; output in Russian, informal 'ты'. #Reply handling: Detect if user is asking for clarification. When Q → Answer + brief context; when Correction Acknowledge + fix; start with ❓; No dream re-telling, maintain accuracy.`

// buildSystemPrompt appends the current date and the user's profile
// context to the persona prompt.
func (s *Service) buildSystemPrompt(profile *storage.UserProfile) string {
	prompt := s.systemPrompt
	prompt += fmt.Sprintf("\n\n# Current date\nToday is %s.", time.Now().UTC().Format("2006-01-02"))
	if info := formatProfileInfo(profile); info != "" {
		prompt += "\n\n# User context\n" + info
	}
	return prompt
}

func formatProfileInfo(profile *storage.UserProfile) string {
	if profile == nil {
		return ""
	}
	var parts []string
	if profile.Gender != "" {
		parts = append(parts, "User gender: "+profile.Gender)
	}
	if profile.AgeGroup != "" {
		parts = append(parts, "User age group: "+profile.AgeGroup)
	}
	if profile.LucidDreaming != "" {
		parts = append(parts, "Lucid dream experience: "+profile.LucidDreaming)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ". ") + "."
}

// buildAstrologicalPrompt asks for a second reading of the same dream in
// the tone of the first interpretation, anchored to the dream date.
func buildAstrologicalPrompt(previousInterpretation, dreamDate string) string {
	return fmt.Sprintf(`Ты - опытный астролог и толкователь снов. Проанализируй сон пользователя с астрологической точки зрения.

ДАТА СНА: %s

ПРЕДЫДУЩЕЕ ТОЛКОВАНИЕ (сохрани его тон и стиль):
%s

ИНСТРУКЦИИ:
1. Сохрани ТОЧНО тот же тон голоса, стиль общения и эмоциональную окраску, что были в предыдущем толковании
2. Используй астрологический подход: планеты, знаки зодиака, дома, аспекты
3. Свяжи символы сна с астрологическими архетипами
4. Будь так же краток/подробен, как в предыдущем ответе
5. Используй те же эмодзи и форматирование, если это уместно

В начале ответа используй один из этих эмодзи-классификаторов:
🔮 - Если это астрологическое толкование сна
❓ - Если это уточняющий вопрос или ответ
💭 - Если это общая беседа

Отвечай на русском языке, используя неформальное обращение на 'ты'.`, dreamDate, previousInterpretation)
}
