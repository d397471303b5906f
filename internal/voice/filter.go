package voice

import (
	"fmt"
	"strings"
)

// Reason prefixes carried by a rejecting Verdict.
const (
	ReasonTooShortDuration = "too_short_duration"
	ReasonEmptyText        = "empty_text"
	ReasonSuspiciousPhrase = "suspicious_phrase"
	ReasonTooShortText     = "too_short_text"
	ReasonInterjections    = "only_interjections"
	ReasonRepetitiveChars  = "repetitive_chars"
)

// Verdict is the outcome of checking one transcript against one audio clip.
type Verdict struct {
	Reject bool
	Reason string
}

// Settings hold the filter thresholds. They were revised several times
// against live traffic; treat them as tunables, not constants.
type Settings struct {
	// Clips shorter than this are dropped outright.
	MinDuration float64
	// Below this duration any denylist hit rejects; above it only the
	// hard-reject phrases do.
	PhraseFilterMaxDuration float64
	// Long clips must produce at least duration/WordDensityDivisor words.
	WordDensityDivisor float64
	// Substrings that mark a transcript as a likely Whisper hallucination.
	SuspiciousPhrases []string
	// Subset of phrases that reject regardless of clip length.
	HardRejectPhrases []string
	// Filler sounds that carry no dream content on their own.
	Interjections []string
}

// DefaultSettings returns the production tuning.
func DefaultSettings() Settings {
	return Settings{
		MinDuration:             1,
		PhraseFilterMaxDuration: 3,
		WordDensityDivisor:      3,
		SuspiciousPhrases:       DefaultSuspiciousPhrases(),
		HardRejectPhrases:       DefaultHardRejectPhrases(),
		Interjections:           DefaultInterjections(),
	}
}

func DefaultSuspiciousPhrases() []string {
	return []string{
		// video/YouTube boilerplate Whisper hallucinates on silence
		"редактор субтитров", "подписывайтесь на канал", "ставьте лайки", "всем пока",
		"спасибо за просмотр", "до свидания", "увидимся", "пока пока",

		// music artifacts
		"♪", "♫", "♬", "бит", "бас", "мелодия",

		// mic tests
		"проверка связи", "тестирование", "тест", "один два три",

		// bare filler
		"эм", "ммм", "хмм", "ага", "угу", "да да", "нет нет",
		"ой", "ах", "ох", "эх", "ух", "блин",

		// news/media phrases
		"новости", "сводка", "прогноз", "погода", "курс валют",
		"последние новости", "в эфире", "передача",

		// brand names
		"субтитры", "ютуб", "youtube", "telegram", "whatsapp",
		"вконтакте", "фейсбук", "инстаграм", "тикток",

		// social-media calls to action
		"лайк", "репост", "шэр", "subscribe", "follow",
		"комментарий", "сториз", "селфи",
	}
}

func DefaultHardRejectPhrases() []string {
	return []string{"редактор субтитров", "подписывайтесь на канал", "ставьте лайки"}
}

func DefaultInterjections() []string {
	return []string{"ммм", "хмм", "эм", "ага", "угу", "ой", "ах", "ох", "эх", "ух"}
}

type Filter struct {
	settings   Settings
	hardReject map[string]bool
	interject  map[string]bool
}

func NewFilter(s Settings) *Filter {
	f := &Filter{
		settings:   s,
		hardReject: make(map[string]bool, len(s.HardRejectPhrases)),
		interject:  make(map[string]bool, len(s.Interjections)),
	}
	for _, p := range s.HardRejectPhrases {
		f.hardReject[strings.ToLower(p)] = true
	}
	for _, w := range s.Interjections {
		f.interject[strings.ToLower(w)] = true
	}
	return f
}

// ShouldReject decides whether a transcription is worth interpreting.
// Checks run in order, first match wins. The filter trades recall for
// precision: some garbage gets through, but legitimate short dream
// descriptions must not be dropped. Pure function, never errors; an
// empty transcript and a zero duration are valid inputs.
func (f *Filter) ShouldReject(transcript string, durationSeconds float64) Verdict {
	if durationSeconds < f.settings.MinDuration {
		return Verdict{Reject: true, Reason: fmt.Sprintf("%s: %gs", ReasonTooShortDuration, durationSeconds)}
	}

	if strings.TrimSpace(transcript) == "" {
		return Verdict{Reject: true, Reason: ReasonEmptyText}
	}

	textLower := strings.ToLower(transcript)
	words := strings.Fields(textLower)

	for _, phrase := range f.settings.SuspiciousPhrases {
		p := strings.ToLower(phrase)
		if !strings.Contains(textLower, p) {
			continue
		}
		// Short clips reject on any hit; long clips only on the
		// unambiguous boilerplate phrases.
		if durationSeconds < f.settings.PhraseFilterMaxDuration || f.hardReject[p] {
			return Verdict{Reject: true, Reason: fmt.Sprintf("%s: %s", ReasonSuspiciousPhrase, phrase)}
		}
	}

	// A long clip transcribing to a handful of words is more likely
	// silence or a hallucination than speech.
	if durationSeconds > 6 && float64(len(words)) < durationSeconds/f.settings.WordDensityDivisor {
		return Verdict{Reject: true, Reason: fmt.Sprintf("%s: %d words for %gs", ReasonTooShortText, len(words), durationSeconds)}
	}

	if len(words) <= 2 && durationSeconds > 3 && f.allInterjections(words) {
		return Verdict{Reject: true, Reason: ReasonInterjections}
	}

	for _, word := range words {
		if token, ok := repeatedRunes(word); ok {
			return Verdict{Reject: true, Reason: fmt.Sprintf("%s: %s", ReasonRepetitiveChars, token)}
		}
	}

	return Verdict{}
}

func (f *Filter) allInterjections(words []string) bool {
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !f.interject[w] {
			return false
		}
	}
	return true
}

// repeatedRunes reports whether word is longer than five runes and made of
// one repeated rune ("ааааааа"). Short stretches are allowed.
func repeatedRunes(word string) (string, bool) {
	runes := []rune(word)
	if len(runes) <= 5 {
		return "", false
	}
	for _, r := range runes[1:] {
		if r != runes[0] {
			return "", false
		}
	}
	return word, true
}
