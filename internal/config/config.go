package config

import (
	"log"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN,required"`
	AdminChatIDs     []int64 `env:"ADMIN_CHAT_IDS" envSeparator:":"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	Temperature float32 `env:"LLM_TEMPERATURE" envDefault:"0.45"`
	MaxTokens   int     `env:"LLM_MAX_TOKENS" envDefault:"1400"`
	MaxHistory  int     `env:"LLM_MAX_HISTORY" envDefault:"10"`

	// Whisper transcription
	WhisperModel       string  `env:"WHISPER_MODEL" envDefault:"whisper-1"`
	WhisperLanguage    string  `env:"WHISPER_LANGUAGE" envDefault:"ru"`
	WhisperTemperature float32 `env:"WHISPER_TEMPERATURE" envDefault:"0.2"`

	// Voice acceptance filter. Thresholds were tuned empirically against
	// real sample audio; none of them is "correct", hence all overridable.
	VoiceMinDuration             float64  `env:"VOICE_MIN_DURATION" envDefault:"1"`
	VoicePhraseFilterMaxDuration float64  `env:"VOICE_PHRASE_FILTER_MAX_DURATION" envDefault:"3"`
	VoiceWordDensityDivisor      float64  `env:"VOICE_WORD_DENSITY_DIVISOR" envDefault:"3"`
	VoiceSuspiciousPhrases       []string `env:"VOICE_SUSPICIOUS_PHRASES" envSeparator:"|"`
	VoiceHardRejectPhrases       []string `env:"VOICE_HARD_REJECT_PHRASES" envSeparator:"|"`
	VoiceInterjections           []string `env:"VOICE_INTERJECTIONS" envSeparator:"|"`

	// Prompts
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH"`

	// Storage
	DatabaseURL string `env:"DATABASE_URL"`

	// Diary pagination
	DreamsPerPage int `env:"DREAMS_PER_PAGE" envDefault:"10"`

	// Webhook mode (long polling when URL is empty)
	WebhookURL    string `env:"WEBHOOK_URL"`
	WebhookSecret string `env:"WEBHOOK_SECRET" envDefault:"default_secret"`
	ListenAddr    string `env:"LISTEN_ADDR" envDefault:":8000"`

	// Daily admin report hour (UTC), negative disables
	ReportHourUTC int `env:"REPORT_HOUR_UTC" envDefault:"21"`

	// Links shown in the menu
	AuthorChannelURL string `env:"AUTHOR_CHANNEL_URL" envDefault:"https://t.me/N_W_passage"`
	DonationURL      string `env:"DONATION_URL" envDefault:"https://pay.cloudtips.ru/p/4f1dd4bf"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

func (c *Config) IsAdmin(chatID int64) bool {
	for _, id := range c.AdminChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}
