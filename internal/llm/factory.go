package llm

import (
	"fmt"

	"dream-chatter/internal/config"
)

// NewClient builds the chat-completion client for the configured provider.
func NewClient(cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAI(
			cfg.OpenAIAPIKey,
			cfg.OpenAIBaseURL,
			cfg.OpenAIModel,
			WithSampling(cfg.Temperature, cfg.MaxTokens),
			WithWhisper(cfg.WhisperModel, cfg.WhisperLanguage, cfg.WhisperTemperature),
		), nil
	case config.ProviderYandex:
		return NewYandex(cfg.YandexOAuthToken, cfg.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}

// NewTranscriber builds the speech-to-text client. Transcription always
// goes through the OpenAI Whisper endpoint regardless of the chat provider.
func NewTranscriber(cfg *config.Config) *OpenAIClient {
	return NewOpenAI(
		cfg.OpenAIAPIKey,
		cfg.OpenAIBaseURL,
		cfg.OpenAIModel,
		WithWhisper(cfg.WhisperModel, cfg.WhisperLanguage, cfg.WhisperTemperature),
	)
}
