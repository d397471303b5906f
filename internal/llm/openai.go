package llm

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int

	whisperModel       string
	whisperLanguage    string
	whisperTemperature float32
}

type OpenAIOption func(*OpenAIClient)

func WithSampling(temperature float32, maxTokens int) OpenAIOption {
	return func(c *OpenAIClient) {
		c.temperature = temperature
		c.maxTokens = maxTokens
	}
}

func WithWhisper(model, language string, temperature float32) OpenAIOption {
	return func(c *OpenAIClient) {
		c.whisperModel = model
		c.whisperLanguage = language
		c.whisperTemperature = temperature
	}
}

func NewOpenAI(apiKey, baseURL, model string, opts ...OpenAIOption) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	c := &OpenAIClient{
		client:          openai.NewClientWithConfig(config),
		model:           model,
		whisperModel:    openai.Whisper1,
		whisperLanguage: "ru",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OpenAIClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	var oaMsgs []openai.ChatCompletionMessage
	for _, m := range messages {
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    oaMsgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("chat completion returned no choices")
	}

	out := Response{
		Content: resp.Choices[0].Message.Content,
		Model:   c.model,
	}
	out.PromptTokens = resp.Usage.PromptTokens
	out.CompletionTokens = resp.Usage.CompletionTokens
	out.TotalTokens = resp.Usage.TotalTokens
	return out, nil
}

// Transcribe runs Whisper over a downloaded voice file. fileName only
// needs a correct extension (Telegram voice notes are .oga/.ogg).
func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:       c.whisperModel,
		FilePath:    fileName,
		Reader:      bytes.NewReader(audio),
		Language:    c.whisperLanguage,
		Temperature: c.whisperTemperature,
		Format:      openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
