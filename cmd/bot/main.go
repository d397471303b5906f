package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"dream-chatter/internal/analytics"
	"dream-chatter/internal/config"
	"dream-chatter/internal/dream"
	"dream-chatter/internal/llm"
	"dream-chatter/internal/observability"
	"dream-chatter/internal/scheduler"
	"dream-chatter/internal/storage"
	"dream-chatter/internal/storage/memory"
	"dream-chatter/internal/storage/postgres"
	"dream-chatter/internal/telegram"
	"dream-chatter/internal/voice"
	"dream-chatter/internal/webhook"
)

type repositories struct {
	dreams   storage.DreamRepository
	pending  storage.PendingDreamRepository
	messages storage.MessageRepository
	profiles storage.ProfileRepository
	stats    storage.StatsRepository
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}
	cfg := config.New()

	repos := buildRepositories(cfg)

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		log.Fatalf("failed to create llm client: %v", err)
	}

	metrics := observability.NewMetrics()

	svc := dream.NewService(dream.Deps{
		LLM:          llmClient,
		Transcriber:  llm.NewTranscriber(cfg),
		Filter:       voice.NewFilter(filterSettings(cfg)),
		Dreams:       repos.dreams,
		Pending:      repos.pending,
		Messages:     repos.messages,
		Profiles:     repos.profiles,
		Stats:        repos.stats,
		SystemPrompt: loadSystemPrompt(cfg.SystemPromptPath),
		MaxHistory:   cfg.MaxHistory,
		Observer:     metrics,
	})

	bot, err := telegram.New(cfg, svc, repos.dreams, repos.profiles, repos.stats, metrics)
	if err != nil {
		log.Fatalf("failed to create telegram bot: %v", err)
	}
	log.Printf("authorized as @%s", bot.API().Self.UserName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New()
	sched.SetReportFunction(dailyReport(bot, cfg, repos.stats))
	if err := sched.Start(cfg.ReportHourUTC); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	srv := webhook.New(cfg.ListenAddr, cfg.WebhookSecret, bot, metrics.Handler())
	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("http server stopped: %v", err)
			stop()
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("http server shutdown: %v", err)
		}
	}()

	if cfg.WebhookURL != "" {
		runWebhook(ctx, bot, cfg)
	} else {
		log.Println("starting in long-polling mode")
		bot.Start(ctx)
	}
	log.Println("shutting down")
}

func buildRepositories(cfg *config.Config) repositories {
	if cfg.DatabaseURL == "" {
		log.Println("DATABASE_URL not set, using in-memory storage (data is lost on restart)")
		return repositories{
			dreams:   memory.NewDreamRepo(),
			pending:  memory.NewPendingDreamRepo(),
			messages: memory.NewMessageRepo(),
			profiles: memory.NewProfileRepo(),
			stats:    memory.NewStatsRepo(),
		}
	}
	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	return repositories{
		dreams:   postgres.NewDreamRepo(db),
		pending:  postgres.NewPendingDreamRepo(db),
		messages: postgres.NewMessageRepo(db),
		profiles: postgres.NewProfileRepo(db),
		stats:    postgres.NewStatsRepo(db),
	}
}

func filterSettings(cfg *config.Config) voice.Settings {
	s := voice.DefaultSettings()
	s.MinDuration = cfg.VoiceMinDuration
	s.PhraseFilterMaxDuration = cfg.VoicePhraseFilterMaxDuration
	s.WordDensityDivisor = cfg.VoiceWordDensityDivisor
	if len(cfg.VoiceSuspiciousPhrases) > 0 {
		s.SuspiciousPhrases = cfg.VoiceSuspiciousPhrases
	}
	if len(cfg.VoiceHardRejectPhrases) > 0 {
		s.HardRejectPhrases = cfg.VoiceHardRejectPhrases
	}
	if len(cfg.VoiceInterjections) > 0 {
		s.Interjections = cfg.VoiceInterjections
	}
	return s
}

func loadSystemPrompt(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("failed to read system prompt from %s, using built-in: %v", path, err)
		return ""
	}
	return string(data)
}

func runWebhook(ctx context.Context, bot *telegram.Bot, cfg *config.Config) {
	url := fmt.Sprintf("%s/webhook/%s", cfg.WebhookURL, cfg.WebhookSecret)
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		log.Fatalf("failed to build webhook config: %v", err)
	}
	if _, err := bot.API().Request(wh); err != nil {
		log.Fatalf("failed to register webhook: %v", err)
	}
	log.Printf("webhook registered at %s", cfg.WebhookURL)

	<-ctx.Done()

	if _, err := bot.API().Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Printf("failed to delete webhook: %v", err)
	}
}

// dailyReport sends yesterday-to-now activity stats to every admin chat.
func dailyReport(bot *telegram.Bot, cfg *config.Config, stats storage.StatsRepository) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if len(cfg.AdminChatIDs) == 0 {
			return nil
		}
		now := time.Now().UTC()
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

		records, err := stats.ListActivity(ctx, from, now)
		if err != nil {
			return fmt.Errorf("load activity: %w", err)
		}
		summary := analytics.Analyze(records, now).Summary()

		for _, chatID := range cfg.AdminChatIDs {
			msg := tgbotapi.NewMessage(chatID, summary)
			if _, err := bot.API().Send(msg); err != nil {
				log.Printf("failed to send daily report to %d: %v", chatID, err)
			}
		}
		return nil
	}
}
