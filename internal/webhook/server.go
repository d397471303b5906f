package webhook

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateHandler consumes one Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// Server receives Telegram webhook posts and exposes health and metrics
// endpoints. In long-polling mode only the latter two are useful, so the
// same server runs in both modes.
type Server struct {
	httpServer *http.Server
}

func New(addr, secret string, bot UpdateHandler, metricsHandler http.Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/webhook/{secret}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "secret") != secret {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var update tgbotapi.Update
		if err := json.NewDecoder(req.Body).Decode(&update); err != nil {
			log.Printf("failed to decode webhook update: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		// HandleUpdate only enqueues, so Telegram gets its fast 200 and
		// per-chat processing order follows request arrival order. The
		// background context keeps chat workers alive past this request.
		bot.HandleUpdate(context.Background(), update)
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metricsHandler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	log.Printf("http server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
