package dream

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"dream-chatter/internal/llm"
	"dream-chatter/internal/storage"
	"dream-chatter/internal/voice"
)

const (
	SourceText  = "text"
	SourceVoice = "voice"
)

// Observer receives orchestration events for metrics. All methods may be
// called concurrently.
type Observer interface {
	ObserveLLM(op string, d time.Duration, err error)
	ObserveTranscription(d time.Duration, err error)
	VoiceRejected(reason string)
	DreamSaved(source string)
}

// Reply is what the delivery layer shows for one handled input.
type Reply struct {
	Text       string
	Category   Category
	SourceType string
	// Transcript is set for voice inputs that passed the filter; it is
	// echoed back so the user sees what was understood.
	Transcript string
	// OfferSave means a pending record now exists and the save /
	// astrological actions should be offered.
	OfferSave bool
}

// Service sequences receive → classify source → analyze → classify reply →
// persist/offer-save. One instance serves all chats; per-chat ordering is
// the delivery layer's concern.
type Service struct {
	llmClient   llm.Client
	transcriber llm.Transcriber
	filter      *voice.Filter

	dreams   storage.DreamRepository
	pending  storage.PendingDreamRepository
	messages storage.MessageRepository
	profiles storage.ProfileRepository
	stats    storage.StatsRepository

	systemPrompt string
	maxHistory   int
	callTimeout  time.Duration
	observer     Observer
}

type Deps struct {
	LLM         llm.Client
	Transcriber llm.Transcriber
	Filter      *voice.Filter
	Dreams      storage.DreamRepository
	Pending     storage.PendingDreamRepository
	Messages    storage.MessageRepository
	Profiles    storage.ProfileRepository
	Stats       storage.StatsRepository
	// SystemPrompt overrides the built-in persona when non-empty.
	SystemPrompt string
	MaxHistory   int
	CallTimeout  time.Duration
	Observer     Observer
}

func NewService(d Deps) *Service {
	s := &Service{
		llmClient:    d.LLM,
		transcriber:  d.Transcriber,
		filter:       d.Filter,
		dreams:       d.Dreams,
		pending:      d.Pending,
		messages:     d.Messages,
		profiles:     d.Profiles,
		stats:        d.Stats,
		systemPrompt: d.SystemPrompt,
		maxHistory:   d.MaxHistory,
		callTimeout:  d.CallTimeout,
		observer:     d.Observer,
	}
	if s.filter == nil {
		s.filter = voice.NewFilter(voice.DefaultSettings())
	}
	if s.systemPrompt == "" {
		s.systemPrompt = defaultSystemPrompt
	}
	if s.maxHistory <= 0 {
		s.maxHistory = 10
	}
	if s.callTimeout <= 0 {
		s.callTimeout = 90 * time.Second
	}
	return s
}

// HandleText interprets a typed dream description.
func (s *Service) HandleText(ctx context.Context, chatID int64, username, text string) (Reply, error) {
	s.logActivity(ctx, chatID, username, "message", text)
	if err := s.stats.BumpMessage(ctx, chatID, username, len([]rune(text))); err != nil {
		log.Printf("failed to bump stats for %d: %v", chatID, err)
	}
	return s.analyze(ctx, chatID, username, text, SourceText)
}

// HandleVoice transcribes a voice note, runs the acceptance filter and, if
// the transcript survives, interprets it like text. A rejection comes back
// as *RejectionError, not as a plain failure.
func (s *Service) HandleVoice(ctx context.Context, chatID int64, username string, audio []byte, durationSeconds float64) (Reply, error) {
	s.logActivity(ctx, chatID, username, "voice_message", fmt.Sprintf("duration: %gs", durationSeconds))

	tctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	start := time.Now()
	transcript, err := s.transcriber.Transcribe(tctx, audio, "voice.ogg")
	if s.observer != nil {
		s.observer.ObserveTranscription(time.Since(start), err)
	}
	if err != nil {
		s.logActivity(ctx, chatID, username, "voice_error", err.Error())
		return Reply{}, &ServiceError{Op: "transcribe voice", Err: err}
	}

	verdict := s.filter.ShouldReject(transcript, durationSeconds)
	s.logActivity(ctx, chatID, username, "voice_analysis",
		fmt.Sprintf("duration: %gs, words: %d, text: %q, reject: %t, reason: %s",
			durationSeconds, len(strings.Fields(transcript)), truncate(transcript, 100), verdict.Reject, verdict.Reason))

	if verdict.Reject {
		s.logActivity(ctx, chatID, username, "voice_rejected",
			fmt.Sprintf("reason: %s, text: %s", verdict.Reason, transcript))
		if s.observer != nil {
			s.observer.VoiceRejected(reasonPrefix(verdict.Reason))
		}
		return Reply{}, &RejectionError{Verdict: verdict, Transcript: transcript}
	}

	s.logActivity(ctx, chatID, username, "voice_transcribed", truncate(transcript, 100))
	if err := s.stats.BumpMessage(ctx, chatID, username, len([]rune(transcript))); err != nil {
		log.Printf("failed to bump stats for %d: %v", chatID, err)
	}

	reply, err := s.analyze(ctx, chatID, username, transcript, SourceVoice)
	reply.Transcript = transcript
	return reply, err
}

func (s *Service) analyze(ctx context.Context, chatID int64, username, dreamText, sourceType string) (Reply, error) {
	history, err := s.messages.History(ctx, chatID, s.maxHistory)
	if err != nil {
		log.Printf("failed to load history for %d: %v", chatID, err)
	}
	profile, err := s.profiles.Get(ctx, chatID)
	if err != nil {
		log.Printf("failed to load profile for %d: %v", chatID, err)
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: s.buildSystemPrompt(profile)})
	for _, h := range history {
		msgs = append(msgs, llm.Message{Role: h.Role, Content: h.Content})
	}
	dreamDate := time.Now().UTC().Format("2006-01-02")
	dated := fmt.Sprintf("Сон от %s:\n%s", dreamDate, dreamText)
	msgs = append(msgs, llm.Message{Role: "user", Content: dated})

	if err := s.messages.Append(ctx, chatID, "user", dreamText); err != nil {
		log.Printf("failed to append user message for %d: %v", chatID, err)
	}

	resp, err := s.generate(ctx, "interpret", msgs)
	if err != nil {
		s.logActivity(ctx, chatID, username, "dream_interpretation_error", err.Error())
		return Reply{}, &ServiceError{Op: "analyze dream", Err: err}
	}
	s.logActivity(ctx, chatID, username, "dream_interpreted", truncate(resp.Content, 300))

	if err := s.messages.Append(ctx, chatID, "assistant", resp.Content); err != nil {
		log.Printf("failed to append assistant message for %d: %v", chatID, err)
	}

	category := Classify(resp.Content)
	reply := Reply{Text: resp.Content, Category: category, SourceType: sourceType}
	if category != CategoryDream {
		return reply, nil
	}

	// A dream interpretation is written to the diary right away and also
	// parked as the chat's pending record so the explicit save action and
	// the astrological follow-up can consume it.
	if err := s.dreams.Save(ctx, &storage.Dream{
		ChatID:         chatID,
		DreamText:      dreamText,
		Interpretation: resp.Content,
		SourceType:     sourceType,
		DreamDate:      dreamDate,
	}); err != nil {
		s.logActivity(ctx, chatID, username, "dream_save_failed", err.Error())
	} else {
		s.logActivity(ctx, chatID, username, "dream_saved_to_diary", "type:"+sourceType)
		if s.observer != nil {
			s.observer.DreamSaved(sourceType)
		}
	}

	if err := s.pending.Put(ctx, chatID, dreamText, resp.Content, sourceType); err != nil {
		log.Printf("failed to store pending dream for %d: %v", chatID, err)
		return reply, nil
	}
	reply.OfferSave = true
	return reply, nil
}

// RequestAstrological produces a second reading of the pending dream for
// the given dream date and attaches it to the pending record.
func (s *Service) RequestAstrological(ctx context.Context, chatID int64, username string, dreamDate time.Time) (Reply, error) {
	p, err := s.pending.Get(ctx, chatID)
	if err != nil {
		return Reply{}, &PersistenceError{Op: "load pending dream", Err: err}
	}
	if p == nil {
		return Reply{}, ErrNoPendingDream
	}

	dateStr := dreamDate.Format("2006-01-02")
	msgs := []llm.Message{
		{Role: "system", Content: buildAstrologicalPrompt(p.Interpretation, dateStr)},
		{Role: "user", Content: "Проанализируй мой сон астрологически: " + p.DreamText},
	}

	resp, err := s.generate(ctx, "astrological", msgs)
	if err != nil {
		s.logActivity(ctx, chatID, username, "astrological_error", err.Error())
		return Reply{}, &ServiceError{Op: "astrological analysis", Err: err}
	}
	s.logActivity(ctx, chatID, username, "astrological_interpretation",
		fmt.Sprintf("date:%s, reply:%s", dateStr, truncate(resp.Content, 300)))

	if err := s.messages.Append(ctx, chatID, "assistant", resp.Content); err != nil {
		log.Printf("failed to append assistant message for %d: %v", chatID, err)
	}

	category := Classify(resp.Content)
	reply := Reply{Text: resp.Content, Category: category, SourceType: p.SourceType}
	if category != CategoryDream {
		return reply, nil
	}

	ok, err := s.pending.AttachAstrological(ctx, chatID, resp.Content, dateStr)
	if err != nil {
		return reply, &PersistenceError{Op: "attach astrological interpretation", Err: err}
	}
	if !ok {
		// The record was consumed or replaced while the model was busy.
		return reply, ErrNoPendingDream
	}
	reply.OfferSave = true
	return reply, nil
}

// ConfirmSave moves the pending record into the diary and clears it.
// The second return reports whether an astrological reading was included.
func (s *Service) ConfirmSave(ctx context.Context, chatID int64, username string) (bool, error) {
	p, err := s.pending.Get(ctx, chatID)
	if err != nil {
		return false, &PersistenceError{Op: "load pending dream", Err: err}
	}
	if p == nil {
		return false, ErrNoPendingDream
	}

	hasAstrological := p.AstrologicalInterpretation != nil
	if err := s.dreams.Save(ctx, &storage.Dream{
		ChatID:                     chatID,
		DreamText:                  p.DreamText,
		Interpretation:             p.Interpretation,
		AstrologicalInterpretation: p.AstrologicalInterpretation,
		SourceType:                 p.SourceType,
		DreamDate:                  p.DreamDate,
	}); err != nil {
		return false, &PersistenceError{Op: "save dream", Err: err}
	}
	s.logActivity(ctx, chatID, username, "dream_saved_to_diary",
		fmt.Sprintf("type:%s, astrological:%t", p.SourceType, hasAstrological))
	if s.observer != nil {
		s.observer.DreamSaved(p.SourceType)
	}

	if err := s.pending.Clear(ctx, chatID); err != nil {
		log.Printf("failed to clear pending dream for %d: %v", chatID, err)
	}
	return hasAstrological, nil
}

func (s *Service) generate(ctx context.Context, op string, msgs []llm.Message) (llm.Response, error) {
	gctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	start := time.Now()
	resp, err := s.llmClient.Generate(gctx, msgs)
	if s.observer != nil {
		s.observer.ObserveLLM(op, time.Since(start), err)
	}
	if err != nil {
		return llm.Response{}, err
	}
	log.Printf("LLM %s response [model=%s, tokens: prompt=%d, completion=%d, total=%d]",
		op, resp.Model, resp.PromptTokens, resp.CompletionTokens, resp.TotalTokens)
	return resp, nil
}

func (s *Service) logActivity(ctx context.Context, chatID int64, username, action, content string) {
	err := s.stats.LogActivity(ctx, storage.ActivityRecord{
		UserID:    chatID,
		Username:  username,
		ChatID:    chatID,
		Action:    action,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("failed to log activity %q for %d: %v", action, chatID, err)
	}
}

func reasonPrefix(reason string) string {
	if i := strings.IndexByte(reason, ':'); i > 0 {
		return reason[:i]
	}
	return reason
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
