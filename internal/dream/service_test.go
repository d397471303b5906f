package dream

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dream-chatter/internal/llm"
	"dream-chatter/internal/storage/memory"
)

type fakeLLM struct {
	replies []string
	err     error
	// last request, for prompt assertions
	lastMessages []llm.Message
}

func (f *fakeLLM) Generate(_ context.Context, messages []llm.Message) (llm.Response, error) {
	f.lastMessages = messages
	if f.err != nil {
		return llm.Response{}, f.err
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return llm.Response{Content: reply, Model: "fake"}, nil
}

type fakeTranscriber struct {
	transcript string
	err        error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	return f.transcript, f.err
}

type env struct {
	svc      *Service
	llm      *fakeLLM
	dreams   *memory.DreamRepo
	pending  *memory.PendingDreamRepo
	messages *memory.MessageRepo
}

func newEnv(t *testing.T, client *fakeLLM, tr *fakeTranscriber) *env {
	t.Helper()
	dreams := memory.NewDreamRepo()
	pending := memory.NewPendingDreamRepo()
	messages := memory.NewMessageRepo()
	svc := NewService(Deps{
		LLM:         client,
		Transcriber: tr,
		Dreams:      dreams,
		Pending:     pending,
		Messages:    messages,
		Profiles:    memory.NewProfileRepo(),
		Stats:       memory.NewStatsRepo(),
	})
	return &env{svc: svc, llm: client, dreams: dreams, pending: pending, messages: messages}
}

func TestHandleTextDreamReply(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &fakeLLM{replies: []string{"🌙 Полет во сне говорит о свободе."}}, nil)

	reply, err := e.svc.HandleText(ctx, 1, "@alice", "мне снилось что я летаю")
	if err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	if reply.Category != CategoryDream {
		t.Fatalf("category = %v, want dream", reply.Category)
	}
	if !reply.OfferSave {
		t.Fatal("dream interpretation must offer saving")
	}
	if reply.SourceType != SourceText {
		t.Errorf("source = %q, want %q", reply.SourceType, SourceText)
	}

	// The interpretation lands in the diary immediately and is parked as
	// the chat's pending record.
	if n, _ := e.dreams.CountByChat(ctx, 1); n != 1 {
		t.Errorf("diary count = %d, want 1", n)
	}
	saved, _ := e.dreams.ListByChat(ctx, 1, 1, 0)
	today := time.Now().UTC().Format("2006-01-02")
	if len(saved) == 0 || saved[0].DreamDate != today {
		t.Errorf("auto-saved dream not dated %s: %+v", today, saved)
	}
	p, _ := e.pending.Get(ctx, 1)
	if p == nil || p.DreamText != "мне снилось что я летаю" {
		t.Fatalf("pending record missing or wrong: %+v", p)
	}
}

func TestHandleTextClarificationReply(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &fakeLLM{replies: []string{"❓ Что ты чувствовал во время полета?"}}, nil)

	reply, err := e.svc.HandleText(ctx, 1, "@alice", "я летал")
	if err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	if reply.Category != CategoryClarification {
		t.Fatalf("category = %v, want clarification", reply.Category)
	}
	if reply.OfferSave {
		t.Fatal("clarification must not offer saving")
	}
	if n, _ := e.dreams.CountByChat(ctx, 1); n != 0 {
		t.Errorf("clarification wrote %d diary entries", n)
	}
	if p, _ := e.pending.Get(ctx, 1); p != nil {
		t.Errorf("clarification created a pending record: %+v", p)
	}
}

func TestHandleTextLLMError(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &fakeLLM{err: errors.New("rate limited")}, nil)

	// Seed a pending record from an earlier dream; a later failure must
	// not disturb it.
	_ = e.pending.Put(ctx, 1, "старый сон", "🌙 старое", SourceText)

	_, err := e.svc.HandleText(ctx, 1, "@alice", "новый сон")
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *ServiceError", err)
	}
	p, _ := e.pending.Get(ctx, 1)
	if p == nil || p.DreamText != "старый сон" {
		t.Fatalf("pending record disturbed by failed request: %+v", p)
	}
}

func TestHandleTextIncludesProfileAndDate(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{replies: []string{"💭 привет"}}
	e := newEnv(t, client, nil)

	if _, err := e.svc.HandleText(ctx, 1, "@alice", "сон"); err != nil {
		t.Fatal(err)
	}
	if len(client.lastMessages) == 0 || client.lastMessages[0].Role != "system" {
		t.Fatal("system prompt missing")
	}
	last := client.lastMessages[len(client.lastMessages)-1]
	want := "Сон от " + time.Now().UTC().Format("2006-01-02")
	if !strings.HasPrefix(last.Content, want) {
		t.Errorf("user message not dated: %q", last.Content)
	}
}

func TestHandleVoiceRejected(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &fakeLLM{replies: []string{"🌙 x"}}, &fakeTranscriber{transcript: "ммм"})

	_, err := e.svc.HandleVoice(ctx, 1, "@alice", []byte("ogg"), 5.0)
	var rej *RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("err = %v, want *RejectionError", err)
	}
	if rej.Transcript != "ммм" {
		t.Errorf("rejection transcript = %q", rej.Transcript)
	}
	if p, _ := e.pending.Get(ctx, 1); p != nil {
		t.Error("rejected voice created a pending record")
	}
}

func TestHandleVoiceAccepted(t *testing.T) {
	ctx := context.Background()
	transcript := "мне приснился удивительный сон про полет над городом"
	e := newEnv(t, &fakeLLM{replies: []string{"🌙 Полет — это свобода."}}, &fakeTranscriber{transcript: transcript})

	reply, err := e.svc.HandleVoice(ctx, 1, "@alice", []byte("ogg"), 15.0)
	if err != nil {
		t.Fatalf("HandleVoice: %v", err)
	}
	if reply.Transcript != transcript {
		t.Errorf("transcript = %q", reply.Transcript)
	}
	if reply.SourceType != SourceVoice {
		t.Errorf("source = %q, want %q", reply.SourceType, SourceVoice)
	}
	p, _ := e.pending.Get(ctx, 1)
	if p == nil || p.SourceType != SourceVoice {
		t.Fatalf("pending record missing or wrong source: %+v", p)
	}
}

func TestHandleVoiceTranscriptionError(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &fakeLLM{replies: []string{"🌙 x"}}, &fakeTranscriber{err: errors.New("whisper down")})

	_, err := e.svc.HandleVoice(ctx, 1, "@alice", []byte("ogg"), 10.0)
	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *ServiceError", err)
	}
}

func TestConfirmSaveWithoutPending(t *testing.T) {
	e := newEnv(t, &fakeLLM{replies: []string{"🌙 x"}}, nil)
	_, err := e.svc.ConfirmSave(context.Background(), 1, "@alice")
	if !errors.Is(err, ErrNoPendingDream) {
		t.Fatalf("err = %v, want ErrNoPendingDream", err)
	}
}

func TestConfirmSaveClearsPending(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &fakeLLM{replies: []string{"🌙 толкование"}}, nil)

	if _, err := e.svc.HandleText(ctx, 1, "@alice", "сон про море"); err != nil {
		t.Fatal(err)
	}
	hasAstro, err := e.svc.ConfirmSave(ctx, 1, "@alice")
	if err != nil {
		t.Fatalf("ConfirmSave: %v", err)
	}
	if hasAstro {
		t.Error("no astrological reading was attached")
	}
	// auto-save plus explicit save
	if n, _ := e.dreams.CountByChat(ctx, 1); n != 2 {
		t.Errorf("diary count = %d, want 2", n)
	}
	if p, _ := e.pending.Get(ctx, 1); p != nil {
		t.Error("pending record survived ConfirmSave")
	}
	// A second confirm finds nothing.
	if _, err := e.svc.ConfirmSave(ctx, 1, "@alice"); !errors.Is(err, ErrNoPendingDream) {
		t.Errorf("second ConfirmSave = %v, want ErrNoPendingDream", err)
	}
}

func TestRequestAstrological(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &fakeLLM{replies: []string{
		"🌙 обычное толкование",
		"🔮 Луна в Скорпионе усиливает образы воды.",
	}}, nil)

	if _, err := e.svc.HandleText(ctx, 1, "@alice", "сон про воду"); err != nil {
		t.Fatal(err)
	}
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	reply, err := e.svc.RequestAstrological(ctx, 1, "@alice", date)
	if err != nil {
		t.Fatalf("RequestAstrological: %v", err)
	}
	if reply.Category != CategoryDream {
		t.Fatalf("category = %v, want dream", reply.Category)
	}
	if !reply.OfferSave {
		t.Fatal("astrological reading must offer saving")
	}

	// The date reaches the prompt and re-dates the pending dream.
	sys := e.llm.lastMessages[0].Content
	if !strings.Contains(sys, "2024-01-15") {
		t.Errorf("dream date missing from prompt: %q", sys)
	}
	if p, _ := e.pending.Get(ctx, 1); p == nil || p.DreamDate != "2024-01-15" {
		t.Fatalf("pending dream not re-dated for the reading: %+v", p)
	}

	hasAstro, err := e.svc.ConfirmSave(ctx, 1, "@alice")
	if err != nil {
		t.Fatalf("ConfirmSave: %v", err)
	}
	if !hasAstro {
		t.Error("astrological reading lost before save")
	}
	// The saved diary entry keeps the date the reading was cast for.
	saved, _ := e.dreams.ListByChat(ctx, 1, 1, 0)
	if len(saved) == 0 || saved[0].DreamDate != "2024-01-15" {
		t.Errorf("saved dream lost its date: %+v", saved)
	}
}

func TestRequestAstrologicalWithoutPending(t *testing.T) {
	e := newEnv(t, &fakeLLM{replies: []string{"🔮 x"}}, nil)
	_, err := e.svc.RequestAstrological(context.Background(), 1, "@alice", time.Now())
	if !errors.Is(err, ErrNoPendingDream) {
		t.Fatalf("err = %v, want ErrNoPendingDream", err)
	}
}
