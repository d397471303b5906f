package memory

import (
	"context"
	"testing"

	"dream-chatter/internal/storage"
)

func TestPendingDreamLifecycle(t *testing.T) {
	ctx := context.Background()
	r := NewPendingDreamRepo()

	p, err := r.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil for empty chat, got %+v", p)
	}

	if err := r.Put(ctx, 1, "сон про море", "🌙 толкование", "text"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	p, err = r.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p == nil || p.DreamText != "сон про море" || p.SourceType != "text" {
		t.Fatalf("unexpected pending record: %+v", p)
	}
	if p.AstrologicalInterpretation != nil {
		t.Fatal("fresh record must not carry an astrological interpretation")
	}
	if p.DreamDate == "" {
		t.Fatal("fresh record must be stamped with the current day")
	}

	ok, err := r.AttachAstrological(ctx, 1, "🔮 астрология", "2024-01-15")
	if err != nil || !ok {
		t.Fatalf("AttachAstrological = %v, %v", ok, err)
	}
	p, _ = r.Get(ctx, 1)
	if p.AstrologicalInterpretation == nil || *p.AstrologicalInterpretation != "🔮 астрология" {
		t.Fatalf("astrological interpretation not attached: %+v", p)
	}
	if p.DreamDate != "2024-01-15" {
		t.Fatalf("dream date not updated: %q", p.DreamDate)
	}

	if err := r.Clear(ctx, 1); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if p, _ = r.Get(ctx, 1); p != nil {
		t.Fatalf("record survived Clear: %+v", p)
	}
	// Clear is idempotent.
	if err := r.Clear(ctx, 1); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestPendingDreamLastWriteWins(t *testing.T) {
	ctx := context.Background()
	r := NewPendingDreamRepo()

	if err := r.Put(ctx, 7, "первый сон", "🌙 первое", "text"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := r.AttachAstrological(ctx, 7, "🔮 старое", "2024-01-01"); !ok {
		t.Fatal("attach to live record failed")
	}
	if err := r.Put(ctx, 7, "второй сон", "🌙 второе", "voice"); err != nil {
		t.Fatal(err)
	}

	p, _ := r.Get(ctx, 7)
	if p.DreamText != "второй сон" || p.SourceType != "voice" {
		t.Fatalf("replacement did not win: %+v", p)
	}
	// The replacement starts clean; the old astrological reading is gone.
	if p.AstrologicalInterpretation != nil {
		t.Fatalf("stale astrological interpretation survived: %q", *p.AstrologicalInterpretation)
	}
}

func TestAttachAstrologicalWithoutRecord(t *testing.T) {
	r := NewPendingDreamRepo()
	ok, err := r.AttachAstrological(context.Background(), 42, "🔮 в пустоту", "2024-01-01")
	if err != nil {
		t.Fatalf("AttachAstrological: %v", err)
	}
	if ok {
		t.Fatal("attach to a missing record must report false")
	}
}

func TestPendingDreamsAreIsolatedPerChat(t *testing.T) {
	ctx := context.Background()
	r := NewPendingDreamRepo()

	_ = r.Put(ctx, 1, "сон первого", "🌙 а", "text")
	_ = r.Put(ctx, 2, "сон второго", "🌙 б", "text")
	_ = r.Clear(ctx, 1)

	if p, _ := r.Get(ctx, 2); p == nil || p.DreamText != "сон второго" {
		t.Fatalf("chat 2 record affected by chat 1 clear: %+v", p)
	}
}

func TestDreamRepoPagination(t *testing.T) {
	ctx := context.Background()
	r := NewDreamRepo()

	for i := 0; i < 5; i++ {
		if err := r.Save(ctx, &storage.Dream{ChatID: 1, DreamText: "сон", Interpretation: "🌙"}); err != nil {
			t.Fatal(err)
		}
	}
	_ = r.Save(ctx, &storage.Dream{ChatID: 2, DreamText: "чужой"})

	n, err := r.CountByChat(ctx, 1)
	if err != nil || n != 5 {
		t.Fatalf("CountByChat = %d, %v; want 5", n, err)
	}

	page, err := r.ListByChat(ctx, 1, 2, 0)
	if err != nil || len(page) != 2 {
		t.Fatalf("first page = %d items, %v", len(page), err)
	}
	// newest first
	if page[0].ID != 5 {
		t.Errorf("first item ID = %d, want 5", page[0].ID)
	}

	last, err := r.ListByChat(ctx, 1, 2, 4)
	if err != nil || len(last) != 1 {
		t.Fatalf("last page = %d items, %v", len(last), err)
	}
	if past, _ := r.ListByChat(ctx, 1, 2, 10); past != nil {
		t.Errorf("offset past the end returned %d items", len(past))
	}
}

func TestDreamRepoDelete(t *testing.T) {
	ctx := context.Background()
	r := NewDreamRepo()

	d := &storage.Dream{ChatID: 1, DreamText: "сон"}
	_ = r.Save(ctx, d)

	// Deleting someone else's dream fails.
	if ok, _ := r.Delete(ctx, 2, d.ID); ok {
		t.Fatal("delete crossed chat boundary")
	}
	if ok, _ := r.Delete(ctx, 1, d.ID); !ok {
		t.Fatal("delete of own dream failed")
	}
	if ok, _ := r.Delete(ctx, 1, d.ID); ok {
		t.Fatal("second delete reported success")
	}
}

func TestMessageHistoryLimit(t *testing.T) {
	ctx := context.Background()
	r := NewMessageRepo()

	for i := 0; i < 30; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		_ = r.Append(ctx, 1, role, "msg")
	}

	h, err := r.History(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(h) != 20 {
		t.Fatalf("history length = %d, want 20 (10 pairs)", len(h))
	}
	// oldest first within the window
	if h[0].Role != "user" || h[len(h)-1].Role != "assistant" {
		t.Errorf("history window misaligned: first %s, last %s", h[0].Role, h[len(h)-1].Role)
	}
}

func TestProfileUpsert(t *testing.T) {
	ctx := context.Background()
	r := NewProfileRepo()

	if p, _ := r.Get(ctx, 1); p != nil {
		t.Fatalf("expected nil profile, got %+v", p)
	}

	_ = r.Upsert(ctx, &storage.UserProfile{ChatID: 1, Gender: "female"})
	_ = r.Upsert(ctx, &storage.UserProfile{ChatID: 1, Gender: "female", AgeGroup: "18-30"})

	p, _ := r.Get(ctx, 1)
	if p == nil || p.Gender != "female" || p.AgeGroup != "18-30" {
		t.Fatalf("unexpected profile after upserts: %+v", p)
	}
}

func TestStatsCounters(t *testing.T) {
	ctx := context.Background()
	r := NewStatsRepo()

	_ = r.BumpStart(ctx, 1, "@alice")
	_ = r.BumpMessage(ctx, 1, "@alice", 42)
	_ = r.BumpMessage(ctx, 1, "", 8)
	_ = r.BumpStart(ctx, 2, "@bob")

	ids, err := r.AllChatIDs(ctx)
	if err != nil || len(ids) != 2 {
		t.Fatalf("AllChatIDs = %v, %v", ids, err)
	}
}
