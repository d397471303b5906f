package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func chatUpdate(chatID int64, updateID int) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: updateID,
		Message:  &tgbotapi.Message{MessageID: updateID, Chat: &tgbotapi.Chat{ID: chatID}},
	}
}

func TestDispatcherPreservesPerChatOrder(t *testing.T) {
	var mu sync.Mutex
	got := make(map[int64][]int)
	var wg sync.WaitGroup

	d := newDispatcher(func(_ context.Context, u tgbotapi.Update) {
		defer wg.Done()
		// uneven handling time would expose any reordering
		time.Sleep(time.Duration(u.UpdateID%3) * time.Millisecond)
		mu.Lock()
		got[u.Message.Chat.ID] = append(got[u.Message.Chat.ID], u.UpdateID)
		mu.Unlock()
	})

	const n = 50
	for i := 0; i < n; i++ {
		for _, chatID := range []int64{1, 2} {
			wg.Add(1)
			d.enqueue(context.Background(), chatID, chatUpdate(chatID, i))
		}
	}
	wg.Wait()

	for _, chatID := range []int64{1, 2} {
		seq := got[chatID]
		if len(seq) != n {
			t.Fatalf("chat %d handled %d updates, want %d", chatID, len(seq), n)
		}
		for i, id := range seq {
			if id != i {
				t.Fatalf("chat %d: update %d handled at position %d", chatID, id, i)
			}
		}
	}
}

func TestDispatcherChatsRunIndependently(t *testing.T) {
	release := make(chan struct{})
	done := make(chan int64, 2)

	d := newDispatcher(func(_ context.Context, u tgbotapi.Update) {
		if u.Message.Chat.ID == 1 {
			<-release
		}
		done <- u.Message.Chat.ID
	})

	d.enqueue(context.Background(), 1, chatUpdate(1, 0))
	d.enqueue(context.Background(), 2, chatUpdate(2, 0))

	select {
	case id := <-done:
		if id != 2 {
			t.Fatalf("first finished chat = %d, want 2", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("chat 2 queued behind chat 1")
	}
	close(release)
	if id := <-done; id != 1 {
		t.Fatalf("second finished chat = %d, want 1", id)
	}
}

func TestDispatcherEvictsIdleQueues(t *testing.T) {
	handled := make(chan int, 4)
	d := newDispatcher(func(_ context.Context, u tgbotapi.Update) {
		handled <- u.UpdateID
	})
	d.idleTTL = 10 * time.Millisecond

	d.enqueue(context.Background(), 1, chatUpdate(1, 0))
	if id := <-handled; id != 0 {
		t.Fatalf("handled update %d, want 0", id)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		d.mu.Lock()
		empty := len(d.queues) == 0
		d.mu.Unlock()
		if empty {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("idle queue never evicted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The chat comes back after eviction on a fresh queue.
	d.enqueue(context.Background(), 1, chatUpdate(1, 1))
	select {
	case id := <-handled:
		if id != 1 {
			t.Fatalf("handled update %d, want 1", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("update after eviction never handled")
	}
}
