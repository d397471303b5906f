package telegram

import (
	"context"
	"log"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	chatQueueSize    = 64
	chatQueueIdleTTL = 5 * time.Minute
)

// dispatcher fans updates out to one FIFO queue per chat. A single worker
// drains each queue, so updates within a conversation are handled strictly
// in arrival order while different chats proceed concurrently. A bare
// per-chat mutex is not enough here: lock acquisition is not FIFO, so two
// goroutines racing for the same chat could swap places.
type dispatcher struct {
	handle  func(ctx context.Context, update tgbotapi.Update)
	idleTTL time.Duration

	mu     sync.Mutex
	queues map[int64]chan tgbotapi.Update
}

func newDispatcher(handle func(ctx context.Context, update tgbotapi.Update)) *dispatcher {
	return &dispatcher{
		handle:  handle,
		idleTTL: chatQueueIdleTTL,
		queues:  make(map[int64]chan tgbotapi.Update),
	}
}

// enqueue appends the update to its chat's queue, starting a worker for the
// chat on first use. Never blocks: a chat that floods its queue loses the
// newest update instead of stalling every other chat behind the lock.
func (d *dispatcher) enqueue(ctx context.Context, chatID int64, update tgbotapi.Update) {
	d.mu.Lock()
	defer d.mu.Unlock()
	q, ok := d.queues[chatID]
	if !ok {
		q = make(chan tgbotapi.Update, chatQueueSize)
		d.queues[chatID] = q
		go d.drain(ctx, chatID, q)
	}
	select {
	case q <- update:
	default:
		log.Printf("update queue for chat %d is full, dropping update", chatID)
	}
}

// drain processes one chat's updates in order. Idle queues are evicted so
// the map does not grow with every chat ever seen.
func (d *dispatcher) drain(ctx context.Context, chatID int64, q chan tgbotapi.Update) {
	for {
		select {
		case update := <-q:
			d.handle(ctx, update)
		case <-time.After(d.idleTTL):
			d.mu.Lock()
			if len(q) == 0 {
				delete(d.queues, chatID)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}
