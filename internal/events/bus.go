package events

import (
	"context"
	"sync"
)

// Handler reacts to a journal write for userID.
type Handler func(userID int)

// Bus fans journal-written notifications out to every subscriber. Subscribers
// in the publishing process have run by the time PublishJournalWritten returns.
type Bus interface {
	PublishJournalWritten(ctx context.Context, userID int) error
	Subscribe(h Handler)
}

// LocalBus delivers notifications synchronously within the process.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewLocalBus() *LocalBus { return &LocalBus{} }

func (b *LocalBus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *LocalBus) PublishJournalWritten(_ context.Context, userID int) error {
	b.dispatch(userID)
	return nil
}

func (b *LocalBus) dispatch(userID int) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()
	for _, h := range handlers {
		h(userID)
	}
}
