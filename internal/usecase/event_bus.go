package usecase

import (
	"sync"
	"time"

	"github.com/recipecart/backend/internal/domain"
	"github.com/sirupsen/logrus"
)

const subscriberBuffer = 64

// EventBus fans session and run events out to subscribers. Publishing never
// blocks; a subscriber whose buffer is full misses the event.
type EventBus struct {
	subscribers map[int]chan domain.Event
	nextID      int
	mu          sync.RWMutex
	logger      logrus.FieldLogger
}

// NewEventBus creates an event bus
func NewEventBus(logger logrus.FieldLogger) *EventBus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EventBus{
		subscribers: make(map[int]chan domain.Event),
		logger:      logger.WithField("component", "events"),
	}
}

// Subscribe returns a channel of events and a function that unsubscribes and
// closes the channel.
func (b *EventBus) Subscribe() (<-chan domain.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan domain.Event, subscriberBuffer)
	b.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers, id)
			close(ch)
		})
	}
}

// Publish delivers event to every subscriber.
func (b *EventBus) Publish(event domain.Event) {
	if b == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.WithFields(logrus.Fields{
				"subscriber": id,
				"event_type": event.Type,
			}).Warn("Subscriber buffer full, dropping event")
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *EventBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
