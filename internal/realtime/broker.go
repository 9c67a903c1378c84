// Package realtime provides the snapshot-subscription capability the
// ticket feed rides on: register interest in a topic, receive a stream of
// snapshots, cancel to deregister.
package realtime

import (
	"fmt"
	"sync"

	"github.com/rifalibre/rifa-api/internal/domain"
)

// TicketEvent is one snapshot of the tickets that changed in a raffle.
type TicketEvent struct {
	RaffleID uint            `json:"raffle_id"`
	Tickets  []domain.Ticket `json:"tickets"`
}

func TicketTopic(raffleID uint) string {
	return fmt.Sprintf("raffles/%v/tickets", raffleID)
}

type subscriber struct {
	ch chan TicketEvent
}

type Broker struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]*subscriber
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[uint64]*subscriber),
	}
}

// Subscribe registers interest in a topic. The returned cancel func
// deregisters and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe(topic string) (<-chan TicketEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID

	sub := &subscriber{ch: make(chan TicketEvent, 16)}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]*subscriber)
	}
	b.subs[topic][id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			if _, ok := b.subs[topic][id]; ok {
				delete(b.subs[topic], id)
				close(sub.ch)
			}
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
		})
	}

	return sub.ch, cancel
}

// Publish fans an event out to every subscriber of the topic. A slow
// subscriber's full buffer drops the event rather than blocking the
// publisher; feeds are advisory and the store stays the point of truth.
func (b *Broker) Publish(topic string, event TicketEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs[topic] {
		select {
		case sub.ch <- event:
		default:
		}
	}
}
