package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"anoa.com/boardpush/internal/entity"
)

// Hub keeps in-process subscriptions grouped by address. It only reaches
// sessions connected to this instance.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan []byte]struct{})}
}

func (h *Hub) SendToUser(ctx context.Context, address string, payload *entity.Notification) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification %d: %w", payload.ID, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := h.subs[address]
	if len(conns) == 0 {
		return ErrNoSubscriber
	}
	for ch := range conns {
		select {
		case ch <- data:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// slow subscriber, skip
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, address string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	if _, ok := h.subs[address]; !ok {
		h.subs[address] = make(map[chan []byte]struct{})
	}
	h.subs[address][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[address], ch)
			if len(h.subs[address]) == 0 {
				delete(h.subs, address)
			}
			h.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel, nil
}

// Connected reports the number of open subscriptions for address.
func (h *Hub) Connected(address string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[address])
}
