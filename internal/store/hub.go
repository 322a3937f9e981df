package store

import (
	"sync"
)

// Hub fans out table-change notifications to subscribers. Writers publish a
// table name after each committed write.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscription
}

type subscription struct {
	tables map[string]struct{}
	ch     chan string
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subscription)}
}

// Subscribe registers interest in the given tables (all tables when none are
// given). The returned channel coalesces bursts: a slow reader sees at least
// one notification after the last write. Call cancel to unsubscribe.
func (h *Hub) Subscribe(tables ...string) (<-chan string, func()) {
	sub := &subscription{ch: make(chan string, 1)}
	if len(tables) > 0 {
		sub.tables = make(map[string]struct{}, len(tables))
		for _, t := range tables {
			sub.tables[t] = struct{}{}
		}
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish notifies subscribers of the given tables. It never blocks.
func (h *Hub) Publish(tables ...string) {
	if h == nil || len(tables) == 0 {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		for _, t := range tables {
			if !sub.wants(t) {
				continue
			}
			select {
			case sub.ch <- t:
			default:
			}
			break
		}
	}
}

func (s *subscription) wants(table string) bool {
	if s.tables == nil {
		return true
	}
	_, ok := s.tables[table]
	return ok
}
