package repository

import (
	"sync"

	"profsync/internal/domain"
)

const defaultWindow = 5

// History is the in-process conversation log. It only ever grows; reads are
// windowed to the most recent turns.
type History struct {
	mu     sync.Mutex
	turns  []domain.ConversationTurn
	window int
}

// NewHistory creates an empty History. A non-positive window falls back to 5.
func NewHistory(window int) *History {
	if window <= 0 {
		window = defaultWindow
	}
	return &History{window: window}
}

// Record appends a classified message.
func (h *History) Record(message string, classification domain.Classification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, domain.ConversationTurn{
		Message:        message,
		Classification: classification,
	})
}

// RecentWindow returns a copy of the last window turns in insertion order.
func (h *History) RecentWindow() []domain.ConversationTurn {
	h.mu.Lock()
	defer h.mu.Unlock()
	start := len(h.turns) - h.window
	if start < 0 {
		start = 0
	}
	out := make([]domain.ConversationTurn, len(h.turns)-start)
	copy(out, h.turns[start:])
	return out
}

// Len reports the total number of recorded turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}
