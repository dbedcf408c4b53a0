package service

import (
	"sync"

	"github.com/yono-dev/craftmind/internal/domain"
)

// ConversationStore keeps a bounded per-user message log used as multi-turn
// context. Entries past maxHistory are evicted oldest first, so the retained
// window is always the most recent messages in original order.
type ConversationStore struct {
	mu         sync.Mutex
	maxHistory int
	histories  map[int64][]domain.Content
}

func NewConversationStore(maxHistory int) *ConversationStore {
	return &ConversationStore{
		maxHistory: maxHistory,
		histories:  make(map[int64][]domain.Content),
	}
}

func (s *ConversationStore) Append(userID int64, role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := append(s.histories[userID], domain.TextContent(role, text))
	if over := len(h) - s.maxHistory; over > 0 {
		h = h[over:]
	}
	s.histories[userID] = h
}

// Get returns a copy of the user's history, oldest first.
func (s *ConversationStore) Get(userID int64) []domain.Content {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.histories[userID]
	out := make([]domain.Content, len(h))
	copy(out, h)
	return out
}

func (s *ConversationStore) Len(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.histories[userID])
}

func (s *ConversationStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, userID)
}
