package jobs

import (
	"sync"
	"time"

	"github.com/AAWorks/binomial-pricer/internal/contracts"
)

// BookQuote is the latest pricing of one book contract.
// Error is set instead of Results when pricing failed.
type BookQuote struct {
	ID       string                     `json:"id"`
	Contract string                     `json:"contract"`
	Results  []*contracts.PricingResult `json:"results,omitempty"`
	Error    string                     `json:"error,omitempty"`
	PricedAt time.Time                  `json:"priced_at"`
}

// BookSnapshot is the whole book as of the last reprice
type BookSnapshot struct {
	UpdatedAt time.Time   `json:"updated_at"`
	Quotes    []BookQuote `json:"quotes"`
}

// BookStore holds the most recent book reprice for readers
// ⭐ SSOT: 북 시세는 여기서만 보관
type BookStore struct {
	mu       sync.RWMutex
	snapshot BookSnapshot
}

// NewBookStore creates an empty store
func NewBookStore() *BookStore {
	return &BookStore{snapshot: BookSnapshot{Quotes: []BookQuote{}}}
}

// Publish replaces the book with quotes
func (s *BookStore) Publish(quotes []BookQuote, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = BookSnapshot{
		UpdatedAt: at,
		Quotes:    append([]BookQuote(nil), quotes...),
	}
}

// Snapshot returns the current book
func (s *BookStore) Snapshot() BookSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BookSnapshot{
		UpdatedAt: s.snapshot.UpdatedAt,
		Quotes:    append([]BookQuote{}, s.snapshot.Quotes...),
	}
}
