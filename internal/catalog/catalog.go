package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/booknook/bookfeed/internal/api"
	"github.com/booknook/bookfeed/internal/models"
)

// State is a snapshot of the feed and its loading status
type State struct {
	Books    []models.Book
	Loading  bool
	Err      error
	LoadedAt time.Time
}

// Loaded reports whether at least one fetch has succeeded
func (s State) Loaded() bool {
	return !s.LoadedAt.IsZero()
}

// Store holds the fetched list of books
type Store struct {
	client *api.Client

	mu    sync.RWMutex
	state State
}

func NewStore(client *api.Client) *Store {
	return &Store{client: client}
}

// Load fetches the full feed and replaces the held list, keeping server
// order. On failure the previous list is kept and the error is both
// recorded in State and returned. Load may be called any number of times.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.state.Loading = true
	s.mu.Unlock()

	books, err := s.client.ListBooks(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	if err != nil {
		s.state.Err = fmt.Errorf("failed to load books: %w", err)
		slog.Warn("Catalog fetch failed", "err", err)
		return s.state.Err
	}
	s.state.Books = books
	s.state.Err = nil
	s.state.LoadedAt = time.Now()
	slog.Debug("Catalog loaded", "count", len(books))
	return nil
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Books = append([]models.Book(nil), s.state.Books...)
	return st
}

// Books returns the held list
func (s *Store) Books() []models.Book {
	return s.State().Books
}
