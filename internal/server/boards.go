package server

import (
	"log/slog"
	"sync"

	"kanban/internal/board"
	"kanban/internal/notify"
	"kanban/internal/session"
	"kanban/internal/storage"
)

// Boards hands out one board.Store per user. All stores share the backend.
type Boards struct {
	backend storage.Backend
	logger  *slog.Logger
	opts    []board.Option

	mu     sync.Mutex
	stores map[string]*board.Store
}

// NewBoards creates an empty registry. opts are applied to every store.
func NewBoards(backend storage.Backend, logger *slog.Logger, opts ...board.Option) *Boards {
	if logger == nil {
		logger = slog.Default()
	}
	return &Boards{
		backend: backend,
		logger:  logger,
		opts:    opts,
		stores:  map[string]*board.Store{},
	}
}

// For returns the store of userID, creating it on first use.
func (b *Boards) For(userID string) *board.Store {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.stores[userID]; ok {
		return s
	}
	logger := b.logger.With(slog.String("user", userID))
	opts := append([]board.Option{
		board.WithLogger(logger),
		board.WithNotifier(notify.Log{Logger: logger}),
	}, b.opts...)
	s := board.New(b.backend, session.Fixed(userID), opts...)
	b.stores[userID] = s
	return s
}
