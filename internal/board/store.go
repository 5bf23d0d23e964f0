// Package board holds the authoritative state of one user's kanban board.
//
// Every mutation is validated, written to the backend, and only then applied
// to memory and announced to subscribers. Mutations are serialized: one runs
// to completion, backend I/O included, before the next starts.
package board

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kanban/internal/models"
	"kanban/internal/notify"
	"kanban/internal/storage"
)

// DefaultLists are created for a user whose board is empty on first load.
var DefaultLists = []string{"Initial", "Active", "Finished"}

// Identity supplies the signed-in user.
type Identity interface {
	CurrentUserID() (string, bool)
}

// Listener receives a private copy of the board after every committed change.
type Listener func(lists []models.List)

type subscription struct {
	id int
	fn Listener
}

// Store is the single writer of a board. Create one per client with New and
// pass it to every consumer.
type Store struct {
	backend  storage.Backend
	identity Identity
	logger   *slog.Logger
	notifier notify.Notifier
	newID    func() string
	now      func() time.Time
	defaults []string
	reject   bool

	// writeMu is held for the whole of a mutation, backend calls included.
	writeMu sync.Mutex

	mu          sync.RWMutex
	owner       string
	loaded      bool
	lists       []models.List
	seeded      map[string]bool
	lastCreated int64

	subMu   sync.Mutex
	nextSub int
	subs    []subscription
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotifier sets where user-facing confirmations and errors go.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithDefaultLists overrides the lists seeded for a new user.
func WithDefaultLists(names ...string) Option {
	return func(s *Store) {
		if len(names) > 0 {
			s.defaults = append([]string(nil), names...)
		}
	}
}

// WithRejectConcurrent makes a mutation fail with ErrConflict instead of
// waiting while another mutation is in flight.
func WithRejectConcurrent() Option {
	return func(s *Store) { s.reject = true }
}

// New creates a Store over backend for the user reported by identity.
func New(backend storage.Backend, identity Identity, opts ...Option) *Store {
	if backend == nil {
		panic("board.New: backend is nil")
	}
	if identity == nil {
		panic("board.New: identity is nil")
	}
	s := &Store{
		backend:  backend,
		identity: identity,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		notifier: notify.Discard,
		newID:    uuid.NewString,
		now:      time.Now,
		defaults: DefaultLists,
		seeded:   map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn for every committed change. Listeners run
// synchronously on the mutating goroutine, in registration order, and must
// not call mutating Store methods. The returned function unsubscribes.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Lists returns a copy of the board.
func (s *Store) Lists() []models.List {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneLists(s.lists)
}

// List returns a copy of one list.
func (s *Store) List(id string) (models.List, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.lists[i].Clone(), true
	}
	return models.List{}, false
}

// UserID returns the owner of the loaded board, or "" when nothing is loaded.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// LoadBoard reads the user's lists from the backend and replaces the board.
// An empty board is seeded once with the default lists.
func (s *Store) LoadBoard(ctx context.Context) (lists []models.List, err error) {
	userID, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.load(ctx, userID, true); err != nil {
		s.report(err, "")
		return nil, err
	}
	return s.Lists(), nil
}

// Reset clears the board, typically on sign-out.
func (s *Store) Reset() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.owner = ""
	s.loaded = false
	s.lists = nil
	s.mu.Unlock()

	s.logger.Info("board cleared")
	s.publish()
}

// load replaces the board with the user's persisted lists. Subscribers hear
// about it only when announce is set; an implicit load ahead of a mutation is
// announced by that mutation's commit, and not at all if the mutation fails.
func (s *Store) load(ctx context.Context, userID string, announce bool) error {
	docs, err := s.backend.GetAll(ctx, userID)
	if err != nil {
		return backendError("load board", "", err)
	}

	if len(docs) == 0 && !s.isSeeded(userID) {
		docs, err = s.seed(ctx, userID)
		if err != nil {
			return err
		}
	}

	lists := make([]models.List, 0, len(docs))
	for _, doc := range docs {
		lists = append(lists, models.ListFromDocument(doc))
	}
	lists = s.dropDuplicateProjects(lists)

	s.mu.Lock()
	s.owner = userID
	s.loaded = true
	s.lists = lists
	s.seeded[userID] = true
	for _, doc := range docs {
		if doc.CreatedAt > s.lastCreated {
			s.lastCreated = doc.CreatedAt
		}
	}
	s.mu.Unlock()

	s.logger.Info("board loaded", slog.String("user", userID), slog.Int("lists", len(lists)))
	if announce {
		s.publish()
	}
	return nil
}

func (s *Store) seed(ctx context.Context, userID string) ([]models.ListDocument, error) {
	docs := make([]models.ListDocument, 0, len(s.defaults))
	for _, name := range s.defaults {
		doc := models.ListDocument{
			ID:        s.newID(),
			Name:      name,
			UserID:    userID,
			Projects:  []models.ProjectDocument{},
			CreatedAt: s.nextCreatedAt(),
		}
		if err := s.backend.Put(ctx, doc); err != nil {
			return nil, backendError("seed default lists", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	s.logger.Info("default lists created", slog.String("user", userID), slog.Int("lists", len(docs)))
	return docs, nil
}

// dropDuplicateProjects keeps the first occurrence of every project id. A
// duplicate can only come from a move whose second write failed.
func (s *Store) dropDuplicateProjects(lists []models.List) []models.List {
	seen := map[string]string{}
	for i := range lists {
		kept := lists[i].Projects[:0]
		for _, p := range lists[i].Projects {
			if owner, dup := seen[p.ID]; dup {
				s.logger.Warn("duplicate project dropped",
					slog.String("project", p.ID), slog.String("list", lists[i].ID), slog.String("kept_in", owner))
				continue
			}
			seen[p.ID] = lists[i].ID
			kept = append(kept, p)
		}
		lists[i].Projects = kept
	}
	return lists
}

func (s *Store) isSeeded(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seeded[userID]
}

// begin starts a mutation for userID: it takes the writer lock and makes sure
// the loaded board belongs to that user.
func (s *Store) begin(ctx context.Context, userID string) (release func(), err error) {
	release, err = s.acquire()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	ready := s.loaded && s.owner == userID
	s.mu.RUnlock()
	if !ready {
		if err := s.load(ctx, userID, false); err != nil {
			release()
			return nil, err
		}
	}
	return release, nil
}

func (s *Store) acquire() (release func(), err error) {
	if s.reject {
		if !s.writeMu.TryLock() {
			return nil, ErrConflict
		}
	} else {
		s.writeMu.Lock()
	}
	return s.writeMu.Unlock, nil
}

func (s *Store) currentUser() (string, error) {
	userID, ok := s.identity.CurrentUserID()
	if !ok || userID == "" {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

// commit applies fn to the board under the state lock and announces the result.
func (s *Store) commit(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.publish()
}

func (s *Store) publish() {
	s.mu.RLock()
	base := models.CloneLists(s.lists)
	s.mu.RUnlock()

	s.subMu.Lock()
	subs := append([]subscription(nil), s.subs...)
	s.subMu.Unlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	for _, sub := range subs {
		sub.fn(models.CloneLists(base))
	}
}

// report surfaces the outcome of an operation to the notifier.
func (s *Store) report(err error, success string) {
	if err != nil {
		s.notifier.Show(err.Error(), notify.Options{Kind: notify.Error})
		return
	}
	if success != "" {
		s.notifier.Show(success, notify.Options{Kind: notify.Success})
	}
}

// nextCreatedAt returns a strictly increasing creation stamp.
func (s *Store) nextCreatedAt() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now().UnixNano()
	if ts <= s.lastCreated {
		ts = s.lastCreated + 1
	}
	s.lastCreated = ts
	return ts
}

// indexOf must be called with mu held.
func (s *Store) indexOf(listID string) int {
	for i, l := range s.lists {
		if l.ID == listID {
			return i
		}
	}
	return -1
}

// lookup returns a copy of a list and its index. Safe only under writeMu,
// which keeps the index valid until the mutation commits.
func (s *Store) lookup(listID string) (models.List, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(listID)
	if i < 0 {
		return models.List{}, -1, listNotFound(listID)
	}
	return s.lists[i].Clone(), i, nil
}

func (s *Store) listCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lists)
}

func fieldError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
