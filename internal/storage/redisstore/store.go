// Package redisstore is the remote board backend on Redis. Each user owns one
// hash, {prefix}:{user}:lists, whose fields are list ids and whose values are
// JSON list documents.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kanban/internal/models"
	"kanban/internal/storage"
)

const (
	defaultPrefix  = "kanban"
	defaultTimeout = 3 * time.Second
)

// Store persists list documents in Redis.
type Store struct {
	rdb     *redis.Client
	prefix  string
	timeout time.Duration
}

// Option customises a Store.
type Option func(*Store)

// WithPrefix namespaces every key.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTimeout bounds every backend call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

var _ storage.Backend = (*Store)(nil)

// New wraps an existing client. The caller owns the client and closes it.
func New(rdb *redis.Client, opts ...Option) *Store {
	if rdb == nil {
		panic("redisstore.New: client is nil")
	}
	s := &Store{rdb: rdb, prefix: defaultPrefix, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping verifies Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// ListsKey returns the hash holding a user's list documents.
func (s *Store) ListsKey(userID string) string {
	return s.prefix + ":" + userID + ":lists"
}

// GetAll returns the user's live list documents in creation order.
func (s *Store) GetAll(ctx context.Context, userID string) ([]models.ListDocument, error) {
	if userID == "" {
		return nil, errUserRequired
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	fields, err := s.rdb.HGetAll(ctx, s.ListsKey(userID)).Result()
	if err != nil {
		return nil, unavailable("read documents", err)
	}

	docs := make([]models.ListDocument, 0, len(fields))
	for id, raw := range fields {
		var doc models.ListDocument
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode list %s: %w", id, err)
		}
		docs = append(docs, doc)
	}
	return storage.Live(docs), nil
}

// Put inserts or replaces a list document.
func (s *Store) Put(ctx context.Context, doc models.ListDocument) error {
	if doc.UserID == "" {
		return errUserRequired
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, err := encode(doc)
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, s.ListsKey(doc.UserID), doc.ID, data).Err(); err != nil {
		return unavailable("write document", err)
	}
	return nil
}

// Patch overwrites the named fields of an existing document. The read-modify-write
// runs under WATCH so a concurrent writer turns into storage.ErrConflict.
func (s *Store) Patch(ctx context.Context, userID, listID string, patch storage.ListPatch) error {
	if userID == "" {
		return errUserRequired
	}
	if patch.Empty() {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := s.ListsKey(userID)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, listID).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("list %s: %w", listID, storage.ErrNotFound)
		}
		if err != nil {
			return unavailable("read document", err)
		}

		var doc models.ListDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode list %s: %w", listID, err)
		}
		patch.Apply(&doc)
		data, err := encode(doc)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, listID, data)
			return nil
		})
		return err
	}

	err := s.rdb.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("list %s: %w", listID, storage.ErrConflict)
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrUnavailable):
		return err
	default:
		return unavailable("patch document", err)
	}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

var errUserRequired = errors.New("redis backend: user id is required")

func encode(doc models.ListDocument) ([]byte, error) {
	if doc.Projects == nil {
		doc.Projects = []models.ProjectDocument{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode list %s: %w", doc.ID, err)
	}
	return data, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err)
}
