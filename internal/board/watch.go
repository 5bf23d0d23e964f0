package board

import (
	"context"
	"log/slog"
)

// AuthSource announces sign-in and sign-out. An empty user id means signed out.
type AuthSource interface {
	OnAuthChange(fn func(userID string)) (unsubscribe func())
}

// Watch loads the board whenever a user signs in and clears it on sign-out.
func Watch(ctx context.Context, s *Store, src AuthSource) (stop func()) {
	return src.OnAuthChange(func(userID string) {
		if userID == "" {
			s.Reset()
			return
		}
		if _, err := s.LoadBoard(ctx); err != nil {
			s.logger.Error("load board after sign-in", slog.String("user", userID), slog.String("error", err.Error()))
		}
	})
}
