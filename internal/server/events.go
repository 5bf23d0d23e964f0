package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"kanban/internal/models"
)

// handleEvents streams a "board" event with the full snapshot after every
// committed change, starting with the current board.
func (s *Server) handleEvents(c *gin.Context) {
	store := s.store(c)

	// Holds only the newest snapshot. Listeners run on the mutating goroutine
	// and must never block.
	updates := make(chan []models.List, 1)
	unsubscribe := store.Subscribe(func(lists []models.List) {
		select {
		case <-updates:
		default:
		}
		updates <- lists
	})
	defer unsubscribe()

	// Subscribed before the first snapshot so no commit falls in between.
	lists, err := loaded(c.Request.Context(), store, false)
	if err != nil {
		s.fail(c, err)
		return
	}
	select {
	case lists = <-updates:
	default:
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("board", gin.H{"lists": lists})
	c.Writer.Flush()

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case lists := <-updates:
			c.SSEvent("board", gin.H{"lists": lists})
		case <-ticker.C:
			if _, err := fmt.Fprint(c.Writer, ": keepalive\n\n"); err != nil {
				s.logger.Debug("event stream closed", slog.String("error", err.Error()))
				return
			}
		}
		c.Writer.Flush()
	}
}
