package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kanban/internal/board"
	"kanban/internal/models"
)

type listRequest struct {
	Name string `json:"name"`
}

// loaded returns the caller's board, reading it from the backend the first
// time or when reload is set.
func loaded(ctx context.Context, store *board.Store, reload bool) ([]models.List, error) {
	if reload || store.UserID() == "" {
		return store.LoadBoard(ctx)
	}
	return store.Lists(), nil
}

func (s *Server) handleGetBoard(c *gin.Context) {
	reload, _ := strconv.ParseBool(c.Query("reload"))
	lists, err := loaded(c.Request.Context(), s.store(c), reload)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"lists": lists})
}

func (s *Server) handleCreateList(c *gin.Context) {
	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	list, err := s.store(c).CreateList(c.Request.Context(), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"list": list})
}

func (s *Server) handleRenameList(c *gin.Context) {
	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	store := s.store(c)
	id := c.Param("id")
	if err := store.RenameList(c.Request.Context(), id, req.Name); err != nil {
		s.fail(c, err)
		return
	}
	list, _ := store.List(id)
	respondSuccess(c, http.StatusOK, gin.H{"list": list})
}

func (s *Server) handleDeleteList(c *gin.Context) {
	if err := s.store(c).DeleteList(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
