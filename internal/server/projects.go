package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kanban/internal/board"
)

type projectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type projectUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type moveRequest struct {
	ProjectID  string `json:"projectId" binding:"required"`
	FromListID string `json:"fromListId" binding:"required"`
	ToListID   string `json:"toListId" binding:"required"`
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := s.store(c).CreateProject(c.Request.Context(), req.Title, req.Description, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

func (s *Server) handleUpdateProject(c *gin.Context) {
	var req projectUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	store := s.store(c)
	listID, projectID := c.Param("id"), c.Param("pid")
	upd := board.ProjectUpdate{Title: req.Title, Description: req.Description}
	if err := store.UpdateProject(c.Request.Context(), listID, projectID, upd); err != nil {
		s.fail(c, err)
		return
	}

	list, _ := store.List(listID)
	if i := list.IndexOf(projectID); i >= 0 {
		respondSuccess(c, http.StatusOK, gin.H{"project": list.Projects[i]})
		return
	}
	respondSuccess(c, http.StatusOK, nil)
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	if err := s.store(c).DeleteProject(c.Request.Context(), c.Param("id"), c.Param("pid")); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleMoveProject applies a drop: the payload names the project and both lists.
func (s *Server) handleMoveProject(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	store := s.store(c)
	if err := store.MoveProject(c.Request.Context(), req.ProjectID, req.FromListID, req.ToListID); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"lists": store.Lists()})
}
