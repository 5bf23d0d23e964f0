package board

import (
	"context"
	"log/slog"
	"strings"

	"kanban/internal/models"
	"kanban/internal/storage"
	"kanban/internal/validation"
)

// ProjectUpdate carries the fields to change. Nil fields keep their value.
type ProjectUpdate struct {
	Title       *string
	Description *string
}

// CreateProject appends a new project to the end of a list.
func (s *Store) CreateProject(ctx context.Context, title, description, listID string) (project models.Project, err error) {
	defer func() { s.report(err, "Project created.") }()

	userID, err := s.currentUser()
	if err != nil {
		return models.Project{}, err
	}
	if msg := validation.Validate(validation.ProjectTitle(title)); msg != "" {
		return models.Project{}, fieldError("title", msg)
	}
	if msg := validation.Validate(validation.ProjectDescription(description)); msg != "" {
		return models.Project{}, fieldError("description", msg)
	}

	release, err := s.begin(ctx, userID)
	if err != nil {
		return models.Project{}, err
	}
	defer release()

	list, _, err := s.lookup(listID)
	if err != nil {
		return models.Project{}, err
	}

	project = models.Project{
		ID:          s.newID(),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		ListID:      listID,
		UserID:      userID,
	}
	list.Projects = append(list.Projects, project)
	if err := s.saveProjects(ctx, userID, list); err != nil {
		return models.Project{}, backendError("create project", listID, err)
	}

	s.replace(list)
	s.logger.Info("project created", slog.String("project", project.ID), slog.String("list", listID))
	return project, nil
}

// UpdateProject merges upd into a project and rewrites it in place.
func (s *Store) UpdateProject(ctx context.Context, listID, projectID string, upd ProjectUpdate) (err error) {
	defer func() { s.report(err, "Project updated.") }()

	userID, err := s.currentUser()
	if err != nil {
		return err
	}
	if upd.Title != nil {
		if msg := validation.Validate(validation.ProjectTitle(*upd.Title)); msg != "" {
			return fieldError("title", msg)
		}
	}
	if upd.Description != nil {
		if msg := validation.Validate(validation.ProjectDescription(*upd.Description)); msg != "" {
			return fieldError("description", msg)
		}
	}

	release, err := s.begin(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	list, _, err := s.lookup(listID)
	if err != nil {
		return err
	}
	i := list.IndexOf(projectID)
	if i < 0 {
		return projectNotFound(projectID)
	}
	if upd.Title == nil && upd.Description == nil {
		return nil
	}

	if upd.Title != nil {
		list.Projects[i].Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		list.Projects[i].Description = strings.TrimSpace(*upd.Description)
	}
	if err := s.saveProjects(ctx, userID, list); err != nil {
		return backendError("update project", listID, err)
	}

	s.replace(list)
	s.logger.Info("project updated", slog.String("project", projectID), slog.String("list", listID))
	return nil
}

// DeleteProject removes a project from a list. Deleting a project that is
// already gone succeeds without touching the backend.
func (s *Store) DeleteProject(ctx context.Context, listID, projectID string) (err error) {
	removed := false
	defer func() {
		if err != nil || removed {
			s.report(err, "Project deleted.")
		}
	}()

	userID, err := s.currentUser()
	if err != nil {
		return err
	}

	release, err := s.begin(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	list, _, err := s.lookup(listID)
	if err != nil {
		return err
	}
	i := list.IndexOf(projectID)
	if i < 0 {
		return nil
	}

	list.Projects = append(list.Projects[:i:i], list.Projects[i+1:]...)
	if err := s.saveProjects(ctx, userID, list); err != nil {
		return backendError("delete project", listID, err)
	}

	s.replace(list)
	removed = true
	s.logger.Info("project deleted", slog.String("project", projectID), slog.String("list", listID))
	return nil
}

// MoveProject transfers a project to the end of another list. The destination
// is written before the source, and the destination write is rolled back if
// the source write fails, so a project is never lost between lists.
func (s *Store) MoveProject(ctx context.Context, projectID, fromListID, toListID string) (err error) {
	same := fromListID == toListID
	defer func() {
		if err != nil || !same {
			s.report(err, "Project moved.")
		}
	}()

	userID, err := s.currentUser()
	if err != nil {
		return err
	}
	if same {
		return nil
	}

	release, err := s.begin(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	from, _, err := s.lookup(fromListID)
	if err != nil {
		return err
	}
	i := from.IndexOf(projectID)
	if i < 0 {
		return projectNotFound(projectID)
	}
	to, _, err := s.lookup(toListID)
	if err != nil {
		return err
	}

	original := to.Clone()
	project := from.Projects[i]
	project.ListID = toListID
	from.Projects = append(from.Projects[:i:i], from.Projects[i+1:]...)
	to.Projects = append(to.Projects, project)

	if err := s.saveProjects(ctx, userID, to); err != nil {
		return backendError("move project", toListID, err)
	}
	if err := s.saveProjects(ctx, userID, from); err != nil {
		if rbErr := s.saveProjects(ctx, userID, original); rbErr != nil {
			s.logger.Error("move rollback failed",
				slog.String("project", projectID), slog.String("list", toListID), slog.String("error", rbErr.Error()))
		}
		return backendError("move project", fromListID, err)
	}

	s.commit(func() {
		for _, l := range []models.List{from, to} {
			if j := s.indexOf(l.ID); j >= 0 {
				s.lists[j] = l
			}
		}
	})
	s.logger.Info("project moved",
		slog.String("project", projectID), slog.String("from", fromListID), slog.String("to", toListID))
	return nil
}

func (s *Store) saveProjects(ctx context.Context, userID string, list models.List) error {
	docs := models.ToDocuments(list.Projects)
	return s.backend.Patch(ctx, userID, list.ID, storage.ListPatch{Projects: &docs})
}

// replace swaps in an updated copy of a list and announces the change.
func (s *Store) replace(list models.List) {
	s.commit(func() {
		if i := s.indexOf(list.ID); i >= 0 {
			s.lists[i] = list
		}
	})
}
