package board

import (
	"context"
	"log/slog"
	"strings"

	"kanban/internal/models"
	"kanban/internal/storage"
	"kanban/internal/validation"
)

// CreateList adds an empty list at the end of the board.
func (s *Store) CreateList(ctx context.Context, name string) (list models.List, err error) {
	defer func() { s.report(err, "List created.") }()

	userID, err := s.currentUser()
	if err != nil {
		return models.List{}, err
	}
	if msg := validation.Validate(validation.ListName(name)); msg != "" {
		return models.List{}, fieldError("name", msg)
	}

	release, err := s.begin(ctx, userID)
	if err != nil {
		return models.List{}, err
	}
	defer release()

	list = models.List{
		ID:       s.newID(),
		Name:     strings.TrimSpace(name),
		UserID:   userID,
		Projects: []models.Project{},
	}
	doc := models.ListDocument{
		ID:        list.ID,
		Name:      list.Name,
		UserID:    userID,
		Projects:  []models.ProjectDocument{},
		CreatedAt: s.nextCreatedAt(),
	}
	if err := s.backend.Put(ctx, doc); err != nil {
		return models.List{}, backendError("create list", list.ID, err)
	}

	s.commit(func() {
		s.lists = append(s.lists, list.Clone())
	})
	s.logger.Info("list created", slog.String("list", list.ID), slog.String("name", list.Name))
	return list, nil
}

// RenameList changes a list's name. An invalid name leaves the list untouched.
func (s *Store) RenameList(ctx context.Context, listID, name string) (err error) {
	defer func() { s.report(err, "List renamed.") }()

	userID, err := s.currentUser()
	if err != nil {
		return err
	}
	if msg := validation.Validate(validation.ListName(name)); msg != "" {
		return fieldError("name", msg)
	}

	release, err := s.begin(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	if _, _, err := s.lookup(listID); err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	if err := s.backend.Patch(ctx, userID, listID, storage.ListPatch{Name: &name}); err != nil {
		return backendError("rename list", listID, err)
	}

	s.commit(func() {
		if i := s.indexOf(listID); i >= 0 {
			s.lists[i].Name = name
		}
	})
	s.logger.Info("list renamed", slog.String("list", listID), slog.String("name", name))
	return nil
}

// DeleteList soft-deletes a list together with its projects. The last
// remaining list cannot be deleted.
func (s *Store) DeleteList(ctx context.Context, listID string) (err error) {
	defer func() { s.report(err, "List deleted.") }()

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
	if s.listCount() <= 1 {
		return ErrInvariantViolation
	}

	sentinel := storage.DeletedSentinel
	if err := s.backend.Patch(ctx, userID, listID, storage.ListPatch{Name: &sentinel}); err != nil {
		return backendError("delete list", listID, err)
	}

	s.commit(func() {
		if i := s.indexOf(listID); i >= 0 {
			s.lists = append(s.lists[:i:i], s.lists[i+1:]...)
		}
	})
	s.logger.Info("list deleted", slog.String("list", listID), slog.Int("projects", len(list.Projects)))
	return nil
}
