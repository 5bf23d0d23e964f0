// Package storage defines the persistence contract shared by the board
// backends. A backend stores one document per list, scoped by user id.
package storage

import (
	"context"
	"errors"
	"sort"

	"kanban/internal/models"
)

// DeletedSentinel marks a soft-deleted list document. GetAll never returns it.
const DeletedSentinel = "__deleted__"

// LocalUser is the implicit owner used by single-user backends when no user id is given.
const LocalUser = "local"

var (
	// ErrUnavailable reports a failed or timed out persistence call.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrNotFound reports a patch against a document that does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict reports an optimistic write that lost a race.
	ErrConflict = errors.New("concurrent write conflict")
)

// ListPatch names the document fields to overwrite. Nil fields are left alone.
type ListPatch struct {
	Name     *string
	Projects *[]models.ProjectDocument
}

// Empty reports whether the patch changes nothing.
func (p ListPatch) Empty() bool {
	return p.Name == nil && p.Projects == nil
}

// Apply merges the patch into doc.
func (p ListPatch) Apply(doc *models.ListDocument) {
	if p.Name != nil {
		doc.Name = *p.Name
	}
	if p.Projects != nil {
		doc.Projects = append([]models.ProjectDocument(nil), (*p.Projects)...)
	}
}

// Backend persists list documents.
type Backend interface {
	// GetAll returns the user's live documents ordered by creation.
	GetAll(ctx context.Context, userID string) ([]models.ListDocument, error)
	// Put inserts or replaces a document by id.
	Put(ctx context.Context, doc models.ListDocument) error
	// Patch overwrites the named fields of an existing document.
	Patch(ctx context.Context, userID, listID string, patch ListPatch) error
}

// Live drops soft-deleted documents and orders the rest by creation time,
// falling back to id for documents created in the same instant.
func Live(docs []models.ListDocument) []models.ListDocument {
	out := make([]models.ListDocument, 0, len(docs))
	for _, d := range docs {
		if d.Name == DeletedSentinel {
			continue
		}
		if d.Projects == nil {
			d.Projects = []models.ProjectDocument{}
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// UserOrLocal maps an empty user id to LocalUser.
func UserOrLocal(userID string) string {
	if userID == "" {
		return LocalUser
	}
	return userID
}
