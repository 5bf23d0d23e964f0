// Package tables is the remote board backend on Azure Table storage.
// PartitionKey is the user id and RowKey the list id, so every query is
// confined to one user's partition.
package tables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"kanban/internal/models"
	"kanban/internal/storage"
)

const (
	edmInt64       = "Edm.Int64"
	defaultTimeout = 10 * time.Second
)

// tableClient is the subset of *aztables.Client used by the backend.
type tableClient interface {
	CreateTable(ctx context.Context, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
	NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
}

// Store persists list documents as table entities.
type Store struct {
	table   tableClient
	timeout time.Duration
}

var _ storage.Backend = (*Store)(nil)

// New connects to the named table using a storage account connection string.
func New(connStr, table string, timeout time.Duration) (*Store, error) {
	if connStr == "" || table == "" {
		return nil, fmt.Errorf("missing table storage config")
	}
	options := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    timeout,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &options)
	if err != nil {
		return nil, fmt.Errorf("table service: %w", err)
	}
	return newStore(svc.NewClient(table), timeout), nil
}

func newStore(client tableClient, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Store{table: client, timeout: timeout}
}

type listEntity struct {
	PartitionKey  string `json:"PartitionKey"`
	RowKey        string `json:"RowKey"`
	Name          string `json:"Name"`
	Projects      string `json:"Projects"`
	CreatedAt     int64  `json:"CreatedAt,string"`
	CreatedAtType string `json:"CreatedAt@odata.type"`
}

// EnsureTable creates the backing table when it does not exist yet.
func (s *Store) EnsureTable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.table.CreateTable(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict {
			return nil
		}
		return unavailable("create table", err)
	}
	return nil
}

// GetAll returns the user's live list documents in creation order.
func (s *Store) GetAll(ctx context.Context, userID string) ([]models.ListDocument, error) {
	if userID == "" {
		return nil, errUserRequired
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := partitionFilter(userID)
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	var docs []models.ListDocument
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, unavailable("list entities", err)
		}
		for _, raw := range resp.Entities {
			var ent listEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, fmt.Errorf("decode entity: %w", err)
			}
			doc, err := ent.document()
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	return storage.Live(docs), nil
}

// Put inserts or replaces a list document.
func (s *Store) Put(ctx context.Context, doc models.ListDocument) error {
	if doc.UserID == "" {
		return errUserRequired
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	projects, err := encodeProjects(doc.Projects)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(listEntity{
		PartitionKey:  doc.UserID,
		RowKey:        doc.ID,
		Name:          doc.Name,
		Projects:      projects,
		CreatedAt:     doc.CreatedAt,
		CreatedAtType: edmInt64,
	})
	if err != nil {
		return fmt.Errorf("encode entity: %w", err)
	}
	if _, err := s.table.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace}); err != nil {
		return unavailable("upsert entity", err)
	}
	return nil
}

// Patch merges the named fields into an existing entity.
func (s *Store) Patch(ctx context.Context, userID, listID string, patch storage.ListPatch) error {
	if userID == "" {
		return errUserRequired
	}
	if patch.Empty() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	update := map[string]any{
		"PartitionKey": userID,
		"RowKey":       listID,
	}
	if patch.Name != nil {
		update["Name"] = *patch.Name
	}
	if patch.Projects != nil {
		projects, err := encodeProjects(*patch.Projects)
		if err != nil {
			return err
		}
		update["Projects"] = projects
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode entity: %w", err)
	}

	etag := azcore.ETagAny
	_, err = s.table.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &etag, UpdateMode: aztables.UpdateModeMerge})
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("list %s: %w", listID, storage.ErrNotFound)
		}
		return unavailable("update entity", err)
	}
	return nil
}

func (e listEntity) document() (models.ListDocument, error) {
	doc := models.ListDocument{
		ID:        e.RowKey,
		Name:      e.Name,
		UserID:    e.PartitionKey,
		CreatedAt: e.CreatedAt,
	}
	if e.Projects != "" {
		if err := json.Unmarshal([]byte(e.Projects), &doc.Projects); err != nil {
			return models.ListDocument{}, fmt.Errorf("decode projects of list %s: %w", e.RowKey, err)
		}
	}
	return doc, nil
}

// partitionFilter quotes the user id as an OData string literal.
func partitionFilter(userID string) string {
	return "PartitionKey eq '" + strings.ReplaceAll(userID, "'", "''") + "'"
}

var errUserRequired = errors.New("table backend: user id is required")

func encodeProjects(projects []models.ProjectDocument) (string, error) {
	if projects == nil {
		projects = []models.ProjectDocument{}
	}
	data, err := json.Marshal(projects)
	if err != nil {
		return "", fmt.Errorf("encode projects: %w", err)
	}
	return string(data), nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err)
}
