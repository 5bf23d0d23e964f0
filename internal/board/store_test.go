package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban/internal/models"
	"kanban/internal/notify"
	"kanban/internal/session"
	"kanban/internal/storage"
)

// memBackend keeps documents in memory and lets a test fail chosen calls.
type memBackend struct {
	mu    sync.Mutex
	docs  map[string]map[string]models.ListDocument
	calls []string
	fail  func(op, listID string) error
}

func newMemBackend() *memBackend {
	return &memBackend{docs: map[string]map[string]models.ListDocument{}}
}

func (m *memBackend) record(op, listID string) error {
	m.calls = append(m.calls, op+":"+listID)
	if m.fail != nil {
		return m.fail(op, listID)
	}
	return nil
}

func (m *memBackend) GetAll(_ context.Context, userID string) ([]models.ListDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("getall", ""); err != nil {
		return nil, err
	}
	out := make([]models.ListDocument, 0, len(m.docs[userID]))
	for _, d := range m.docs[userID] {
		d.Projects = append([]models.ProjectDocument(nil), d.Projects...)
		out = append(out, d)
	}
	return storage.Live(out), nil
}

func (m *memBackend) Put(_ context.Context, doc models.ListDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("put", doc.ID); err != nil {
		return err
	}
	if m.docs[doc.UserID] == nil {
		m.docs[doc.UserID] = map[string]models.ListDocument{}
	}
	doc.Projects = append([]models.ProjectDocument(nil), doc.Projects...)
	m.docs[doc.UserID][doc.ID] = doc
	return nil
}

func (m *memBackend) Patch(_ context.Context, userID, listID string, patch storage.ListPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("patch", listID); err != nil {
		return err
	}
	doc, ok := m.docs[userID][listID]
	if !ok {
		return storage.ErrNotFound
	}
	patch.Apply(&doc)
	m.docs[userID][listID] = doc
	return nil
}

func (m *memBackend) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c[:3] != "get" {
			n++
		}
	}
	return n
}

func (m *memBackend) doc(userID, listID string) models.ListDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[userID][listID]
}

func sequentialIDs() func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("id-%02d", n)
	}
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *memBackend) {
	t.Helper()
	backend := newMemBackend()
	opts = append([]Option{WithIDGenerator(sequentialIDs())}, opts...)
	s := New(backend, session.Fixed("u1"), opts...)
	_, err := s.LoadBoard(context.Background())
	require.NoError(t, err)
	return s, backend
}

func names(lists []models.List) []string {
	out := make([]string, 0, len(lists))
	for _, l := range lists {
		out = append(out, l.Name)
	}
	return out
}

func listByName(t *testing.T, s *Store, name string) models.List {
	t.Helper()
	for _, l := range s.Lists() {
		if l.Name == name {
			return l
		}
	}
	t.Fatalf("list %q not on board", name)
	return models.List{}
}

func TestLoadBoardSeedsDefaultsOnce(t *testing.T) {
	s, backend := newTestStore(t)
	assert.Equal(t, []string{"Initial", "Active", "Finished"}, names(s.Lists()))
	assert.Equal(t, 3, backend.writes())

	// Deleting every list but one and reloading must not reseed.
	ctx := context.Background()
	require.NoError(t, s.DeleteList(ctx, listByName(t, s, "Active").ID))
	require.NoError(t, s.DeleteList(ctx, listByName(t, s, "Finished").ID))
	lists, err := s.LoadBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Initial"}, names(lists))
}

func TestLoadBoardRequiresUser(t *testing.T) {
	backend := newMemBackend()
	s := New(backend, session.New())

	_, err := s.LoadBoard(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
	ctx := context.Background()
	_, err = s.CreateList(ctx, "Backlog")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, s.RenameList(ctx, "a", "Backlog"), ErrUnauthenticated)
	assert.ErrorIs(t, s.DeleteList(ctx, "a"), ErrUnauthenticated)
	_, err = s.CreateProject(ctx, "Valid title", "valid text", "a")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	title := "Valid title"
	assert.ErrorIs(t, s.UpdateProject(ctx, "a", "p", ProjectUpdate{Title: &title}), ErrUnauthenticated)
	assert.ErrorIs(t, s.DeleteProject(ctx, "a", "p"), ErrUnauthenticated)
	assert.ErrorIs(t, s.MoveProject(ctx, "p", "a", "b"), ErrUnauthenticated)
	assert.ErrorIs(t, s.MoveProject(ctx, "p", "a", "a"), ErrUnauthenticated)
	assert.Empty(t, backend.calls)
}

func TestFailedMutationAfterImplicitLoadDoesNotNotify(t *testing.T) {
	backend := newMemBackend()
	s := New(backend, session.Fixed("u1"), WithIDGenerator(sequentialIDs()))

	var snapshots [][]models.List
	s.Subscribe(func(lists []models.List) { snapshots = append(snapshots, lists) })

	assert.ErrorIs(t, s.DeleteList(context.Background(), "missing"), ErrNotFound)
	assert.Empty(t, snapshots)
	assert.Len(t, s.Lists(), 3)

	_, err := s.CreateList(context.Background(), "Backlog")
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, []string{"Initial", "Active", "Finished", "Backlog"}, names(snapshots[0]))
}

func TestMutationLoadsBoardImplicitly(t *testing.T) {
	backend := newMemBackend()
	s := New(backend, session.Fixed("u1"), WithIDGenerator(sequentialIDs()))

	list, err := s.CreateList(context.Background(), "Backlog")
	require.NoError(t, err)
	assert.Equal(t, []string{"Initial", "Active", "Finished", "Backlog"}, names(s.Lists()))
	assert.Equal(t, "u1", s.UserID())
	assert.Equal(t, "u1", list.UserID)
}

func TestCreateListRoundTrip(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()

	list, err := s.CreateList(ctx, "  Backlog  ")
	require.NoError(t, err)
	assert.Equal(t, "Backlog", list.Name)
	assert.Empty(t, list.Projects)

	project, err := s.CreateProject(ctx, "Write docs", "for the release", list.ID)
	require.NoError(t, err)

	reloaded := New(backend, session.Fixed("u1"))
	lists, err := reloaded.LoadBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, names(s.Lists()), names(lists))
	assert.Equal(t, s.Lists(), lists)
	got, ok := reloaded.List(list.ID)
	require.True(t, ok)
	require.Len(t, got.Projects, 1)
	assert.Equal(t, project, got.Projects[0])
}

func TestCreateListValidation(t *testing.T) {
	s, backend := newTestStore(t)
	before := backend.writes()

	for _, name := range []string{"", "   ", "ab", "a name that is too long"} {
		_, err := s.CreateList(context.Background(), name)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, name)
		assert.Equal(t, "name", verr.Field)
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.Equal(t, before, backend.writes())
	assert.Len(t, s.Lists(), 3)
}

func TestRenameList(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()
	active := listByName(t, s, "Active")

	require.NoError(t, s.RenameList(ctx, active.ID, "Doing"))
	assert.Equal(t, []string{"Initial", "Doing", "Finished"}, names(s.Lists()))
	assert.Equal(t, "Doing", backend.doc("u1", active.ID).Name)

	err := s.RenameList(ctx, active.ID, "x")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Doing", listByName(t, s, "Doing").Name)

	err = s.RenameList(ctx, "missing", "Later")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteListScenario(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()
	active := listByName(t, s, "Active")
	project, err := s.CreateProject(ctx, "Ship it", "before friday", active.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteList(ctx, active.ID))
	assert.Equal(t, []string{"Initial", "Finished"}, names(s.Lists()))
	for _, l := range s.Lists() {
		assert.Equal(t, -1, l.IndexOf(project.ID))
	}
	assert.Equal(t, storage.DeletedSentinel, backend.doc("u1", active.ID).Name)

	lists, err := New(backend, session.Fixed("u1")).LoadBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Initial", "Finished"}, names(lists))
}

func TestDeleteLastListRejected(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.DeleteList(ctx, listByName(t, s, "Active").ID))
	require.NoError(t, s.DeleteList(ctx, listByName(t, s, "Finished").ID))
	last := listByName(t, s, "Initial")
	before := backend.writes()

	err := s.DeleteList(ctx, last.ID)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.Equal(t, []string{"Initial"}, names(s.Lists()))
	assert.Equal(t, before, backend.writes())
	assert.Equal(t, 409, StatusCode(err))
}

func TestCreateProjectValidation(t *testing.T) {
	s, backend := newTestStore(t)
	list := listByName(t, s, "Initial")
	before := backend.writes()

	_, err := s.CreateProject(context.Background(), "hi", "a valid description", list.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
	assert.Equal(t, "The TITLE value must be at least 5 characters long.", verr.Message)

	_, err = s.CreateProject(context.Background(), "Valid title", "", list.ID)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "description", verr.Field)

	assert.Empty(t, listByName(t, s, "Initial").Projects)
	assert.Equal(t, before, backend.writes())
}

func TestCreateProjectUnknownList(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.CreateProject(context.Background(), "Valid title", "valid text", "nope")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "list", nf.Kind)
}

func TestUpdateProject(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()
	list := listByName(t, s, "Initial")
	p, err := s.CreateProject(ctx, "First title", "first text", list.ID)
	require.NoError(t, err)

	title := "Second title"
	require.NoError(t, s.UpdateProject(ctx, list.ID, p.ID, ProjectUpdate{Title: &title}))
	got := listByName(t, s, "Initial").Projects[0]
	assert.Equal(t, "Second title", got.Title)
	assert.Equal(t, "first text", got.Description)
	assert.Equal(t, "Second title", backend.doc("u1", list.ID).Projects[0].Title)

	bad := "no"
	err = s.UpdateProject(ctx, list.ID, p.ID, ProjectUpdate{Description: &bad})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "first text", listByName(t, s, "Initial").Projects[0].Description)

	err = s.UpdateProject(ctx, list.ID, "missing", ProjectUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)

	before := backend.writes()
	require.NoError(t, s.UpdateProject(ctx, list.ID, p.ID, ProjectUpdate{}))
	assert.Equal(t, before, backend.writes())
}

func TestDeleteProjectIdempotent(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()
	list := listByName(t, s, "Initial")
	p, err := s.CreateProject(ctx, "Disposable", "soon gone", list.ID)
	require.NoError(t, err)

	var notified int
	s.Subscribe(func([]models.List) { notified++ })

	require.NoError(t, s.DeleteProject(ctx, list.ID, p.ID))
	assert.Empty(t, listByName(t, s, "Initial").Projects)
	assert.Equal(t, 1, notified)

	before := backend.writes()
	require.NoError(t, s.DeleteProject(ctx, list.ID, p.ID))
	assert.Equal(t, before, backend.writes())
	assert.Equal(t, 1, notified)

	assert.ErrorIs(t, s.DeleteProject(ctx, "missing", p.ID), ErrNotFound)
}

func TestMoveProjectScenario(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()
	a := listByName(t, s, "Initial")
	b := listByName(t, s, "Active")
	_, err := s.CreateProject(ctx, "Already here", "first in B", b.ID)
	require.NoError(t, err)
	p, err := s.CreateProject(ctx, "Moving card", "goes to B", a.ID)
	require.NoError(t, err)

	require.NoError(t, s.MoveProject(ctx, p.ID, a.ID, b.ID))
	a = listByName(t, s, "Initial")
	b = listByName(t, s, "Active")
	assert.Equal(t, -1, a.IndexOf(p.ID))
	require.Len(t, b.Projects, 2)
	assert.Equal(t, p.ID, b.Projects[1].ID)
	assert.Equal(t, b.ID, b.Projects[1].ListID)
	assert.Equal(t, b.ID, backend.doc("u1", b.ID).Projects[1].ListID)

	before := s.Lists()
	err = s.MoveProject(ctx, p.ID, a.ID, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before, s.Lists())
}

func TestMoveProjectToDeletedList(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()
	a := listByName(t, s, "Initial")
	b := listByName(t, s, "Active")
	p, err := s.CreateProject(ctx, "Moving card", "goes to B", a.ID)
	require.NoError(t, err)
	require.NoError(t, s.DeleteList(ctx, b.ID))

	before := s.Lists()
	writes := backend.writes()
	err = s.MoveProject(ctx, p.ID, a.ID, b.ID)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "list", nf.Kind)
	assert.Equal(t, before, s.Lists())
	assert.Equal(t, writes, backend.writes())
	assert.Len(t, backend.doc("u1", a.ID).Projects, 1)
}

func TestMoveProjectSameListIsNoop(t *testing.T) {
	s, backend := newTestStore(t)
	a := listByName(t, s, "Initial")
	before := backend.writes()
	require.NoError(t, s.MoveProject(context.Background(), "anything", a.ID, a.ID))
	assert.Equal(t, before, backend.writes())
}

func TestMoveProjectWritesDestinationFirst(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()
	a := listByName(t, s, "Initial")
	b := listByName(t, s, "Active")
	p, err := s.CreateProject(ctx, "Moving card", "goes to B", a.ID)
	require.NoError(t, err)

	backend.calls = nil
	require.NoError(t, s.MoveProject(ctx, p.ID, a.ID, b.ID))
	assert.Equal(t, []string{"patch:" + b.ID, "patch:" + a.ID}, backend.calls)
}

func TestMoveProjectRollsBackDestination(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()
	a := listByName(t, s, "Initial")
	b := listByName(t, s, "Active")
	p, err := s.CreateProject(ctx, "Moving card", "goes to B", a.ID)
	require.NoError(t, err)
	before := s.Lists()

	backend.fail = func(op, listID string) error {
		if op == "patch" && listID == a.ID {
			return storage.ErrUnavailable
		}
		return nil
	}
	err = s.MoveProject(ctx, p.ID, a.ID, b.ID)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, 503, StatusCode(err))
	assert.Equal(t, before, s.Lists())

	// Persisted state matches memory: the project exists once, in A.
	assert.Len(t, backend.doc("u1", a.ID).Projects, 1)
	assert.Empty(t, backend.doc("u1", b.ID).Projects)
}

func TestLoadDropsDuplicateProjects(t *testing.T) {
	backend := newMemBackend()
	ctx := context.Background()
	dup := models.ProjectDocument{ID: "p1", Title: "Half moved", Description: "in both"}
	require.NoError(t, backend.Put(ctx, models.ListDocument{ID: "a", Name: "First", UserID: "u1", CreatedAt: 1,
		Projects: []models.ProjectDocument{dup}}))
	require.NoError(t, backend.Put(ctx, models.ListDocument{ID: "b", Name: "Second", UserID: "u1", CreatedAt: 2,
		Projects: []models.ProjectDocument{dup}}))

	lists, err := New(backend, session.Fixed("u1")).LoadBoard(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Len(t, lists[0].Projects, 1)
	assert.Empty(t, lists[1].Projects)
}

func TestBackendFailureLeavesMemoryUntouched(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()
	list := listByName(t, s, "Initial")
	before := s.Lists()

	var notified int
	s.Subscribe(func([]models.List) { notified++ })
	backend.fail = func(op, _ string) error {
		if op == "getall" {
			return nil
		}
		return fmt.Errorf("dial tcp: %w", storage.ErrUnavailable)
	}

	_, err := s.CreateList(ctx, "Backlog")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, s.RenameList(ctx, list.ID, "Renamed"), ErrBackendUnavailable)
	_, err = s.CreateProject(ctx, "Valid title", "valid text", list.ID)
	assert.ErrorIs(t, err, ErrBackendUnavailable)

	assert.Equal(t, before, s.Lists())
	assert.Zero(t, notified)
}

func TestUnclassifiedBackendErrorIsUnavailable(t *testing.T) {
	s, backend := newTestStore(t)
	backend.fail = func(string, string) error { return errors.New("boom") }

	_, err := s.CreateList(context.Background(), "Backlog")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "boom")
}

func TestRenameNotifiesLatestName(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	list := listByName(t, s, "Active")

	var seen []string
	s.Subscribe(func(lists []models.List) {
		for _, l := range lists {
			if l.ID == list.ID {
				seen = append(seen, l.Name)
			}
		}
	})

	require.NoError(t, s.RenameList(ctx, list.ID, "Doing"))
	require.NoError(t, s.RenameList(ctx, list.ID, "In review"))
	assert.Equal(t, []string{"Doing", "In review"}, seen)
}

func TestSubscribeOrderAndIsolation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var order []string
	s.Subscribe(func(lists []models.List) {
		order = append(order, "first")
		lists[0].Name = "mutated"
		lists[0].Projects = append(lists[0].Projects, models.Project{ID: "rogue"})
	})
	var second []models.List
	unsubscribe := s.Subscribe(func(lists []models.List) {
		order = append(order, "second")
		second = lists
	})

	_, err := s.CreateList(ctx, "Backlog")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, "Initial", second[0].Name)
	assert.Equal(t, "Initial", s.Lists()[0].Name)
	assert.Empty(t, s.Lists()[0].Projects)

	unsubscribe()
	unsubscribe()
	order = nil
	require.NoError(t, s.RenameList(ctx, second[3].ID, "Later"))
	assert.Equal(t, []string{"first"}, order)
}

func TestListsReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t)
	lists := s.Lists()
	lists[0].Name = "changed"
	assert.Equal(t, "Initial", s.Lists()[0].Name)
}

func TestRejectConcurrentMutation(t *testing.T) {
	backend := newMemBackend()
	entered := make(chan struct{})
	unblock := make(chan struct{})
	s := New(backend, session.Fixed("u1"), WithRejectConcurrent(), WithIDGenerator(sequentialIDs()))
	_, err := s.LoadBoard(context.Background())
	require.NoError(t, err)

	var once sync.Once
	backend.fail = func(op, _ string) error {
		if op == "put" {
			once.Do(func() {
				close(entered)
				<-unblock
			})
		}
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.CreateList(context.Background(), "Backlog")
		done <- err
	}()
	<-entered

	_, err = s.CreateList(context.Background(), "Other")
	assert.ErrorIs(t, err, ErrConflict)
	close(unblock)
	require.NoError(t, <-done)
	assert.Len(t, s.Lists(), 4)
}

func TestCreatedAtStrictlyIncreases(t *testing.T) {
	fixed := time.Unix(1700000000, 0)
	s, backend := newTestStore(t, WithClock(func() time.Time { return fixed }))
	var last int64
	for _, l := range s.Lists() {
		created := backend.doc("u1", l.ID).CreatedAt
		assert.Greater(t, created, last)
		last = created
	}
}

func TestNotifierReceivesOutcome(t *testing.T) {
	var kinds []notify.Kind
	var messages []string
	n := notify.Func(func(msg string, opts notify.Options) {
		kinds = append(kinds, opts.Kind)
		messages = append(messages, msg)
	})
	s, _ := newTestStore(t, WithNotifier(n))

	_, err := s.CreateList(context.Background(), "Backlog")
	require.NoError(t, err)
	_, err = s.CreateList(context.Background(), "x")
	require.Error(t, err)

	assert.Equal(t, []notify.Kind{notify.Success, notify.Error}, kinds)
	assert.Equal(t, "List created.", messages[0])
	assert.Equal(t, "The NAME value must be at least 3 characters long.", messages[1])
}

func TestWatchFollowsSession(t *testing.T) {
	backend := newMemBackend()
	sess := session.New()
	s := New(backend, sess)

	var snapshots [][]models.List
	s.Subscribe(func(lists []models.List) { snapshots = append(snapshots, lists) })
	stop := Watch(context.Background(), s, sess)
	defer stop()

	sess.SignIn("u1")
	assert.Equal(t, "u1", s.UserID())
	assert.Len(t, s.Lists(), 3)

	sess.SignOut()
	assert.Empty(t, s.Lists())
	assert.Equal(t, "", s.UserID())
	require.NotEmpty(t, snapshots)
	assert.Empty(t, snapshots[len(snapshots)-1])
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 200, StatusCode(nil))
	assert.Equal(t, 400, StatusCode(fieldError("name", "bad")))
	assert.Equal(t, 404, StatusCode(fmt.Errorf("wrap: %w", listNotFound("x"))))
	assert.Equal(t, 401, StatusCode(ErrUnauthenticated))
	assert.Equal(t, 409, StatusCode(ErrConflict))
	assert.Equal(t, 503, StatusCode(backendError("op", "x", errors.New("io"))))
	assert.Equal(t, 500, StatusCode(errors.New("other")))
}
