package contentflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-flow/pkg/contentflow"
	"github.com/tendant/content-flow/pkg/contentflow/repo/memory"
)

type fixture struct {
	svc     contentflow.Service
	repo    contentflow.Repository
	writes  *writeCounter
	clock   *stepClock
	tenant  uuid.UUID
	admin   contentflow.Principal
	creator contentflow.Principal
	worker  contentflow.Principal // assigned producer
	other   contentflow.Principal
	chA     *contentflow.Channel
	chB     *contentflow.Channel
	product *contentflow.Product
}

// stepClock advances one second per reading.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newFixture(t *testing.T, opts ...contentflow.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	tenant := uuid.New()

	f := &fixture{
		writes:  &writeCounter{},
		clock:   &stepClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)},
		tenant:  tenant,
		admin:   contentflow.Principal{ID: uuid.New(), TenantID: tenant, Role: contentflow.RolePrivileged},
		creator: contentflow.Principal{ID: uuid.New(), TenantID: tenant, Role: contentflow.RoleStandard},
		worker:  contentflow.Principal{ID: uuid.New(), TenantID: tenant, Role: contentflow.RoleStandard},
		other:   contentflow.Principal{ID: uuid.New(), TenantID: tenant, Role: contentflow.RoleStandard},
		chA:     &contentflow.Channel{ID: uuid.New(), TenantID: tenant, Name: "Instagram"},
		chB:     &contentflow.Channel{ID: uuid.New(), TenantID: tenant, Name: "Newsletter"},
		product: &contentflow.Product{ID: uuid.New(), TenantID: tenant, Name: "Widget"},
	}
	f.repo = memory.New()

	for _, p := range []contentflow.Principal{f.admin, f.creator, f.worker, f.other} {
		require.NoError(t, f.repo.SaveUser(ctx, &contentflow.User{ID: p.ID, TenantID: tenant, Role: p.Role}))
	}
	require.NoError(t, f.repo.SaveChannel(ctx, f.chA))
	require.NoError(t, f.repo.SaveChannel(ctx, f.chB))
	require.NoError(t, f.repo.SaveProduct(ctx, f.product))

	options := append([]contentflow.Option{
		contentflow.WithRepository(&countingRepository{Repository: f.repo, counter: f.writes}),
		contentflow.WithClock(f.clock.Now),
	}, opts...)
	svc, err := contentflow.New(options...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func as(p contentflow.Principal) context.Context {
	return contentflow.WithPrincipal(context.Background(), p)
}

// newContent creates content owned by f.creator with f.worker as producer.
func (f *fixture) newContent(t *testing.T) *contentflow.Content {
	t.Helper()
	now := f.clock.Now()
	c := &contentflow.Content{
		ID:         uuid.New(),
		TenantID:   f.tenant,
		CreatorID:  f.creator.ID,
		ProducerID: &f.worker.ID,
		Name:       "Spring launch",
		Status:     string(contentflow.ContentStatusPending),
		ChannelIDs: []uuid.UUID{f.chA.ID, f.chB.ID},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.repo.SaveContent(context.Background(), c))
	return c
}

func (f *fixture) newDraft(t *testing.T, approval contentflow.ApprovalStatus) *contentflow.Draft {
	t.Helper()
	now := f.clock.Now()
	d := &contentflow.Draft{
		ID:             uuid.New(),
		TenantID:       f.tenant,
		CreatorID:      f.creator.ID,
		ProductID:      &f.product.ID,
		Title:          "Behind the scenes",
		Type:           "reel",
		Body:           "Script v3\n\nwith a second paragraph",
		ApprovalStatus: string(approval),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, f.repo.SaveDraft(context.Background(), d))
	return d
}

// writeCounter counts store mutations made through the service.
type writeCounter struct {
	mu sync.Mutex
	n  int
}

func (w *writeCounter) inc() {
	w.mu.Lock()
	w.n++
	w.mu.Unlock()
}

func (w *writeCounter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

type countingRepository struct {
	contentflow.Repository
	counter *writeCounter
}

func (r *countingRepository) WithTx(ctx context.Context, fn func(tx contentflow.Repository) error) error {
	return r.Repository.WithTx(ctx, func(tx contentflow.Repository) error {
		return fn(&countingRepository{Repository: tx, counter: r.counter})
	})
}

func (r *countingRepository) SaveContent(ctx context.Context, c *contentflow.Content) error {
	r.counter.inc()
	return r.Repository.SaveContent(ctx, c)
}

func (r *countingRepository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	r.counter.inc()
	return r.Repository.DeleteContent(ctx, id)
}

func (r *countingRepository) SaveDraft(ctx context.Context, d *contentflow.Draft) error {
	r.counter.inc()
	return r.Repository.SaveDraft(ctx, d)
}

func (r *countingRepository) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	r.counter.inc()
	return r.Repository.DeleteDraft(ctx, id)
}

func (r *countingRepository) SaveContentMetrics(ctx context.Context, m *contentflow.ContentMetrics) error {
	r.counter.inc()
	return r.Repository.SaveContentMetrics(ctx, m)
}

// recordingSink remembers the events it receives.
type recordingSink struct {
	mu       sync.Mutex
	events   []string
	failWith error
}

func (s *recordingSink) record(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, name)
	return s.failWith
}

func (s *recordingSink) ContentCreated(ctx context.Context, c *contentflow.Content) error {
	return s.record("content_created")
}

func (s *recordingSink) ContentStatusChanged(ctx context.Context, c *contentflow.Content, from contentflow.ContentStatus) error {
	return s.record("status:" + string(from) + "->" + c.Status)
}

func (s *recordingSink) ContentDeleted(ctx context.Context, id uuid.UUID) error {
	return s.record("content_deleted")
}

func (s *recordingSink) DraftPromoted(ctx context.Context, draftID uuid.UUID, c *contentflow.Content) error {
	return s.record("draft_promoted")
}

func (s *recordingSink) MetricsRecorded(ctx context.Context, m *contentflow.ContentMetrics) error {
	return s.record("metrics_recorded")
}

func (s *recordingSink) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}
