package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/content-flow/pkg/contentflow"
)

type state struct {
	contents map[uuid.UUID]*contentflow.Content
	drafts   map[uuid.UUID]*contentflow.Draft
	channels map[uuid.UUID]*contentflow.Channel
	users    map[uuid.UUID]*contentflow.User
	products map[uuid.UUID]*contentflow.Product
	metrics  map[uuid.UUID]*contentflow.ContentMetrics // content_id -> aggregate
}

func newState() *state {
	return &state{
		contents: make(map[uuid.UUID]*contentflow.Content),
		drafts:   make(map[uuid.UUID]*contentflow.Draft),
		channels: make(map[uuid.UUID]*contentflow.Channel),
		users:    make(map[uuid.UUID]*contentflow.User),
		products: make(map[uuid.UUID]*contentflow.Product),
		metrics:  make(map[uuid.UUID]*contentflow.ContentMetrics),
	}
}

func (s *state) clone() *state {
	out := newState()
	for id, c := range s.contents {
		out.contents[id] = copyContent(c)
	}
	for id, d := range s.drafts {
		dc := *d
		out.drafts[id] = &dc
	}
	for id, c := range s.channels {
		cc := *c
		out.channels[id] = &cc
	}
	for id, u := range s.users {
		uc := *u
		out.users[id] = &uc
	}
	for id, p := range s.products {
		pc := *p
		out.products[id] = &pc
	}
	for id, m := range s.metrics {
		out.metrics[id] = m.Clone()
	}
	return out
}

// Repository implements contentflow.Repository using in-memory storage.
//
// A transaction works on a private copy of the state that replaces the shared
// state on commit. Transactions and writes outside a transaction are
// serialized by txMu, so a commit never overwrites a concurrent write.
type Repository struct {
	mu   *sync.RWMutex
	txMu *sync.Mutex // nil inside a transaction
	st   *state
}

// New creates a new in-memory repository
func New() contentflow.Repository {
	return &Repository{
		mu:   &sync.RWMutex{},
		txMu: &sync.Mutex{},
		st:   newState(),
	}
}

// WithTx runs fn against a snapshot and publishes it if fn succeeds.
func (r *Repository) WithTx(ctx context.Context, fn func(tx contentflow.Repository) error) error {
	if r.txMu == nil {
		// already inside a transaction
		return fn(r)
	}
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	snapshot := r.st.clone()
	r.mu.RUnlock()

	tx := &Repository{mu: &sync.RWMutex{}, st: snapshot}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.st = tx.st
	r.mu.Unlock()
	return nil
}

// write serializes a single mutation with running transactions.
func (r *Repository) write(fn func(st *state) error) error {
	if r.txMu != nil {
		r.txMu.Lock()
		defer r.txMu.Unlock()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.st)
}

func (r *Repository) read(fn func(st *state) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(r.st)
}

// Content operations

func (r *Repository) GetContent(ctx context.Context, id, tenantID uuid.UUID) (*contentflow.Content, error) {
	var out *contentflow.Content
	err := r.read(func(st *state) error {
		c, ok := st.contents[id]
		if !ok || c.TenantID != tenantID {
			return contentflow.ErrContentNotFound
		}
		out = copyContent(c)
		return nil
	})
	return out, err
}

func (r *Repository) SaveContent(ctx context.Context, content *contentflow.Content) error {
	return r.write(func(st *state) error {
		if existing, ok := st.contents[content.ID]; ok && existing.TenantID != content.TenantID {
			return contentflow.ErrContentNotFound
		}
		st.contents[content.ID] = copyContent(content)
		return nil
	})
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	return r.write(func(st *state) error {
		if _, ok := st.contents[id]; !ok {
			return contentflow.ErrContentNotFound
		}
		delete(st.contents, id)
		delete(st.metrics, id)
		return nil
	})
}

func (r *Repository) ListContent(ctx context.Context, tenantID uuid.UUID) ([]*contentflow.Content, error) {
	var result []*contentflow.Content
	err := r.read(func(st *state) error {
		for _, c := range st.contents {
			if c.TenantID == tenantID {
				result = append(result, copyContent(c))
			}
		}
		return nil
	})

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, err
}

// Draft operations

func (r *Repository) GetDraft(ctx context.Context, id, tenantID uuid.UUID) (*contentflow.Draft, error) {
	var out *contentflow.Draft
	err := r.read(func(st *state) error {
		d, ok := st.drafts[id]
		if !ok || d.TenantID != tenantID {
			return contentflow.ErrDraftNotFound
		}
		dc := *d
		out = &dc
		return nil
	})
	return out, err
}

func (r *Repository) SaveDraft(ctx context.Context, draft *contentflow.Draft) error {
	return r.write(func(st *state) error {
		dc := *draft
		st.drafts[draft.ID] = &dc
		return nil
	})
}

func (r *Repository) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	return r.write(func(st *state) error {
		if _, ok := st.drafts[id]; !ok {
			return contentflow.ErrDraftNotFound
		}
		delete(st.drafts, id)
		return nil
	})
}

// Channel operations

func (r *Repository) GetChannel(ctx context.Context, id uuid.UUID) (*contentflow.Channel, error) {
	var out *contentflow.Channel
	err := r.read(func(st *state) error {
		c, ok := st.channels[id]
		if !ok {
			return contentflow.ErrChannelNotFound
		}
		cc := *c
		out = &cc
		return nil
	})
	return out, err
}

func (r *Repository) FindChannelsByIDs(ctx context.Context, ids []uuid.UUID) ([]*contentflow.Channel, error) {
	result := []*contentflow.Channel{}
	err := r.read(func(st *state) error {
		for _, id := range ids {
			if c, ok := st.channels[id]; ok {
				cc := *c
				result = append(result, &cc)
			}
		}
		return nil
	})
	return result, err
}

func (r *Repository) SaveChannel(ctx context.Context, channel *contentflow.Channel) error {
	return r.write(func(st *state) error {
		cc := *channel
		st.channels[channel.ID] = &cc
		return nil
	})
}

// User and product operations

func (r *Repository) GetUser(ctx context.Context, id, tenantID uuid.UUID) (*contentflow.User, error) {
	var out *contentflow.User
	err := r.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok || u.TenantID != tenantID {
			return contentflow.ErrUserNotFound
		}
		uc := *u
		out = &uc
		return nil
	})
	return out, err
}

func (r *Repository) SaveUser(ctx context.Context, user *contentflow.User) error {
	return r.write(func(st *state) error {
		uc := *user
		st.users[user.ID] = &uc
		return nil
	})
}

func (r *Repository) GetProduct(ctx context.Context, id, tenantID uuid.UUID) (*contentflow.Product, error) {
	var out *contentflow.Product
	err := r.read(func(st *state) error {
		p, ok := st.products[id]
		if !ok || p.TenantID != tenantID {
			return contentflow.ErrProductNotFound
		}
		pc := *p
		out = &pc
		return nil
	})
	return out, err
}

func (r *Repository) SaveProduct(ctx context.Context, product *contentflow.Product) error {
	return r.write(func(st *state) error {
		pc := *product
		st.products[product.ID] = &pc
		return nil
	})
}

// Metrics operations

func (r *Repository) GetContentMetrics(ctx context.Context, contentID uuid.UUID) (*contentflow.ContentMetrics, error) {
	var out *contentflow.ContentMetrics
	err := r.read(func(st *state) error {
		m, ok := st.metrics[contentID]
		if !ok {
			return contentflow.ErrMetricsNotFound
		}
		out = m.Clone()
		return nil
	})
	return out, err
}

func (r *Repository) SaveContentMetrics(ctx context.Context, metrics *contentflow.ContentMetrics) error {
	return r.write(func(st *state) error {
		if _, ok := st.contents[metrics.ContentID]; !ok {
			return contentflow.ErrContentNotFound
		}
		st.metrics[metrics.ContentID] = metrics.Clone()
		return nil
	})
}

func (r *Repository) ListContentMetrics(ctx context.Context, tenantID uuid.UUID) ([]*contentflow.ContentMetrics, error) {
	var result []*contentflow.ContentMetrics
	err := r.read(func(st *state) error {
		for _, m := range st.metrics {
			if m.TenantID == tenantID {
				result = append(result, m.Clone())
			}
		}
		return nil
	})

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, err
}

func copyContent(c *contentflow.Content) *contentflow.Content {
	cc := *c
	if c.ChannelIDs != nil {
		cc.ChannelIDs = append([]uuid.UUID(nil), c.ChannelIDs...)
	}
	return &cc
}
