package contentflow

import (
	"context"

	"github.com/google/uuid"
)

// ContentStore persists content records, scoped by tenant.
type ContentStore interface {
	// GetContent returns ErrContentNotFound when the content is absent or
	// belongs to another tenant.
	GetContent(ctx context.Context, id, tenantID uuid.UUID) (*Content, error)
	// SaveContent inserts or updates the content and its channel set.
	SaveContent(ctx context.Context, content *Content) error
	// DeleteContent removes the content together with its metrics.
	DeleteContent(ctx context.Context, id uuid.UUID) error
	ListContent(ctx context.Context, tenantID uuid.UUID) ([]*Content, error)
}

// DraftStore persists drafts, scoped by tenant.
type DraftStore interface {
	GetDraft(ctx context.Context, id, tenantID uuid.UUID) (*Draft, error)
	SaveDraft(ctx context.Context, draft *Draft) error
	DeleteDraft(ctx context.Context, id uuid.UUID) error
}

// ChannelStore resolves channels.
type ChannelStore interface {
	GetChannel(ctx context.Context, id uuid.UUID) (*Channel, error)
	// FindChannelsByIDs returns the channels that exist; missing ids are
	// silently skipped.
	FindChannelsByIDs(ctx context.Context, ids []uuid.UUID) ([]*Channel, error)
	SaveChannel(ctx context.Context, channel *Channel) error
}

// UserStore resolves users within a tenant.
type UserStore interface {
	GetUser(ctx context.Context, id, tenantID uuid.UUID) (*User, error)
	SaveUser(ctx context.Context, user *User) error
}

// ProductStore resolves products within a tenant.
type ProductStore interface {
	GetProduct(ctx context.Context, id, tenantID uuid.UUID) (*Product, error)
	SaveProduct(ctx context.Context, product *Product) error
}

// ContentMetricsStore persists metrics aggregates. SaveContentMetrics writes
// the parent and all of its channel children as one unit.
type ContentMetricsStore interface {
	GetContentMetrics(ctx context.Context, contentID uuid.UUID) (*ContentMetrics, error)
	SaveContentMetrics(ctx context.Context, metrics *ContentMetrics) error
	ListContentMetrics(ctx context.Context, tenantID uuid.UUID) ([]*ContentMetrics, error)
}

// Repository defines the interface for all persistence the engine needs.
type Repository interface {
	ContentStore
	DraftStore
	ChannelStore
	UserStore
	ProductStore
	ContentMetricsStore

	// WithTx runs fn inside one transaction. The Repository handed to fn
	// sees the transaction's writes; they become visible to others only if
	// fn returns nil.
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}

// PrincipalProvider resolves the acting caller.
type PrincipalProvider interface {
	CurrentPrincipal(ctx context.Context) (Principal, error)
}

// EventSink defines the interface for event handling. Events are delivered
// after the transaction commits; errors are logged and never fail the
// operation.
type EventSink interface {
	// ContentCreated is fired when content is created directly or by promotion
	ContentCreated(ctx context.Context, content *Content) error

	// ContentStatusChanged is fired after a successful status change
	ContentStatusChanged(ctx context.Context, content *Content, from ContentStatus) error

	// ContentDeleted is fired when content is deleted
	ContentDeleted(ctx context.Context, contentID uuid.UUID) error

	// DraftPromoted is fired when a draft became content
	DraftPromoted(ctx context.Context, draftID uuid.UUID, content *Content) error

	// MetricsRecorded is fired after any metrics write
	MetricsRecorded(ctx context.Context, metrics *ContentMetrics) error
}
