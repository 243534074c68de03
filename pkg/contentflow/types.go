package contentflow

import (
	"time"

	"github.com/google/uuid"
)

// ContentStatus is the domain type for content lifecycle states.
type ContentStatus string

// Content status constants (typed).
const (
	ContentStatusPending      ContentStatus = "pending"
	ContentStatusInProduction ContentStatus = "in_production"
	ContentStatusPosted       ContentStatus = "posted"
	ContentStatusFinished     ContentStatus = "finished"
	ContentStatusCanceled     ContentStatus = "canceled"
)

// IsValid reports whether s is a known content status.
func (s ContentStatus) IsValid() bool {
	switch s {
	case ContentStatusPending, ContentStatusInProduction, ContentStatusPosted,
		ContentStatusFinished, ContentStatusCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s ContentStatus) IsTerminal() bool {
	return s == ContentStatusFinished || s == ContentStatusCanceled
}

// ApprovalStatus is the review state of a draft.
type ApprovalStatus string

// Draft approval status constants (typed).
const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Role is the authority level of a principal.
type Role string

// Role constants.
const (
	RolePrivileged Role = "privileged"
	RoleStandard   Role = "standard"
)

// Principal is the acting caller of an operation.
type Principal struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Role     Role      `json:"role"`
}

// IsPrivileged reports whether the principal holds the privileged role.
func (p Principal) IsPrivileged() bool {
	return p.Role == RolePrivileged
}

// Content represents one piece of publishable material.
//
// TenantID never changes after creation. PostedAt is stamped the first time
// the content reaches ContentStatusPosted and is not touched afterwards.
type Content struct {
	ID                  uuid.UUID   `json:"id"`
	TenantID            uuid.UUID   `json:"tenant_id"`
	CreatorID           uuid.UUID   `json:"creator_id"`
	ProducerID          *uuid.UUID  `json:"producer_id,omitempty"`
	ProductID           *uuid.UUID  `json:"product_id,omitempty"`
	SourceDraftID       *uuid.UUID  `json:"source_draft_id,omitempty"`
	Name                string      `json:"name"`
	Type                string      `json:"type,omitempty"`
	Body                string      `json:"body,omitempty"`
	Status              string      `json:"status"`
	ChannelIDs          []uuid.UUID `json:"channel_ids,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
	ProductionStartedAt *time.Time  `json:"production_started_at,omitempty"`
	ProductionEndedAt   *time.Time  `json:"production_ended_at,omitempty"`
	PostedAt            *time.Time  `json:"posted_at,omitempty"`
}

// Draft is a pre-content proposal awaiting approval.
type Draft struct {
	ID             uuid.UUID  `json:"id"`
	TenantID       uuid.UUID  `json:"tenant_id"`
	CreatorID      uuid.UUID  `json:"creator_id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	Title          string     `json:"title"`
	Type           string     `json:"type,omitempty"`
	Body           string     `json:"body,omitempty"`
	ApprovalStatus string     `json:"approval_status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Channel is a publication channel (a social account, a newsletter, ...).
type Channel struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Name     string    `json:"name"`
}

// User is a member of a tenant. Only used to validate producer references.
type User struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
}

// Product is a tenant product that content can be attached to.
type Product struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Name     string    `json:"name"`
}

// ContentCounters are the content-level engagement counters. They are
// written as a whole; there is no partial update.
type ContentCounters struct {
	Views            int64   `json:"views"`
	Likes            int64   `json:"likes"`
	Comments         int64   `json:"comments"`
	Shares           int64   `json:"shares"`
	Reach            int64   `json:"reach"`
	Impressions      int64   `json:"impressions"`
	EngagementRate   float64 `json:"engagement_rate"`
	ClickThroughRate float64 `json:"click_through_rate"`
	ConversionRate   float64 `json:"conversion_rate"`
}

// ChannelCounters are the per-channel engagement counters.
type ChannelCounters struct {
	Likes       int64 `json:"likes"`
	Comments    int64 `json:"comments"`
	Shares      int64 `json:"shares"`
	SiteVisits  int64 `json:"site_visits"`
	NewAccounts int64 `json:"new_accounts"`
	PostClicks  int64 `json:"post_clicks"`
}

// ChannelMetric is a per-channel engagement snapshot owned by a ContentMetrics.
type ChannelMetric struct {
	ID          uuid.UUID `json:"id"`
	ChannelID   uuid.UUID `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	ChannelCounters
	UpdatedAt time.Time `json:"updated_at"`
}
