package contentflow

import (
	"time"

	"github.com/google/uuid"
)

// CreateContentRequest contains parameters for creating content directly
type CreateContentRequest struct {
	Name       string
	Type       string
	Body       string
	ProductID  *uuid.UUID
	ProducerID *uuid.UUID
	Status     ContentStatus // optional, defaults to pending
	ChannelIDs []uuid.UUID
	PostedAt   *time.Time
}

// ChangeStatusRequest contains parameters for a status transition
type ChangeStatusRequest struct {
	ContentID uuid.UUID
	Status    ContentStatus
}

// AssignProducerRequest contains parameters for (re)assigning a producer
type AssignProducerRequest struct {
	ContentID  uuid.UUID
	ProducerID uuid.UUID
}

// PromoteDraftRequest contains parameters for turning an approved draft into content
type PromoteDraftRequest struct {
	DraftID    uuid.UUID
	ProductID  *uuid.UUID // overrides the draft's product when set
	ProducerID *uuid.UUID
	Status     ContentStatus // optional, defaults to pending
	ChannelIDs []uuid.UUID
	PostedAt   *time.Time
}

// RecordContentMetricsRequest replaces the content-level counters
type RecordContentMetricsRequest struct {
	ContentID uuid.UUID
	Counters  ContentCounters
}

// RecordChannelMetricRequest replaces the counters of one channel
type RecordChannelMetricRequest struct {
	ContentID uuid.UUID
	ChannelID uuid.UUID
	Counters  ChannelCounters
}

// ChannelMetricEntry is one element of a bulk channel write
type ChannelMetricEntry struct {
	ChannelID uuid.UUID
	Counters  ChannelCounters
}

// RecordAllChannelMetricsRequest replaces the counters of several channels at once
type RecordAllChannelMetricsRequest struct {
	ContentID uuid.UUID
	Entries   []ChannelMetricEntry
}
