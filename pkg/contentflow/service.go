package contentflow

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface of the content-flow engine. The acting
// principal is resolved from ctx through the configured PrincipalProvider.
type Service interface {
	// Content lifecycle
	CreateContent(ctx context.Context, req CreateContentRequest) (*Content, error)
	GetContent(ctx context.Context, id uuid.UUID) (*Content, error)
	ChangeStatus(ctx context.Context, req ChangeStatusRequest) (*Content, error)
	AssignProducer(ctx context.Context, req AssignProducerRequest) (*Content, error)
	PromoteDraftToContent(ctx context.Context, req PromoteDraftRequest) (*Content, error)
	DeleteContent(ctx context.Context, id uuid.UUID) error

	// Metrics aggregation
	RecordContentMetrics(ctx context.Context, req RecordContentMetricsRequest) (*ContentMetrics, error)
	RecordChannelMetric(ctx context.Context, req RecordChannelMetricRequest) (*ContentMetrics, error)
	RecordAllChannelMetrics(ctx context.Context, req RecordAllChannelMetricsRequest) (*ContentMetrics, error)
	GetContentMetrics(ctx context.Context, contentID uuid.UUID) (*ContentMetrics, error)
}
