// Package telemetry exposes content lifecycle and metrics activity as
// Prometheus metrics. Sink plugs into the service as an EventSink.
package telemetry

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/content-flow/pkg/contentflow"
)

const namespace = "content_flow"

var (
	ContentCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "created_total",
			Help:      "Total number of content items created, by origin (direct or draft)",
		},
		[]string{"origin"},
	)

	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "status_transitions_total",
			Help:      "Total number of content status changes by source and target status",
		},
		[]string{"from", "to"},
	)

	ContentDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "deleted_total",
			Help:      "Total number of content items deleted",
		},
	)

	DraftsPromotedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "drafts",
			Name:      "promoted_total",
			Help:      "Total number of drafts promoted to content",
		},
	)

	MetricsWritesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metrics",
			Name:      "writes_total",
			Help:      "Total number of content metrics aggregate writes",
		},
	)

	ChannelsPerAggregate = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "metrics",
			Name:      "channels_per_aggregate",
			Help:      "Number of channel children held by an aggregate after a write",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)
)

// Sink records service events into the package collectors.
type Sink struct{}

// NewSink returns an EventSink backed by Prometheus collectors.
func NewSink() contentflow.EventSink {
	return Sink{}
}

func (Sink) ContentCreated(ctx context.Context, content *contentflow.Content) error {
	origin := "direct"
	if content.SourceDraftID != nil {
		origin = "draft"
	}
	ContentCreatedTotal.WithLabelValues(origin).Inc()
	return nil
}

func (Sink) ContentStatusChanged(ctx context.Context, content *contentflow.Content, from contentflow.ContentStatus) error {
	StatusTransitionsTotal.WithLabelValues(string(from), content.Status).Inc()
	return nil
}

func (Sink) ContentDeleted(ctx context.Context, contentID uuid.UUID) error {
	ContentDeletedTotal.Inc()
	return nil
}

func (Sink) DraftPromoted(ctx context.Context, draftID uuid.UUID, content *contentflow.Content) error {
	DraftsPromotedTotal.Inc()
	return nil
}

func (Sink) MetricsRecorded(ctx context.Context, metrics *contentflow.ContentMetrics) error {
	MetricsWritesTotal.Inc()
	ChannelsPerAggregate.Observe(float64(len(metrics.Channels)))
	return nil
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
