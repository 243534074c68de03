package contentflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Metrics aggregation operations

func (s *service) RecordContentMetrics(ctx context.Context, req RecordContentMetricsRequest) (*ContentMetrics, error) {
	p, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}

	var metrics *ContentMetrics
	err = s.repository.WithTx(ctx, func(tx Repository) error {
		content, err := s.contentForMetricsWrite(ctx, tx, p, req.ContentID)
		if err != nil {
			return err
		}
		if err := validateContentCounters(req.Counters); err != nil {
			return err
		}

		now := s.clock()
		metrics, err = s.findOrCreateMetrics(ctx, tx, content, now)
		if err != nil {
			return err
		}
		metrics.SetTotals(req.Counters, now)
		return tx.SaveContentMetrics(ctx, metrics)
	})
	if err != nil {
		return nil, &ContentError{ContentID: req.ContentID, Op: "record_metrics", Err: err}
	}

	s.metricsRecorded(ctx, metrics)
	return metrics, nil
}

func (s *service) RecordChannelMetric(ctx context.Context, req RecordChannelMetricRequest) (*ContentMetrics, error) {
	p, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}

	var metrics *ContentMetrics
	err = s.repository.WithTx(ctx, func(tx Repository) error {
		content, err := s.contentForMetricsWrite(ctx, tx, p, req.ContentID)
		if err != nil {
			return err
		}
		if err := validateChannelCounters(req.ChannelID, req.Counters); err != nil {
			return err
		}
		channel, err := tx.GetChannel(ctx, req.ChannelID)
		if err != nil {
			return err
		}
		if channel.TenantID != content.TenantID {
			return ErrChannelNotFound
		}

		now := s.clock()
		metrics, err = s.findOrCreateMetrics(ctx, tx, content, now)
		if err != nil {
			return err
		}
		metrics.PutChannel(channel.ID, channel.Name, req.Counters, now)
		metrics.Resum()
		return tx.SaveContentMetrics(ctx, metrics)
	})
	if err != nil {
		return nil, &ContentError{ContentID: req.ContentID, Op: "record_channel_metric", Err: err}
	}

	s.metricsRecorded(ctx, metrics)
	return metrics, nil
}

// RecordAllChannelMetrics writes every entry in request order and re-sums the
// totals once at the end. A channel listed twice ends with its last entry.
func (s *service) RecordAllChannelMetrics(ctx context.Context, req RecordAllChannelMetricsRequest) (*ContentMetrics, error) {
	p, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}

	var metrics *ContentMetrics
	err = s.repository.WithTx(ctx, func(tx Repository) error {
		content, err := s.contentForMetricsWrite(ctx, tx, p, req.ContentID)
		if err != nil {
			return err
		}
		if len(req.Entries) == 0 {
			return ErrNoEntries
		}

		ids := make([]uuid.UUID, len(req.Entries))
		for i, e := range req.Entries {
			if err := validateChannelCounters(e.ChannelID, e.Counters); err != nil {
				return err
			}
			ids[i] = e.ChannelID
		}
		channels, missing, err := resolveChannels(ctx, tx, content.TenantID, ids)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return &ValidationError{Field: "channel_id", Reason: "contains unknown channels", IDs: missing}
		}

		now := s.clock()
		metrics, err = s.findOrCreateMetrics(ctx, tx, content, now)
		if err != nil {
			return err
		}
		for _, e := range req.Entries {
			metrics.PutChannel(e.ChannelID, channels[e.ChannelID].Name, e.Counters, now)
		}
		metrics.Resum()
		return tx.SaveContentMetrics(ctx, metrics)
	})
	if err != nil {
		return nil, &ContentError{ContentID: req.ContentID, Op: "record_all_channel_metrics", Err: err}
	}

	s.metricsRecorded(ctx, metrics)
	return metrics, nil
}

func (s *service) GetContentMetrics(ctx context.Context, contentID uuid.UUID) (*ContentMetrics, error) {
	p, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}
	content, err := s.repository.GetContent(ctx, contentID, p.TenantID)
	if err != nil {
		return nil, err
	}
	if !CanView(content, p) {
		return nil, ErrContentNotFound
	}
	return s.repository.GetContentMetrics(ctx, content.ID)
}

func (s *service) contentForMetricsWrite(ctx context.Context, tx Repository, p Principal, contentID uuid.UUID) (*Content, error) {
	content, err := tx.GetContent(ctx, contentID, p.TenantID)
	if err != nil {
		return nil, err
	}
	if !CanModify(content, p) {
		return nil, forbidden("only the creator, the assigned producer or a privileged user can record metrics")
	}
	return content, nil
}

// findOrCreateMetrics returns the stored aggregate, or a new unsaved one.
func (s *service) findOrCreateMetrics(ctx context.Context, tx Repository, content *Content, now time.Time) (*ContentMetrics, error) {
	metrics, err := tx.GetContentMetrics(ctx, content.ID)
	if errors.Is(err, ErrMetricsNotFound) {
		return NewContentMetrics(content, now), nil
	}
	if err != nil {
		return nil, err
	}
	return metrics, nil
}

// ensureMetrics persists an empty aggregate if the content has none yet.
func (s *service) ensureMetrics(ctx context.Context, tx Repository, content *Content, now time.Time) (*ContentMetrics, error) {
	metrics, err := tx.GetContentMetrics(ctx, content.ID)
	if err == nil {
		return metrics, nil
	}
	if !errors.Is(err, ErrMetricsNotFound) {
		return nil, err
	}
	metrics = NewContentMetrics(content, now)
	if err := tx.SaveContentMetrics(ctx, metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

func (s *service) metricsRecorded(ctx context.Context, metrics *ContentMetrics) {
	s.logger.InfoContext(ctx, "content metrics recorded",
		"content_id", metrics.ContentID, "channels", len(metrics.Channels),
		"likes", metrics.Likes, "comments", metrics.Comments, "shares", metrics.Shares)
	s.emit(ctx, "metrics_recorded", func() error { return s.eventSink.MetricsRecorded(ctx, metrics) })
}

func validateContentCounters(c ContentCounters) error {
	if c.Views < 0 || c.Likes < 0 || c.Comments < 0 || c.Shares < 0 || c.Reach < 0 || c.Impressions < 0 ||
		c.EngagementRate < 0 || c.ClickThroughRate < 0 || c.ConversionRate < 0 {
		return &ValidationError{Field: "counters", Reason: "must not be negative"}
	}
	return nil
}

func validateChannelCounters(channelID uuid.UUID, c ChannelCounters) error {
	if channelID == uuid.Nil {
		return &ValidationError{Field: "channel_id", Reason: "is required"}
	}
	if c.Likes < 0 || c.Comments < 0 || c.Shares < 0 || c.SiteVisits < 0 || c.NewAccounts < 0 || c.PostClicks < 0 {
		return &ValidationError{Field: "counters", Reason: "must not be negative", IDs: []uuid.UUID{channelID}}
	}
	return nil
}
