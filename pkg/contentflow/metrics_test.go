package contentflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-flow/pkg/contentflow"
)

func TestRecordChannelMetric_SumsChildren(t *testing.T) {
	f := newFixture(t)
	c := f.newContent(t)
	ctx := as(f.worker)

	_, err := f.svc.RecordChannelMetric(ctx, contentflow.RecordChannelMetricRequest{
		ContentID: c.ID,
		ChannelID: f.chA.ID,
		Counters:  contentflow.ChannelCounters{Likes: 10, Comments: 4, Shares: 1, SiteVisits: 20},
	})
	require.NoError(t, err)

	m, err := f.svc.RecordChannelMetric(ctx, contentflow.RecordChannelMetricRequest{
		ContentID: c.ID,
		ChannelID: f.chB.ID,
		Counters:  contentflow.ChannelCounters{Likes: 5, Comments: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15), m.Likes)
	assert.Equal(t, int64(5), m.Comments)
	assert.Equal(t, int64(1), m.Shares)
	require.Len(t, m.Channels, 2)
	assert.Equal(t, "Instagram", m.Channel(f.chA.ID).ChannelName)
	assert.Equal(t, int64(20), m.Channel(f.chA.ID).SiteVisits)

	stored, err := f.svc.GetContentMetrics(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ContentCounters, stored.ContentCounters)
}

func TestRecordChannelMetric_Idempotent(t *testing.T) {
	f := newFixture(t)
	c := f.newContent(t)
	ctx := as(f.creator)

	run := func() contentflow.ContentCounters {
		var last *contentflow.ContentMetrics
		for _, req := range []contentflow.RecordChannelMetricRequest{
			{ContentID: c.ID, ChannelID: f.chA.ID, Counters: contentflow.ChannelCounters{Likes: 7, Shares: 2}},
			{ContentID: c.ID, ChannelID: f.chB.ID, Counters: contentflow.ChannelCounters{Likes: 3, Comments: 9}},
			{ContentID: c.ID, ChannelID: f.chA.ID, Counters: contentflow.ChannelCounters{Likes: 8, Shares: 2}},
		} {
			m, err := f.svc.RecordChannelMetric(ctx, req)
			require.NoError(t, err)
			last = m
		}
		return last.ContentCounters
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
	assert.Equal(t, int64(11), first.Likes)
	assert.Equal(t, int64(9), first.Comments)
	assert.Equal(t, int64(2), first.Shares)
}

func TestRecordChannelMetric_ResumOverridesContentTotals(t *testing.T) {
	f := newFixture(t)
	c := f.newContent(t)
	ctx := as(f.admin)

	_, err := f.svc.RecordContentMetrics(ctx, contentflow.RecordContentMetricsRequest{
		ContentID: c.ID,
		Counters:  contentflow.ContentCounters{Views: 500, Likes: 99, Reach: 300, EngagementRate: 0.12},
	})
	require.NoError(t, err)

	m, err := f.svc.RecordChannelMetric(ctx, contentflow.RecordChannelMetricRequest{
		ContentID: c.ID,
		ChannelID: f.chA.ID,
		Counters:  contentflow.ChannelCounters{Likes: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), m.Likes)
	assert.Equal(t, int64(500), m.Views)
	assert.Equal(t, int64(300), m.Reach)
	assert.InDelta(t, 0.12, m.EngagementRate, 1e-9)
}

func TestRecordChannelMetric_Errors(t *testing.T) {
	f := newFixture(t)
	c := f.newContent(t)
	foreign := &contentflow.Channel{ID: uuid.New(), TenantID: uuid.New(), Name: "elsewhere"}
	require.NoError(t, f.repo.SaveChannel(context.Background(), foreign))

	tests := []struct {
		name      string
		req       contentflow.RecordChannelMetricRequest
		wantError error
	}{
		{
			name:      "unknown channel",
			req:       contentflow.RecordChannelMetricRequest{ContentID: c.ID, ChannelID: uuid.New()},
			wantError: contentflow.ErrChannelNotFound,
		},
		{
			name:      "channel of another tenant",
			req:       contentflow.RecordChannelMetricRequest{ContentID: c.ID, ChannelID: foreign.ID},
			wantError: contentflow.ErrChannelNotFound,
		},
		{
			name:      "unknown content",
			req:       contentflow.RecordChannelMetricRequest{ContentID: uuid.New(), ChannelID: f.chA.ID},
			wantError: contentflow.ErrContentNotFound,
		},
		{
			name: "negative counter",
			req: contentflow.RecordChannelMetricRequest{
				ContentID: c.ID,
				ChannelID: f.chA.ID,
				Counters:  contentflow.ChannelCounters{Likes: -1},
			},
			wantError: contentflow.ErrValidation,
		},
		{
			name:      "missing channel id",
			req:       contentflow.RecordChannelMetricRequest{ContentID: c.ID},
			wantError: contentflow.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordChannelMetric(as(f.worker), tt.req)
			assert.ErrorIs(t, err, tt.wantError)
		})
	}
	assert.Equal(t, 0, f.writes.Count())
}

func TestRecordAllChannelMetrics(t *testing.T) {
	f := newFixture(t)
	c := f.newContent(t)

	m, err := f.svc.RecordAllChannelMetrics(as(f.worker), contentflow.RecordAllChannelMetricsRequest{
		ContentID: c.ID,
		Entries: []contentflow.ChannelMetricEntry{
			{ChannelID: f.chA.ID, Counters: contentflow.ChannelCounters{Likes: 1, Comments: 1}},
			{ChannelID: f.chB.ID, Counters: contentflow.ChannelCounters{Likes: 2, Shares: 6}},
			{ChannelID: f.chA.ID, Counters: contentflow.ChannelCounters{Likes: 10, Comments: 3}},
		},
	})
	require.NoError(t, err)
	require.Len(t, m.Channels, 2)
	assert.Equal(t, int64(10), m.Channel(f.chA.ID).Likes)
	assert.Equal(t, int64(12), m.Likes)
	assert.Equal(t, int64(3), m.Comments)
	assert.Equal(t, int64(6), m.Shares)
	assert.Equal(t, 1, f.writes.Count())
}

func TestRecordAllChannelMetrics_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	c := f.newContent(t)
	ctx := as(f.worker)

	_, err := f.svc.RecordChannelMetric(ctx, contentflow.RecordChannelMetricRequest{
		ContentID: c.ID,
		ChannelID: f.chA.ID,
		Counters:  contentflow.ChannelCounters{Likes: 3},
	})
	require.NoError(t, err)

	unknown := uuid.New()
	_, err = f.svc.RecordAllChannelMetrics(ctx, contentflow.RecordAllChannelMetricsRequest{
		ContentID: c.ID,
		Entries: []contentflow.ChannelMetricEntry{
			{ChannelID: f.chA.ID, Counters: contentflow.ChannelCounters{Likes: 50}},
			{ChannelID: unknown, Counters: contentflow.ChannelCounters{Likes: 1}},
		},
	})
	var verr *contentflow.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []uuid.UUID{unknown}, verr.IDs)

	m, err := f.svc.GetContentMetrics(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.Likes)
	assert.Len(t, m.Channels, 1)

	_, err = f.svc.RecordAllChannelMetrics(ctx, contentflow.RecordAllChannelMetricsRequest{ContentID: c.ID})
	assert.ErrorIs(t, err, contentflow.ErrNoEntries)
}

func TestRecordContentMetrics(t *testing.T) {
	sink := &recordingSink{}
	f := newFixture(t, contentflow.WithEventSink(sink))
	c := f.newContent(t)

	counters := contentflow.ContentCounters{
		Views:            1200,
		Likes:            80,
		Comments:         12,
		Shares:           5,
		Reach:            900,
		Impressions:      1500,
		EngagementRate:   0.07,
		ClickThroughRate: 0.02,
		ConversionRate:   0.005,
	}
	m, err := f.svc.RecordContentMetrics(as(f.worker), contentflow.RecordContentMetricsRequest{ContentID: c.ID, Counters: counters})
	require.NoError(t, err)
	assert.Equal(t, counters, m.ContentCounters)
	assert.Equal(t, f.tenant, m.TenantID)

	counters.Views = 1300
	again, err := f.svc.RecordContentMetrics(as(f.worker), contentflow.RecordContentMetricsRequest{ContentID: c.ID, Counters: counters})
	require.NoError(t, err)
	assert.Equal(t, m.ID, again.ID)
	assert.Equal(t, int64(1300), again.Views)
	assert.Equal(t, []string{"metrics_recorded", "metrics_recorded"}, sink.Events())

	_, err = f.svc.RecordContentMetrics(as(f.worker), contentflow.RecordContentMetricsRequest{
		ContentID: c.ID,
		Counters:  contentflow.ContentCounters{ConversionRate: -0.1},
	})
	assert.ErrorIs(t, err, contentflow.ErrValidation)
}
