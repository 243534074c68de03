// Package report builds per-tenant engagement rollups from the stored metrics
// aggregates and exports them as JSON documents.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/content-flow/pkg/contentflow"
)

// Lister is the read side of the repository a report needs.
type Lister interface {
	ListContent(ctx context.Context, tenantID uuid.UUID) ([]*contentflow.Content, error)
	ListContentMetrics(ctx context.Context, tenantID uuid.UUID) ([]*contentflow.ContentMetrics, error)
}

// Report is a tenant rollup.
type Report struct {
	TenantID    uuid.UUID                   `json:"tenant_id"`
	GeneratedAt time.Time                   `json:"generated_at"`
	Totals      contentflow.ContentCounters `json:"totals"`
	Contents    []ContentRow                `json:"contents"`
	Channels    []ChannelRow                `json:"channels"`
}

// ContentRow is one content item with its current totals. Content without an
// aggregate yet is listed with zero counters.
type ContentRow struct {
	ContentID uuid.UUID                   `json:"content_id"`
	Name      string                      `json:"name"`
	Status    string                      `json:"status"`
	PostedAt  *time.Time                  `json:"posted_at,omitempty"`
	Counters  contentflow.ContentCounters `json:"counters"`
	Channels  int                         `json:"channels"`
}

// ChannelRow sums one channel across every content of the tenant.
type ChannelRow struct {
	ChannelID   uuid.UUID `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	contentflow.ChannelCounters
	Contents int `json:"contents"`
}

// Build assembles the report for tenantID. Contents are ordered by likes, then
// name; channels by likes, then name. Rates are not summed.
func Build(ctx context.Context, lister Lister, tenantID uuid.UUID, now time.Time) (*Report, error) {
	contents, err := lister.ListContent(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	aggregates, err := lister.ListContentMetrics(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list content metrics: %w", err)
	}

	byContent := make(map[uuid.UUID]*contentflow.ContentMetrics, len(aggregates))
	for _, m := range aggregates {
		byContent[m.ContentID] = m
	}

	r := &Report{
		TenantID:    tenantID,
		GeneratedAt: now,
		Contents:    make([]ContentRow, 0, len(contents)),
		Channels:    []ChannelRow{},
	}
	channels := make(map[uuid.UUID]*ChannelRow)

	for _, c := range contents {
		row := ContentRow{ContentID: c.ID, Name: c.Name, Status: c.Status, PostedAt: c.PostedAt}
		if m, ok := byContent[c.ID]; ok {
			row.Counters = m.ContentCounters
			row.Channels = len(m.Channels)
			addCounters(&r.Totals, m.ContentCounters)

			for _, ch := range m.Channels {
				cr, ok := channels[ch.ChannelID]
				if !ok {
					cr = &ChannelRow{ChannelID: ch.ChannelID}
					channels[ch.ChannelID] = cr
				}
				if ch.ChannelName != "" {
					cr.ChannelName = ch.ChannelName
				}
				cr.Likes += ch.Likes
				cr.Comments += ch.Comments
				cr.Shares += ch.Shares
				cr.SiteVisits += ch.SiteVisits
				cr.NewAccounts += ch.NewAccounts
				cr.PostClicks += ch.PostClicks
				cr.Contents++
			}
		}
		r.Contents = append(r.Contents, row)
	}

	for _, cr := range channels {
		r.Channels = append(r.Channels, *cr)
	}
	sort.SliceStable(r.Contents, func(i, j int) bool {
		a, b := r.Contents[i], r.Contents[j]
		if a.Counters.Likes != b.Counters.Likes {
			return a.Counters.Likes > b.Counters.Likes
		}
		return a.Name < b.Name
	})
	sort.Slice(r.Channels, func(i, j int) bool {
		a, b := r.Channels[i], r.Channels[j]
		if a.Likes != b.Likes {
			return a.Likes > b.Likes
		}
		if a.ChannelName != b.ChannelName {
			return a.ChannelName < b.ChannelName
		}
		return a.ChannelID.String() < b.ChannelID.String()
	})
	return r, nil
}

func addCounters(dst *contentflow.ContentCounters, c contentflow.ContentCounters) {
	dst.Views += c.Views
	dst.Likes += c.Likes
	dst.Comments += c.Comments
	dst.Shares += c.Shares
	dst.Reach += c.Reach
	dst.Impressions += c.Impressions
}

// Uploader stores an exported document under key.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
}

// Exporter writes reports through an Uploader.
type Exporter struct {
	uploader Uploader
	logger   *slog.Logger
}

// NewExporter returns an Exporter. A nil logger means slog.Default().
func NewExporter(uploader Uploader, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{uploader: uploader, logger: logger}
}

// Key returns the object key a report is stored under.
func Key(r *Report) string {
	return fmt.Sprintf("reports/%s/%s.json", r.TenantID, r.GeneratedAt.UTC().Format("20060102T150405Z"))
}

// Export encodes r as JSON and uploads it. It returns the object key.
func (e *Exporter) Export(ctx context.Context, r *Report) (string, error) {
	if r == nil {
		return "", errors.New("report is required")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	key := Key(r)
	size := buf.Len()
	if err := e.uploader.Upload(ctx, key, "application/json", &buf); err != nil {
		e.logger.ErrorContext(ctx, "report upload failed", "key", key, "error", err)
		return "", fmt.Errorf("failed to upload report: %w", err)
	}
	e.logger.InfoContext(ctx, "report exported", "tenant_id", r.TenantID, "key", key,
		"contents", len(r.Contents), "channels", len(r.Channels), "bytes", size)
	return key, nil
}
