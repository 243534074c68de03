package contentflow

import (
	"time"

	"github.com/google/uuid"
)

// ContentMetrics is the metrics aggregate of one content item. It owns its
// ChannelMetric children; Likes, Comments and Shares are derived from them
// whenever a child is written.
type ContentMetrics struct {
	ID        uuid.UUID `json:"id"`
	ContentID uuid.UUID `json:"content_id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	ContentCounters
	Channels  []*ChannelMetric `json:"channels"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	// channel id -> position in Channels
	index map[uuid.UUID]int
}

// NewContentMetrics returns an empty aggregate for the given content.
func NewContentMetrics(content *Content, now time.Time) *ContentMetrics {
	return &ContentMetrics{
		ID:        uuid.New(),
		ContentID: content.ID,
		TenantID:  content.TenantID,
		Channels:  []*ChannelMetric{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (m *ContentMetrics) reindex() {
	m.index = make(map[uuid.UUID]int, len(m.Channels))
	for i, c := range m.Channels {
		m.index[c.ChannelID] = i
	}
}

// Channel returns the child for channelID, or nil.
func (m *ContentMetrics) Channel(channelID uuid.UUID) *ChannelMetric {
	if m.index == nil || len(m.index) != len(m.Channels) {
		m.reindex()
	}
	i, ok := m.index[channelID]
	if !ok {
		return nil
	}
	return m.Channels[i]
}

// SetTotals replaces the content-level counters.
func (m *ContentMetrics) SetTotals(c ContentCounters, now time.Time) {
	m.ContentCounters = c
	m.UpdatedAt = now
}

// PutChannel finds or creates the child for channelID and overwrites its
// counters. The channel name is captured as given. Totals are not touched;
// call Resum once all children are written.
func (m *ContentMetrics) PutChannel(channelID uuid.UUID, channelName string, c ChannelCounters, now time.Time) *ChannelMetric {
	child := m.Channel(channelID)
	if child == nil {
		child = &ChannelMetric{
			ID:        uuid.New(),
			ChannelID: channelID,
		}
		m.Channels = append(m.Channels, child)
		m.index[channelID] = len(m.Channels) - 1
	}
	child.ChannelName = channelName
	child.ChannelCounters = c
	child.UpdatedAt = now
	m.UpdatedAt = now
	return child
}

// Resum recomputes Likes, Comments and Shares from the current children.
func (m *ContentMetrics) Resum() {
	var likes, comments, shares int64
	for _, c := range m.Channels {
		likes += c.Likes
		comments += c.Comments
		shares += c.Shares
	}
	m.Likes = likes
	m.Comments = comments
	m.Shares = shares
}

// Clone returns a deep copy of the aggregate.
func (m *ContentMetrics) Clone() *ContentMetrics {
	out := *m
	out.index = nil
	out.Channels = make([]*ChannelMetric, len(m.Channels))
	for i, c := range m.Channels {
		cc := *c
		out.Channels[i] = &cc
	}
	return &out
}
