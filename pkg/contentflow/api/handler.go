package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/content-flow/pkg/contentflow"
)

// Handler serves the content lifecycle and metrics endpoints
type Handler struct {
	service contentflow.Service
	logger  *slog.Logger
}

// NewHandler creates a new handler. A nil logger means slog.Default().
func NewHandler(service contentflow.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns the authenticated routes
func (h *Handler) Routes(ja *jwtauth.JWTAuth) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.logger))
	r.Use(Authenticate(ja))

	r.Route("/contents", func(r chi.Router) {
		r.Post("/", h.CreateContent)
		r.Get("/{id}", h.GetContent)
		r.Delete("/{id}", h.DeleteContent)
		r.Put("/{id}/status", h.ChangeStatus)
		r.Put("/{id}/producer", h.AssignProducer)

		r.Put("/{id}/metrics", h.RecordContentMetrics)
		r.Get("/{id}/metrics", h.GetContentMetrics)
		r.Put("/{id}/metrics/channels", h.RecordAllChannelMetrics)
		r.Put("/{id}/metrics/channels/{channelID}", h.RecordChannelMetric)
	})
	r.Post("/drafts/{id}/promote", h.PromoteDraft)

	return r
}

// CreateContentRequest is the request body for creating content
type CreateContentRequest struct {
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Body       string     `json:"body"`
	ProductID  string     `json:"product_id,omitempty"`
	ProducerID string     `json:"producer_id,omitempty"`
	Status     string     `json:"status,omitempty"`
	ChannelIDs []string   `json:"channel_ids,omitempty"`
	PostedAt   *time.Time `json:"posted_at,omitempty"`
}

// ChangeStatusRequest is the request body for a status change
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// AssignProducerRequest is the request body for assigning a producer
type AssignProducerRequest struct {
	ProducerID string `json:"producer_id"`
}

// PromoteDraftRequest is the request body for promoting a draft
type PromoteDraftRequest struct {
	ProductID  string     `json:"product_id,omitempty"`
	ProducerID string     `json:"producer_id,omitempty"`
	Status     string     `json:"status,omitempty"`
	ChannelIDs []string   `json:"channel_ids,omitempty"`
	PostedAt   *time.Time `json:"posted_at,omitempty"`
}

// ChannelMetricEntry is one entry of a bulk channel metrics write
type ChannelMetricEntry struct {
	ChannelID string `json:"channel_id"`
	contentflow.ChannelCounters
}

// RecordAllChannelMetricsRequest is the request body for a bulk channel write
type RecordAllChannelMetricsRequest struct {
	Entries []ChannelMetricEntry `json:"entries"`
}

// CreateContent creates content directly
func (h *Handler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req CreateContentRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	productID, err := optionalUUID(req.ProductID)
	if err != nil {
		badRequest(w, r, "Invalid product ID")
		return
	}
	producerID, err := optionalUUID(req.ProducerID)
	if err != nil {
		badRequest(w, r, "Invalid producer ID")
		return
	}
	channelIDs, err := parseUUIDs(req.ChannelIDs)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	content, err := h.service.CreateContent(r.Context(), contentflow.CreateContentRequest{
		Name:       req.Name,
		Type:       req.Type,
		Body:       req.Body,
		ProductID:  productID,
		ProducerID: producerID,
		Status:     contentflow.ContentStatus(req.Status),
		ChannelIDs: channelIDs,
		PostedAt:   req.PostedAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.logger.Info("Content created", "content_id", content.ID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, content)
}

// GetContent retrieves content by ID
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	content, err := h.service.GetContent(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, content)
}

// DeleteContent deletes content and its metrics
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteContent(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangeStatus moves content to a new status
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req ChangeStatusRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	content, err := h.service.ChangeStatus(r.Context(), contentflow.ChangeStatusRequest{
		ContentID: id,
		Status:    contentflow.ContentStatus(req.Status),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, content)
}

// AssignProducer sets the producer of content
func (h *Handler) AssignProducer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req AssignProducerRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	producerID, err := uuid.Parse(req.ProducerID)
	if err != nil {
		badRequest(w, r, "Invalid producer ID")
		return
	}

	content, err := h.service.AssignProducer(r.Context(), contentflow.AssignProducerRequest{
		ContentID:  id,
		ProducerID: producerID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, content)
}

// PromoteDraft turns an approved draft into content
func (h *Handler) PromoteDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	// the body is optional
	var req PromoteDraftRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, r, err.Error())
		return
	}

	productID, err := optionalUUID(req.ProductID)
	if err != nil {
		badRequest(w, r, "Invalid product ID")
		return
	}
	producerID, err := optionalUUID(req.ProducerID)
	if err != nil {
		badRequest(w, r, "Invalid producer ID")
		return
	}
	channelIDs, err := parseUUIDs(req.ChannelIDs)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	content, err := h.service.PromoteDraftToContent(r.Context(), contentflow.PromoteDraftRequest{
		DraftID:    id,
		ProductID:  productID,
		ProducerID: producerID,
		Status:     contentflow.ContentStatus(req.Status),
		ChannelIDs: channelIDs,
		PostedAt:   req.PostedAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.logger.Info("Draft promoted", "draft_id", id.String(), "content_id", content.ID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, content)
}

// RecordContentMetrics replaces the content-level counters
func (h *Handler) RecordContentMetrics(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var counters contentflow.ContentCounters
	if err := render.DecodeJSON(r.Body, &counters); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	metrics, err := h.service.RecordContentMetrics(r.Context(), contentflow.RecordContentMetricsRequest{
		ContentID: id,
		Counters:  counters,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, metrics)
}

// RecordChannelMetric writes the counters of one channel
func (h *Handler) RecordChannelMetric(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	channelID, ok := h.pathID(w, r, "channelID")
	if !ok {
		return
	}
	var counters contentflow.ChannelCounters
	if err := render.DecodeJSON(r.Body, &counters); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	metrics, err := h.service.RecordChannelMetric(r.Context(), contentflow.RecordChannelMetricRequest{
		ContentID: id,
		ChannelID: channelID,
		Counters:  counters,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, metrics)
}

// RecordAllChannelMetrics writes several channels at once
func (h *Handler) RecordAllChannelMetrics(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req RecordAllChannelMetricsRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	entries := make([]contentflow.ChannelMetricEntry, len(req.Entries))
	for i, e := range req.Entries {
		channelID, err := uuid.Parse(e.ChannelID)
		if err != nil {
			badRequest(w, r, fmt.Sprintf("Invalid channel ID at entry %d", i))
			return
		}
		entries[i] = contentflow.ChannelMetricEntry{ChannelID: channelID, Counters: e.ChannelCounters}
	}

	metrics, err := h.service.RecordAllChannelMetrics(r.Context(), contentflow.RecordAllChannelMetricsRequest{
		ContentID: id,
		Entries:   entries,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, metrics)
}

// GetContentMetrics returns the metrics aggregate of content
func (h *Handler) GetContentMetrics(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	metrics, err := h.service.GetContentMetrics(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, metrics)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Warn("Invalid path ID", "param", name, "value", raw)
		badRequest(w, r, fmt.Sprintf("Invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid channel ID %q", s)
		}
		ids[i] = id
	}
	return ids, nil
}
