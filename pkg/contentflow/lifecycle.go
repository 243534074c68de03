package contentflow

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Content lifecycle operations

func (s *service) CreateContent(ctx context.Context, req CreateContentRequest) (*Content, error) {
	p, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}
	if !p.IsPrivileged() {
		return nil, forbidden("only privileged users can create content directly")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "is required"}
	}

	now := s.clock()
	content := &Content{
		ID:         uuid.New(),
		TenantID:   p.TenantID,
		CreatorID:  p.ID,
		ProducerID: req.ProducerID,
		ProductID:  req.ProductID,
		Name:       req.Name,
		Type:       req.Type,
		Body:       req.Body,
		ChannelIDs: dedupe(req.ChannelIDs),
		PostedAt:   req.PostedAt,
		CreatedAt:  now,
	}

	err = s.repository.WithTx(ctx, func(tx Repository) error {
		if err := runValidators(ctx, tx,
			validInitialStatus(req.Status),
			postedAtMatchesStatus(req.Status, req.PostedAt),
			channelsExist(p.TenantID, req.ChannelIDs),
			productInTenant(p.TenantID, req.ProductID),
			producerInTenant(p.TenantID, req.ProducerID),
		); err != nil {
			return err
		}
		applyStatus(content, initialStatus(req.Status), now)
		return tx.SaveContent(ctx, content)
	})
	if err != nil {
		return nil, &ContentError{ContentID: content.ID, Op: "create", Err: err}
	}

	s.logger.InfoContext(ctx, "content created", "content_id", content.ID, "tenant_id", content.TenantID)
	s.emit(ctx, "content_created", func() error { return s.eventSink.ContentCreated(ctx, content) })
	return content, nil
}

func (s *service) GetContent(ctx context.Context, id uuid.UUID) (*Content, error) {
	p, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}
	content, err := s.repository.GetContent(ctx, id, p.TenantID)
	if err != nil {
		return nil, err
	}
	if !CanView(content, p) {
		return nil, ErrContentNotFound
	}
	return content, nil
}

// ChangeStatus moves content to req.Status. Privileged callers may pick any
// status; everyone else must be the assigned producer and follow the state
// machine.
func (s *service) ChangeStatus(ctx context.Context, req ChangeStatusRequest) (*Content, error) {
	p, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}

	var (
		updated *Content
		from    ContentStatus
	)
	err = s.repository.WithTx(ctx, func(tx Repository) error {
		content, err := tx.GetContent(ctx, req.ContentID, p.TenantID)
		if err != nil {
			return err
		}
		if err := canChangeStatus(content, p, req.Status); err != nil {
			return err
		}

		from = ContentStatus(content.Status)
		now := s.clock()
		applyStatus(content, req.Status, now)
		if err := tx.SaveContent(ctx, content); err != nil {
			return err
		}
		if req.Status == ContentStatusPosted {
			// rollups start counting from the moment content goes out
			if _, err := s.ensureMetrics(ctx, tx, content, now); err != nil {
				return err
			}
		}
		updated = content
		return nil
	})
	if err != nil {
		return nil, &ContentError{ContentID: req.ContentID, Op: "change_status", Err: err}
	}

	s.logger.InfoContext(ctx, "content status changed",
		"content_id", updated.ID, "from", from, "to", updated.Status, "principal_id", p.ID)
	s.emit(ctx, "content_status_changed", func() error {
		return s.eventSink.ContentStatusChanged(ctx, updated, from)
	})
	return updated, nil
}

func (s *service) AssignProducer(ctx context.Context, req AssignProducerRequest) (*Content, error) {
	p, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}
	if !p.IsPrivileged() {
		return nil, &ContentError{ContentID: req.ContentID, Op: "assign_producer",
			Err: forbidden("only privileged users can assign producers")}
	}

	var updated *Content
	err = s.repository.WithTx(ctx, func(tx Repository) error {
		content, err := tx.GetContent(ctx, req.ContentID, p.TenantID)
		if err != nil {
			return err
		}
		if err := runValidators(ctx, tx, producerInTenant(p.TenantID, &req.ProducerID)); err != nil {
			return err
		}
		producerID := req.ProducerID
		content.ProducerID = &producerID
		content.UpdatedAt = s.clock()
		if err := tx.SaveContent(ctx, content); err != nil {
			return err
		}
		updated = content
		return nil
	})
	if err != nil {
		return nil, &ContentError{ContentID: req.ContentID, Op: "assign_producer", Err: err}
	}

	s.logger.InfoContext(ctx, "producer assigned", "content_id", updated.ID, "producer_id", req.ProducerID)
	return updated, nil
}

// PromoteDraftToContent turns an approved draft into content. The new content
// is saved and the draft deleted in the same transaction.
func (s *service) PromoteDraftToContent(ctx context.Context, req PromoteDraftRequest) (*Content, error) {
	p, err := s.principal(ctx)
	if err != nil {
		return nil, err
	}

	var content *Content
	err = s.repository.WithTx(ctx, func(tx Repository) error {
		draft, err := tx.GetDraft(ctx, req.DraftID, p.TenantID)
		if err != nil {
			return err
		}
		if ApprovalStatus(draft.ApprovalStatus) != ApprovalStatusApproved {
			return ErrDraftNotApproved
		}
		if !p.IsPrivileged() && !matches(p.ID, draft.CreatorID) {
			return forbidden("only privileged users or the draft creator can promote a draft")
		}

		productID := req.ProductID
		if productID == nil {
			productID = draft.ProductID
		}
		if err := runValidators(ctx, tx,
			validInitialStatus(req.Status),
			postedAtMatchesStatus(req.Status, req.PostedAt),
			channelsExist(p.TenantID, req.ChannelIDs),
			productInTenant(p.TenantID, productID),
			producerInTenant(p.TenantID, req.ProducerID),
		); err != nil {
			return err
		}

		now := s.clock()
		draftID := draft.ID
		content = &Content{
			ID:            uuid.New(),
			TenantID:      draft.TenantID,
			CreatorID:     draft.CreatorID,
			ProducerID:    req.ProducerID,
			ProductID:     productID,
			SourceDraftID: &draftID,
			Name:          draft.Title,
			Type:          draft.Type,
			Body:          draft.Body,
			ChannelIDs:    dedupe(req.ChannelIDs),
			PostedAt:      req.PostedAt,
			CreatedAt:     now,
		}
		applyStatus(content, initialStatus(req.Status), now)

		if err := tx.SaveContent(ctx, content); err != nil {
			return err
		}
		return tx.DeleteDraft(ctx, draft.ID)
	})
	if err != nil {
		return nil, &DraftError{DraftID: req.DraftID, Op: "promote", Err: err}
	}

	s.logger.InfoContext(ctx, "draft promoted", "draft_id", req.DraftID, "content_id", content.ID)
	s.emit(ctx, "content_created", func() error { return s.eventSink.ContentCreated(ctx, content) })
	s.emit(ctx, "draft_promoted", func() error { return s.eventSink.DraftPromoted(ctx, req.DraftID, content) })
	return content, nil
}

func (s *service) DeleteContent(ctx context.Context, id uuid.UUID) error {
	p, err := s.principal(ctx)
	if err != nil {
		return err
	}

	err = s.repository.WithTx(ctx, func(tx Repository) error {
		content, err := tx.GetContent(ctx, id, p.TenantID)
		if err != nil {
			return err
		}
		if !canDelete(content, p) {
			return forbidden("only the creator or a privileged user can delete content")
		}
		return tx.DeleteContent(ctx, content.ID)
	})
	if err != nil {
		return &ContentError{ContentID: id, Op: "delete", Err: err}
	}

	s.logger.InfoContext(ctx, "content deleted", "content_id", id, "principal_id", p.ID)
	s.emit(ctx, "content_deleted", func() error { return s.eventSink.ContentDeleted(ctx, id) })
	return nil
}

func initialStatus(s ContentStatus) ContentStatus {
	if s == "" {
		return ContentStatusPending
	}
	return s
}

// applyStatus sets the status and stamps the lifecycle timestamps that are
// still unset. Timestamps are written once and never moved.
func applyStatus(c *Content, to ContentStatus, now time.Time) {
	c.Status = string(to)
	c.UpdatedAt = now
	switch to {
	case ContentStatusInProduction:
		if c.ProductionStartedAt == nil {
			c.ProductionStartedAt = stamp(now)
		}
	case ContentStatusPosted:
		if c.PostedAt == nil {
			c.PostedAt = stamp(now)
		}
		if c.ProductionStartedAt != nil && c.ProductionEndedAt == nil {
			c.ProductionEndedAt = stamp(now)
		}
	}
}

func stamp(t time.Time) *time.Time {
	return &t
}
