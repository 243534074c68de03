package contentflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// validator checks one foreign reference of a request. Validators run in
// order before any write and the first failure wins.
type validator func(ctx context.Context, tx Repository) error

func runValidators(ctx context.Context, tx Repository, validators ...validator) error {
	for _, v := range validators {
		if err := v(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

// resolveChannels returns the channels of the tenant keyed by id, plus the ids
// that did not resolve, in request order. Duplicate ids are looked up once.
func resolveChannels(ctx context.Context, tx Repository, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*Channel, []uuid.UUID, error) {
	unique := dedupe(ids)
	found, err := tx.FindChannelsByIDs(ctx, unique)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[uuid.UUID]*Channel, len(found))
	for _, c := range found {
		if c.TenantID == tenantID {
			byID[c.ID] = c
		}
	}
	var missing []uuid.UUID
	for _, id := range unique {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	return byID, missing, nil
}

func channelsExist(tenantID uuid.UUID, ids []uuid.UUID) validator {
	return func(ctx context.Context, tx Repository) error {
		if len(ids) == 0 {
			return nil
		}
		_, missing, err := resolveChannels(ctx, tx, tenantID, ids)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return &ValidationError{Field: "channel_ids", Reason: "contains unknown channels", IDs: missing}
		}
		return nil
	}
}

func productInTenant(tenantID uuid.UUID, productID *uuid.UUID) validator {
	return func(ctx context.Context, tx Repository) error {
		if productID == nil {
			return nil
		}
		_, err := tx.GetProduct(ctx, *productID, tenantID)
		if errors.Is(err, ErrProductNotFound) {
			return &ValidationError{Field: "product_id", Reason: "does not belong to tenant", IDs: []uuid.UUID{*productID}}
		}
		return err
	}
}

func producerInTenant(tenantID uuid.UUID, producerID *uuid.UUID) validator {
	return func(ctx context.Context, tx Repository) error {
		if producerID == nil {
			return nil
		}
		_, err := tx.GetUser(ctx, *producerID, tenantID)
		if errors.Is(err, ErrUserNotFound) {
			return &ValidationError{Field: "producer_id", Reason: "does not belong to tenant", IDs: []uuid.UUID{*producerID}}
		}
		return err
	}
}

func validInitialStatus(status ContentStatus) validator {
	return func(context.Context, Repository) error {
		if status == "" || status.IsValid() {
			return nil
		}
		return fmt.Errorf("%w: unknown status %s", ErrInvalidContentStatus, status)
	}
}

// postedAtMatchesStatus accepts a supplied post date only for content that
// starts out posted. Otherwise the date is stamped when the content is posted.
func postedAtMatchesStatus(status ContentStatus, postedAt *time.Time) validator {
	return func(context.Context, Repository) error {
		if postedAt == nil || status == ContentStatusPosted {
			return nil
		}
		return &ValidationError{Field: "posted_at", Reason: "is only accepted when the initial status is posted"}
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
