package contentflow

import "fmt"

// transitions lists the status changes a producer may request.
var transitions = map[ContentStatus][]ContentStatus{
	ContentStatusPending:      {ContentStatusInProduction, ContentStatusCanceled},
	ContentStatusInProduction: {ContentStatusPosted, ContentStatusCanceled},
	ContentStatusPosted:       {ContentStatusFinished},
	ContentStatusFinished:     nil,
	ContentStatusCanceled:     nil,
}

// NextStatuses returns the statuses reachable from s in one step through the
// state machine. Privileged callers are not bound by it.
func NextStatuses(s ContentStatus) []ContentStatus {
	next := transitions[s]
	out := make([]ContentStatus, len(next))
	copy(out, next)
	return out
}

// canTransition checks if the content may move from one status to another
// following the state machine.
func canTransition(from, to ContentStatus) (bool, error) {
	if !to.IsValid() {
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidContentStatus, to)
	}
	for _, s := range transitions[from] {
		if s == to {
			return true, nil
		}
	}
	return false, &TransitionError{From: from, To: to}
}

// canChangeStatus applies the role gate before the state machine. Privileged
// callers may set any valid status from any status.
func canChangeStatus(content *Content, principal Principal, to ContentStatus) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: unknown status %s", ErrInvalidContentStatus, to)
	}
	if content.TenantID != principal.TenantID {
		return ErrContentNotFound
	}
	if principal.IsPrivileged() {
		return nil
	}
	if !isProducer(content, principal) {
		return forbidden("only assigned producers can change status")
	}
	_, err := canTransition(ContentStatus(content.Status), to)
	return err
}
