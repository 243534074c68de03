package contentflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// service implements the Service interface
type service struct {
	repository Repository
	principals PrincipalProvider
	eventSink  EventSink
	logger     *slog.Logger
	now        func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithPrincipalProvider replaces the default context-based principal lookup
func WithPrincipalProvider(p PrincipalProvider) Option {
	return func(s *service) {
		s.principals = p
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithClock overrides time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		principals: ContextPrincipalProvider{},
		eventSink:  NewNoopEventSink(),
		logger:     slog.Default(),
		now:        time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return s, nil
}

func (s *service) principal(ctx context.Context) (Principal, error) {
	p, err := s.principals.CurrentPrincipal(ctx)
	if err != nil {
		return Principal{}, err
	}
	if p.Role != RolePrivileged && p.Role != RoleStandard {
		return Principal{}, forbidden(fmt.Sprintf("unknown role %q", p.Role))
	}
	return p, nil
}

func (s *service) clock() time.Time {
	return s.now().UTC()
}

// emit runs an event sink callback and logs its failure.
func (s *service) emit(ctx context.Context, event string, fn func() error) {
	if err := fn(); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", event, "error", err)
	}
}
