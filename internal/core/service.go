package core

import (
	"context"
	"errors"
	"time"

	"assetledger/internal/infra/persistence/memory"
	"assetledger/pkg/domain"
)

const defaultMaxAttempts = 3

// Logger is the structured logging surface the service writes to. Key/value
// pairs follow the message.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Clock supplies timestamps for audit entries and metrics.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// MetricsRecorder observes the outcome of each service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Publisher receives notifications after the transaction that created them
// has committed. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, notifications []Notification) error
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, []Notification) error { return nil }

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithMetricsRecorder installs a metrics sink.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithPublisher installs the post-commit notification publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithMaxAttempts bounds how often an operation is retried after a transient
// conflict. Values below one are ignored.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// Service exposes the asset lifecycle, reference data and inbox operations.
// Every mutating operation runs inside a single store transaction.
type Service struct {
	store       PersistentStore
	logger      Logger
	clock       Clock
	metrics     MetricsRecorder
	publisher   Publisher
	maxAttempts int
	audit       AuditRecorder
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:       store,
		logger:      noopLogger{},
		clock:       ClockFunc(func() time.Time { return time.Now().UTC() }),
		metrics:     noopMetrics{},
		publisher:   noopPublisher{},
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.audit = AuditRecorder{clock: s.clock}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine. The store shares the service clock.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	s := NewService(nil, opts...)
	s.store = memory.NewStore(engine, memory.WithClock(s.clock.Now))
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// run executes fn in a store transaction, retrying when a concurrent commit
// invalidated what fn read. fn must be safe to call more than once.
func (s *Service) run(ctx context.Context, op string, fn func(tx Transaction) error) (Result, error) {
	start := s.clock.Now()
	var (
		res Result
		err error
	)
	for attempt := 1; ; attempt++ {
		if err = ctx.Err(); err != nil {
			break
		}
		res, err = s.store.RunInTransaction(ctx, fn)
		if !errors.Is(err, domain.ErrTransientConflict) || attempt >= s.maxAttempts {
			break
		}
		s.logger.Warn("transaction conflict, retrying", "operation", op, "attempt", attempt)
	}
	s.metrics.Observe(ctx, op, err == nil, s.clock.Now().Sub(start))
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityBlock {
			continue
		}
		s.logger.Warn("rule violation", "operation", op, "rule", v.Rule, "entity", v.Entity, "id", v.EntityID, "message", v.Message)
	}
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "error", err)
		return res, err
	}
	s.logger.Debug("operation committed", "operation", op)
	return res, nil
}

// view executes a read-only query against committed state.
func (s *Service) view(ctx context.Context, op string, fn func(TransactionView) error) error {
	start := s.clock.Now()
	err := s.store.View(ctx, fn)
	s.metrics.Observe(ctx, op, err == nil, s.clock.Now().Sub(start))
	if err != nil && !domain.IsNotFound(err) {
		s.logger.Error("query failed", "operation", op, "error", err)
	}
	return err
}

// publish hands committed notifications to the publisher. Failures are only
// logged; the state change has already been committed.
func (s *Service) publish(ctx context.Context, op string, notifications []Notification) {
	if len(notifications) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, notifications); err != nil {
		s.logger.Warn("notification publish failed", "operation", op, "count", len(notifications), "error", err)
	}
}
