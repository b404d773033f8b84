// Package service implements the identity token registry: minting, lookups,
// field and entry writes gated by owner/resolver authorization, resolver
// management and entry attestations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	identitymetrics "snowflake/internal/identity/metrics"
	"snowflake/internal/identity/models"
	"snowflake/internal/identity/store"
	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
	"snowflake/pkg/digest"
)

const tracerName = "snowflake/internal/identity/service"

// Service is the TokenRegistry. Every mutation runs inside one RunInTx call,
// so a failure anywhere leaves registry state untouched.
type Service struct {
	store        store.Store
	tx           store.Tx
	authority    RegistrationAuthority
	fees         FeeCharger
	logger       *slog.Logger
	auditEmitter *auditEmitter
	metrics      *identitymetrics.Metrics
	tracer       trace.Tracer
	digestLength int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditEmitter.publisher = publisher
	}
}

func WithMetrics(m *identitymetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithFeeCharger sets the mint fee collaborator. Without it minting is free.
func WithFeeCharger(fees FeeCharger) Option {
	return func(s *Service) {
		if fees != nil {
			s.fees = fees
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithDigestLength requires every stored value to be exactly n bytes.
// Zero disables the check.
func WithDigestLength(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.digestLength = n
		}
	}
}

type freeMint struct{}

func (freeMint) ChargeMintFee(context.Context, id.Address) error { return nil }

// New constructs the registry. st serves reads outside transactions; tx
// provides the mutation boundary. Both are usually the same value.
func New(st store.Store, tx store.Tx, authority RegistrationAuthority, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if tx == nil {
		return nil, errors.New("transaction boundary is required")
	}
	if authority == nil {
		return nil, errors.New("registration authority is required")
	}
	s := &Service{
		store:        st,
		tx:           tx,
		authority:    authority,
		fees:         freeMint{},
		logger:       slog.Default(),
		auditEmitter: &auditEmitter{},
		tracer:       otel.Tracer(tracerName),
		digestLength: digest.Size,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.auditEmitter.logger = s.logger
	return s, nil
}

func (s *Service) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "identity."+operation, trace.WithAttributes(attrs...))
}

// finish records the outcome of an operation on its span and in metrics.
func (s *Service) finish(span trace.Span, operation string, start time.Time, err error) {
	defer span.End()
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, start)
	}
	if err == nil {
		return
	}
	code := dErrors.CodeOf(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(code))
	if s.metrics != nil {
		s.metrics.IncrementFailure(operation, string(code))
	}
}

func (s *Service) checkDigests(values []models.Digest) error {
	if s.digestLength == 0 {
		return nil
	}
	for i, v := range values {
		if len(v) != s.digestLength {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("value %d must be a %d-byte digest, got %d bytes", i, s.digestLength, len(v)))
		}
	}
	return nil
}
