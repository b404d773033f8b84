// Package admin serves operator routes: signing handles up with the
// registration authority, crediting mint fee balances and reading a token's
// audit trail.
package admin

import (
	"context"
	"errors"
	"log/slog"

	"snowflake/internal/raindrop"
	id "snowflake/pkg/domain"
	dErrors "snowflake/pkg/domain-errors"
	audit "snowflake/pkg/platform/audit"
	"snowflake/pkg/requestcontext"
)

// Ledger holds the balances mint fees are charged against.
type Ledger interface {
	Fee() uint64
	Credit(ctx context.Context, address id.Address, amount uint64) (uint64, error)
	Balance(ctx context.Context, address id.Address) (uint64, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// AuditTrail lists the recorded events of one token, oldest first.
type AuditTrail interface {
	List(ctx context.Context, tokenID id.TokenID) ([]audit.Event, error)
}

// Service performs operator actions against the directory and fee ledger.
type Service struct {
	directory raindrop.Directory
	ledger    Ledger
	publisher AuditPublisher
	trail     AuditTrail
	logger    *slog.Logger
}

type Option func(*Service)

// WithLedger enables balance operations. Without it minting is free and
// balance routes are not served.
func WithLedger(ledger Ledger) Option {
	return func(s *Service) {
		s.ledger = ledger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithAuditTrail enables the audit read route.
func WithAuditTrail(trail AuditTrail) Option {
	return func(s *Service) {
		s.trail = trail
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(directory raindrop.Directory, opts ...Option) *Service {
	s := &Service{directory: directory, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FeesEnabled reports whether a ledger is configured.
func (s *Service) FeesEnabled() bool {
	return s.ledger != nil
}

// AuditEnabled reports whether audit events can be read back.
func (s *Service) AuditEnabled() bool {
	return s.trail != nil
}

// SignUp registers handle for address. Either side may only be bound once.
func (s *Service) SignUp(ctx context.Context, handle id.Handle, address id.Address) error {
	if err := s.directory.SignUp(ctx, handle, address); err != nil {
		if errors.Is(err, raindrop.ErrAlreadyUsed) {
			return dErrors.New(dErrors.CodeAlreadyRegistered, "handle or address already signed up")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign up handle")
	}
	s.emit(ctx, audit.EventHandleSignedUp, address, handle.String())
	return nil
}

// AddressOf returns the address a handle was signed up for.
func (s *Service) AddressOf(ctx context.Context, handle id.Handle) (id.Address, error) {
	addr, err := s.directory.AddressOf(ctx, handle)
	if err != nil {
		if errors.Is(err, raindrop.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "handle not signed up")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up handle")
	}
	return addr, nil
}

// Credit adds amount to the address's fee balance and returns the new balance.
func (s *Service) Credit(ctx context.Context, address id.Address, amount uint64) (uint64, error) {
	if s.ledger == nil {
		return 0, dErrors.New(dErrors.CodeNotFound, "mint fees are disabled")
	}
	balance, err := s.ledger.Credit(ctx, address, amount)
	if err != nil {
		return 0, err
	}
	s.emit(ctx, audit.EventBalanceCredited, address, "")
	return balance, nil
}

func (s *Service) Balance(ctx context.Context, address id.Address) (uint64, error) {
	if s.ledger == nil {
		return 0, dErrors.New(dErrors.CodeNotFound, "mint fees are disabled")
	}
	return s.ledger.Balance(ctx, address)
}

// AuditTrail returns the events recorded for tokenID. A token with no events
// yields an empty slice; existence is the registry's concern.
func (s *Service) AuditTrail(ctx context.Context, tokenID id.TokenID) ([]audit.Event, error) {
	if s.trail == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "audit trail is not readable")
	}
	events, err := s.trail.List(ctx, tokenID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail")
	}
	return events, nil
}

// MintFee returns the configured fee, zero when fees are disabled.
func (s *Service) MintFee() uint64 {
	if s.ledger == nil {
		return 0
	}
	return s.ledger.Fee()
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, subject id.Address, decision string) {
	event := audit.Event{
		Action:     string(action),
		Subject:    subject,
		RequestID:  requestcontext.RequestID(ctx),
		Timestamp:  requestcontext.Now(ctx),
		FieldIndex: -1,
		Decision:   decision,
	}
	s.logger.InfoContext(ctx, event.Action,
		"log_type", "audit",
		"event", event.Action,
		"subject", subject,
		"request_id", event.RequestID,
	)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish audit event",
			"error", err,
			"event", event.Action,
		)
	}
}
