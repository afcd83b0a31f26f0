// Package service implements the free-trial verification flow: gate a
// submission on eligibility, persist the passed record, and log the
// attempt to the trial log.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trialgate/internal/audit"
	"trialgate/internal/eligibility"
	"trialgate/internal/verification/models"
	"trialgate/internal/verification/store"
	dErrors "trialgate/pkg/domain-errors"
	pstring "trialgate/pkg/string"
	"trialgate/pkg/validation"
)

// Eligibility is the gate the service consults before accepting a
// submission.
type Eligibility interface {
	Evaluate(ctx context.Context, ip string) eligibility.Decision
}

// Service coordinates the verification flow across the record store, the
// eligibility gate and the trial log.
type Service struct {
	store     store.Store
	evaluator Eligibility
	publisher *audit.Publisher
	logger    *slog.Logger
	metrics   *Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates the verification service. publisher may be nil; trial log
// emission is best effort and never blocks the flow.
func New(recordStore store.Store, evaluator Eligibility, publisher *audit.Publisher, opts ...Option) *Service {
	s := &Service{
		store:     recordStore,
		evaluator: evaluator,
		publisher: publisher,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status reports whether a user has already passed step 1.
//
// Errors: CodeInvalidUserID for a non-positive ID; store errors pass
// through wrapped.
func (s *Service) Status(ctx context.Context, userID int64) (*models.Record, error) {
	if userID <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidUserID, "user id must be positive")
	}
	record, err := s.store.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load verification record: %w", err)
	}
	return record, nil
}

// CheckAccess runs the eligibility gate for a bare IP, before any form is
// shown. It mirrors the gate Submit applies so clients can fail fast.
func (s *Service) CheckAccess(ctx context.Context, userID int64, ip, userAgent string) error {
	decision := s.evaluator.Evaluate(ctx, ip)
	return s.rejectIneligible(ctx, decision, userID, ip, userAgent)
}

// Submit processes a step-1 form submission.
//
// The eligibility gate runs before field validation: an anonymizer or
// blocked-country client learns nothing about which fields were missing.
// A user who already passed gets their existing record back untouched.
//
// Errors: CodeInvalidUserID, CodeVPNDetected, CodeBlockedCountry,
// CodeValidation; store failures pass through wrapped.
func (s *Service) Submit(ctx context.Context, sub models.Submission) (*models.Record, error) {
	if sub.UserID <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidUserID, "user id must be positive")
	}

	existing, err := s.store.Find(ctx, sub.UserID)
	if err == nil && existing.Step1OK {
		s.logger.Info("submission for already-passed user", "user_id", sub.UserID)
		return existing, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load verification record: %w", err)
	}

	decision := s.evaluator.Evaluate(ctx, sub.IP)
	if err := s.rejectIneligible(ctx, decision, sub.UserID, sub.IP, sub.UserAgent); err != nil {
		s.observe("rejected")
		return nil, err
	}

	pstring.TrimStrings(&sub.Name, &sub.Country, &sub.Email)
	if err := validateSubmission(sub); err != nil {
		s.observe("invalid")
		return nil, err
	}

	record := models.Record{
		UserID:         sub.UserID,
		Name:           sub.Name,
		Country:        sub.Country,
		Email:          sub.Email,
		SourceIP:       sub.IP,
		UserAgent:      sub.UserAgent,
		MarketingOptIn: sub.MarketingOptIn,
		Step1OK:        true,
		Status:         models.StatusStep1Passed,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.Save(ctx, &record); err != nil {
		s.observe("store_error")
		return nil, fmt.Errorf("save verification record: %w", err)
	}

	s.emit(ctx, audit.Entry{
		Event:     audit.EventStep1Passed,
		UserID:    sub.UserID,
		IP:        sub.IP,
		UserAgent: sub.UserAgent,
		Details: map[string]any{
			"name":         record.Name,
			"country":      record.Country,
			"country_code": decision.CountryCode,
			"marketing_ok": record.MarketingOptIn,
			"lookup_ok":    decision.LookupOK,
		},
	})

	s.observe("passed")
	s.logger.Info("step 1 passed", "user_id", sub.UserID, "country", record.Country)
	return &record, nil
}

// Clear removes a user's record so they can run verification again.
// Clearing an absent record succeeds.
func (s *Service) Clear(ctx context.Context, userID int64, actor string) error {
	if userID <= 0 {
		return dErrors.New(dErrors.CodeInvalidUserID, "user id must be positive")
	}
	if err := s.store.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear verification record: %w", err)
	}
	s.emit(ctx, audit.Entry{
		Event:  audit.EventRecordCleared,
		UserID: userID,
		Details: map[string]any{
			"actor": actor,
		},
	})
	s.logger.Info("verification record cleared", "user_id", userID, "actor", actor)
	return nil
}

// rejectIneligible converts a gate decision into a domain error and logs
// the rejection to the trial log. A clean or fail-open decision is nil.
func (s *Service) rejectIneligible(ctx context.Context, decision eligibility.Decision, userID int64, ip, userAgent string) error {
	switch {
	case decision.VPNDetected:
		s.emit(ctx, audit.Entry{
			Event:     audit.EventVPNRejected,
			UserID:    userID,
			IP:        ip,
			UserAgent: userAgent,
			Reason:    string(decision.VPNIndicator),
			Details: map[string]any{
				"proxy_type":   decision.ProxyType,
				"country_code": decision.CountryCode,
			},
		})
		return dErrors.New(dErrors.CodeVPNDetected, "VPN or proxy detected, please disable it and try again")
	case decision.BlockedCountry:
		s.emit(ctx, audit.Entry{
			Event:     audit.EventCountryBlocked,
			UserID:    userID,
			IP:        ip,
			UserAgent: userAgent,
			Reason:    decision.CountryCode,
		})
		return dErrors.New(dErrors.CodeBlockedCountry, "service is not available in your country")
	}
	return nil
}

// validateSubmission checks the required form fields. Runs only after
// the eligibility gate has passed.
func validateSubmission(sub models.Submission) error {
	if err := validation.Validate(sub); err != nil {
		return err
	}
	if !models.ValidCountry(sub.Country) {
		return dErrors.New(dErrors.CodeValidation, "country must be selected from the list")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, entry audit.Entry) {
	if s.publisher == nil {
		return
	}
	s.publisher.Emit(ctx, entry)
}

func (s *Service) observe(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
}
