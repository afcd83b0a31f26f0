// Package eligibility decides whether a client IP may start a free trial.
//
// Two gates apply: anonymizer traffic (VPN, proxy, Tor and friends) and a
// single blocked country. Both gates consult one geolocation lookup and
// both fail open: if the provider cannot answer, the client is allowed
// through. A trial must never be lost to a vendor outage.
package eligibility

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"trialgate/internal/eligibility/metrics"
	"trialgate/internal/eligibility/tracer"
	"trialgate/pkg/platform/circuit"
)

// Verdict labels the outcome of an evaluation.
const (
	VerdictClean          = "clean"
	VerdictVPN            = "vpn"
	VerdictBlockedCountry = "blocked_country"
	VerdictFailOpen       = "fail_open"
)

// Decision is the outcome of evaluating a client IP.
type Decision struct {
	VPNDetected    bool
	VPNIndicator   VPNIndicator
	BlockedCountry bool
	CountryCode    string
	CountryName    string
	ProxyType      string
	LookupOK       bool
}

// Verdict summarizes the decision for metrics and audit. VPN wins over
// blocked country when both fire.
func (d Decision) Verdict() string {
	switch {
	case d.VPNDetected:
		return VerdictVPN
	case d.BlockedCountry:
		return VerdictBlockedCountry
	case !d.LookupOK:
		return VerdictFailOpen
	default:
		return VerdictClean
	}
}

// Evaluator applies the anonymizer and blocked-country gates on top of a
// lookup Client, with optional caching, metrics and tracing.
type Evaluator struct {
	client         Client
	blockedCountry string
	cache          Cache
	sf             singleflight.Group
	breaker        *circuit.Breaker
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         tracer.Tracer
}

// Option configures the Evaluator.
type Option func(*Evaluator)

// WithCache adds a lookup result cache.
func WithCache(cache Cache) Option {
	return func(e *Evaluator) {
		e.cache = cache
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

// WithTracer enables distributed tracing.
func WithTracer(t tracer.Tracer) Option {
	return func(e *Evaluator) {
		e.tracer = t
	}
}

// WithLogger sets the evaluator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// New creates an Evaluator. blockedCountry is an ISO 3166-1 alpha-2 code;
// empty disables the country gate.
func New(client Client, blockedCountry string, opts ...Option) *Evaluator {
	e := &Evaluator{
		client:         client,
		blockedCountry: strings.ToUpper(blockedCountry),
		breaker:        circuit.New("lookup-provider"),
		logger:         slog.Default(),
		tracer:         tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs both gates against a single lookup of ip.
//
// Lookup failures are logged and produce an open decision with
// LookupOK false; they never surface as errors to the caller.
func (e *Evaluator) Evaluate(ctx context.Context, ip string) Decision {
	ctx, span := e.tracer.Start(ctx, tracer.SpanEvaluate, tracer.String(tracer.AttrIP, ip))

	result, err := e.lookup(ctx, ip)
	if err != nil {
		e.logger.Warn("eligibility lookup failed, allowing through", "ip", ip, "error", err)
		decision := Decision{LookupOK: false}
		e.observe(decision)
		span.SetAttributes(tracer.String(tracer.AttrVerdict, decision.Verdict()))
		span.End(nil)
		return decision
	}

	decision := Decision{
		CountryCode: result.CountryCode,
		CountryName: result.CountryName,
		ProxyType:   result.ProxyType,
		LookupOK:    true,
	}

	group, _ := errgroup.WithContext(ctx)
	group.Go(func() error {
		decision.VPNDetected, decision.VPNIndicator = ClassifyVPN(result)
		return nil
	})
	group.Go(func() error {
		decision.BlockedCountry = MatchesCountry(result, e.blockedCountry)
		return nil
	})
	_ = group.Wait()

	e.observe(decision)
	span.SetAttributes(
		tracer.String(tracer.AttrVerdict, decision.Verdict()),
		tracer.String(tracer.AttrIndicator, string(decision.VPNIndicator)),
		tracer.String(tracer.AttrCountry, decision.CountryCode),
	)
	span.End(nil)
	return decision
}

// IsVPNOrProxy reports whether ip looks like anonymizer traffic,
// failing open on lookup errors.
func (e *Evaluator) IsVPNOrProxy(ctx context.Context, ip string) bool {
	decision := e.Evaluate(ctx, ip)
	return decision.VPNDetected
}

// IsBlockedCountry reports whether ip resolves to the blocked country,
// failing open on lookup errors.
func (e *Evaluator) IsBlockedCountry(ctx context.Context, ip string) bool {
	decision := e.Evaluate(ctx, ip)
	return decision.BlockedCountry
}

// Lookup resolves ip through the cache and provider without applying any
// gate. Used by the debug endpoint to expose the raw provider view.
func (e *Evaluator) Lookup(ctx context.Context, ip string) (*LookupResult, error) {
	return e.lookup(ctx, ip)
}

// ProviderHealthy reports whether the lookup provider circuit is closed.
// Decisions made while it is open are all fail-open, so readiness
// surfaces it.
func (e *Evaluator) ProviderHealthy() bool {
	return !e.breaker.IsOpen()
}

// lookup consults the cache, then the provider. Concurrent lookups of
// the same IP are collapsed into one provider call.
func (e *Evaluator) lookup(ctx context.Context, ip string) (*LookupResult, error) {
	ctx, span := e.tracer.Start(ctx, tracer.SpanLookup, tracer.String(tracer.AttrIP, ip))

	if e.cache != nil {
		if result, ok := e.cache.Get(ctx, ip); ok {
			if e.metrics != nil {
				e.metrics.CacheHitsTotal.Inc()
			}
			span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, true))
			span.End(nil)
			return result, nil
		}
		if e.metrics != nil {
			e.metrics.CacheMissesTotal.Inc()
		}
	}
	span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, false))

	value, err, _ := e.sf.Do(ip, func() (any, error) {
		start := time.Now()
		result, err := e.client.Lookup(ctx, ip)
		e.observeLookup(err, time.Since(start))
		if err != nil {
			if _, change := e.breaker.RecordFailure(); change.Opened {
				e.logger.Warn("lookup provider circuit opened", "breaker", e.breaker.Name())
			}
			return nil, err
		}
		if _, change := e.breaker.RecordSuccess(); change.Closed {
			e.logger.Info("lookup provider circuit closed", "breaker", e.breaker.Name())
		}
		if e.cache != nil {
			e.cache.Set(ctx, ip, result)
		}
		return result, nil
	})
	span.End(err)
	if err != nil {
		return nil, err
	}
	return value.(*LookupResult), nil
}

func (e *Evaluator) observe(decision Decision) {
	if e.metrics == nil {
		return
	}
	e.metrics.DecisionsTotal.WithLabelValues(decision.Verdict()).Inc()
}

func (e *Evaluator) observeLookup(err error, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.metrics.LookupsTotal.WithLabelValues(outcome).Inc()
	e.metrics.LookupDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
