package eligibility

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient returns a canned result or error and counts calls.
type stubClient struct {
	result *LookupResult
	err    error
	calls  atomic.Int64
}

func (c *stubClient) Lookup(_ context.Context, _ string) (*LookupResult, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	result := *c.result
	return &result, nil
}

func newTestEvaluator(client Client, blockedCountry string, opts ...Option) *Evaluator {
	opts = append(opts, WithLogger(slog.New(slog.DiscardHandler)))
	return New(client, blockedCountry, opts...)
}

func TestEvaluate_CleanIPPassesBothGates(t *testing.T) {
	client := &stubClient{result: &LookupResult{
		IP:          "203.0.113.10",
		CountryCode: "CA",
		CountryName: "Canada",
		Proxy:       &ProxyDetail{},
	}}
	evaluator := newTestEvaluator(client, "PK")

	decision := evaluator.Evaluate(context.Background(), "203.0.113.10")

	assert.False(t, decision.VPNDetected)
	assert.False(t, decision.BlockedCountry)
	assert.True(t, decision.LookupOK)
	assert.Equal(t, "CA", decision.CountryCode)
	assert.Equal(t, VerdictClean, decision.Verdict())
}

func TestEvaluate_VPNDetected(t *testing.T) {
	client := &stubClient{result: &LookupResult{
		IP:          "198.51.100.7",
		CountryCode: "DE",
		Proxy:       &ProxyDetail{IsVPN: true},
	}}
	evaluator := newTestEvaluator(client, "PK")

	decision := evaluator.Evaluate(context.Background(), "198.51.100.7")

	assert.True(t, decision.VPNDetected)
	assert.Equal(t, IndicatorVPN, decision.VPNIndicator)
	assert.Equal(t, VerdictVPN, decision.Verdict())
	assert.True(t, evaluator.IsVPNOrProxy(context.Background(), "198.51.100.7"))
}

func TestEvaluate_BlockedCountryCaseInsensitive(t *testing.T) {
	client := &stubClient{result: &LookupResult{
		IP:          "198.51.100.9",
		CountryCode: "pk",
		Proxy:       &ProxyDetail{},
	}}
	evaluator := newTestEvaluator(client, "PK")

	decision := evaluator.Evaluate(context.Background(), "198.51.100.9")

	assert.False(t, decision.VPNDetected)
	assert.True(t, decision.BlockedCountry)
	assert.Equal(t, VerdictBlockedCountry, decision.Verdict())
}

func TestEvaluate_VPNWinsOverBlockedCountry(t *testing.T) {
	client := &stubClient{result: &LookupResult{
		IP:          "198.51.100.11",
		CountryCode: "PK",
		IsProxy:     true,
	}}
	evaluator := newTestEvaluator(client, "PK")

	decision := evaluator.Evaluate(context.Background(), "198.51.100.11")

	assert.True(t, decision.VPNDetected)
	assert.True(t, decision.BlockedCountry)
	assert.Equal(t, VerdictVPN, decision.Verdict())
}

func TestEvaluate_LookupFailureFailsOpen(t *testing.T) {
	client := &stubClient{err: errors.New("provider down")}
	evaluator := newTestEvaluator(client, "PK")

	decision := evaluator.Evaluate(context.Background(), "203.0.113.50")

	assert.False(t, decision.VPNDetected)
	assert.False(t, decision.BlockedCountry)
	assert.False(t, decision.LookupOK)
	assert.Equal(t, VerdictFailOpen, decision.Verdict())
	assert.False(t, evaluator.IsVPNOrProxy(context.Background(), "203.0.113.50"))
	assert.False(t, evaluator.IsBlockedCountry(context.Background(), "203.0.113.50"))
}

func TestEvaluate_EmptyBlockedCountryDisablesGate(t *testing.T) {
	client := &stubClient{result: &LookupResult{IP: "198.51.100.9", CountryCode: "PK"}}
	evaluator := newTestEvaluator(client, "")

	decision := evaluator.Evaluate(context.Background(), "198.51.100.9")

	assert.False(t, decision.BlockedCountry)
}

func TestEvaluate_CacheAvoidsRepeatLookups(t *testing.T) {
	client := &stubClient{result: &LookupResult{IP: "203.0.113.10", CountryCode: "CA"}}
	evaluator := newTestEvaluator(client, "PK", WithCache(NewMemoryCache(time.Minute)))

	first := evaluator.Evaluate(context.Background(), "203.0.113.10")
	second := evaluator.Evaluate(context.Background(), "203.0.113.10")

	require.True(t, first.LookupOK)
	require.True(t, second.LookupOK)
	assert.Equal(t, int64(1), client.calls.Load())
}

func TestEvaluate_LookupErrorsAreNotCached(t *testing.T) {
	client := &stubClient{err: errors.New("provider down")}
	evaluator := newTestEvaluator(client, "PK", WithCache(NewMemoryCache(time.Minute)))

	evaluator.Evaluate(context.Background(), "203.0.113.50")
	evaluator.Evaluate(context.Background(), "203.0.113.50")

	assert.Equal(t, int64(2), client.calls.Load())
}

func TestEvaluate_BreakerTracksProviderHealth(t *testing.T) {
	client := &stubClient{err: errors.New("provider down")}
	evaluator := newTestEvaluator(client, "PK")

	require.True(t, evaluator.ProviderHealthy())
	for range 5 {
		evaluator.Evaluate(context.Background(), "203.0.113.50")
	}
	assert.False(t, evaluator.ProviderHealthy())

	client.err = nil
	client.result = &LookupResult{IP: "203.0.113.50", CountryCode: "CA"}
	for range 3 {
		evaluator.Evaluate(context.Background(), "203.0.113.50")
	}
	assert.True(t, evaluator.ProviderHealthy())
}

func TestMemoryCache_Expiry(t *testing.T) {
	cache := NewMemoryCache(10 * time.Millisecond)
	cache.Set(context.Background(), "203.0.113.10", &LookupResult{IP: "203.0.113.10"})

	_, ok := cache.Get(context.Background(), "203.0.113.10")
	require.True(t, ok)

	time.Sleep(25 * time.Millisecond)

	_, ok = cache.Get(context.Background(), "203.0.113.10")
	assert.False(t, ok)
}

func TestMemoryCache_ReturnsCopy(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	cache.Set(context.Background(), "203.0.113.10", &LookupResult{CountryCode: "CA"})

	first, ok := cache.Get(context.Background(), "203.0.113.10")
	require.True(t, ok)
	first.CountryCode = "US"

	second, ok := cache.Get(context.Background(), "203.0.113.10")
	require.True(t, ok)
	assert.Equal(t, "CA", second.CountryCode)
}
