package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"trialgate/internal/audit"
	"trialgate/internal/eligibility"
	"trialgate/internal/platform/health"
	"trialgate/internal/verification/service"
	"trialgate/internal/verification/store"
	"trialgate/pkg/platform/middleware/metadata"
	"trialgate/pkg/secrets"
)

const (
	testAdminSecret = "test-admin-secret"
	testBotAPIKey   = "test-bot-key"
)

// switchableEvaluator lets a test flip the gate decision between requests.
type switchableEvaluator struct {
	decision eligibility.Decision
}

func (e *switchableEvaluator) Evaluate(_ context.Context, _ string) eligibility.Decision {
	return e.decision
}

type HandlerSuite struct {
	suite.Suite

	store     *store.InMemoryStore
	evaluator *switchableEvaluator
	server    *httptest.Server
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	s.store = store.NewInMemoryStore()
	s.evaluator = &switchableEvaluator{decision: eligibility.Decision{CountryCode: "CA", LookupOK: true}}

	publisher := audit.NewPublisher(audit.NewInMemoryStore(), logger)
	svc := service.New(s.store, s.evaluator, publisher, service.WithLogger(logger))

	keyHash, err := secrets.Hash(testBotAPIKey)
	s.Require().NoError(err)

	handler := NewHandler(svc, publisher, logger, WithBotAPIKeyHash(keyHash))
	router := NewRouter(handler, health.New(), RouterConfig{
		AdminJWTSecret: testAdminSecret,
		Metadata:       metadata.NewMiddleware(metadata.DefaultConfig()),
	}, logger)
	s.server = httptest.NewServer(router)
	s.T().Cleanup(s.server.Close)
}

func (s *HandlerSuite) submit(form url.Values) (*nethttp.Response, map[string]any) {
	resp, err := nethttp.PostForm(s.server.URL+"/trial", form)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var body map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func (s *HandlerSuite) TestSubmitAndFetch() {
	resp, body := s.submit(url.Values{
		"tg_id":   []string{"12345"},
		"name":    []string{"Alice"},
		"country": []string{"Canada"},
	})

	s.Equal(nethttp.StatusOK, resp.StatusCode)
	s.Equal(true, body["ok"])
	s.Equal("step1_passed", body["status"])

	req, err := nethttp.NewRequest(nethttp.MethodGet, s.server.URL+"/api/get-verification?tg_id=12345", nil)
	s.Require().NoError(err)
	req.Header.Set("X-API-Key", testBotAPIKey)

	fetchResp, err := nethttp.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer fetchResp.Body.Close()

	s.Equal(nethttp.StatusOK, fetchResp.StatusCode)
	var record map[string]any
	s.Require().NoError(json.NewDecoder(fetchResp.Body).Decode(&record))
	s.Equal("Alice", record["name"])
	s.Equal(true, record["step1_ok"])
}

func (s *HandlerSuite) TestSubmitVPNRejected() {
	s.evaluator.decision = eligibility.Decision{
		VPNDetected:  true,
		VPNIndicator: eligibility.IndicatorVPN,
		LookupOK:     true,
	}

	resp, body := s.submit(url.Values{
		"tg_id":   []string{"99999"},
		"name":    []string{"Bob"},
		"country": []string{"Germany"},
	})

	s.Equal(nethttp.StatusForbidden, resp.StatusCode)
	s.Equal("vpn_detected", body["error"])
}

func (s *HandlerSuite) TestSubmitBlockedCountry() {
	s.evaluator.decision = eligibility.Decision{
		BlockedCountry: true,
		CountryCode:    "PK",
		LookupOK:       true,
	}

	resp, body := s.submit(url.Values{"tg_id": []string{"55555"}})

	s.Equal(nethttp.StatusForbidden, resp.StatusCode)
	s.Equal("blocked_country", body["error"])
}

func (s *HandlerSuite) TestSubmitMissingUserID() {
	resp, body := s.submit(url.Values{
		"name":    []string{"Alice"},
		"country": []string{"Canada"},
	})

	s.Equal(nethttp.StatusBadRequest, resp.StatusCode)
	s.Equal("invalid_user_id", body["error"])
}

func (s *HandlerSuite) TestSubmitUserIDFallsBackToQuery() {
	resp, err := nethttp.Post(s.server.URL+"/trial?tg_id=24680", "application/x-www-form-urlencoded",
		strings.NewReader(url.Values{
			"name":    []string{"Eve"},
			"country": []string{"Norway"},
		}.Encode()))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(nethttp.StatusOK, resp.StatusCode)
}

func (s *HandlerSuite) TestTrialPage() {
	resp, err := nethttp.Get(s.server.URL + "/trial?tg_id=12345")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(nethttp.StatusOK, resp.StatusCode)
	s.Contains(resp.Header.Get("Content-Type"), "text/html")
	page, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Contains(string(page), "Start your free trial")
	s.Contains(string(page), "<option value=\"Canada\">Canada</option>")
}

func (s *HandlerSuite) TestTrialPageBlockedForVPN() {
	s.evaluator.decision = eligibility.Decision{
		VPNDetected:  true,
		VPNIndicator: eligibility.IndicatorVPN,
		LookupOK:     true,
	}

	resp, err := nethttp.Get(s.server.URL + "/trial?tg_id=12345")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(nethttp.StatusOK, resp.StatusCode)
	page, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Contains(string(page), "Not eligible")
	s.NotContains(string(page), "Start your free trial")
}

func (s *HandlerSuite) TestSubmitUnlistedCountry() {
	resp, body := s.submit(url.Values{
		"tg_id":   []string{"12345"},
		"name":    []string{"Alice"},
		"country": []string{"Atlantis"},
	})
	s.Equal(nethttp.StatusBadRequest, resp.StatusCode)
	s.Equal("validation_failed", body["error"])
}

func (s *HandlerSuite) TestTrialPageAfterPass() {
	s.submit(url.Values{
		"tg_id":   []string{"12345"},
		"name":    []string{"Alice"},
		"country": []string{"Canada"},
	})

	resp, err := nethttp.Get(s.server.URL + "/trial?tg_id=12345")
	s.Require().NoError(err)
	defer resp.Body.Close()

	page, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Contains(string(page), "all set")
}

func (s *HandlerSuite) TestCheckStep1() {
	resp, err := nethttp.Get(s.server.URL + "/check-step1")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(nethttp.StatusOK, resp.StatusCode)
	var body map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal(false, body["already_passed"])

	s.evaluator.decision = eligibility.Decision{VPNDetected: true, LookupOK: true}
	blocked, err := nethttp.Get(s.server.URL + "/check-step1")
	s.Require().NoError(err)
	defer blocked.Body.Close()

	s.Equal(nethttp.StatusForbidden, blocked.StatusCode)
}

func (s *HandlerSuite) TestCheckStep1PassedUserSkipsGate() {
	s.submit(url.Values{
		"tg_id":   []string{"12345"},
		"name":    []string{"Alice"},
		"country": []string{"Canada"},
	})

	// A passed user gets their answer even when the gate would now reject.
	s.evaluator.decision = eligibility.Decision{VPNDetected: true, LookupOK: true}
	resp, err := nethttp.Get(s.server.URL + "/check-step1?tg_id=12345")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(nethttp.StatusOK, resp.StatusCode)
	var body map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal(true, body["already_passed"])
}

func (s *HandlerSuite) TestBotFetchRejectsBadKey() {
	req, err := nethttp.NewRequest(nethttp.MethodGet, s.server.URL+"/api/get-verification?tg_id=12345", nil)
	s.Require().NoError(err)
	req.Header.Set("X-API-Key", "wrong-key")

	resp, err := nethttp.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(nethttp.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerSuite) TestBotFetchNotFound() {
	req, err := nethttp.NewRequest(nethttp.MethodGet, s.server.URL+"/api/get-verification?tg_id=424242", nil)
	s.Require().NoError(err)
	req.Header.Set("X-API-Key", testBotAPIKey)

	resp, err := nethttp.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(nethttp.StatusNotFound, resp.StatusCode)
}

func (s *HandlerSuite) adminToken(subject string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testAdminSecret))
	s.Require().NoError(err)
	return signed
}

func (s *HandlerSuite) TestAdminClear() {
	s.submit(url.Values{
		"tg_id":   []string{"12345"},
		"name":    []string{"Alice"},
		"country": []string{"Canada"},
	})

	req, err := nethttp.NewRequest(nethttp.MethodDelete, s.server.URL+"/admin/verification/12345", nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+s.adminToken("admin-7"))

	resp, err := nethttp.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(nethttp.StatusNoContent, resp.StatusCode)

	_, err = s.store.Find(context.Background(), 12345)
	s.Error(err)
}

func (s *HandlerSuite) TestAdminClearRequiresToken() {
	req, err := nethttp.NewRequest(nethttp.MethodDelete, s.server.URL+"/admin/verification/12345", nil)
	s.Require().NoError(err)

	resp, err := nethttp.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(nethttp.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerSuite) TestDebugIPHiddenByDefault() {
	resp, err := nethttp.Get(s.server.URL + "/debug-ip")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(nethttp.StatusNotFound, resp.StatusCode)
}

func (s *HandlerSuite) TestHealth() {
	resp, err := nethttp.Get(s.server.URL + "/health/live")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(nethttp.StatusOK, resp.StatusCode)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}
