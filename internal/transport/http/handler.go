package http

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"

	"trialgate/internal/audit"
	"trialgate/internal/eligibility"
	"trialgate/internal/verification/models"
	"trialgate/internal/verification/service"
	"trialgate/internal/verification/store"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/platform/httputil"
	adminmw "trialgate/pkg/platform/middleware/admin"
	"trialgate/pkg/platform/validation"
	"trialgate/pkg/requestcontext"
	"trialgate/pkg/secrets"
)

//go:embed templates/*.html
var templateFS embed.FS

// Lookuper exposes the raw provider view for the debug probe.
type Lookuper interface {
	Lookup(ctx context.Context, ip string) (*eligibility.LookupResult, error)
}

// Handler serves the trial verification endpoints.
type Handler struct {
	service    *service.Service
	trialLog   *audit.Publisher
	lookup     Lookuper
	apiKeyHash string
	botToken   string
	logger     *slog.Logger
	tmpl       *template.Template
}

// HandlerOption configures the Handler.
type HandlerOption func(*Handler)

// WithBotAPIKeyHash enables the bot fetch API, guarded by the given
// bcrypt hash.
func WithBotAPIKeyHash(hash string) HandlerOption {
	return func(h *Handler) {
		h.apiKeyHash = hash
	}
}

// WithBotToken enables init data signature validation.
func WithBotToken(token string) HandlerOption {
	return func(h *Handler) {
		h.botToken = token
	}
}

// WithLookup enables the debug probe's raw provider view.
func WithLookup(l Lookuper) HandlerOption {
	return func(h *Handler) {
		h.lookup = l
	}
}

// NewHandler creates the trial handler. trialLog may be nil; the admin
// trial-log listing then serves an empty list.
func NewHandler(svc *service.Service, trialLog *audit.Publisher, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:  svc,
		trialLog: trialLog,
		logger:   logger,
		tmpl:     template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// trialPageData feeds the trial page template.
type trialPageData struct {
	UserID    int64
	Passed    bool
	Name      string
	Blocked   bool
	Message   string
	Countries []string
}

// HandleTrialPage renders the step-1 form, pre-resolved against any
// existing pass so a returning user sees their state immediately. The
// eligibility gate runs before the form is shown; the submission re-runs
// it regardless.
func (h *Handler) HandleTrialPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := trialPageData{Countries: models.Countries}

	if userID, err := resolveUserID(r, h.botToken); err == nil {
		data.UserID = userID
		if record, err := h.service.Status(ctx, userID); err == nil {
			data.Passed = record.Step1OK
			data.Name = record.Name
		}
	}

	if !data.Passed {
		if err := h.service.CheckAccess(ctx, data.UserID, requestcontext.ClientIP(ctx), requestcontext.UserAgent(ctx)); err != nil {
			data.Blocked = true
			data.Message = "You are not eligible for this trial."
			var dErr *dErrors.Error
			if errors.As(err, &dErr) {
				data.Message = dErr.Message
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "trial.html", data); err != nil {
		h.logger.ErrorContext(ctx, "trial page render failed", "error", err)
	}
}

// HandleTrialSubmit processes a step-1 form submission.
func (h *Handler) HandleTrialSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, validation.MaxBodySize)

	userID, err := resolveUserID(r, h.botToken)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Submit(ctx, models.Submission{
		UserID:         userID,
		Name:           r.PostFormValue("name"),
		Country:        r.PostFormValue("country"),
		Email:          r.PostFormValue("email"),
		MarketingOptIn: checkboxOn(r.PostFormValue("marketing_opt_in")),
		IP:             requestcontext.ClientIP(ctx),
		UserAgent:      requestcontext.UserAgent(ctx),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"status": record.Status,
	})
}

// HandleCheckStep1 tells the frontend whether the user already passed
// step 1. A passed record answers unconditionally; only users still to
// verify get the eligibility gate, so the page can fail fast before
// showing the form. The user ID is best effort here; rejections are
// still logged against it when present.
func (h *Handler) HandleCheckStep1(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, _ := resolveUserID(r, h.botToken)
	if userID > 0 {
		if record, err := h.service.Status(ctx, userID); err == nil && record.Step1OK {
			httputil.WriteJSON(w, http.StatusOK, map[string]any{"already_passed": true})
			return
		}
	}

	if err := h.service.CheckAccess(ctx, userID, requestcontext.ClientIP(ctx), requestcontext.UserAgent(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"already_passed": false})
}

// HandleGetVerification serves a user's record to the bot backend,
// guarded by the bot API key.
func (h *Handler) HandleGetVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.apiKeyHash == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "bot API is not configured"))
		return
	}
	if err := secrets.Verify(r.Header.Get("X-API-Key"), h.apiKeyHash); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid API key"))
		return
	}

	userID, err := strconv.ParseInt(r.URL.Query().Get("tg_id"), 10, 64)
	if err != nil || userID <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidUserID, "tg_id query parameter is required"))
		return
	}

	record, err := h.service.Status(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no verification record"))
			return
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleClearVerification removes a user's record so they can verify
// again. Admin only.
func (h *Handler) HandleClearVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := strconv.ParseInt(chi.URLParam(r, "tg_id"), 10, 64)
	if err != nil || userID <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidUserID, "malformed tg_id"))
		return
	}

	if err := h.service.Clear(ctx, userID, adminmw.GetAdminActorID(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTrialLog lists the trial log for admin review.
func (h *Handler) HandleTrialLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries := []audit.Entry{}
	if h.trialLog != nil {
		listed, err := h.trialLog.List(ctx)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		entries = listed
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

// HandleDebugIP exposes the raw provider view of the calling IP plus the
// gate's reading of it. Only mounted when debug endpoints are enabled.
func (h *Handler) HandleDebugIP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := requestcontext.ClientIP(ctx)
	rawUA := requestcontext.UserAgent(ctx)

	ua := useragent.New(rawUA)
	browser, browserVersion := ua.Browser()
	response := map[string]any{
		"ip":         ip,
		"user_agent": rawUA,
		"browser":    browser + " " + browserVersion,
		"os":         ua.OS(),
		"is_bot":     ua.Bot(),
	}

	if h.lookup == nil {
		response["lookup"] = "disabled"
		httputil.WriteJSON(w, http.StatusOK, response)
		return
	}

	result, err := h.lookup.Lookup(ctx, ip)
	if err != nil {
		response["lookup_error"] = err.Error()
		httputil.WriteJSON(w, http.StatusOK, response)
		return
	}

	vpnDetected, indicator := eligibility.ClassifyVPN(result)
	response["result"] = result
	response["vpn_detected"] = vpnDetected
	response["vpn_indicator"] = indicator
	response["datacenter_usage"] = eligibility.IsDatacenterUsage(result)
	httputil.WriteJSON(w, http.StatusOK, response)
}

// checkboxOn interprets the truthy spellings HTML forms send for a
// checked box.
func checkboxOn(value string) bool {
	switch value {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
