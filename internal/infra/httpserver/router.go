package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appaudits "github.com/bryanwahyu/homeready/internal/application/audits"
	domai "github.com/bryanwahyu/homeready/internal/domain/ai"
	"github.com/bryanwahyu/homeready/internal/domain/audit"
	"github.com/bryanwahyu/homeready/internal/middleware"
	"github.com/bryanwahyu/homeready/internal/observability"
)

// retryAfterSeconds is sent with 503 responses for render timeouts.
const retryAfterSeconds = 30

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type Options struct {
	Log         *slog.Logger
	Metrics     *observability.Metrics
	Gatherer    prometheus.Gatherer
	Checks      map[string]middleware.HealthChecker
	Limiter     *middleware.RateLimiter
	CORSOrigins []string
	AdminAPIKey string
}

type Router struct {
	audits *appaudits.Service
	log    *slog.Logger
}

func NewRouter(audits *appaudits.Service, opts Options) http.Handler {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	r := &Router{audits: audits, log: opts.Log}
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.Logging(opts.Log))
	if opts.Metrics != nil {
		mux.Use(middleware.Metrics(opts.Metrics))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Checks))
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.ReadinessHandler(opts.Checks))
	mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	mux.Route("/v1", func(rt chi.Router) {
		if len(opts.CORSOrigins) > 0 {
			rt.Use(cors.Handler(cors.Options{
				AllowedOrigins:   opts.CORSOrigins,
				AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
				ExposedHeaders:   []string{"Content-Disposition", middleware.RequestIDHeader},
				AllowCredentials: false,
				MaxAge:           300,
			}))
		}
		if opts.Limiter != nil {
			var onLimited func()
			if opts.Metrics != nil {
				onLimited = opts.Metrics.RateLimited.Inc
			}
			rt.Use(middleware.RateLimit(opts.Limiter, onLimited))
		}

		rt.Get("/questionnaire/{hazard}", r.wrap(r.handleQuestionnaire))
		rt.Get("/grants", r.wrap(r.handleGrants))
		rt.Get("/insurance", r.wrap(r.handleInsurance))

		rt.Post("/audits", r.wrap(r.handleCreate))
		rt.Route("/audits/{id}", func(rt chi.Router) {
			rt.Get("/", r.wrap(r.handleGet))
			rt.Patch("/", r.wrap(r.handleUpdate))
			rt.Post("/payment", r.wrap(r.handlePayment))
			rt.Get("/assessment", r.wrap(r.handleAssessment))
			rt.Get("/report", r.wrap(r.handleReport))
		})

		rt.Route("/admin", func(rt chi.Router) {
			rt.Use(middleware.AdminAPIKey(opts.AdminAPIKey))
			rt.Get("/audits/recent", r.wrap(r.handleRecent))
			rt.Post("/cleanup", r.wrap(r.handleCleanup))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type errorBody struct {
	Error     string             `json:"error"`
	Fields    []audit.FieldError `json:"fields,omitempty"`
	RequestID string             `json:"requestId,omitempty"`
}

// badRequest marks malformed input that never reached the service.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		body := errorBody{RequestID: middleware.RequestIDFromContext(req.Context())}
		status := http.StatusInternalServerError

		var verr *audit.ValidationError
		var bad badRequest
		switch {
		case errors.Is(err, audit.ErrNotFound):
			status, body.Error = http.StatusNotFound, "audit not found"
		case errors.As(err, &verr):
			status, body.Error, body.Fields = http.StatusBadRequest, "validation failed", verr.Fields
		case errors.As(err, &bad):
			status, body.Error = http.StatusBadRequest, bad.Error()
		case errors.Is(err, audit.ErrPaymentRequired):
			status, body.Error = http.StatusPaymentRequired, audit.ErrPaymentRequired.Error()
		case errors.Is(err, audit.ErrRenderTimeout):
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
			status, body.Error = http.StatusServiceUnavailable, audit.ErrRenderTimeout.Error()
		case errors.Is(err, domai.ErrNotConfigured):
			status, body.Error = http.StatusNotImplemented, domai.ErrNotConfigured.Error()
		case errors.Is(err, domai.ErrQuotaExceeded):
			status, body.Error = http.StatusTooManyRequests, "ai quota exceeded"
		case errors.Is(err, audit.ErrRenderingFailed):
			status, body.Error = http.StatusInternalServerError, audit.ErrRenderingFailed.Error()
		default:
			body.Error = "internal error"
		}
		if status >= http.StatusInternalServerError {
			r.log.ErrorContext(req.Context(), "request failed",
				"path", req.URL.Path, "status", status, "error", err)
		}
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, req *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest{fmt.Errorf("invalid JSON body: %w", err)}
	}
	return nil
}

func auditID(req *http.Request) (audit.ID, error) {
	id, err := middleware.ParseAuditID(chi.URLParam(req, "id"))
	if err != nil {
		return 0, badRequest{err}
	}
	return id, nil
}

// GET /v1/questionnaire/{hazard}
func (r *Router) handleQuestionnaire(w http.ResponseWriter, req *http.Request) error {
	h, qs, err := r.audits.Questionnaire(chi.URLParam(req, "hazard"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"hazard": h, "questions": qs})
}

// GET /v1/grants?hazard=
func (r *Router) handleGrants(w http.ResponseWriter, req *http.Request) error {
	list, err := r.audits.Grants(req.URL.Query().Get("hazard"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/insurance?hazard=
func (r *Router) handleInsurance(w http.ResponseWriter, req *http.Request) error {
	list, err := r.audits.Insurance(req.URL.Query().Get("hazard"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /v1/audits
func (r *Router) handleCreate(w http.ResponseWriter, req *http.Request) error {
	var cmd appaudits.CreateCommand
	if err := decode(w, req, &cmd); err != nil {
		return err
	}
	a, err := r.audits.Create(req.Context(), cmd)
	if err != nil {
		return err
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/audits/%d", a.ID))
	return writeJSON(w, http.StatusCreated, a)
}

// GET /v1/audits/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := auditID(req)
	if err != nil {
		return err
	}
	a, err := r.audits.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// PATCH /v1/audits/{id}
func (r *Router) handleUpdate(w http.ResponseWriter, req *http.Request) error {
	id, err := auditID(req)
	if err != nil {
		return err
	}
	var cmd appaudits.UpdateCommand
	if err := decode(w, req, &cmd); err != nil {
		return err
	}
	a, err := r.audits.Update(req.Context(), id, cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// POST /v1/audits/{id}/payment
// Body: {"paymentRef": "<processor reference>"}
func (r *Router) handlePayment(w http.ResponseWriter, req *http.Request) error {
	id, err := auditID(req)
	if err != nil {
		return err
	}
	var body struct {
		PaymentRef string `json:"paymentRef"`
	}
	if err := decode(w, req, &body); err != nil {
		return err
	}
	a, err := r.audits.AttachPayment(req.Context(), id, middleware.SanitizeString(body.PaymentRef))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// GET /v1/audits/{id}/assessment
func (r *Router) handleAssessment(w http.ResponseWriter, req *http.Request) error {
	id, err := auditID(req)
	if err != nil {
		return err
	}
	p, err := r.audits.Assess(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

// GET /v1/audits/{id}/report?insights=true
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	id, err := auditID(req)
	if err != nil {
		return err
	}
	opts := appaudits.ReportOptions{Insights: middleware.ParseBool(req.URL.Query().Get("insights"))}
	rep, err := r.audits.GenerateReport(req.Context(), id, opts)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rep.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(rep.PDF)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(rep.PDF)
	if err != nil {
		r.log.WarnContext(req.Context(), "report download interrupted", "audit_id", id, "error", err)
	}
	return nil
}

// GET /v1/admin/audits/recent?limit=20
func (r *Router) handleRecent(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.audits.Recent(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if list == nil {
		list = []*audit.Audit{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /v1/admin/cleanup?days=30
func (r *Router) handleCleanup(w http.ResponseWriter, req *http.Request) error {
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	days = middleware.ValidateDays(days)
	n, err := r.audits.Cleanup(req.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"deleted": n, "olderThanDays": days})
}
