package pipeline

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// Handler serves the aggregation views over HTTP.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates the HTTP handler for the pipeline views.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes registers the pipeline routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/capacity/sites", h.handleSiteCapacity)
	mux.HandleFunc("GET /api/v1/capacity/critical", h.handleCriticalSites)
	mux.HandleFunc("GET /api/v1/alerts/engineering", h.handleEngineeringAlerts)
	mux.HandleFunc("GET /api/v1/cost/analysis", h.handleCostAnalysis)
	mux.HandleFunc("GET /api/v1/summary/executive", h.handleExecutiveSummary)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.handleCacheInvalidate)
}

// handleSiteCapacity returns per-site and per-plaza capacity rollups.
// Optional ?plaza= filters to one plaza (aliases accepted).
func (h *Handler) handleSiteCapacity(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.SiteCapacity(r.Context(), r.URL.Query().Get("plaza"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleCriticalSites returns sites classified critical, worst first.
// Optional ?threshold= overrides the utilization gate; optional ?limit=
// caps the number of sites returned.
func (h *Handler) handleCriticalSites(w http.ResponseWriter, r *http.Request) {
	var thresholdVal float64
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > 100 {
			writeError(w, http.StatusBadRequest, "threshold must be a number in (0, 100]", r.URL.Path)
			return
		}
		thresholdVal = v
	}

	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", r.URL.Path)
			return
		}
		limit = v
	}

	view, err := h.svc.CriticalSites(r.Context(), limit, thresholdVal)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleEngineeringAlerts returns threshold-breach alerts for the
// current pass. Optional ?period= is echoed into the view.
func (h *Handler) handleEngineeringAlerts(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.EngineeringAlerts(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleCostAnalysis returns cost-per-Mbps records and the spend
// summary. Optional ?period= is echoed into the view.
func (h *Handler) handleCostAnalysis(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.CostAnalysis(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleExecutiveSummary returns the narrative rollup. Optional ?plaza=
// scopes it to one plaza.
func (h *Handler) handleExecutiveSummary(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.ExecutiveSummary(r.Context(), r.URL.Query().Get("plaza"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// cacheInvalidateRequest is the body for POST /cache/invalidate. An
// empty prefix clears the whole cache.
type cacheInvalidateRequest struct {
	Prefix string `json:"prefix"`
}

// cacheInvalidateResponse reports how many entries were removed.
type cacheInvalidateResponse struct {
	Prefix  string `json:"prefix"`
	Removed int    `json:"removed"`
}

func (h *Handler) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	var req cacheInvalidateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body", r.URL.Path)
			return
		}
	}

	removed := h.svc.InvalidateCache(r.Context(), req.Prefix)
	writeJSON(w, http.StatusOK, cacheInvalidateResponse{Prefix: req.Prefix, Removed: removed})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("pipeline view failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "view computation failed", r.URL.Path)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError writes an RFC 7807 problem detail response.
func writeError(w http.ResponseWriter, status int, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":     "https://vigia.nocmx.dev/problems/" + problemSlug(status),
		"title":    http.StatusText(status),
		"status":   status,
		"detail":   detail,
		"instance": instance,
	})
}

func problemSlug(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad-request"
	case http.StatusNotFound:
		return "not-found"
	default:
		return "internal-error"
	}
}
