package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"agency-admin/internal/audit"
	costapp "agency-admin/internal/coststandard/application"
	coststandard "agency-admin/internal/coststandard/domain"
	"agency-admin/internal/observability/metrics"
	"agency-admin/internal/versioning"
)

const basePath = "/api/v1/cost-standards"

// StatusLabeler maps a status code to a display label.
type StatusLabeler interface {
	Label(status string) string
}

// Handler provides cost standard HTTP endpoints.
type Handler struct {
	service     *costapp.Service
	labels      StatusLabeler
	auditLogger audit.Logger
	logger      zerolog.Logger
	pdfFont     string
}

// Option customizes the handler.
type Option func(*Handler)

// WithPDFFont sets a TrueType font for PDF exports so non-Latin levels and
// status labels render.
func WithPDFFont(path string) Option {
	return func(h *Handler) {
		h.pdfFont = strings.TrimSpace(path)
	}
}

// NewHandler constructs a handler.
func NewHandler(service *costapp.Service, labels StatusLabeler, auditLogger audit.Logger, logger zerolog.Logger, opts ...Option) (*Handler, error) {
	if service == nil {
		return nil, errors.New("cost standard handler: nil service")
	}
	h := &Handler{service: service, labels: labels, auditLogger: auditLogger, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// ServeHTTP handles /api/v1/cost-standards and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == basePath:
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case strings.HasPrefix(path, basePath+"/"):
		rest := strings.TrimPrefix(path, basePath+"/")
		if rest == "" || strings.Contains(rest, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.handleSubroute(w, r, rest)
		return
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleSubroute(w http.ResponseWriter, r *http.Request, rest string) {
	switch rest {
	case "active":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleActive(w, r)
		return
	case "export.xlsx":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExport(w, r, "xlsx")
		return
	case "export.pdf":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExport(w, r, "pdf")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, rest)
	case http.MethodPut, http.MethodPatch:
		h.handleUpdate(w, r, rest)
	case http.MethodDelete:
		h.handleDelete(w, r, rest)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type standardView struct {
	ID            string          `json:"id"`
	EmployeeLevel string          `json:"employee_level"`
	CityType      string          `json:"city_type"`
	EffectiveFrom versioning.Date `json:"effective_from"`
	DailyCost     decimal.Decimal `json:"daily_cost"`
	Currency      string          `json:"currency"`
	Remark        string          `json:"remark,omitempty"`
	Status        string          `json:"status,omitempty"`
	StatusLabel   string          `json:"status_label,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type groupView struct {
	EmployeeLevel string `json:"employee_level"`
	CityType      string `json:"city_type"`
}

type listResponse struct {
	AsOf      versioning.Date `json:"as_of"`
	Items     []standardView  `json:"items"`
	Conflicts []groupView     `json:"conflicts"`
}

func (h *Handler) toView(item coststandard.CostStandard, status versioning.Status) standardView {
	view := standardView{
		ID:            item.ID,
		EmployeeLevel: item.Key.EmployeeLevel,
		CityType:      string(item.Key.CityType),
		EffectiveFrom: item.EffectiveFrom,
		DailyCost:     item.DailyCost,
		Currency:      item.Currency,
		Remark:        item.Remark,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
	if status != "" {
		view.Status = string(status)
		view.StatusLabel = labelOf(h.labels, string(status))
	}
	return view
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	query, err := parseListQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := h.service.List(r.Context(), query)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	resp := listResponse{
		AsOf:      result.AsOf,
		Items:     make([]standardView, 0, len(result.Items)),
		Conflicts: make([]groupView, 0, len(result.Conflicts)),
	}
	for _, item := range result.Items {
		resp.Items = append(resp.Items, h.toView(item.CostStandard, item.Status))
	}
	for _, key := range result.Conflicts {
		resp.Conflicts = append(resp.Conflicts, groupView{EmployeeLevel: key.EmployeeLevel, CityType: string(key.CityType)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := coststandard.NewGroupKey(q.Get("employee_level"), q.Get("city_type"))
	if err := key.Validate(); err != nil {
		http.Error(w, "employee_level and city_type are required", http.StatusBadRequest)
		return
	}
	asOf, err := parseDateQuery(r, "as_of")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	active, err := h.service.ActiveDailyCost(r.Context(), key, asOf)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toView(active.CostStandard, active.Status))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toView(item.CostStandard, item.Status))
}

type createRequest struct {
	EmployeeLevel string          `json:"employee_level"`
	CityType      string          `json:"city_type"`
	EffectiveFrom versioning.Date `json:"effective_from"`
	DailyCost     decimal.Decimal `json:"daily_cost"`
	Currency      string          `json:"currency"`
	Remark        string          `json:"remark"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	item, err := h.service.Create(r.Context(), costapp.CreateInput{
		EmployeeLevel: req.EmployeeLevel,
		CityType:      req.CityType,
		EffectiveFrom: req.EffectiveFrom,
		DailyCost:     req.DailyCost,
		Currency:      req.Currency,
		Remark:        req.Remark,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toView(*item, ""))
	h.logAudit(r, item.ID, "cost_standard.create", map[string]any{
		"employee_level": item.Key.EmployeeLevel,
		"city_type":      item.Key.CityType,
		"effective_from": item.EffectiveFrom,
		"daily_cost":     item.DailyCost,
	})
}

type updateRequest struct {
	EmployeeLevel *string          `json:"employee_level"`
	CityType      *string          `json:"city_type"`
	EffectiveFrom *versioning.Date `json:"effective_from"`
	DailyCost     *decimal.Decimal `json:"daily_cost"`
	Currency      *string          `json:"currency"`
	Remark        *string          `json:"remark"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	item, err := h.service.Update(r.Context(), id, costapp.UpdateInput(req))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toView(*item, ""))
	h.logAudit(r, item.ID, "cost_standard.update", map[string]any{
		"effective_from": item.EffectiveFrom,
		"daily_cost":     item.DailyCost,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, id, "cost_standard.delete", nil)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, format string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport(format, result, time.Since(start))
	}()

	query, err := parseListQuery(r)
	if err != nil {
		result = metrics.ResultError
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.service.List(r.Context(), query)
	if err != nil {
		result = metrics.ResultError
		h.respondServiceError(w, err)
		return
	}

	var (
		data        []byte
		contentType string
	)
	switch format {
	case "pdf":
		data, err = BuildCostStandardsPDF(list, PDFOptions{FontPath: h.pdfFont, Labels: h.labels})
		contentType = "application/pdf"
	default:
		data, err = BuildCostStandardsXLSX(list, h.labels)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		result = metrics.ResultError
		h.logger.Error().Err(err).Str("format", format).Msg("cost standard export failed")
		http.Error(w, "export "+format+" error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="cost-standards-`+list.AsOf.String()+`.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, "", "cost_standard.export", map[string]any{"format": format, "as_of": list.AsOf})
}

func (h *Handler) logAudit(r *http.Request, resourceID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	var metadata any
	if meta != nil {
		metadata = meta
	}
	entry, err := audit.FromRequest(r, h.service.TenantFor(r.Context()), action, "cost_standard", resourceID, metadata)
	if err == nil {
		err = h.auditLogger.Log(r.Context(), entry)
	}
	if err != nil {
		h.logger.Warn().Err(err).Str("action", action).Msg("audit log failed")
	}
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, coststandard.ErrNotFound), errors.Is(err, costapp.ErrNoActiveStandard):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, costapp.ErrAmbiguousStandard):
		http.Error(w, err.Error(), http.StatusConflict)
	case coststandard.IsValidation(err), errors.Is(err, versioning.ErrInvalidDate), errors.Is(err, coststandard.ErrEmptyID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error().Err(err).Msg("cost standard request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseListQuery(r *http.Request) (costapp.ListQuery, error) {
	q := r.URL.Query()
	asOf, err := parseDateQuery(r, "as_of")
	if err != nil {
		return costapp.ListQuery{}, err
	}
	query := costapp.ListQuery{
		AsOf:          asOf,
		EmployeeLevel: q.Get("employee_level"),
		CityType:      q.Get("city_type"),
	}
	if raw := q.Get("status"); raw != "" {
		status, ok := versioning.ParseStatus(raw)
		if !ok {
			return costapp.ListQuery{}, errors.New("status must be active, superseded or pending")
		}
		query.Status = status
	}
	return query, nil
}

// parseDateQuery returns the zero date when the parameter is absent.
func parseDateQuery(r *http.Request, key string) (versioning.Date, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return versioning.Date{}, nil
	}
	parsed, err := versioning.ParseDate(value)
	if err != nil {
		return versioning.Date{}, errors.New(key + " must be YYYY-MM-DD")
	}
	return parsed, nil
}

func labelOf(labels StatusLabeler, status string) string {
	if labels == nil {
		return status
	}
	return labels.Label(status)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
