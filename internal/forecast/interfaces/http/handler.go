package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	costapp "agency-admin/internal/coststandard/application"
	coststandard "agency-admin/internal/coststandard/domain"
	forecast "agency-admin/internal/forecast/application"
	"agency-admin/internal/versioning"
)

// Handler serves /api/v1/forecasts/staffing.
type Handler struct {
	estimator *forecast.Estimator
	logger    zerolog.Logger
}

// NewHandler constructs a handler.
func NewHandler(estimator *forecast.Estimator, logger zerolog.Logger) (*Handler, error) {
	if estimator == nil {
		return nil, errors.New("forecast handler: nil estimator")
	}
	return &Handler{estimator: estimator, logger: logger}, nil
}

type lineRequest struct {
	EmployeeLevel string          `json:"employee_level"`
	CityType      string          `json:"city_type"`
	Days          decimal.Decimal `json:"days"`
	On            versioning.Date `json:"on"`
}

type staffingRequest struct {
	Lines []lineRequest `json:"lines"`
}

type lineResponse struct {
	EmployeeLevel string          `json:"employee_level"`
	CityType      string          `json:"city_type"`
	Days          decimal.Decimal `json:"days"`
	On            versioning.Date `json:"on"`
	StandardID    string          `json:"standard_id"`
	DailyCost     decimal.Decimal `json:"daily_cost"`
	Amount        decimal.Decimal `json:"amount"`
}

type staffingResponse struct {
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
	Lines    []lineResponse  `json:"lines"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req staffingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	lines := make([]forecast.StaffingLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, forecast.StaffingLine{
			EmployeeLevel: line.EmployeeLevel,
			CityType:      line.CityType,
			Days:          line.Days,
			On:            line.On,
		})
	}

	estimate, err := h.estimator.Estimate(r.Context(), lines)
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp := staffingResponse{
		Currency: estimate.Currency,
		Total:    estimate.Total,
		Lines:    make([]lineResponse, 0, len(estimate.Lines)),
	}
	for _, line := range estimate.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			EmployeeLevel: line.EmployeeLevel,
			CityType:      line.CityType,
			Days:          line.Days,
			On:            line.On,
			StandardID:    line.StandardID,
			DailyCost:     line.DailyCost,
			Amount:        line.Amount,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, forecast.ErrEmptyPlan), errors.Is(err, forecast.ErrInvalidDays), coststandard.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, costapp.ErrAmbiguousStandard):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, costapp.ErrNoActiveStandard), errors.Is(err, forecast.ErrMixedCurrency):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.logger.Error().Err(err).Msg("staffing forecast failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
