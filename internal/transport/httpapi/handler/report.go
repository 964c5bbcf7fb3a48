package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/report"
)

// ReportService defines the statement operations needed by ReportHandler
type ReportService interface {
	TrialBalance(ctx context.Context, asOf time.Time) (*report.TrialBalance, error)
	BalanceSheet(ctx context.Context, asOf time.Time) (*report.BalanceSheet, error)
	IncomeStatement(ctx context.Context, start, end time.Time) (*report.IncomeStatement, error)
	CashFlowStatement(ctx context.Context, start, end time.Time) (*report.CashFlowStatement, error)
}

// ReportHandler handles financial statement HTTP requests
type ReportHandler struct {
	engine ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(engine ReportService) *ReportHandler {
	return &ReportHandler{engine: engine}
}

// GetTrialBalance handles GET /reports/trial-balance
func (h *ReportHandler) GetTrialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, ok := parseAsOf(w, r)
	if !ok {
		return
	}

	tb, err := h.engine.TrialBalance(r.Context(), asOf)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tb)
}

// GetBalanceSheet handles GET /reports/balance-sheet
func (h *ReportHandler) GetBalanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, ok := parseAsOf(w, r)
	if !ok {
		return
	}

	bs, err := h.engine.BalanceSheet(r.Context(), asOf)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, bs)
}

// GetIncomeStatement handles GET /reports/income-statement
func (h *ReportHandler) GetIncomeStatement(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parsePeriod(w, r)
	if !ok {
		return
	}

	is, err := h.engine.IncomeStatement(r.Context(), start, end)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, is)
}

// GetCashFlowStatement handles GET /reports/cash-flow
func (h *ReportHandler) GetCashFlowStatement(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parsePeriod(w, r)
	if !ok {
		return
	}

	cf, err := h.engine.CashFlowStatement(r.Context(), start, end)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, cf)
}

// parseAsOf reads the as_of query parameter, defaulting to now.
func parseAsOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	s := r.URL.Query().Get("as_of")
	if s == "" {
		return time.Now(), true
	}
	asOf, err := time.Parse(time.RFC3339, s)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid as_of format (use RFC3339)")
		return time.Time{}, false
	}
	return asOf, true
}

// parsePeriod reads the required start_date and end_date query parameters.
func parsePeriod(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	query := r.URL.Query()

	start, err := time.Parse(time.RFC3339, query.Get("start_date"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid start_date format (use RFC3339)")
		return time.Time{}, time.Time{}, false
	}

	end, err := time.Parse(time.RFC3339, query.Get("end_date"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid end_date format (use RFC3339)")
		return time.Time{}, time.Time{}, false
	}

	if end.Before(start) {
		respondWithError(w, http.StatusBadRequest, "end_date precedes start_date")
		return time.Time{}, time.Time{}, false
	}

	return start, end, true
}
