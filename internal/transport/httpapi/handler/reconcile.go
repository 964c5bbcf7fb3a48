package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/reconcile"
)

// ReconcileService defines the reconciliation operation needed by ReconcileHandler
type ReconcileService interface {
	Reconcile(ctx context.Context, stmt reconcile.Statement) (*reconcile.Result, error)
}

// ReconcileHandler handles bank reconciliation HTTP requests
type ReconcileHandler struct {
	engine ReconcileService
}

// NewReconcileHandler creates a new reconcile handler
func NewReconcileHandler(engine ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{engine: engine}
}

// ReconcileItemRequest is one outstanding item on a bank statement
type ReconcileItemRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date,omitempty"` // RFC3339
}

// ReconcileRequest represents a bank reconciliation request
type ReconcileRequest struct {
	AccountID           string                 `json:"account_id"`
	StatementDate       string                 `json:"statement_date"` // RFC3339
	StatementBalance    string                 `json:"statement_balance"`
	OutstandingDeposits []ReconcileItemRequest `json:"outstanding_deposits,omitempty"`
	OutstandingChecks   []ReconcileItemRequest `json:"outstanding_checks,omitempty"`
	Adjustments         []ReconcileItemRequest `json:"adjustments,omitempty"`
}

// Reconcile handles POST /reconcile
func (h *ReconcileHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid account_id")
		return
	}

	statementDate, err := time.Parse(time.RFC3339, req.StatementDate)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid statement_date format (use RFC3339)")
		return
	}

	statementBalance, err := parseAmount(req.StatementBalance)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid statement_balance")
		return
	}

	stmt := reconcile.Statement{
		AccountID:        accountID,
		StatementDate:    statementDate,
		StatementBalance: statementBalance,
	}

	if stmt.OutstandingDeposits, err = parseItems(req.OutstandingDeposits); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid outstanding_deposits")
		return
	}
	if stmt.OutstandingChecks, err = parseItems(req.OutstandingChecks); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid outstanding_checks")
		return
	}
	if stmt.Adjustments, err = parseItems(req.Adjustments); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid adjustments")
		return
	}

	result, err := h.engine.Reconcile(r.Context(), stmt)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func parseItems(reqs []ReconcileItemRequest) ([]reconcile.Item, error) {
	items := make([]reconcile.Item, 0, len(reqs))
	for _, r := range reqs {
		amount, err := parseAmount(r.Amount)
		if err != nil {
			return nil, err
		}
		item := reconcile.Item{Description: r.Description, Amount: amount}
		if r.Date != "" {
			date, err := time.Parse(time.RFC3339, r.Date)
			if err != nil {
				return nil, err
			}
			item.Date = date
		}
		items = append(items, item)
	}
	return items, nil
}
