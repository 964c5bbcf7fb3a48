package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/ledger"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/transport/httpapi/middleware"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/money"
)

// EntryService defines the posting operations needed by EntryHandler
type EntryService interface {
	CreateEntry(ctx context.Context, draft *ledger.EntryDraft) (*ledger.JournalEntry, error)
	PostEntry(ctx context.Context, id uuid.UUID) error
	GetEntry(ctx context.Context, id uuid.UUID) (*ledger.JournalEntry, error)
	ListEntries(ctx context.Context, filters ledger.EntryFilters) ([]*ledger.JournalEntry, error)
}

// EntryHandler handles journal entry HTTP requests
type EntryHandler struct {
	poster EntryService
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(poster EntryService) *EntryHandler {
	return &EntryHandler{poster: poster}
}

// EntryLineRequest is one line of an entry creation request. Amounts are
// decimal strings; exactly one side must be non-zero.
type EntryLineRequest struct {
	AccountID string `json:"account_id"`
	Debit     string `json:"debit,omitempty"`
	Credit    string `json:"credit,omitempty"`
}

// CreateEntryRequest represents the entry creation request
type CreateEntryRequest struct {
	Date        string             `json:"date"` // RFC3339
	Description string             `json:"description"`
	Reference   string             `json:"reference,omitempty"`
	TotalDebit  string             `json:"total_debit,omitempty"`
	TotalCredit string             `json:"total_credit,omitempty"`
	Lines       []EntryLineRequest `json:"lines"`
}

// EntryLineResponse represents one line in API responses
type EntryLineResponse struct {
	AccountID  string `json:"account_id"`
	Debit      string `json:"debit"`
	Credit     string `json:"credit"`
	LineNumber int    `json:"line_number"`
}

// EntryResponse represents a journal entry in API responses
type EntryResponse struct {
	ID          string              `json:"id"`
	EntryNumber string              `json:"entry_number"`
	Date        string              `json:"date"`
	Description string              `json:"description"`
	Reference   string              `json:"reference,omitempty"`
	Lines       []EntryLineResponse `json:"lines"`
	IsPosted    bool                `json:"is_posted"`
	CreatedBy   string              `json:"created_by"`
	CreatedAt   string              `json:"created_at"`
	PostedAt    *string             `json:"posted_at,omitempty"`
}

// CreateEntry handles POST /entries
func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	header := ledger.EntryHeader{
		Description: req.Description,
		Reference:   req.Reference,
		CreatedBy:   actor,
	}

	if req.Date != "" {
		date, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid date format (use RFC3339)")
			return
		}
		header.Date = date
	}

	var err error
	if header.TotalDebit, err = parseAmount(req.TotalDebit); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid total_debit")
		return
	}
	if header.TotalCredit, err = parseAmount(req.TotalCredit); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid total_credit")
		return
	}

	lines := make([]ledger.DraftLine, 0, len(req.Lines))
	for i, l := range req.Lines {
		accountID, err := uuid.Parse(l.AccountID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid account_id on line "+strconv.Itoa(i+1))
			return
		}
		debit, err := parseAmount(l.Debit)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid debit on line "+strconv.Itoa(i+1))
			return
		}
		credit, err := parseAmount(l.Credit)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid credit on line "+strconv.Itoa(i+1))
			return
		}
		lines = append(lines, ledger.DraftLine{AccountID: accountID, Debit: debit, Credit: credit})
	}

	draft, err := ledger.NewEntryDraft(header, lines)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	entry, err := h.poster.CreateEntry(r.Context(), draft)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, toEntryResponse(entry))
}

// PostEntry handles POST /entries/{id}/post
func (h *EntryHandler) PostEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid entry ID")
		return
	}

	if err := h.poster.PostEntry(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	entry, err := h.poster.GetEntry(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toEntryResponse(entry))
}

// GetEntry handles GET /entries/{id}
func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid entry ID")
		return
	}

	entry, err := h.poster.GetEntry(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toEntryResponse(entry))
}

// ListEntries handles GET /entries
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(query.Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filters := ledger.EntryFilters{
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}

	if s := query.Get("posted"); s != "" {
		posted, err := strconv.ParseBool(s)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid posted filter")
			return
		}
		filters.Posted = &posted
	}

	if s := query.Get("account_id"); s != "" {
		accountID, err := uuid.Parse(s)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid account_id")
			return
		}
		filters.AccountID = &accountID
	}

	if s := query.Get("start_date"); s != "" {
		from, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid start_date format (use RFC3339)")
			return
		}
		filters.From = &from
	}

	if s := query.Get("end_date"); s != "" {
		to, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid end_date format (use RFC3339)")
			return
		}
		filters.To = &to
	}

	entries, err := h.poster.ListEntries(r.Context(), filters)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	responses := make([]EntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = toEntryResponse(e)
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"entries":   responses,
		"page":      page,
		"page_size": pageSize,
	})
}

// parseAmount parses a decimal amount string, rounded to the cent. Empty
// means zero.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return money.Zero, nil
	}
	return money.Parse(s)
}

func toEntryResponse(e *ledger.JournalEntry) EntryResponse {
	resp := EntryResponse{
		ID:          e.ID.String(),
		EntryNumber: e.EntryNumber,
		Date:        e.Date.Format(time.RFC3339),
		Description: e.Description,
		Reference:   e.Reference,
		IsPosted:    e.IsPosted,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
	if e.PostedAt != nil {
		s := e.PostedAt.Format(time.RFC3339)
		resp.PostedAt = &s
	}
	for _, l := range e.Lines {
		resp.Lines = append(resp.Lines, EntryLineResponse{
			AccountID:  l.AccountID.String(),
			Debit:      l.Debit.StringFixed(2),
			Credit:     l.Credit.StringFixed(2),
			LineNumber: l.LineNumber,
		})
	}
	return resp
}
