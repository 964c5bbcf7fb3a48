package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/ledger"
)

// AccountService defines the registry operations needed by AccountHandler
type AccountService interface {
	CreateAccount(ctx context.Context, spec ledger.AccountSpec) (*ledger.Account, error)
	UpdateAccount(ctx context.Context, id uuid.UUID, patch ledger.AccountPatch) (*ledger.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*ledger.Account, error)
	GetByCode(ctx context.Context, code string) (*ledger.Account, error)
	GetByType(ctx context.Context, t ledger.AccountType) ([]*ledger.Account, error)
	ListAccounts(ctx context.Context) ([]*ledger.Account, error)
	BootstrapChart(ctx context.Context) (created []string, warnings []string, err error)
}

// AccountVerifier checks a stored balance against the entry log.
type AccountVerifier interface {
	VerifyAccount(ctx context.Context, accountID uuid.UUID) error
	Holds() map[uuid.UUID]string
	ReleaseAccount(accountID uuid.UUID)
}

// AccountHandler handles chart-of-accounts HTTP requests
type AccountHandler struct {
	registry AccountService
	verifier AccountVerifier
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(registry AccountService, verifier AccountVerifier) *AccountHandler {
	return &AccountHandler{registry: registry, verifier: verifier}
}

// CreateAccountRequest represents the account creation request
type CreateAccountRequest struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Category string  `json:"category,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
}

// UpdateAccountRequest represents the account update request. Omitted fields
// are left unchanged.
type UpdateAccountRequest struct {
	Code     *string `json:"code,omitempty"`
	Name     *string `json:"name,omitempty"`
	Type     *string `json:"type,omitempty"`
	Category *string `json:"category,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string  `json:"id"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Category  string  `json:"category"`
	ParentID  *string `json:"parent_id,omitempty"`
	IsActive  bool    `json:"is_active"`
	Balance   string  `json:"balance"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// CreateAccount handles POST /accounts
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	spec := ledger.AccountSpec{
		Code:     req.Code,
		Name:     req.Name,
		Type:     ledger.AccountType(req.Type),
		Category: ledger.AccountCategory(req.Category),
	}

	if req.ParentID != nil && *req.ParentID != "" {
		parentID, err := uuid.Parse(*req.ParentID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid parent_id")
			return
		}
		spec.ParentID = &parentID
	}

	account, err := h.registry.CreateAccount(r.Context(), spec)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, toAccountResponse(account))
}

// UpdateAccount handles PUT /accounts/{id}
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid account ID")
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := ledger.AccountPatch{
		Name:     req.Name,
		Code:     req.Code,
		IsActive: req.IsActive,
	}
	if req.Type != nil {
		t := ledger.AccountType(*req.Type)
		patch.Type = &t
	}
	if req.Category != nil {
		c := ledger.AccountCategory(*req.Category)
		patch.Category = &c
	}
	if req.ParentID != nil && *req.ParentID != "" {
		parentID, err := uuid.Parse(*req.ParentID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid parent_id")
			return
		}
		patch.ParentID = &parentID
	}

	account, err := h.registry.UpdateAccount(r.Context(), id, patch)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toAccountResponse(account))
}

// GetAccount handles GET /accounts/{id}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid account ID")
		return
	}

	account, err := h.registry.GetAccount(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toAccountResponse(account))
}

// ListAccounts handles GET /accounts with optional code and type filters
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if code := query.Get("code"); code != "" {
		account, err := h.registry.GetByCode(r.Context(), code)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, []AccountResponse{toAccountResponse(account)})
		return
	}

	var accounts []*ledger.Account
	var err error
	if t := query.Get("type"); t != "" {
		accounts, err = h.registry.GetByType(r.Context(), ledger.AccountType(t))
	} else {
		accounts, err = h.registry.ListAccounts(r.Context())
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}

	responses := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		responses[i] = toAccountResponse(a)
	}

	respondWithJSON(w, http.StatusOK, responses)
}

// BootstrapChart handles POST /accounts/bootstrap and idempotently seeds the
// standard chart of accounts.
func (h *AccountHandler) BootstrapChart(w http.ResponseWriter, r *http.Request) {
	created, warnings, err := h.registry.BootstrapChart(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"created":  created,
		"warnings": warnings,
	})
}

// VerifyAccount handles POST /accounts/{id}/verify and replays the entry log
// against the stored balance.
func (h *AccountHandler) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid account ID")
		return
	}

	if err := h.verifier.VerifyAccount(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// ListHolds handles GET /accounts/holds
func (h *AccountHandler) ListHolds(w http.ResponseWriter, r *http.Request) {
	holds := h.verifier.Holds()
	out := make(map[string]string, len(holds))
	for id, reason := range holds {
		out[id.String()] = reason
	}
	respondWithJSON(w, http.StatusOK, out)
}

// ReleaseHold handles DELETE /accounts/{id}/hold
func (h *AccountHandler) ReleaseHold(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid account ID")
		return
	}

	h.verifier.ReleaseAccount(id)
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

func toAccountResponse(a *ledger.Account) AccountResponse {
	resp := AccountResponse{
		ID:        a.ID.String(),
		Code:      a.Code,
		Name:      a.Name,
		Type:      string(a.Type),
		Category:  string(a.Category),
		IsActive:  a.IsActive,
		Balance:   a.Balance.StringFixed(2),
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
	if a.ParentID != nil {
		s := a.ParentID.String()
		resp.ParentID = &s
	}
	return resp
}
