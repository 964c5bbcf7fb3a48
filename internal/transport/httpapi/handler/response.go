package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/ledger"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/reconcile"
	sharederrors "github.com/NXConner/blacktop-blueprint-ai-sub001/internal/shared/errors"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError sends an error response
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

// respondDomainError maps domain errors onto HTTP status codes. Unknown
// errors fall through to 500 with a generic message so internals never leak.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrEntryNotFound),
		errors.Is(err, ledger.ErrParentNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrDuplicateCode),
		errors.Is(err, ledger.ErrAlreadyPosted),
		errors.Is(err, ledger.ErrAccountReferenced):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrUnbalanced),
		errors.Is(err, ledger.ErrTooFewLines),
		errors.Is(err, ledger.ErrLineTotalMismatch),
		errors.Is(err, ledger.ErrMixedLine),
		errors.Is(err, ledger.ErrEmptyLine),
		errors.Is(err, ledger.ErrNegativeAmount),
		errors.Is(err, ledger.ErrLineAccountRequired),
		errors.Is(err, ledger.ErrInvalidAccountCode),
		errors.Is(err, ledger.ErrInvalidAccountName),
		errors.Is(err, ledger.ErrInvalidAccountType),
		errors.Is(err, ledger.ErrInvalidCategory),
		errors.Is(err, ledger.ErrCategoryTypeMismatch),
		errors.Is(err, ledger.ErrInvalidParentType),
		errors.Is(err, ledger.ErrHierarchyCycle),
		errors.Is(err, ledger.ErrAccountInactive),
		errors.Is(err, ledger.ErrAccountHeld),
		errors.Is(err, reconcile.ErrNotCashAccount):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		if appErr := sharederrors.GetAppError(err); appErr != nil && appErr.Code == sharederrors.ErrCodeConsistencyFault {
			respondWithJSON(w, http.StatusInternalServerError, ErrorResponse{Error: appErr.Message, Code: appErr.Code})
			return
		}
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
