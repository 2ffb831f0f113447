package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"lendledger/native/common"
	"lendledger/native/lending"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps ledger errors onto HTTP status codes. Precondition failures
// are client errors; balance, solvency and liquidity rejections are conflicts
// with current ledger state.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lending.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, lending.ErrInvalidAmount),
		errors.Is(err, lending.ErrAssetNotSupported),
		errors.Is(err, lending.ErrSelfLiquidation),
		errors.Is(err, lending.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrModulePaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, lending.ErrInsufficientBalance),
		errors.Is(err, lending.ErrInsufficientLiquidity),
		errors.Is(err, lending.ErrSolvencyViolation),
		errors.Is(err, lending.ErrNoDebtToRepay),
		errors.Is(err, lending.ErrNotLiquidatable),
		errors.Is(err, lending.ErrFlashCreditUnrepaid),
		errors.Is(err, lending.ErrReentrancy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
