package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/famvault/famvault/internal/chainclient"
	"github.com/famvault/famvault/internal/family"
	"github.com/famvault/famvault/internal/transfer"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorBody{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeDomainError maps the domain error taxonomy onto HTTP. Insufficient
// balance is not handled here: it is a 200-level outcome, not an error.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, family.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "duplicate_email", "email already registered")
	case errors.Is(err, family.ErrNoDependents):
		writeError(w, http.StatusConflict, "no_dependents", "guardian has no dependents to share")
	case errors.Is(err, family.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, "member_not_found", "no such family member")
	case errors.Is(err, family.ErrBadCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid reference or password")
	case errors.Is(err, transfer.ErrWrongPassword):
		writeError(w, http.StatusUnauthorized, "wrong_password", "confirmation password does not match")
	case errors.Is(err, transfer.ErrUnrecognizedAsset):
		writeError(w, http.StatusBadRequest, "unrecognized_token", "unsupported token kind")
	case errors.Is(err, chainclient.ErrBroadcastRejected):
		writeError(w, http.StatusBadGateway, "broadcast_rejected", "node rejected the transaction")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
