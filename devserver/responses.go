package devserver

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jrsteele09/appo-client/internal/errors"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json"

// Error codes returned in the body of failed requests
const (
	codeInvalidRequest     = "INVALID_REQUEST"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeUserInactive       = "USER_INACTIVE"
	codeUnauthorized       = "UNAUTHORIZED"
	codeTokenExpired       = "TOKEN_EXPIRED"
	codeInvalidRefresh     = "INVALID_REFRESH_TOKEN"
	codeForbidden          = "FORBIDDEN"
	codeNotFound           = "NOT_FOUND"
	codeInternal           = "INTERNAL_ERROR"
)

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Message: message, Code: code})
}

// writeDomainError maps a repository error onto a status and error code.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidCredentials), apperrors.Is(err, apperrors.ErrRoleMismatch):
		writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "Invalid credentials")
	case apperrors.Is(err, apperrors.ErrUserInactive):
		writeError(w, http.StatusForbidden, codeUserInactive, "Account is inactive")
	case apperrors.Is(err, apperrors.ErrInvalidRefreshToken), apperrors.Is(err, apperrors.ErrRefreshTokenExpired):
		writeError(w, http.StatusUnauthorized, codeInvalidRefresh, "Invalid refresh token")
	case apperrors.Is(err, apperrors.ErrNotFound), apperrors.Is(err, apperrors.ErrUserNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "Not found")
	case apperrors.Is(err, apperrors.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	default:
		log.Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "decode body: %v", err)
	}
	return nil
}
