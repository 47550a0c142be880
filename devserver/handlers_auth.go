package devserver

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/appo-client/api"
	apperrors "github.com/jrsteele09/appo-client/internal/errors"
	"github.com/jrsteele09/appo-client/users"
	"github.com/rs/zerolog/log"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "app": s.config.GetAppName()})
	}
}

// LoginHandler exchanges credentials for an access token and a refresh token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds users.Credentials
		if err := decodeJSON(w, r, &creds); err != nil {
			writeDomainError(w, err)
			return
		}
		if err := creds.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
			return
		}

		user, err := s.users.Authenticate(creds)
		if err != nil {
			// Don't reveal which check failed
			log.Debug().Err(err).Str("email", creds.Email).Msg("login rejected")
			writeDomainError(w, err)
			return
		}
		s.issueSession(w, http.StatusOK, user)
	}
}

// RegisterHandler creates an account and signs it in.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reg users.Registration
		if err := decodeJSON(w, r, &reg); err != nil {
			writeDomainError(w, err)
			return
		}
		if err := reg.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
			return
		}

		user, err := s.users.Add(users.User{
			Email:     reg.Email,
			FirstName: reg.FirstName,
			LastName:  reg.LastName,
			Role:      reg.UserType,
			IsActive:  true,
		}, reg.Password, s.now())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		s.issueSession(w, http.StatusCreated, user)
	}
}

// RefreshHandler rotates a refresh token. The presented token is spent.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeDomainError(w, err)
			return
		}
		if req.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "refreshToken is required")
			return
		}

		userID, next, err := s.refresh.Rotate(req.RefreshToken)
		if err != nil {
			log.Debug().Err(err).Msg("refresh rejected")
			writeDomainError(w, err)
			return
		}
		user, err := s.users.GetByID(userID)
		if err != nil {
			s.refresh.Revoke(next)
			writeDomainError(w, apperrors.Wrapf(apperrors.ErrInvalidRefreshToken, "owner %s", userID))
			return
		}
		if !user.IsActive {
			s.refresh.Revoke(next)
			writeDomainError(w, apperrors.ErrUserInactive)
			return
		}

		access, err := s.issuer.CreateAccessToken(user)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, refreshResponse{AccessToken: access, RefreshToken: next})
	}
}

// LogoutHandler revokes the presented refresh token and, when a valid bearer
// token accompanies the request, that access token too. It always succeeds.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if scheme, raw, found := strings.Cut(r.Header.Get("Authorization"), " "); found && strings.EqualFold(scheme, "bearer") {
			if payload, err := s.issuer.Verify(raw); err == nil {
				s.issuer.Revoke(payload)
			}
		}

		var req refreshRequest
		if err := decodeJSON(w, r, &req); err == nil && req.RefreshToken != "" {
			s.refresh.Revoke(req.RefreshToken)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.users.GetByID(claimsFrom(r.Context()).UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch users.Patch
		if err := decodeJSON(w, r, &patch); err != nil {
			writeDomainError(w, err)
			return
		}
		user, err := s.users.Update(claimsFrom(r.Context()).UserID, patch, s.now())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func (s *Server) issueSession(w http.ResponseWriter, status int, user *users.User) {
	access, err := s.issuer.CreateAccessToken(user)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	refreshToken, err := s.refresh.Create(user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, status, api.AuthResponse{User: *user, AccessToken: access, RefreshToken: refreshToken})
}
