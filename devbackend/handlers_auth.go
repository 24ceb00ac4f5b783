package devbackend

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jrsteele09/hr-console/sessions"
	"github.com/jrsteele09/hr-console/token"
	"github.com/jrsteele09/hr-console/users"
	"github.com/rs/zerolog/log"
)

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

// Login checks credentials and answers in the configured response shape.
func (b *Backend) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body credentialsBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		body.Email = strings.TrimSpace(body.Email)
		if body.Email == "" || body.Password == "" {
			writeError(w, http.StatusBadRequest, "Email and password are required")
			return
		}

		user, err := b.users.GetByEmail(body.Email)
		if err != nil || !user.CheckPassword(body.Password) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		if user.PendingApproval || !user.Active {
			writeError(w, http.StatusForbidden, "Account pending approval")
			return
		}

		pair, err := b.tokens.Issue(user)
		if err != nil {
			log.Err(err).Msg("Failed to issue tokens")
			writeError(w, http.StatusInternalServerError, "Could not issue tokens")
			return
		}

		b.records.Audit(user.Email, ActionLogin, "user", userNumber(user), nil)
		writeJSON(w, http.StatusOK, loginBody(b.shape, user, pair))
	}
}

// Refresh rotates the refresh token. Refresh responses always use the
// OAuth style body.
func (b *Backend) Refresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body refreshBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, "refresh_token is required")
			return
		}

		pair, user, err := b.tokens.Refresh(body.RefreshToken)
		if err != nil {
			log.Debug().Err(err).Msg("Refresh rejected")
			writeError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		writeJSON(w, http.StatusOK, loginBody(sessions.ShapeV3OAuth, user, pair))
	}
}

// Logout revokes the refresh token and, when one is sent, the bearer
// access token.
func (b *Backend) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body refreshBody
		_ = json.NewDecoder(r.Body).Decode(&body)

		if body.RefreshToken != "" {
			if err := b.tokens.Revoke(body.RefreshToken); err != nil {
				log.Err(err).Msg("Failed to revoke refresh token")
			}
		}
		if raw, ok := bearerToken(r); ok {
			if claims, err := b.tokens.Verify(raw); err == nil {
				_ = b.tokens.RevokeAccessToken(raw)
				b.records.Audit(claims.Email, ActionLogout, "user", 0, nil)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (b *Backend) CurrentUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, userFromContext(r.Context()))
	}
}

func loginBody(shape sessions.Shape, user *users.User, pair token.Pair) any {
	switch shape {
	case sessions.ShapeV1Flat:
		return map[string]any{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.DisplayName(),
			"role":  user.Role,
			"token": pair.AccessToken,
		}
	case sessions.ShapeV2Token:
		return map[string]any{
			"token":         pair.AccessToken,
			"refresh_token": pair.RefreshToken,
			"user":          user,
		}
	default:
		return map[string]any{
			"user":          user,
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
			"token_type":    "bearer",
			"expires_in":    pair.ExpiresIn,
		}
	}
}
