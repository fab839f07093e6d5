package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/lumahub/luma-core/internal/audit"
	"github.com/lumahub/luma-core/internal/auth"
)

// ticketTTL is how long a WebSocket ticket stays valid after issue.
// Tickets are single-use: the browser requests one over the authenticated
// REST API and redeems it in the WebSocket URL, since browsers cannot set
// an Authorization header on a WebSocket upgrade.
const ticketTTL = 60 * time.Second

// ticket is a short-lived, single-use credential for a WebSocket upgrade.
type ticket struct {
	userID  string
	role    string
	expires time.Time
}

// ticketStore holds pending WebSocket tickets.
type ticketStore struct {
	mu      sync.Mutex
	tickets map[string]ticket
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticket)}
}

// Issue creates a ticket bound to the given user and returns its opaque value.
func (ts *ticketStore) Issue(userID, role string) (string, error) {
	b := make([]byte, 16) //nolint:mnd // 128-bit ticket
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	value := hex.EncodeToString(b)

	ts.mu.Lock()
	ts.tickets[value] = ticket{userID: userID, role: role, expires: time.Now().Add(ticketTTL)}
	ts.mu.Unlock()

	return value, nil
}

// Redeem consumes a ticket, returning the bound user if it is still valid.
// A ticket can only be redeemed once.
func (ts *ticketStore) Redeem(value string) (userID, role string, ok bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	t, found := ts.tickets[value]
	if !found {
		return "", "", false
	}
	delete(ts.tickets, value)

	if time.Now().After(t.expires) {
		return "", "", false
	}
	return t.userID, t.role, true
}

// clean removes expired tickets that were never redeemed.
func (ts *ticketStore) clean() {
	now := time.Now()
	ts.mu.Lock()
	for value, t := range ts.tickets {
		if now.After(t.expires) {
			delete(ts.tickets, value)
		}
	}
	ts.mu.Unlock()
}

// cleanTicketsLoop periodically removes expired tickets until ctx is cancelled.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	tick := time.NewTicker(ticketTTL)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.tickets.clean()
		}
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresIn    int        `json:"expiresIn"` // seconds
	User         *auth.User `json:"user"`
}

// handleLogin verifies credentials and issues an access/refresh token pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	user, err := s.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			// Same response as a bad password so usernames cannot be probed.
			writeUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.Error("login lookup failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		writeUnauthorized(w, "invalid credentials")
		return
	}
	if !user.IsActive {
		writeUnauthorized(w, "account is disabled")
		return
	}

	resp, err := s.issueTokens(r, user)
	if err != nil {
		s.logger.Error("token issue failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "login failed")
		return
	}

	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)
	s.recordAudit(r.Context(), &audit.Entry{
		Action:     audit.ActionLogin,
		EntityType: audit.EntityUser,
		EntityID:   user.ID,
		UserID:     user.ID,
	})
	writeJSON(w, http.StatusOK, resp)
}

// issueTokens builds an access/refresh pair for a verified user and persists
// the refresh token hash.
func (s *Server) issueTokens(r *http.Request, user *auth.User) (*loginResponse, error) {
	jwtCfg := s.secCfg.JWT

	access, err := auth.GenerateAccessToken(user, jwtCfg.Secret, jwtCfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	rawRefresh, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	refreshTTL := time.Duration(jwtCfg.RefreshTokenTTL) * time.Minute
	record := &auth.RefreshToken{
		UserID:    user.ID,
		TokenHash: auth.HashToken(rawRefresh),
		ExpiresAt: time.Now().UTC().Add(refreshTTL),
	}
	if err := s.tokens.Create(r.Context(), record); err != nil {
		return nil, err
	}

	return &loginResponse{
		AccessToken:  access,
		RefreshToken: rawRefresh,
		ExpiresIn:    jwtCfg.AccessTokenTTL * 60,
		User:         user,
	}, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// handleRefresh rotates a refresh token and issues a new access token.
// The consumed token is revoked in the same transaction that creates its
// successor, so a stolen-then-replayed token fails.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeBadRequest(w, "refreshToken is required")
		return
	}

	record, err := s.tokens.GetByTokenHash(r.Context(), auth.HashToken(req.RefreshToken))
	if err != nil {
		writeUnauthorized(w, "invalid refresh token")
		return
	}
	if record.Revoked {
		writeUnauthorized(w, "refresh token has been revoked")
		return
	}
	if time.Now().After(record.ExpiresAt) {
		writeUnauthorized(w, "refresh token has expired")
		return
	}

	user, err := s.users.GetByID(r.Context(), record.UserID)
	if err != nil || !user.IsActive {
		writeUnauthorized(w, "account is no longer active")
		return
	}

	jwtCfg := s.secCfg.JWT
	access, err := auth.GenerateAccessToken(user, jwtCfg.Secret, jwtCfg.AccessTokenTTL)
	if err != nil {
		s.logger.Error("access token generation failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "refresh failed")
		return
	}

	rawRefresh, err := auth.GenerateRefreshToken()
	if err != nil {
		s.logger.Error("refresh token generation failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "refresh failed")
		return
	}

	refreshTTL := time.Duration(jwtCfg.RefreshTokenTTL) * time.Minute
	next := &auth.RefreshToken{
		UserID:    user.ID,
		TokenHash: auth.HashToken(rawRefresh),
		ExpiresAt: time.Now().UTC().Add(refreshTTL),
	}
	if err := s.tokens.Rotate(r.Context(), record.ID, next); err != nil {
		s.logger.Error("refresh token rotation failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:  access,
		RefreshToken: rawRefresh,
		ExpiresIn:    jwtCfg.AccessTokenTTL * 60,
		User:         user,
	})
}

// handleLogout revokes the presented refresh token. The access token simply
// expires; only refresh tokens are server-side state.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeBadRequest(w, "refreshToken is required")
		return
	}

	record, err := s.tokens.GetByTokenHash(r.Context(), auth.HashToken(req.RefreshToken))
	if err != nil {
		// Already invalid: logout is idempotent.
		writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
		return
	}
	if record.UserID != userIDFromContext(r.Context()) {
		writeForbidden(w, "token does not belong to the caller")
		return
	}

	if err := s.tokens.Revoke(r.Context(), record.ID); err != nil {
		s.logger.Error("logout revoke failed", "user_id", record.UserID, "error", err)
		writeInternalError(w, "logout failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// handleMe returns the authenticated user's own account.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetByID(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, "account no longer exists")
			return
		}
		s.logger.Error("me lookup failed", "error", err)
		writeInternalError(w, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleWSTicket issues a single-use WebSocket ticket for the caller.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	value, err := s.tickets.Issue(userIDFromContext(r.Context()), roleFromContext(r.Context()))
	if err != nil {
		s.logger.Error("ticket issue failed", "error", err)
		writeInternalError(w, "could not issue ticket")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":    value,
		"expiresIn": int(ticketTTL.Seconds()),
	})
}
