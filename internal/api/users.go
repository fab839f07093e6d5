package api

import (
	"net/http"
)

// userSummary is the directory view of an account. Sharing needs to find a
// target user, but nothing beyond display fields is exposed.
type userSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
}

// handleListUsers returns the account directory for share targeting.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.logger.Error("user listing failed", "error", err)
		writeInternalError(w, "listing failed")
		return
	}

	summaries := make([]userSummary, 0, len(users))
	for _, u := range users {
		if !u.IsActive {
			continue
		}
		summaries = append(summaries, userSummary{
			ID:          u.ID,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Role:        string(u.Role),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": summaries,
		"count": len(summaries),
	})
}

