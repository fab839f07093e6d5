package api

import (
	"net/http"
	"strconv"

	"github.com/lumahub/luma-core/internal/audit"
	"github.com/lumahub/luma-core/internal/auth"
)

// handleListAudit returns the audit trail. Admin accounts only: the trail
// spans every user's activity.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if roleFromContext(r.Context()) != string(auth.RoleAdmin) {
		writeForbidden(w, "admin account required")
		return
	}
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "audit trail not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		UserID:     q.Get("user_id"),
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v) //nolint:errcheck // zero falls back to the default page size
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v) //nolint:errcheck // zero offset on parse failure
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("audit listing failed", "error", err)
		writeInternalError(w, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
