package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumahub/luma-core/internal/access"
	"github.com/lumahub/luma-core/internal/audit"
)

type shareRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// handleShareDevice grants another user access to a device. The authority
// enforces that the caller holds share permission on the device.
func (s *Server) handleShareDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	callerID := userIDFromContext(r.Context())

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeBadRequest(w, "userId is required")
		return
	}

	role := access.Role(req.Role)
	if req.Role == "" {
		role = access.RoleUser
	}

	record, err := s.authority.Share(r.Context(), callerID, deviceID, req.UserID, role)
	if err != nil {
		switch {
		case errors.Is(err, access.ErrShareForbidden):
			writeForbidden(w, "share permission required")
		case errors.Is(err, access.ErrInvalidRole):
			writeBadRequest(w, "invalid role")
		case errors.Is(err, access.ErrMissingIdentity):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("share failed", "device_id", deviceID, "error", err)
			writeInternalError(w, "share failed")
		}
		return
	}

	s.logger.Info("device shared",
		"device_id", deviceID,
		"shared_by", callerID,
		"shared_with", req.UserID,
		"role", record.Role,
	)
	s.recordAudit(r.Context(), &audit.Entry{
		Action:     audit.ActionShare,
		EntityType: audit.EntityAccess,
		EntityID:   record.AccessID(),
		UserID:     callerID,
		Details:    map[string]any{"device_id": deviceID, "target": req.UserID, "role": record.Role},
	})
	writeJSON(w, http.StatusCreated, record)
}

// handleDeviceRoster lists every access record on a device. Requires share
// permission: the roster reveals who else can reach the device.
func (s *Server) handleDeviceRoster(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	callerID := userIDFromContext(r.Context())

	if !s.authority.HasPermission(r.Context(), callerID, deviceID, access.PermShare) {
		writeForbidden(w, "share permission required")
		return
	}

	records, err := s.authority.DeviceUsers(r.Context(), deviceID)
	if err != nil {
		s.logger.Error("roster lookup failed", "device_id", deviceID, "error", err)
		writeInternalError(w, "roster lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access": records,
		"count":  len(records),
	})
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// handleUpdateAccessRole changes the role on an existing access record.
// The caller needs share permission on the device.
func (s *Server) handleUpdateAccessRole(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	targetID := chi.URLParam(r, "userID")
	callerID := userIDFromContext(r.Context())

	if !s.authority.HasPermission(r.Context(), callerID, deviceID, access.PermShare) {
		writeForbidden(w, "share permission required")
		return
	}

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Role == "" {
		writeBadRequest(w, "role is required")
		return
	}

	if err := s.authority.UpdateRole(r.Context(), targetID, deviceID, access.Role(req.Role)); err != nil {
		switch {
		case errors.Is(err, access.ErrInvalidRole):
			writeBadRequest(w, "invalid role")
		case errors.Is(err, access.ErrRecordNotFound):
			writeNotFound(w, "access record not found")
		default:
			s.logger.Error("role update failed", "device_id", deviceID, "target", targetID, "error", err)
			writeInternalError(w, "role update failed")
		}
		return
	}

	s.logger.Info("access role updated",
		"device_id", deviceID,
		"target", targetID,
		"role", req.Role,
		"updated_by", callerID,
	)
	s.recordAudit(r.Context(), &audit.Entry{
		Action:     audit.ActionRoleChange,
		EntityType: audit.EntityAccess,
		EntityID:   targetID + "#" + deviceID,
		UserID:     callerID,
		Details:    map[string]any{"device_id": deviceID, "target": targetID, "role": req.Role},
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// handleRevokeAccess removes a user's access record from a device. Users may
// always drop their own access; revoking someone else needs share permission.
func (s *Server) handleRevokeAccess(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	targetID := chi.URLParam(r, "userID")
	callerID := userIDFromContext(r.Context())

	if targetID != callerID &&
		!s.authority.HasPermission(r.Context(), callerID, deviceID, access.PermShare) {
		writeForbidden(w, "share permission required")
		return
	}

	if err := s.authority.Revoke(r.Context(), targetID, deviceID); err != nil {
		if errors.Is(err, access.ErrRecordNotFound) {
			writeNotFound(w, "access record not found")
			return
		}
		s.logger.Error("access revoke failed", "device_id", deviceID, "target", targetID, "error", err)
		writeInternalError(w, "revoke failed")
		return
	}

	s.logger.Info("access revoked",
		"device_id", deviceID,
		"target", targetID,
		"revoked_by", callerID,
	)
	s.recordAudit(r.Context(), &audit.Entry{
		Action:     audit.ActionRevoke,
		EntityType: audit.EntityAccess,
		EntityID:   targetID + "#" + deviceID,
		UserID:     callerID,
		Details:    map[string]any{"device_id": deviceID, "target": targetID},
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
