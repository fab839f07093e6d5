package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumahub/luma-core/internal/access"
	"github.com/lumahub/luma-core/internal/audit"
	"github.com/lumahub/luma-core/internal/device"
)

type registerDeviceRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// handleRegisterDevice registers a device and grants the caller the owner
// role on it in one operation. Registration without ownership would strand
// the device: nobody could see or delete it.
func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	dev := &device.Device{
		ID:   req.ID,
		Name: req.Name,
		Type: device.Type(req.Type),
	}
	if err := s.registry.Register(r.Context(), dev); err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceExists):
			writeConflict(w, "device already registered")
		case errors.Is(err, device.ErrInvalidName), errors.Is(err, device.ErrInvalidType):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("device registration failed", "error", err)
			writeInternalError(w, "registration failed")
		}
		return
	}

	userID := userIDFromContext(r.Context())
	if _, err := s.authority.Grant(r.Context(), userID, dev.ID, dev.Name, access.RoleOwner, ""); err != nil {
		// Roll back so a retry does not hit the duplicate-ID conflict.
		if rmErr := s.registry.Remove(r.Context(), dev.ID); rmErr != nil {
			s.logger.Error("rollback after failed owner grant", "device_id", dev.ID, "error", rmErr)
		}
		s.logger.Error("owner grant failed", "device_id", dev.ID, "user_id", userID, "error", err)
		writeInternalError(w, "registration failed")
		return
	}

	s.logger.Info("device registered", "device_id", dev.ID, "owner", userID)
	s.recordAudit(r.Context(), &audit.Entry{
		Action:     audit.ActionDeviceRegister,
		EntityType: audit.EntityDevice,
		EntityID:   dev.ID,
		UserID:     userID,
		Details:    map[string]any{"name": dev.Name, "type": dev.Type},
	})
	writeJSON(w, http.StatusCreated, dev)
}

// handleListDevices returns the devices the caller can see, each annotated
// with the caller's role and permissions.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.authority.UserDevices(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.logger.Error("device listing failed", "error", err)
		writeInternalError(w, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns a single device, if the caller has read access.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	userID := userIDFromContext(r.Context())

	// 404 instead of 403 so callers cannot probe for device IDs.
	if !s.authority.HasPermission(r.Context(), userID, deviceID, access.PermRead) {
		writeNotFound(w, "device not found")
		return
	}

	dev, err := s.registry.GetDevice(r.Context(), deviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("device lookup failed", "device_id", deviceID, "error", err)
		writeInternalError(w, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

type renameDeviceRequest struct {
	Name string `json:"name"`
}

// handleRenameDevice updates a device's display name (write permission).
func (s *Server) handleRenameDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	userID := userIDFromContext(r.Context())

	if !s.authority.HasPermission(r.Context(), userID, deviceID, access.PermRead) {
		writeNotFound(w, "device not found")
		return
	}
	if !s.authority.HasPermission(r.Context(), userID, deviceID, access.PermWrite) {
		writeForbidden(w, "write permission required")
		return
	}

	var req renameDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := s.registry.Rename(r.Context(), deviceID, req.Name); err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound):
			writeNotFound(w, "device not found")
		case errors.Is(err, device.ErrInvalidName):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("device rename failed", "device_id", deviceID, "error", err)
			writeInternalError(w, "rename failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

// handleDeleteDevice removes a device from the registry (delete permission,
// owner only under the default role table).
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	userID := userIDFromContext(r.Context())

	if !s.authority.HasPermission(r.Context(), userID, deviceID, access.PermRead) {
		writeNotFound(w, "device not found")
		return
	}
	if !s.authority.HasPermission(r.Context(), userID, deviceID, access.PermDelete) {
		writeForbidden(w, "delete permission required")
		return
	}

	if err := s.registry.Remove(r.Context(), deviceID); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("device removal failed", "device_id", deviceID, "error", err)
		writeInternalError(w, "removal failed")
		return
	}

	s.logger.Info("device removed", "device_id", deviceID, "removed_by", userID)
	s.recordAudit(r.Context(), &audit.Entry{
		Action:     audit.ActionDeviceDelete,
		EntityType: audit.EntityDevice,
		EntityID:   deviceID,
		UserID:     userID,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type commandRequest struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

// handleDeviceCommand publishes a command to the device's command topic
// (control permission). The command is fire-and-forget: delivery and
// execution are reported back through the status topic.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	userID := userIDFromContext(r.Context())

	if !s.authority.HasPermission(r.Context(), userID, deviceID, access.PermRead) {
		writeNotFound(w, "device not found")
		return
	}
	if !s.authority.HasPermission(r.Context(), userID, deviceID, access.PermControl) {
		writeForbidden(w, "control permission required")
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}

	payload, err := json.Marshal(req)
	if err != nil {
		writeBadRequest(w, "invalid command payload")
		return
	}

	if err := s.publishCommand(deviceID, payload); err != nil {
		s.logger.Error("command publish failed", "device_id", deviceID, "error", err)
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "message bus unavailable")
		return
	}

	s.logger.Info("command published",
		"device_id", deviceID,
		"command", req.Command,
		"user_id", userID,
	)
	s.recordAudit(r.Context(), &audit.Entry{
		Action:     audit.ActionCommand,
		EntityType: audit.EntityDevice,
		EntityID:   deviceID,
		UserID:     userID,
		Details:    map[string]any{"command": req.Command},
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}
