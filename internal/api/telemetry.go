package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumahub/luma-core/internal/access"
	"github.com/lumahub/luma-core/internal/infrastructure/influxdb"
)

// defaultHistoryWindow is how far back a telemetry query reaches when the
// caller does not say.
const defaultHistoryWindow = 24 * time.Hour

// maxHistoryWindow caps a single telemetry query.
const maxHistoryWindow = 30 * 24 * time.Hour

// ReadingStore answers telemetry history queries.
// The InfluxDB client satisfies it; tests substitute a fake.
type ReadingStore interface {
	QuerySensorReadings(ctx context.Context, deviceID, measurement string, start, end time.Time) ([]influxdb.Reading, error)
}

// handleDeviceTelemetry returns a device's recent sensor readings (read
// permission). Window selection via ?hours=N, optional ?measurement= filter.
func (s *Server) handleDeviceTelemetry(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	userID := userIDFromContext(r.Context())

	if !s.authority.HasPermission(r.Context(), userID, deviceID, access.PermRead) {
		writeNotFound(w, "device not found")
		return
	}

	if s.readings == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "telemetry storage not configured")
		return
	}

	window := defaultHistoryWindow
	if v := r.URL.Query().Get("hours"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			writeBadRequest(w, "hours must be a positive integer")
			return
		}
		window = time.Duration(hours) * time.Hour
		if window > maxHistoryWindow {
			window = maxHistoryWindow
		}
	}

	end := time.Now().UTC()
	readings, err := s.readings.QuerySensorReadings(r.Context(), deviceID,
		r.URL.Query().Get("measurement"), end.Add(-window), end)
	if err != nil {
		s.logger.Error("telemetry query failed", "device_id", deviceID, "error", err)
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "telemetry storage unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": deviceID,
		"readings":  readings,
		"count":     len(readings),
	})
}
