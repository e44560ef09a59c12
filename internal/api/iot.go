package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codezcracker/smart-garden-core/internal/infrastructure/influxdb"
	"github.com/codezcracker/smart-garden-core/internal/provisioning"
)

// handleAnnounce records a node's presence announcement.
//
// Announcing is idempotent: nodes repeat it on boot and periodically
// afterwards, and every call refreshes the announcement's liveness.
// A paired serial stays paired no matter how often it announces.
func (s *Server) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	var req provisioning.AnnounceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ann, err := s.registry.Announce(r.Context(), req)
	if err != nil {
		writeProvisioningError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"serial":       ann.Serial,
		"pairingState": ann.PairingState,
	})
}

// handleDeviceStatus answers a node's pairing-status poll.
//
// This is a pure read. Unknown serials get a 404 rather than an implicit
// registration; nodes are expected to announce first.
func (s *Server) handleDeviceStatus(w http.ResponseWriter, r *http.Request) {
	serial := r.URL.Query().Get("serial")
	if serial == "" {
		writeBadRequest(w, "serial query parameter is required")
		return
	}

	report, err := s.status.Status(r.Context(), serial)
	if err != nil {
		writeProvisioningError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleFetchConfig returns a device's complete configuration.
//
// The response is always total, never a delta. Fetching clears a pending
// update latch in the same step; the payload reports whether it did.
func (s *Server) handleFetchConfig(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	payload, err := s.configSync.FetchConfig(r.Context(), deviceID)
	if err != nil {
		writeProvisioningError(w, err)
		return
	}

	// A successful fetch is proof of life
	if err := s.pairer.MarkSeen(r.Context(), deviceID); err != nil {
		s.logger.Debug("mark seen failed", "device_id", deviceID, "error", err)
	}

	writeJSON(w, http.StatusOK, payload)
}

// readingsRequest is a batch of sensor readings posted by a node.
type readingsRequest struct {
	DeviceID     string   `json:"deviceId"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
	SoilMoisture *float64 `json:"soilMoisture,omitempty"`
	Light        *float64 `json:"light,omitempty"`
}

// handlePostReadings accepts sensor readings from a paired node.
//
// Readings are forwarded to the time-series store (when configured) and
// refresh the device's last-seen timestamp. A node whose device record
// has been unpaired gets a 404 so it can fall back to announcing.
func (s *Server) handlePostReadings(w http.ResponseWriter, r *http.Request) {
	var req readingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.DeviceID == "" {
		writeBadRequest(w, "deviceId is required")
		return
	}

	if err := s.pairer.MarkSeen(r.Context(), req.DeviceID); err != nil {
		if errors.Is(err, provisioning.ErrNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeProvisioningError(w, err)
		return
	}

	if s.telemetry != nil {
		s.telemetry.WriteSensorReading(influxdb.SensorReading{
			DeviceID:     req.DeviceID,
			Temperature:  req.Temperature,
			Humidity:     req.Humidity,
			SoilMoisture: req.SoilMoisture,
			Light:        req.Light,
		})
	}

	if s.events != nil {
		s.events.Publish(provisioning.EventDeviceReading, req)
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
