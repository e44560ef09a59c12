package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codezcracker/smart-garden-core/internal/provisioning"
)

// handlePairDevice claims an announced node for the authenticated operator.
//
// Pairing is one-shot: concurrent claims on the same serial are decided
// by the store, and the loser receives a 409.
func (s *Server) handlePairDevice(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	var req provisioning.PairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	req.OwnerID = claims.Subject

	device, err := s.pairer.Pair(r.Context(), req)
	if err != nil {
		writeProvisioningError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, device)
}

// handleListDevices returns paired devices.
//
// Query parameters:
//   - owner: "me" restricts the listing to the caller's devices
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ownerID := ""
	if r.URL.Query().Get("owner") == "me" {
		if claims := claimsFromContext(r.Context()); claims != nil {
			ownerID = claims.Subject
		}
	}

	devices, err := s.pairer.ListDevices(r.Context(), ownerID)
	if err != nil {
		writeProvisioningError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single paired device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	device, err := s.pairer.GetDevice(r.Context(), deviceID)
	if err != nil {
		writeProvisioningError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, device)
}

// handleUpdateDevice partially updates a paired device's metadata.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	var update provisioning.DeviceUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	device, err := s.pairer.UpdateDevice(r.Context(), deviceID, update)
	if err != nil {
		writeProvisioningError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, device)
}

// handleUnpairDevice removes a paired device and releases its serial
// back to discovery.
func (s *Server) handleUnpairDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	if err := s.pairer.Unpair(r.Context(), deviceID); err != nil {
		writeProvisioningError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "unpaired"})
}

// handleGetConfig returns the stored configuration for a device,
// operator view (includes sync state and version, excludes the wifi
// password).
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	cfg, err := s.configSync.GetConfig(r.Context(), deviceID)
	if err != nil {
		writeProvisioningError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// handleUpdateConfig applies an operator's configuration edit.
//
// Edits bump the config version but do not request a sync on their own;
// the operator batches edits and then forces an update once.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	var update provisioning.ConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	cfg, err := s.configSync.UpdateConfig(r.Context(), deviceID, update)
	if err != nil {
		writeProvisioningError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// handleForceConfigUpdate sets the device's update latch so its next
// poll picks up the current configuration. Idempotent.
func (s *Server) handleForceConfigUpdate(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	if err := s.configSync.RequestUpdate(r.Context(), deviceID); err != nil {
		writeProvisioningError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "update requested"})
}
