package api

import (
	"net/http"
)

// handleListDiscovery returns announcements for the discovery view.
//
// Query parameters:
//   - all: when "true", include stale and paired announcements instead of
//     only the currently discoverable ones
func (s *Server) handleListDiscovery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Get("all") == "true" {
		anns, err := s.registry.ListAnnouncements(ctx)
		if err != nil {
			writeProvisioningError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"announcements": anns, "count": len(anns)})
		return
	}

	anns, err := s.registry.Discoverable(ctx)
	if err != nil {
		writeProvisioningError(w, err)
		return
	}

	paired, err := s.registry.CountPaired(ctx)
	if err != nil {
		writeProvisioningError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"announcements": anns,
		"count":         len(anns),
		"paired":        paired,
	})
}

// handleResetDiscovery releases every claimed announcement back to discovery.
//
// This is an administrative escape hatch for re-provisioning a site. The
// paired device records themselves are untouched; a reset serial can not
// be re-paired while its device record exists.
func (s *Server) handleResetDiscovery(w http.ResponseWriter, r *http.Request) {
	released, err := s.registry.ResetToDiscovery(r.Context())
	if err != nil {
		writeProvisioningError(w, err)
		return
	}

	s.logger.Info("discovery reset", "released", released)
	writeJSON(w, http.StatusOK, map[string]any{"released": released})
}
