package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/codezcracker/smart-garden-core/internal/auth"
)

func announceNode(t *testing.T, handler http.Handler, serial string) {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/iot/announce", "", map[string]any{
		"serial":         serial,
		"deviceKind":     "soil_sensor",
		"signalStrength": -61,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("announce status = %d: %s", rec.Code, rec.Body.String())
	}
}

// pairNode announces and pairs a node, returning the new device ID.
func pairNode(t *testing.T, handler http.Handler, token, serial, name string) string {
	t.Helper()

	announceNode(t, handler, serial)
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/devices/pair", token, map[string]string{
		"serial": serial,
		"name":   name,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("pair status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	deviceID, _ := body["deviceId"].(string) //nolint:errcheck // empty string fails the check below
	if deviceID == "" {
		t.Fatal("pair response missing deviceId")
	}
	return deviceID
}

func TestAnnounce(t *testing.T) {
	_, handler := testServer(t)

	t.Run("accepts and reports discovery state", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/iot/announce", "", map[string]any{
			"serial":         "ESP-GARDEN-001",
			"deviceKind":     "soil_sensor",
			"signalStrength": -55,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}

		body := decodeBody(t, rec)
		if body["pairingState"] != "discovery" {
			t.Errorf("pairingState = %v, want discovery", body["pairingState"])
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			announceNode(t, handler, "ESP-GARDEN-001")
		}
	})

	t.Run("rejects bad serial", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/iot/announce", "", map[string]any{
			"serial":     "has spaces!",
			"deviceKind": "soil_sensor",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		req := doJSON(t, handler, http.MethodPost, "/api/v1/iot/announce", "", "not an object")
		if req.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", req.Code)
		}
	})
}

func TestDeviceStatus(t *testing.T) {
	srv, handler := testServer(t)

	t.Run("unknown serial is 404", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/api/v1/iot/status?serial=ESP-UNKNOWN", "", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("missing serial is 400", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/api/v1/iot/status", "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("announced serial is discoverable", func(t *testing.T) {
		announceNode(t, handler, "ESP-STATUS-001")

		rec := doJSON(t, handler, http.MethodGet, "/api/v1/iot/status?serial=ESP-STATUS-001", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}

		body := decodeBody(t, rec)
		if body["pairingState"] != "discovery" {
			t.Errorf("pairingState = %v, want discovery", body["pairingState"])
		}
		if body["discoverable"] != true {
			t.Errorf("discoverable = %v, want true", body["discoverable"])
		}
		if _, ok := body["deviceId"]; ok {
			t.Error("deviceId should be absent before pairing")
		}
	})

	t.Run("paired serial reports device id", func(t *testing.T) {
		_, token := seedUser(t, srv, "grower", auth.RoleOperator)
		deviceID := pairNode(t, handler, token, "ESP-STATUS-002", "Herb Bed")

		rec := doJSON(t, handler, http.MethodGet, "/api/v1/iot/status?serial=ESP-STATUS-002", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}

		body := decodeBody(t, rec)
		if body["pairingState"] != "paired" {
			t.Errorf("pairingState = %v, want paired", body["pairingState"])
		}
		if body["deviceId"] != deviceID {
			t.Errorf("deviceId = %v, want %s", body["deviceId"], deviceID)
		}
	})
}

func TestFetchConfig(t *testing.T) {
	srv, handler := testServer(t)
	_, token := seedUser(t, srv, "grower", auth.RoleOperator)
	deviceID := pairNode(t, handler, token, "ESP-CFG-001", "Tomato Bed")

	t.Run("returns total payload with defaults", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/api/v1/iot/config/"+deviceID, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}

		body := decodeBody(t, rec)
		if body["deviceId"] != deviceID {
			t.Errorf("deviceId = %v, want %s", body["deviceId"], deviceID)
		}
		if body["sendInterval"] != float64(30) {
			t.Errorf("sendInterval = %v, want 30", body["sendInterval"])
		}
		if body["configVersion"] != float64(1) {
			t.Errorf("configVersion = %v, want 1", body["configVersion"])
		}
		if body["updateRequested"] != false {
			t.Errorf("updateRequested = %v, want false", body["updateRequested"])
		}

		server, _ := body["server"].(map[string]any) //nolint:errcheck // nil map fails the lookup below
		if server["url"] != "http://garden.local:3000" {
			t.Errorf("server.url = %v, want deployment default", server["url"])
		}
	})

	t.Run("fetch marks device seen", func(t *testing.T) {
		doJSON(t, handler, http.MethodGet, "/api/v1/iot/config/"+deviceID, "", nil)

		device, err := srv.pairer.GetDevice(context.Background(), deviceID)
		if err != nil {
			t.Fatalf("GetDevice: %v", err)
		}
		if device.Status != "online" {
			t.Errorf("status = %q, want online after config fetch", device.Status)
		}
		if device.LastSeen == nil {
			t.Error("LastSeen should be set after config fetch")
		}
	})

	t.Run("unknown device is 404", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/api/v1/iot/config/dev-missing", "", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestConfigUpdateLatchOverHTTP(t *testing.T) {
	srv, handler := testServer(t)
	_, token := seedUser(t, srv, "grower", auth.RoleOperator)
	deviceID := pairNode(t, handler, token, "ESP-LATCH-001", "Chilli Bed")

	// Operator edits the interval, then forces an update
	rec := doJSON(t, handler, http.MethodPatch, "/api/v1/devices/"+deviceID+"/config", token, map[string]any{
		"sendInterval": 120,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("config patch status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/devices/"+deviceID+"/config/force-update", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("force-update status = %d: %s", rec.Code, rec.Body.String())
	}

	// Node poll sees the update flag and the new value, and clears the latch
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/iot/config/"+deviceID, "", nil)
	body := decodeBody(t, rec)
	if body["updateRequested"] != true {
		t.Errorf("updateRequested = %v, want true on first fetch", body["updateRequested"])
	}
	if body["sendInterval"] != float64(120) {
		t.Errorf("sendInterval = %v, want 120", body["sendInterval"])
	}
	if body["configVersion"] != float64(2) {
		t.Errorf("configVersion = %v, want 2", body["configVersion"])
	}

	// Second poll: latch already cleared
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/iot/config/"+deviceID, "", nil)
	body = decodeBody(t, rec)
	if body["updateRequested"] != false {
		t.Errorf("updateRequested = %v, want false on second fetch", body["updateRequested"])
	}

	// Stored config is back to synced
	cfg, err := srv.configSync.GetConfig(context.Background(), deviceID)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if cfg.SyncState != "synced" {
		t.Errorf("SyncState = %q, want synced", cfg.SyncState)
	}
}

func TestPostReadings(t *testing.T) {
	srv, handler := testServer(t)
	_, token := seedUser(t, srv, "grower", auth.RoleOperator)
	deviceID := pairNode(t, handler, token, "ESP-READ-001", "Lettuce Bed")

	t.Run("accepted and marks seen", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/iot/readings", "", map[string]any{
			"deviceId":     deviceID,
			"temperature":  21.5,
			"soilMoisture": 48.0,
		})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}

		device, err := srv.pairer.GetDevice(context.Background(), deviceID)
		if err != nil {
			t.Fatalf("GetDevice: %v", err)
		}
		if device.Status != "online" {
			t.Errorf("status = %q, want online", device.Status)
		}
	})

	t.Run("unknown device is 404", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/iot/readings", "", map[string]any{
			"deviceId":    "dev-missing",
			"temperature": 20.0,
		})
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("missing device id is 400", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/iot/readings", "", map[string]any{
			"temperature": 20.0,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}
