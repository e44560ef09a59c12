package provisioning

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// signalPtr builds the optional RSSI value an announce may carry.
func signalPtr(v float64) *float64 {
	return &v
}

// setupTestDB creates an in-memory SQLite database with the provisioning tables.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// A fresh pool connection would see an empty in-memory database.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE device_discovery (
			serial TEXT PRIMARY KEY,
			device_kind TEXT NOT NULL,
			signal_strength REAL,
			pairing_state TEXT NOT NULL DEFAULT 'discovery',
			owner_id TEXT,
			device_id TEXT,
			last_announced_at TEXT NOT NULL,
			paired_at TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE TABLE paired_devices (
			device_id TEXT PRIMARY KEY,
			serial TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			device_kind TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'offline',
			sensors TEXT NOT NULL DEFAULT '{}',
			calibration TEXT NOT NULL DEFAULT '{}',
			firmware_version TEXT NOT NULL DEFAULT '1.0.0',
			last_seen TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE TABLE device_configs (
			device_id TEXT PRIMARY KEY,
			wifi_ssid TEXT NOT NULL DEFAULT '',
			wifi_password TEXT NOT NULL DEFAULT '',
			server_url TEXT NOT NULL DEFAULT '',
			backup_server_url TEXT NOT NULL DEFAULT '',
			sensors TEXT NOT NULL DEFAULT '{}',
			send_interval INTEGER NOT NULL DEFAULT 30,
			reconnect_tries INTEGER NOT NULL DEFAULT 5,
			read_timeout INTEGER NOT NULL DEFAULT 10,
			sync_state TEXT NOT NULL DEFAULT 'synced',
			update_requested_at TEXT,
			config_version INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// testDevice creates a paired device for testing.
func testDevice(deviceID, serial string) *PairedDevice {
	return &PairedDevice{
		DeviceID:        deviceID,
		Serial:          serial,
		OwnerID:         "user-1",
		Name:            "Tomato Bed",
		Location:        "Greenhouse",
		DeviceKind:      "soil_sensor",
		Status:          DeviceStatusOffline,
		Sensors:         DefaultSensors(),
		FirmwareVersion: DefaultFirmwareVersion,
	}
}

// testConfig creates a device configuration for testing.
func testDeviceConfig(deviceID string) *DeviceConfiguration {
	return &DeviceConfiguration{
		DeviceID:       deviceID,
		WifiSSID:       "garden-net",
		WifiPassword:   "secret",
		ServerURL:      "http://core.local:3000",
		Sensors:        DefaultSensors(),
		SendInterval:   DefaultSendInterval,
		ReconnectTries: DefaultReconnectTries,
		ReadTimeout:    DefaultReadTimeout,
		SyncState:      SyncStateSynced,
	}
}

// =============================================================================
// Announcement Tests
// =============================================================================

func TestUpsertAnnouncement_Insert(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	ann, err := repo.UpsertAnnouncement(ctx, "ESP-001", "soil_sensor", signalPtr(-52), time.Now())
	if err != nil {
		t.Fatalf("UpsertAnnouncement() error = %v", err)
	}

	if ann.Serial != "ESP-001" {
		t.Errorf("Serial = %q, want ESP-001", ann.Serial)
	}
	if ann.PairingState != PairingStateDiscovery {
		t.Errorf("PairingState = %q, want discovery", ann.PairingState)
	}
	if ann.SignalStrength == nil || *ann.SignalStrength != -52 {
		t.Errorf("SignalStrength = %v, want -52", ann.SignalStrength)
	}
}

func TestUpsertAnnouncement_Idempotent(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	first := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(10 * time.Second)

	if _, err := repo.UpsertAnnouncement(ctx, "ESP-001", "soil_sensor", signalPtr(-52), first); err != nil {
		t.Fatalf("first UpsertAnnouncement() error = %v", err)
	}
	ann, err := repo.UpsertAnnouncement(ctx, "ESP-001", "soil_sensor", signalPtr(-48), second)
	if err != nil {
		t.Fatalf("second UpsertAnnouncement() error = %v", err)
	}

	// Same row, refreshed fields
	if !ann.LastAnnouncedAt.Equal(second) {
		t.Errorf("LastAnnouncedAt = %v, want %v", ann.LastAnnouncedAt, second)
	}
	if ann.SignalStrength == nil || *ann.SignalStrength != -48 {
		t.Errorf("SignalStrength = %v, want -48", ann.SignalStrength)
	}

	anns, err := repo.ListAnnouncements(ctx)
	if err != nil {
		t.Fatalf("ListAnnouncements() error = %v", err)
	}
	if len(anns) != 1 {
		t.Errorf("announcement count = %d, want 1 (no duplicates)", len(anns))
	}
}

func TestUpsertAnnouncement_PairedStaysPaired(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	now := time.Now()
	if _, err := repo.UpsertAnnouncement(ctx, "ESP-001", "soil_sensor", signalPtr(-52), now); err != nil {
		t.Fatalf("UpsertAnnouncement() error = %v", err)
	}
	if err := repo.ClaimAnnouncement(ctx, "ESP-001", "user-1", "dev-1", now); err != nil {
		t.Fatalf("ClaimAnnouncement() error = %v", err)
	}

	// Re-announce after pairing: liveness refreshes, state does not revert
	ann, err := repo.UpsertAnnouncement(ctx, "ESP-001", "soil_sensor", signalPtr(-50), now.Add(5*time.Second))
	if err != nil {
		t.Fatalf("UpsertAnnouncement() after claim error = %v", err)
	}
	if ann.PairingState != PairingStatePaired {
		t.Errorf("PairingState = %q after re-announce, want paired", ann.PairingState)
	}
	if ann.DeviceID == nil || *ann.DeviceID != "dev-1" {
		t.Errorf("DeviceID = %v, want dev-1", ann.DeviceID)
	}
}

func TestGetAnnouncement_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetAnnouncement(context.Background(), "ESP-404")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAnnouncement() error = %v, want ErrNotFound", err)
	}
}

func TestClaimAnnouncement_SecondClaimLoses(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	now := time.Now()
	if _, err := repo.UpsertAnnouncement(ctx, "ESP-001", "soil_sensor", signalPtr(-52), now); err != nil {
		t.Fatalf("UpsertAnnouncement() error = %v", err)
	}

	if err := repo.ClaimAnnouncement(ctx, "ESP-001", "user-1", "dev-1", now); err != nil {
		t.Fatalf("first ClaimAnnouncement() error = %v", err)
	}

	err := repo.ClaimAnnouncement(ctx, "ESP-001", "user-2", "dev-2", now)
	if !errors.Is(err, ErrAlreadyPaired) {
		t.Errorf("second ClaimAnnouncement() error = %v, want ErrAlreadyPaired", err)
	}

	// Winner's claim is intact
	ann, err := repo.GetAnnouncement(ctx, "ESP-001")
	if err != nil {
		t.Fatalf("GetAnnouncement() error = %v", err)
	}
	if ann.OwnerID == nil || *ann.OwnerID != "user-1" {
		t.Errorf("OwnerID = %v, want user-1", ann.OwnerID)
	}
}

func TestClaimAnnouncement_UnknownSerial(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.ClaimAnnouncement(context.Background(), "ESP-404", "user-1", "dev-1", time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ClaimAnnouncement() error = %v, want ErrNotFound", err)
	}
}

func TestReleaseAnnouncement(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	now := time.Now()
	if _, err := repo.UpsertAnnouncement(ctx, "ESP-001", "soil_sensor", signalPtr(-52), now); err != nil {
		t.Fatalf("UpsertAnnouncement() error = %v", err)
	}
	if err := repo.ClaimAnnouncement(ctx, "ESP-001", "user-1", "dev-1", now); err != nil {
		t.Fatalf("ClaimAnnouncement() error = %v", err)
	}

	if err := repo.ReleaseAnnouncement(ctx, "ESP-001"); err != nil {
		t.Fatalf("ReleaseAnnouncement() error = %v", err)
	}

	ann, err := repo.GetAnnouncement(ctx, "ESP-001")
	if err != nil {
		t.Fatalf("GetAnnouncement() error = %v", err)
	}
	if ann.PairingState != PairingStateDiscovery {
		t.Errorf("PairingState = %q, want discovery", ann.PairingState)
	}
	if ann.OwnerID != nil || ann.DeviceID != nil || ann.PairedAt != nil {
		t.Error("claim fields not cleared on release")
	}
}

func TestResetAllToDiscovery(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	now := time.Now()
	for _, serial := range []string{"ESP-001", "ESP-002", "ESP-003"} {
		if _, err := repo.UpsertAnnouncement(ctx, serial, "soil_sensor", signalPtr(-50), now); err != nil {
			t.Fatalf("UpsertAnnouncement(%s) error = %v", serial, err)
		}
	}
	if err := repo.ClaimAnnouncement(ctx, "ESP-001", "user-1", "dev-1", now); err != nil {
		t.Fatalf("ClaimAnnouncement() error = %v", err)
	}
	if err := repo.ClaimAnnouncement(ctx, "ESP-002", "user-1", "dev-2", now); err != nil {
		t.Fatalf("ClaimAnnouncement() error = %v", err)
	}

	count, err := repo.ResetAllToDiscovery(ctx)
	if err != nil {
		t.Fatalf("ResetAllToDiscovery() error = %v", err)
	}
	if count != 2 {
		t.Errorf("reset count = %d, want 2", count)
	}

	anns, err := repo.ListAnnouncements(ctx)
	if err != nil {
		t.Fatalf("ListAnnouncements() error = %v", err)
	}
	for _, ann := range anns {
		if ann.PairingState != PairingStateDiscovery {
			t.Errorf("serial %s state = %q, want discovery", ann.Serial, ann.PairingState)
		}
	}
}

// =============================================================================
// Paired Device Tests
// =============================================================================

func TestCreateAndGetDevice(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	device := testDevice("dev-1", "ESP-001")
	if err := repo.CreateDevice(ctx, device); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	got, err := repo.GetDevice(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Serial != "ESP-001" {
		t.Errorf("Serial = %q, want ESP-001", got.Serial)
	}
	if got.Name != "Tomato Bed" {
		t.Errorf("Name = %q, want Tomato Bed", got.Name)
	}
	if !got.Sensors[SensorTemperature] {
		t.Error("temperature sensor not enabled")
	}
	if got.FirmwareVersion != DefaultFirmwareVersion {
		t.Errorf("FirmwareVersion = %q, want %q", got.FirmwareVersion, DefaultFirmwareVersion)
	}
}

func TestCreateDevice_DuplicateSerial(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.CreateDevice(ctx, testDevice("dev-1", "ESP-001")); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	err := repo.CreateDevice(ctx, testDevice("dev-2", "ESP-001"))
	if !errors.Is(err, ErrDeviceExists) {
		t.Errorf("CreateDevice() with duplicate serial error = %v, want ErrDeviceExists", err)
	}
}

func TestGetDeviceBySerial(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.CreateDevice(ctx, testDevice("dev-1", "ESP-001")); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	got, err := repo.GetDeviceBySerial(ctx, "ESP-001")
	if err != nil {
		t.Fatalf("GetDeviceBySerial() error = %v", err)
	}
	if got.DeviceID != "dev-1" {
		t.Errorf("DeviceID = %q, want dev-1", got.DeviceID)
	}
}

func TestListDevicesByOwner(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d1 := testDevice("dev-1", "ESP-001")
	d2 := testDevice("dev-2", "ESP-002")
	d2.OwnerID = "user-2"
	for _, d := range []*PairedDevice{d1, d2} {
		if err := repo.CreateDevice(ctx, d); err != nil {
			t.Fatalf("CreateDevice() error = %v", err)
		}
	}

	devices, err := repo.ListDevicesByOwner(ctx, "user-2")
	if err != nil {
		t.Fatalf("ListDevicesByOwner() error = %v", err)
	}
	if len(devices) != 1 || devices[0].DeviceID != "dev-2" {
		t.Errorf("ListDevicesByOwner() = %v, want [dev-2]", devices)
	}
}

func TestUpdateDevice(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	device := testDevice("dev-1", "ESP-001")
	if err := repo.CreateDevice(ctx, device); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	device.Name = "Pepper Bed"
	device.Status = DeviceStatusOnline
	if err := repo.UpdateDevice(ctx, device); err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}

	got, err := repo.GetDevice(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Name != "Pepper Bed" {
		t.Errorf("Name = %q, want Pepper Bed", got.Name)
	}
	if got.Status != DeviceStatusOnline {
		t.Errorf("Status = %q, want online", got.Status)
	}
}

func TestUpdateDeviceStatus(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.CreateDevice(ctx, testDevice("dev-1", "ESP-001")); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	seen := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.UpdateDeviceStatus(ctx, "dev-1", DeviceStatusOnline, seen); err != nil {
		t.Fatalf("UpdateDeviceStatus() error = %v", err)
	}

	got, err := repo.GetDevice(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Status != DeviceStatusOnline {
		t.Errorf("Status = %q, want online", got.Status)
	}
	if got.LastSeen == nil || !got.LastSeen.Equal(seen) {
		t.Errorf("LastSeen = %v, want %v", got.LastSeen, seen)
	}
}

func TestDeleteDevice(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.CreateDevice(ctx, testDevice("dev-1", "ESP-001")); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	if err := repo.DeleteDevice(ctx, "dev-1"); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}

	_, err := repo.GetDevice(ctx, "dev-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDevice() after delete error = %v, want ErrNotFound", err)
	}

	if err := repo.DeleteDevice(ctx, "dev-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteDevice() error = %v, want ErrNotFound", err)
	}
}

// =============================================================================
// Configuration Tests
// =============================================================================

func TestCreateAndGetConfig(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	cfg := testDeviceConfig("dev-1")
	if err := repo.CreateConfig(ctx, cfg); err != nil {
		t.Fatalf("CreateConfig() error = %v", err)
	}

	got, err := repo.GetConfig(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if got.WifiSSID != "garden-net" {
		t.Errorf("WifiSSID = %q, want garden-net", got.WifiSSID)
	}
	if got.ConfigVersion != 1 {
		t.Errorf("ConfigVersion = %d, want 1", got.ConfigVersion)
	}
	if got.SyncState != SyncStateSynced {
		t.Errorf("SyncState = %q, want synced", got.SyncState)
	}
}

func TestRequestConfigUpdate_SetsLatch(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.CreateConfig(ctx, testDeviceConfig("dev-1")); err != nil {
		t.Fatalf("CreateConfig() error = %v", err)
	}

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.RequestConfigUpdate(ctx, "dev-1", at); err != nil {
		t.Fatalf("RequestConfigUpdate() error = %v", err)
	}

	got, err := repo.GetConfig(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if got.SyncState != SyncStateUpdateRequested {
		t.Errorf("SyncState = %q, want update_requested", got.SyncState)
	}
	if got.UpdateRequestedAt == nil || !got.UpdateRequestedAt.Equal(at) {
		t.Errorf("UpdateRequestedAt = %v, want %v", got.UpdateRequestedAt, at)
	}
}

func TestClearUpdateLatch_ClearsOnce(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.CreateConfig(ctx, testDeviceConfig("dev-1")); err != nil {
		t.Fatalf("CreateConfig() error = %v", err)
	}
	if err := repo.RequestConfigUpdate(ctx, "dev-1", time.Now()); err != nil {
		t.Fatalf("RequestConfigUpdate() error = %v", err)
	}

	cleared, err := repo.ClearUpdateLatch(ctx, "dev-1")
	if err != nil {
		t.Fatalf("ClearUpdateLatch() error = %v", err)
	}
	if !cleared {
		t.Error("first ClearUpdateLatch() = false, want true")
	}

	cleared, err = repo.ClearUpdateLatch(ctx, "dev-1")
	if err != nil {
		t.Fatalf("second ClearUpdateLatch() error = %v", err)
	}
	if cleared {
		t.Error("second ClearUpdateLatch() = true, want false")
	}

	got, err := repo.GetConfig(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if got.SyncState != SyncStateSynced {
		t.Errorf("SyncState = %q, want synced", got.SyncState)
	}
	if got.UpdateRequestedAt != nil {
		t.Errorf("UpdateRequestedAt = %v, want nil", got.UpdateRequestedAt)
	}
}

func TestClearUpdateLatch_NoLatchSet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.CreateConfig(ctx, testDeviceConfig("dev-1")); err != nil {
		t.Fatalf("CreateConfig() error = %v", err)
	}

	cleared, err := repo.ClearUpdateLatch(ctx, "dev-1")
	if err != nil {
		t.Fatalf("ClearUpdateLatch() error = %v", err)
	}
	if cleared {
		t.Error("ClearUpdateLatch() = true with no latch set, want false")
	}
}

func TestDeleteConfig(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.CreateConfig(ctx, testDeviceConfig("dev-1")); err != nil {
		t.Fatalf("CreateConfig() error = %v", err)
	}

	if err := repo.DeleteConfig(ctx, "dev-1"); err != nil {
		t.Fatalf("DeleteConfig() error = %v", err)
	}

	_, err := repo.GetConfig(ctx, "dev-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetConfig() after delete error = %v, want ErrNotFound", err)
	}
}
