package provisioning

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for provisioning persistence.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// UpsertAnnouncement records an announce from a node. Keyed on serial:
	// a new serial inserts a discovery row, a known serial refreshes
	// last_announced_at, signal strength, and device kind. The pairing
	// state is never touched, so a paired row stays paired.
	UpsertAnnouncement(ctx context.Context, serial, deviceKind string, signalStrength *float64, announcedAt time.Time) (*DiscoveryAnnouncement, error)

	// GetAnnouncement retrieves an announcement by serial.
	// Returns ErrNotFound if the serial has never announced.
	GetAnnouncement(ctx context.Context, serial string) (*DiscoveryAnnouncement, error)

	// ListAnnouncements retrieves all announcements, newest first.
	ListAnnouncements(ctx context.Context) ([]DiscoveryAnnouncement, error)

	// ClaimAnnouncement atomically transitions an announcement from
	// discovery to paired. The guard is evaluated at write time, so of
	// two concurrent claims exactly one succeeds. Returns
	// ErrAlreadyPaired if the row is already claimed, ErrNotFound if the
	// serial has never announced.
	ClaimAnnouncement(ctx context.Context, serial, ownerID, deviceID string, pairedAt time.Time) error

	// ReleaseAnnouncement returns an announcement to discovery state,
	// clearing owner, device, and pairing timestamp. Used as saga
	// compensation and when a device is unpaired.
	ReleaseAnnouncement(ctx context.Context, serial string) error

	// ResetAllToDiscovery returns every announcement to discovery state.
	// Administrative escape hatch; reports how many rows changed.
	ResetAllToDiscovery(ctx context.Context) (int64, error)

	// CountPairedSince counts paired announcements whose last announce is
	// at or after cutoff.
	CountPairedSince(ctx context.Context, cutoff time.Time) (int, error)

	// CreateDevice inserts a new paired device.
	// Returns ErrDeviceExists on a device ID or serial collision.
	CreateDevice(ctx context.Context, device *PairedDevice) error

	// GetDevice retrieves a paired device by ID.
	// Returns ErrNotFound if the device does not exist.
	GetDevice(ctx context.Context, deviceID string) (*PairedDevice, error)

	// GetDeviceBySerial retrieves a paired device by serial number.
	GetDeviceBySerial(ctx context.Context, serial string) (*PairedDevice, error)

	// ListDevices retrieves all paired devices.
	ListDevices(ctx context.Context) ([]PairedDevice, error)

	// ListDevicesByOwner retrieves all devices paired by a specific owner.
	ListDevicesByOwner(ctx context.Context, ownerID string) ([]PairedDevice, error)

	// UpdateDevice modifies an existing paired device.
	// Returns ErrNotFound if the device does not exist.
	UpdateDevice(ctx context.Context, device *PairedDevice) error

	// UpdateDeviceStatus updates only status and last seen timestamp.
	// Optimised for the readings ingestion path.
	UpdateDeviceStatus(ctx context.Context, deviceID string, status DeviceStatus, lastSeen time.Time) error

	// DeleteDevice removes a paired device by ID.
	// Returns ErrNotFound if the device does not exist.
	DeleteDevice(ctx context.Context, deviceID string) error

	// CreateConfig inserts a device configuration.
	// Returns ErrDeviceExists if the device already has one.
	CreateConfig(ctx context.Context, cfg *DeviceConfiguration) error

	// GetConfig retrieves the configuration for a device.
	// Returns ErrNotFound if the device has no configuration.
	GetConfig(ctx context.Context, deviceID string) (*DeviceConfiguration, error)

	// UpdateConfig modifies an existing device configuration.
	// Returns ErrNotFound if the device has no configuration.
	UpdateConfig(ctx context.Context, cfg *DeviceConfiguration) error

	// RequestConfigUpdate sets the update latch. Safe to call when the
	// latch is already set; the request timestamp is refreshed.
	RequestConfigUpdate(ctx context.Context, deviceID string, at time.Time) error

	// ClearUpdateLatch atomically clears the update latch if it is set.
	// Returns true when this call cleared it, false when the latch was
	// already clear. Concurrent fetches see at most one true.
	ClearUpdateLatch(ctx context.Context, deviceID string) (bool, error)

	// DeleteConfig removes the configuration for a device.
	DeleteConfig(ctx context.Context, deviceID string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// =============================================================================
// Announcements
// =============================================================================

const announcementColumns = `serial, device_kind, signal_strength, pairing_state,
	owner_id, device_id, last_announced_at, paired_at, created_at`

// UpsertAnnouncement records an announce from a node.
func (r *SQLiteRepository) UpsertAnnouncement(ctx context.Context, serial, deviceKind string, signalStrength *float64, announcedAt time.Time) (*DiscoveryAnnouncement, error) {
	query := `
		INSERT INTO device_discovery (serial, device_kind, signal_strength, pairing_state, last_announced_at, created_at)
		VALUES (?, ?, ?, 'discovery', ?, ?)
		ON CONFLICT(serial) DO UPDATE SET
			device_kind = excluded.device_kind,
			signal_strength = excluded.signal_strength,
			last_announced_at = excluded.last_announced_at`

	ts := announcedAt.UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx, query, serial, deviceKind, signalStrength, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("%w: upserting announcement: %w", ErrStoreUnavailable, err)
	}

	return r.GetAnnouncement(ctx, serial)
}

// GetAnnouncement retrieves an announcement by serial.
func (r *SQLiteRepository) GetAnnouncement(ctx context.Context, serial string) (*DiscoveryAnnouncement, error) {
	query := `SELECT ` + announcementColumns + ` FROM device_discovery WHERE serial = ?`

	row := r.db.QueryRowContext(ctx, query, serial)
	ann, err := scanAnnouncement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: querying announcement: %w", ErrStoreUnavailable, err)
	}
	return ann, nil
}

// ListAnnouncements retrieves all announcements, newest first.
func (r *SQLiteRepository) ListAnnouncements(ctx context.Context) ([]DiscoveryAnnouncement, error) {
	query := `SELECT ` + announcementColumns + ` FROM device_discovery ORDER BY last_announced_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying announcements: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var anns []DiscoveryAnnouncement
	for rows.Next() {
		ann, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning announcement: %w", ErrStoreUnavailable, err)
		}
		anns = append(anns, *ann)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating announcements: %w", ErrStoreUnavailable, err)
	}
	return anns, nil
}

// ClaimAnnouncement atomically transitions discovery -> paired.
func (r *SQLiteRepository) ClaimAnnouncement(ctx context.Context, serial, ownerID, deviceID string, pairedAt time.Time) error {
	// The WHERE clause is the whole point: the discovery guard is
	// evaluated at write time, so concurrent claims serialise and only
	// the first one changes a row.
	query := `
		UPDATE device_discovery
		SET pairing_state = 'paired', owner_id = ?, device_id = ?, paired_at = ?
		WHERE serial = ? AND pairing_state = 'discovery'`

	result, err := r.db.ExecContext(ctx, query,
		ownerID, deviceID, pairedAt.UTC().Format(time.RFC3339), serial)
	if err != nil {
		return fmt.Errorf("%w: claiming announcement: %w", ErrStoreUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking claim result: %w", ErrStoreUnavailable, err)
	}
	if affected == 0 {
		// Lost the race, or the serial never announced.
		if _, err := r.GetAnnouncement(ctx, serial); err != nil {
			return err
		}
		return ErrAlreadyPaired
	}
	return nil
}

// ReleaseAnnouncement returns an announcement to discovery state.
func (r *SQLiteRepository) ReleaseAnnouncement(ctx context.Context, serial string) error {
	query := `
		UPDATE device_discovery
		SET pairing_state = 'discovery', owner_id = NULL, device_id = NULL, paired_at = NULL
		WHERE serial = ?`

	result, err := r.db.ExecContext(ctx, query, serial)
	if err != nil {
		return fmt.Errorf("%w: releasing announcement: %w", ErrStoreUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking release result: %w", ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetAllToDiscovery returns every announcement to discovery state.
func (r *SQLiteRepository) ResetAllToDiscovery(ctx context.Context) (int64, error) {
	query := `
		UPDATE device_discovery
		SET pairing_state = 'discovery', owner_id = NULL, device_id = NULL, paired_at = NULL
		WHERE pairing_state != 'discovery'`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%w: resetting announcements: %w", ErrStoreUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: checking reset result: %w", ErrStoreUnavailable, err)
	}
	return affected, nil
}

// CountPairedSince counts paired announcements still checking in.
func (r *SQLiteRepository) CountPairedSince(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM device_discovery
		WHERE pairing_state = 'paired' AND last_announced_at >= ?`

	var count int
	err := r.db.QueryRowContext(ctx, query, cutoff.UTC().Format(time.RFC3339)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting paired announcements: %w", ErrStoreUnavailable, err)
	}
	return count, nil
}

// =============================================================================
// Paired devices
// =============================================================================

const deviceColumns = `device_id, serial, owner_id, name, location, description,
	device_kind, status, sensors, calibration, firmware_version, last_seen,
	created_at, updated_at`

// CreateDevice inserts a new paired device.
func (r *SQLiteRepository) CreateDevice(ctx context.Context, device *PairedDevice) error {
	sensorsJSON, err := json.Marshal(device.Sensors)
	if err != nil {
		return fmt.Errorf("marshalling sensors: %w", err)
	}

	calibration := device.Calibration
	if calibration == nil {
		calibration = map[string]float64{}
	}
	calibrationJSON, err := json.Marshal(calibration)
	if err != nil {
		return fmt.Errorf("marshalling calibration: %w", err)
	}

	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now

	query := `
		INSERT INTO paired_devices (
			device_id, serial, owner_id, name, location, description,
			device_kind, status, sensors, calibration, firmware_version,
			last_seen, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		device.DeviceID,
		device.Serial,
		device.OwnerID,
		device.Name,
		device.Location,
		device.Description,
		device.DeviceKind,
		string(device.Status),
		string(sensorsJSON),
		string(calibrationJSON),
		device.FirmwareVersion,
		nullableTime(device.LastSeen),
		device.CreatedAt.Format(time.RFC3339),
		device.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("%w: inserting device: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// GetDevice retrieves a paired device by ID.
func (r *SQLiteRepository) GetDevice(ctx context.Context, deviceID string) (*PairedDevice, error) {
	query := `SELECT ` + deviceColumns + ` FROM paired_devices WHERE device_id = ?`
	return r.getDevice(ctx, query, deviceID)
}

// GetDeviceBySerial retrieves a paired device by serial number.
func (r *SQLiteRepository) GetDeviceBySerial(ctx context.Context, serial string) (*PairedDevice, error) {
	query := `SELECT ` + deviceColumns + ` FROM paired_devices WHERE serial = ?`
	return r.getDevice(ctx, query, serial)
}

func (r *SQLiteRepository) getDevice(ctx context.Context, query string, arg any) (*PairedDevice, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: querying device: %w", ErrStoreUnavailable, err)
	}
	return device, nil
}

// ListDevices retrieves all paired devices.
func (r *SQLiteRepository) ListDevices(ctx context.Context) ([]PairedDevice, error) {
	query := `SELECT ` + deviceColumns + ` FROM paired_devices ORDER BY name`
	return r.queryDevices(ctx, query)
}

// ListDevicesByOwner retrieves all devices paired by a specific owner.
func (r *SQLiteRepository) ListDevicesByOwner(ctx context.Context, ownerID string) ([]PairedDevice, error) {
	query := `SELECT ` + deviceColumns + ` FROM paired_devices WHERE owner_id = ? ORDER BY name`
	return r.queryDevices(ctx, query, ownerID)
}

func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]PairedDevice, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying devices: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var devices []PairedDevice
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning device: %w", ErrStoreUnavailable, err)
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating devices: %w", ErrStoreUnavailable, err)
	}
	return devices, nil
}

// UpdateDevice modifies an existing paired device.
func (r *SQLiteRepository) UpdateDevice(ctx context.Context, device *PairedDevice) error {
	sensorsJSON, err := json.Marshal(device.Sensors)
	if err != nil {
		return fmt.Errorf("marshalling sensors: %w", err)
	}

	calibration := device.Calibration
	if calibration == nil {
		calibration = map[string]float64{}
	}
	calibrationJSON, err := json.Marshal(calibration)
	if err != nil {
		return fmt.Errorf("marshalling calibration: %w", err)
	}

	device.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE paired_devices
		SET name = ?, location = ?, description = ?, status = ?,
			sensors = ?, calibration = ?, firmware_version = ?,
			last_seen = ?, updated_at = ?
		WHERE device_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		device.Name,
		device.Location,
		device.Description,
		string(device.Status),
		string(sensorsJSON),
		string(calibrationJSON),
		device.FirmwareVersion,
		nullableTime(device.LastSeen),
		device.UpdatedAt.Format(time.RFC3339),
		device.DeviceID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating device: %w", ErrStoreUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking update result: %w", ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDeviceStatus updates only status and last seen timestamp.
func (r *SQLiteRepository) UpdateDeviceStatus(ctx context.Context, deviceID string, status DeviceStatus, lastSeen time.Time) error {
	query := `
		UPDATE paired_devices
		SET status = ?, last_seen = ?, updated_at = ?
		WHERE device_id = ?`

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, query,
		string(status), lastSeen.UTC().Format(time.RFC3339), now, deviceID)
	if err != nil {
		return fmt.Errorf("%w: updating device status: %w", ErrStoreUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking status result: %w", ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDevice removes a paired device by ID.
func (r *SQLiteRepository) DeleteDevice(ctx context.Context, deviceID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM paired_devices WHERE device_id = ?`, deviceID)
	if err != nil {
		return fmt.Errorf("%w: deleting device: %w", ErrStoreUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking delete result: %w", ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// Device configurations
// =============================================================================

const configColumns = `device_id, wifi_ssid, wifi_password, server_url,
	backup_server_url, sensors, send_interval, reconnect_tries, read_timeout,
	sync_state, update_requested_at, config_version, created_at, updated_at`

// CreateConfig inserts a device configuration.
func (r *SQLiteRepository) CreateConfig(ctx context.Context, cfg *DeviceConfiguration) error {
	sensorsJSON, err := json.Marshal(cfg.Sensors)
	if err != nil {
		return fmt.Errorf("marshalling sensors: %w", err)
	}

	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	if cfg.ConfigVersion == 0 {
		cfg.ConfigVersion = 1
	}
	if cfg.SyncState == "" {
		cfg.SyncState = SyncStateSynced
	}

	query := `
		INSERT INTO device_configs (
			device_id, wifi_ssid, wifi_password, server_url, backup_server_url,
			sensors, send_interval, reconnect_tries, read_timeout,
			sync_state, update_requested_at, config_version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		cfg.DeviceID,
		cfg.WifiSSID,
		cfg.WifiPassword,
		cfg.ServerURL,
		cfg.BackupServerURL,
		string(sensorsJSON),
		cfg.SendInterval,
		cfg.ReconnectTries,
		cfg.ReadTimeout,
		string(cfg.SyncState),
		nullableTime(cfg.UpdateRequestedAt),
		cfg.ConfigVersion,
		cfg.CreatedAt.Format(time.RFC3339),
		cfg.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("%w: inserting config: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// GetConfig retrieves the configuration for a device.
func (r *SQLiteRepository) GetConfig(ctx context.Context, deviceID string) (*DeviceConfiguration, error) {
	query := `SELECT ` + configColumns + ` FROM device_configs WHERE device_id = ?`

	row := r.db.QueryRowContext(ctx, query, deviceID)
	cfg, err := scanConfig(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: querying config: %w", ErrStoreUnavailable, err)
	}
	return cfg, nil
}

// UpdateConfig modifies an existing device configuration.
func (r *SQLiteRepository) UpdateConfig(ctx context.Context, cfg *DeviceConfiguration) error {
	sensorsJSON, err := json.Marshal(cfg.Sensors)
	if err != nil {
		return fmt.Errorf("marshalling sensors: %w", err)
	}

	cfg.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE device_configs
		SET wifi_ssid = ?, wifi_password = ?, server_url = ?, backup_server_url = ?,
			sensors = ?, send_interval = ?, reconnect_tries = ?, read_timeout = ?,
			config_version = ?, updated_at = ?
		WHERE device_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		cfg.WifiSSID,
		cfg.WifiPassword,
		cfg.ServerURL,
		cfg.BackupServerURL,
		string(sensorsJSON),
		cfg.SendInterval,
		cfg.ReconnectTries,
		cfg.ReadTimeout,
		cfg.ConfigVersion,
		cfg.UpdatedAt.Format(time.RFC3339),
		cfg.DeviceID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating config: %w", ErrStoreUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking config update result: %w", ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RequestConfigUpdate sets the update latch.
func (r *SQLiteRepository) RequestConfigUpdate(ctx context.Context, deviceID string, at time.Time) error {
	query := `
		UPDATE device_configs
		SET sync_state = 'update_requested', update_requested_at = ?
		WHERE device_id = ?`

	result, err := r.db.ExecContext(ctx, query, at.UTC().Format(time.RFC3339), deviceID)
	if err != nil {
		return fmt.Errorf("%w: requesting config update: %w", ErrStoreUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking request result: %w", ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearUpdateLatch atomically clears the update latch if it is set.
func (r *SQLiteRepository) ClearUpdateLatch(ctx context.Context, deviceID string) (bool, error) {
	// Compare-and-clear: the sync_state guard makes concurrent fetches
	// report at most one latch clear.
	query := `
		UPDATE device_configs
		SET sync_state = 'synced', update_requested_at = NULL
		WHERE device_id = ? AND sync_state = 'update_requested'`

	result, err := r.db.ExecContext(ctx, query, deviceID)
	if err != nil {
		return false, fmt.Errorf("%w: clearing update latch: %w", ErrStoreUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: checking latch result: %w", ErrStoreUnavailable, err)
	}
	return affected > 0, nil
}

// DeleteConfig removes the configuration for a device.
func (r *SQLiteRepository) DeleteConfig(ctx context.Context, deviceID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM device_configs WHERE device_id = ?`, deviceID)
	if err != nil {
		return fmt.Errorf("%w: deleting config: %w", ErrStoreUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking delete result: %w", ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// Scanning helpers
// =============================================================================

// rowScanner abstracts sql.Row and sql.Rows for shared scanning code.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnnouncement(scanner rowScanner) (*DiscoveryAnnouncement, error) {
	var (
		ann             DiscoveryAnnouncement
		signalStrength  sql.NullFloat64
		pairingState    string
		ownerID         sql.NullString
		deviceID        sql.NullString
		lastAnnouncedAt string
		pairedAt        sql.NullString
		createdAt       string
	)

	err := scanner.Scan(
		&ann.Serial,
		&ann.DeviceKind,
		&signalStrength,
		&pairingState,
		&ownerID,
		&deviceID,
		&lastAnnouncedAt,
		&pairedAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if signalStrength.Valid {
		ann.SignalStrength = &signalStrength.Float64
	}
	ann.PairingState = PairingState(pairingState)
	if ownerID.Valid {
		ann.OwnerID = &ownerID.String
	}
	if deviceID.Valid {
		ann.DeviceID = &deviceID.String
	}
	if ann.LastAnnouncedAt, err = parseTime(lastAnnouncedAt); err != nil {
		return nil, fmt.Errorf("parsing last_announced_at: %w", err)
	}
	if pairedAt.Valid {
		t, err := parseTime(pairedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing paired_at: %w", err)
		}
		ann.PairedAt = &t
	}
	if ann.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &ann, nil
}

func scanDevice(scanner rowScanner) (*PairedDevice, error) {
	var (
		device          PairedDevice
		status          string
		sensorsJSON     string
		calibrationJSON string
		lastSeen        sql.NullString
		createdAt       string
		updatedAt       string
	)

	err := scanner.Scan(
		&device.DeviceID,
		&device.Serial,
		&device.OwnerID,
		&device.Name,
		&device.Location,
		&device.Description,
		&device.DeviceKind,
		&status,
		&sensorsJSON,
		&calibrationJSON,
		&device.FirmwareVersion,
		&lastSeen,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	device.Status = DeviceStatus(status)
	if err := json.Unmarshal([]byte(sensorsJSON), &device.Sensors); err != nil {
		return nil, fmt.Errorf("unmarshalling sensors: %w", err)
	}
	if err := json.Unmarshal([]byte(calibrationJSON), &device.Calibration); err != nil {
		return nil, fmt.Errorf("unmarshalling calibration: %w", err)
	}
	if lastSeen.Valid {
		t, err := parseTime(lastSeen.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_seen: %w", err)
		}
		device.LastSeen = &t
	}
	if device.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if device.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &device, nil
}

func scanConfig(scanner rowScanner) (*DeviceConfiguration, error) {
	var (
		cfg               DeviceConfiguration
		sensorsJSON       string
		syncState         string
		updateRequestedAt sql.NullString
		createdAt         string
		updatedAt         string
	)

	err := scanner.Scan(
		&cfg.DeviceID,
		&cfg.WifiSSID,
		&cfg.WifiPassword,
		&cfg.ServerURL,
		&cfg.BackupServerURL,
		&sensorsJSON,
		&cfg.SendInterval,
		&cfg.ReconnectTries,
		&cfg.ReadTimeout,
		&syncState,
		&updateRequestedAt,
		&cfg.ConfigVersion,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	cfg.SyncState = SyncState(syncState)
	if err := json.Unmarshal([]byte(sensorsJSON), &cfg.Sensors); err != nil {
		return nil, fmt.Errorf("unmarshalling sensors: %w", err)
	}
	if updateRequestedAt.Valid {
		t, err := parseTime(updateRequestedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing update_requested_at: %w", err)
		}
		cfg.UpdateRequestedAt = &t
	}
	if cfg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if cfg.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &cfg, nil
}

// parseTime parses RFC3339 timestamps as stored by this repository.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// nullableTime returns a sql.NullString for optional time pointers (as RFC3339 strings).
func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
