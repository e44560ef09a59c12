package provisioning

import "time"

// PairingState is the lifecycle state of a discovery announcement.
type PairingState string

// Pairing states.
const (
	// PairingStateDiscovery means the node is announced but unclaimed.
	PairingStateDiscovery PairingState = "discovery"

	// PairingStatePaired means an operator has claimed the node.
	PairingStatePaired PairingState = "paired"
)

// DeviceStatus is the reported operational status of a paired device.
type DeviceStatus string

// Device statuses.
const (
	DeviceStatusOnline   DeviceStatus = "online"
	DeviceStatusOffline  DeviceStatus = "offline"
	DeviceStatusInactive DeviceStatus = "inactive"
)

// SyncState is the configuration synchronisation latch.
//
// The latch has exactly two states. UpdateRequested is set by operator
// actions and cleared when the node fetches its configuration.
type SyncState string

// Sync states.
const (
	SyncStateSynced          SyncState = "synced"
	SyncStateUpdateRequested SyncState = "update_requested"
)

// SensorSet maps sensor names to their enabled state.
//
// Known sensors: temperature, humidity, soil_moisture, light.
type SensorSet map[string]bool

// Sensor names.
const (
	SensorTemperature  = "temperature"
	SensorHumidity     = "humidity"
	SensorSoilMoisture = "soil_moisture"
	SensorLight        = "light"
)

// DefaultSensors returns the sensor set enabled on a freshly paired device.
// All four sensors start enabled; operators disable what the hardware lacks.
func DefaultSensors() SensorSet {
	return SensorSet{
		SensorTemperature:  true,
		SensorHumidity:     true,
		SensorSoilMoisture: true,
		SensorLight:        true,
	}
}

// Clone returns an independent copy of the sensor set.
func (s SensorSet) Clone() SensorSet {
	if s == nil {
		return nil
	}
	out := make(SensorSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Defaults applied to newly paired devices.
const (
	// DefaultFirmwareVersion is recorded until the node reports its own.
	DefaultFirmwareVersion = "1.0.0"

	// DefaultSendInterval is the telemetry interval in seconds.
	DefaultSendInterval = 30

	// DefaultReconnectTries is the node's wifi reconnect attempt count.
	DefaultReconnectTries = 5

	// DefaultReadTimeout is the node's sensor read timeout in seconds.
	DefaultReadTimeout = 10
)

// DiscoveryAnnouncement is a record of a node announcing itself.
//
// One row exists per serial number. Repeated announces refresh the row;
// they never create duplicates and never change a paired row back to
// discovery.
type DiscoveryAnnouncement struct {
	Serial     string `json:"serial"`
	DeviceKind string `json:"deviceKind"`

	// SignalStrength is the reported RSSI in dBm. Nil when the node did
	// not include one in its announce.
	SignalStrength *float64     `json:"signalStrength,omitempty"`
	PairingState   PairingState `json:"pairingState"`

	// OwnerID and DeviceID are set when the announcement is claimed.
	OwnerID  *string `json:"ownerId,omitempty"`
	DeviceID *string `json:"deviceId,omitempty"`

	LastAnnouncedAt time.Time  `json:"lastAnnouncedAt"`
	PairedAt        *time.Time `json:"pairedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// PairedDevice is a node that an operator has claimed.
type PairedDevice struct {
	DeviceID    string `json:"deviceId"`
	Serial      string `json:"serial"`
	OwnerID     string `json:"ownerId"`
	Name        string `json:"name"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	DeviceKind  string `json:"deviceKind"`

	Status  DeviceStatus `json:"status"`
	Sensors SensorSet    `json:"sensors"`

	// Calibration holds per-sensor calibration offsets.
	Calibration map[string]float64 `json:"calibration,omitempty"`

	FirmwareVersion string     `json:"firmwareVersion"`
	LastSeen        *time.Time `json:"lastSeen,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// DeviceConfiguration is the stored configuration for a paired device.
//
// The node never sees this struct directly; config fetches return a
// ConfigPayload assembled from it.
type DeviceConfiguration struct {
	DeviceID string `json:"deviceId"`

	WifiSSID     string `json:"wifiSsid"`
	WifiPassword string `json:"-"`

	ServerURL       string `json:"serverUrl"`
	BackupServerURL string `json:"backupServerUrl,omitempty"`

	Sensors SensorSet `json:"sensors"`

	// SendInterval is the telemetry interval in seconds.
	SendInterval int `json:"sendInterval"`

	// ReconnectTries is the node's wifi reconnect attempt count.
	ReconnectTries int `json:"reconnectTries"`

	// ReadTimeout is the node's sensor read timeout in seconds.
	ReadTimeout int `json:"readTimeout"`

	SyncState         SyncState  `json:"syncState"`
	UpdateRequestedAt *time.Time `json:"updateRequestedAt,omitempty"`

	// ConfigVersion increments on every operator edit.
	ConfigVersion int `json:"configVersion"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WifiConfig is the wifi section of a config payload.
type WifiConfig struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

// ServerConfig is the server section of a config payload.
type ServerConfig struct {
	URL       string `json:"url"`
	BackupURL string `json:"backupUrl,omitempty"`
}

// ConfigPayload is the complete configuration returned to a polling node.
//
// Fetches are total: the node always receives the full configuration,
// never a delta, so a missed poll costs nothing.
type ConfigPayload struct {
	DeviceID string       `json:"deviceId"`
	Name     string       `json:"name"`
	Wifi     WifiConfig   `json:"wifi"`
	Server   ServerConfig `json:"server"`
	Sensors  SensorSet    `json:"sensors"`

	SendInterval   int `json:"sendInterval"`
	ReconnectTries int `json:"reconnectTries"`
	ReadTimeout    int `json:"readTimeout"`

	ConfigVersion int `json:"configVersion"`

	// UpdateRequested reports whether this fetch cleared a pending
	// update latch. Purely informational for the node.
	UpdateRequested bool `json:"updateRequested"`

	// UpdatedAt is when the stored configuration last changed. It comes
	// from the record, not the clock, so repeated fetches of an
	// unchanged configuration return identical payloads.
	UpdatedAt time.Time `json:"updatedAt"`
}

// DeviceDefaults carries the deployment-specific values stamped onto a
// device's configuration at pairing time. Sourced from config.yaml.
type DeviceDefaults struct {
	ServerURL       string
	BackupServerURL string
	SendInterval    int
	ReconnectTries  int
	ReadTimeout     int
}

// StatusReport is the answer to a node's status poll.
//
// It is a pure read: asking never changes any record.
type StatusReport struct {
	Serial       string       `json:"serial"`
	PairingState PairingState `json:"pairingState"`

	// Discoverable reports whether the announcement is within the
	// discovery window. Always false for paired or unknown serials.
	Discoverable bool `json:"discoverable"`

	// DeviceID is set once the node is paired, so it can start
	// fetching its configuration.
	DeviceID *string `json:"deviceId,omitempty"`
}
