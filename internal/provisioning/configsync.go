package provisioning

import (
	"context"
	"fmt"
	"time"
)

// ConfigUpdate carries optional configuration changes from an operator.
// Nil fields are left unchanged.
type ConfigUpdate struct {
	WifiSSID        *string   `json:"wifiSsid,omitempty"`
	WifiPassword    *string   `json:"wifiPassword,omitempty"`
	ServerURL       *string   `json:"serverUrl,omitempty"`
	BackupServerURL *string   `json:"backupServerUrl,omitempty"`
	Sensors         SensorSet `json:"sensors,omitempty"`
	SendInterval    *int      `json:"sendInterval,omitempty"`
	ReconnectTries  *int      `json:"reconnectTries,omitempty"`
	ReadTimeout     *int      `json:"readTimeout,omitempty"`
}

// ConfigSync manages configuration synchronisation between operators and
// polling nodes.
//
// The sync mechanism is a two-state latch per device. Operator edits
// change the stored configuration and bump its version; requesting an
// update sets the latch. When the node fetches its configuration it
// always receives the complete current configuration, and the fetch
// clears the latch in the same step. There is no delta protocol and no
// server push: a node that misses a poll just picks everything up on
// the next one.
type ConfigSync struct {
	repo   Repository
	logger Logger
	events EventSink

	now func() time.Time
}

// NewConfigSync creates a new configuration sync service.
func NewConfigSync(repo Repository) *ConfigSync {
	return &ConfigSync{
		repo:   repo,
		logger: noopLogger{},
		events: noopSink{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the sync service.
func (s *ConfigSync) SetLogger(logger Logger) {
	s.logger = logger
}

// SetEvents sets the event sink for the sync service.
func (s *ConfigSync) SetEvents(events EventSink) {
	s.events = events
}

// FetchConfig returns the complete configuration for a polling node and
// clears the update latch.
//
// The fetch is total and idempotent from the node's point of view:
// fetching twice returns the same configuration. The latch clear is a
// compare-and-clear, so of two concurrent fetches at most one observes
// UpdateRequested=true.
func (s *ConfigSync) FetchConfig(ctx context.Context, deviceID string) (*ConfigPayload, error) {
	device, err := s.repo.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.repo.GetConfig(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	cleared, err := s.repo.ClearUpdateLatch(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if cleared {
		s.logger.Debug("config update latch cleared", "device_id", deviceID)
	}

	return &ConfigPayload{
		DeviceID: device.DeviceID,
		Name:     device.Name,
		Wifi: WifiConfig{
			SSID:     cfg.WifiSSID,
			Password: cfg.WifiPassword,
		},
		Server: ServerConfig{
			URL:       cfg.ServerURL,
			BackupURL: cfg.BackupServerURL,
		},
		Sensors:         cfg.Sensors.Clone(),
		SendInterval:    cfg.SendInterval,
		ReconnectTries:  cfg.ReconnectTries,
		ReadTimeout:     cfg.ReadTimeout,
		ConfigVersion:   cfg.ConfigVersion,
		UpdateRequested: cleared,
		UpdatedAt:       cfg.UpdatedAt,
	}, nil
}

// GetConfig returns the stored configuration for the dashboard.
// Unlike FetchConfig this is a pure read; the latch is untouched.
func (s *ConfigSync) GetConfig(ctx context.Context, deviceID string) (*DeviceConfiguration, error) {
	return s.repo.GetConfig(ctx, deviceID)
}

// UpdateConfig applies an operator's configuration edit.
//
// The stored configuration changes and its version increments, but the
// update latch is NOT set: editing and telling the node to re-fetch are
// separate actions, so an operator can batch several edits and request
// a single update at the end.
func (s *ConfigSync) UpdateConfig(ctx context.Context, deviceID string, update ConfigUpdate) (*DeviceConfiguration, error) {
	cfg, err := s.repo.GetConfig(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if update.WifiSSID != nil {
		cfg.WifiSSID = *update.WifiSSID
	}
	if update.WifiPassword != nil {
		cfg.WifiPassword = *update.WifiPassword
	}
	if update.ServerURL != nil {
		if *update.ServerURL == "" {
			return nil, fmt.Errorf("%w: server url cannot be empty", ErrValidation)
		}
		cfg.ServerURL = *update.ServerURL
	}
	if update.BackupServerURL != nil {
		cfg.BackupServerURL = *update.BackupServerURL
	}
	if update.Sensors != nil {
		if err := ValidateSensors(update.Sensors); err != nil {
			return nil, err
		}
		cfg.Sensors = update.Sensors.Clone()
	}
	if update.SendInterval != nil {
		if err := ValidateSendInterval(*update.SendInterval); err != nil {
			return nil, err
		}
		cfg.SendInterval = *update.SendInterval
	}
	if update.ReconnectTries != nil {
		if err := ValidateReconnectTries(*update.ReconnectTries); err != nil {
			return nil, err
		}
		cfg.ReconnectTries = *update.ReconnectTries
	}
	if update.ReadTimeout != nil {
		if err := ValidateReadTimeout(*update.ReadTimeout); err != nil {
			return nil, err
		}
		cfg.ReadTimeout = *update.ReadTimeout
	}

	cfg.ConfigVersion++

	if err := s.repo.UpdateConfig(ctx, cfg); err != nil {
		return nil, err
	}

	s.logger.Info("device config updated",
		"device_id", deviceID,
		"config_version", cfg.ConfigVersion,
	)
	s.events.Publish(EventConfigUpdated, cfg)

	return cfg, nil
}

// RequestUpdate sets the update latch for a device.
//
// Idempotent: requesting while a request is already pending refreshes
// the request timestamp and stays in the same state. The node observes
// the latch on its next config fetch.
func (s *ConfigSync) RequestUpdate(ctx context.Context, deviceID string) error {
	if err := s.repo.RequestConfigUpdate(ctx, deviceID, s.now().UTC()); err != nil {
		return err
	}

	s.logger.Info("config update requested", "device_id", deviceID)
	s.events.Publish(EventConfigUpdateRequested, map[string]any{"deviceId": deviceID})

	return nil
}
