package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PairRequest is an operator claiming an announced node.
type PairRequest struct {
	Serial      string `json:"serial"`
	OwnerID     string `json:"-"`
	Name        string `json:"name"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Validate checks the pair request fields.
func (r PairRequest) Validate() error {
	if err := ValidateSerial(r.Serial); err != nil {
		return err
	}
	if r.OwnerID == "" {
		return fmt.Errorf("%w: owner is required", ErrValidation)
	}
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	if len(r.Location) > maxLocationLength {
		return fmt.Errorf("%w: location exceeds %d characters", ErrValidation, maxLocationLength)
	}
	if len(r.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, maxDescriptionLength)
	}
	return nil
}

// DeviceUpdate carries optional field changes for a paired device.
// Nil fields are left unchanged.
type DeviceUpdate struct {
	Name            *string            `json:"name,omitempty"`
	Location        *string            `json:"location,omitempty"`
	Description     *string            `json:"description,omitempty"`
	Status          *DeviceStatus      `json:"status,omitempty"`
	Sensors         SensorSet          `json:"sensors,omitempty"`
	Calibration     map[string]float64 `json:"calibration,omitempty"`
	FirmwareVersion *string            `json:"firmwareVersion,omitempty"`
}

// Pairer manages the paired-device lifecycle: claiming announced nodes,
// maintaining their records, and releasing them back to discovery.
//
// Pairing writes three records - the discovery claim, the device, and
// its configuration - as a saga. The claim goes first because its
// conditional update decides races; if a later step fails, the completed
// steps are compensated so the node remains pairable.
type Pairer struct {
	repo     Repository
	defaults DeviceDefaults
	logger   Logger
	events   EventSink

	now func() time.Time
}

// NewPairer creates a new pairer.
//
// defaults are stamped onto each new device's configuration.
func NewPairer(repo Repository, defaults DeviceDefaults) *Pairer {
	return &Pairer{
		repo:     repo,
		defaults: defaults,
		logger:   noopLogger{},
		events:   noopSink{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the pairer.
func (p *Pairer) SetLogger(logger Logger) {
	p.logger = logger
}

// SetEvents sets the event sink for the pairer.
func (p *Pairer) SetEvents(events EventSink) {
	p.events = events
}

// Pair claims an announced node for an operator.
//
// Exactly one concurrent Pair call for a serial succeeds; the rest get
// ErrAlreadyPaired. Serials that never announced get ErrNotDiscoverable.
// The discovery window is not checked here: it affects listing only, so
// a stale announcement in discovery state can still be claimed.
func (p *Pairer) Pair(ctx context.Context, req PairRequest) (*PairedDevice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ann, err := p.repo.GetAnnouncement(ctx, req.Serial)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: serial %s has never announced", ErrNotDiscoverable, req.Serial)
		}
		return nil, err
	}
	if ann.PairingState == PairingStatePaired {
		return nil, ErrAlreadyPaired
	}

	deviceID := uuid.NewString()
	pairedAt := p.now().UTC()

	// Step 1: claim the announcement. The conditional update is the
	// race arbiter; a loser stops here with ErrAlreadyPaired.
	if err := p.repo.ClaimAnnouncement(ctx, req.Serial, req.OwnerID, deviceID, pairedAt); err != nil {
		return nil, err
	}

	// Step 2: create the device record.
	device := &PairedDevice{
		DeviceID:        deviceID,
		Serial:          req.Serial,
		OwnerID:         req.OwnerID,
		Name:            req.Name,
		Location:        req.Location,
		Description:     req.Description,
		DeviceKind:      ann.DeviceKind,
		Status:          DeviceStatusOffline,
		Sensors:         DefaultSensors(),
		FirmwareVersion: DefaultFirmwareVersion,
	}
	if err := p.repo.CreateDevice(ctx, device); err != nil {
		p.compensate(ctx, req.Serial, "")
		return nil, fmt.Errorf("creating device for %s: %w", req.Serial, err)
	}

	// Step 3: create the configuration with deployment defaults.
	cfg := &DeviceConfiguration{
		DeviceID:        deviceID,
		ServerURL:       p.defaults.ServerURL,
		BackupServerURL: p.defaults.BackupServerURL,
		Sensors:         DefaultSensors(),
		SendInterval:    p.defaults.SendInterval,
		ReconnectTries:  p.defaults.ReconnectTries,
		ReadTimeout:     p.defaults.ReadTimeout,
		SyncState:       SyncStateSynced,
	}
	if err := p.repo.CreateConfig(ctx, cfg); err != nil {
		p.compensate(ctx, req.Serial, deviceID)
		return nil, fmt.Errorf("creating config for %s: %w", req.Serial, err)
	}

	p.logger.Info("device paired",
		"serial", req.Serial,
		"device_id", deviceID,
		"owner_id", req.OwnerID,
		"name", req.Name,
	)
	p.events.Publish(EventDevicePaired, device)

	return device, nil
}

// compensate rolls back completed pairing steps after a failure.
// Best effort: failures here are logged, not returned, because the
// original error is what the caller needs to see.
func (p *Pairer) compensate(ctx context.Context, serial, deviceID string) {
	if deviceID != "" {
		if err := p.repo.DeleteDevice(ctx, deviceID); err != nil && !errors.Is(err, ErrNotFound) {
			p.logger.Error("pairing rollback: deleting device failed",
				"serial", serial, "device_id", deviceID, "error", err)
		}
	}
	if err := p.repo.ReleaseAnnouncement(ctx, serial); err != nil && !errors.Is(err, ErrNotFound) {
		p.logger.Error("pairing rollback: releasing announcement failed",
			"serial", serial, "error", err)
	}
}

// Unpair removes a paired device and returns its serial to discovery,
// so the node can be claimed again on its next announce.
func (p *Pairer) Unpair(ctx context.Context, deviceID string) error {
	device, err := p.repo.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}

	if err := p.repo.DeleteConfig(ctx, deviceID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("deleting config for %s: %w", deviceID, err)
	}
	if err := p.repo.DeleteDevice(ctx, deviceID); err != nil {
		return fmt.Errorf("deleting device %s: %w", deviceID, err)
	}

	// The announcement may have been removed by an admin reset; that is
	// fine, the node re-announces on its next poll.
	if err := p.repo.ReleaseAnnouncement(ctx, device.Serial); err != nil && !errors.Is(err, ErrNotFound) {
		p.logger.Warn("unpair: releasing announcement failed",
			"serial", device.Serial, "error", err)
	}

	p.logger.Info("device unpaired", "serial", device.Serial, "device_id", deviceID)
	p.events.Publish(EventDeviceUnpaired, map[string]any{
		"deviceId": deviceID,
		"serial":   device.Serial,
	})

	return nil
}

// GetDevice retrieves a paired device by ID.
func (p *Pairer) GetDevice(ctx context.Context, deviceID string) (*PairedDevice, error) {
	return p.repo.GetDevice(ctx, deviceID)
}

// ListDevices retrieves paired devices, optionally filtered by owner.
func (p *Pairer) ListDevices(ctx context.Context, ownerID string) ([]PairedDevice, error) {
	if ownerID != "" {
		return p.repo.ListDevicesByOwner(ctx, ownerID)
	}
	return p.repo.ListDevices(ctx)
}

// UpdateDevice applies a partial update to a paired device's record.
// Serial, owner, and device kind are immutable; re-binding a device ID
// to different hardware is not supported.
func (p *Pairer) UpdateDevice(ctx context.Context, deviceID string, update DeviceUpdate) (*PairedDevice, error) {
	device, err := p.repo.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		if err := ValidateName(*update.Name); err != nil {
			return nil, err
		}
		device.Name = *update.Name
	}
	if update.Location != nil {
		if len(*update.Location) > maxLocationLength {
			return nil, fmt.Errorf("%w: location exceeds %d characters", ErrValidation, maxLocationLength)
		}
		device.Location = *update.Location
	}
	if update.Description != nil {
		if len(*update.Description) > maxDescriptionLength {
			return nil, fmt.Errorf("%w: description exceeds %d characters", ErrValidation, maxDescriptionLength)
		}
		device.Description = *update.Description
	}
	if update.Status != nil {
		device.Status = *update.Status
	}
	if update.Sensors != nil {
		if err := ValidateSensors(update.Sensors); err != nil {
			return nil, err
		}
		device.Sensors = update.Sensors.Clone()
	}
	if update.Calibration != nil {
		device.Calibration = update.Calibration
	}
	if update.FirmwareVersion != nil {
		device.FirmwareVersion = *update.FirmwareVersion
	}

	if err := p.repo.UpdateDevice(ctx, device); err != nil {
		return nil, err
	}

	p.events.Publish(EventDeviceUpdated, device)
	return device, nil
}

// MarkSeen records that a device reported in, flipping it online.
// Called by the readings ingestion path.
func (p *Pairer) MarkSeen(ctx context.Context, deviceID string) error {
	return p.repo.UpdateDeviceStatus(ctx, deviceID, DeviceStatusOnline, p.now().UTC())
}
