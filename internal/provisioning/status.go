package provisioning

import (
	"context"
	"errors"
)

// StatusOracle answers node status polls.
//
// A node polls its status until pairing completes, then switches to
// fetching configuration. Status is a pure read: it never mutates any
// record, so nodes can poll as often as they like.
type StatusOracle struct {
	repo     Repository
	registry *Registry
}

// NewStatusOracle creates a new status oracle.
func NewStatusOracle(repo Repository, registry *Registry) *StatusOracle {
	return &StatusOracle{repo: repo, registry: registry}
}

// Status reports the pairing state for a serial.
//
// Returns ErrNotFound for serials that have never announced; the node
// should announce and retry.
func (o *StatusOracle) Status(ctx context.Context, serial string) (*StatusReport, error) {
	if err := ValidateSerial(serial); err != nil {
		return nil, err
	}

	ann, err := o.repo.GetAnnouncement(ctx, serial)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		Serial:       ann.Serial,
		PairingState: ann.PairingState,
		DeviceID:     ann.DeviceID,
	}
	if ann.PairingState == PairingStateDiscovery {
		report.Discoverable = o.registry.IsLive(ann)
	}
	return report, nil
}

// Known reports whether a serial has ever announced.
func (o *StatusOracle) Known(ctx context.Context, serial string) (bool, error) {
	_, err := o.repo.GetAnnouncement(ctx, serial)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
