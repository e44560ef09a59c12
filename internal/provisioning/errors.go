package provisioning

import "errors"

// Domain errors for the provisioning package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, provisioning.ErrAlreadyPaired) {
//	    // handle pairing conflict
//	}
var (
	// ErrNotFound is returned when a serial or device ID does not exist.
	ErrNotFound = errors.New("provisioning: not found")

	// ErrNotDiscoverable is returned when pairing targets a serial that
	// has never announced. The discovery window itself is advisory and
	// never blocks a pair.
	ErrNotDiscoverable = errors.New("provisioning: not discoverable")

	// ErrAlreadyPaired is returned when pairing targets a serial that has
	// already been claimed. The loser of a pairing race sees this.
	ErrAlreadyPaired = errors.New("provisioning: already paired")

	// ErrDeviceExists is returned when a device record collides with an
	// existing device ID or serial.
	ErrDeviceExists = errors.New("provisioning: device already exists")

	// ErrValidation is returned when request validation fails.
	ErrValidation = errors.New("provisioning: validation failed")

	// ErrStoreUnavailable wraps database failures so transport layers can
	// map them to 503 without knowing about database/sql.
	ErrStoreUnavailable = errors.New("provisioning: store unavailable")
)
