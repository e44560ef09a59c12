package provisioning

import (
	"fmt"
	"regexp"
)

// Validation constants.
const (
	maxSerialLength      = 64
	maxDeviceKindLength  = 50
	maxNameLength        = 100
	maxLocationLength    = 100
	maxDescriptionLength = 500

	// Node-side settings bounds. Intervals below these make nodes
	// hammer the server; above them the dashboard looks dead.
	minSendInterval = 5
	maxSendInterval = 3600
	minReadTimeout  = 1
	maxReadTimeout  = 120
	maxReconnects   = 50

	serialPattern = `^[A-Za-z0-9][A-Za-z0-9_-]*$`
)

var serialRegex = regexp.MustCompile(serialPattern)

// Known sensor names for validating sensor sets.
var validSensors = map[string]struct{}{
	SensorTemperature:  {},
	SensorHumidity:     {},
	SensorSoilMoisture: {},
	SensorLight:        {},
}

// ValidateSerial checks a serial number for format and length.
func ValidateSerial(serial string) error {
	if serial == "" {
		return fmt.Errorf("%w: serial is required", ErrValidation)
	}
	if len(serial) > maxSerialLength {
		return fmt.Errorf("%w: serial exceeds %d characters", ErrValidation, maxSerialLength)
	}
	if !serialRegex.MatchString(serial) {
		return fmt.Errorf("%w: serial contains invalid characters", ErrValidation)
	}
	return nil
}

// ValidateDeviceKind checks a device kind value.
func ValidateDeviceKind(kind string) error {
	if kind == "" {
		return fmt.Errorf("%w: device kind is required", ErrValidation)
	}
	if len(kind) > maxDeviceKindLength {
		return fmt.Errorf("%w: device kind exceeds %d characters", ErrValidation, maxDeviceKindLength)
	}
	return nil
}

// ValidateName checks an operator-supplied device name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrValidation, maxNameLength)
	}
	return nil
}

// ValidateSensors checks that a sensor set only names known sensors.
func ValidateSensors(sensors SensorSet) error {
	for name := range sensors {
		if _, ok := validSensors[name]; !ok {
			return fmt.Errorf("%w: unknown sensor %q", ErrValidation, name)
		}
	}
	return nil
}

// ValidateSendInterval checks the telemetry interval bounds.
func ValidateSendInterval(seconds int) error {
	if seconds < minSendInterval || seconds > maxSendInterval {
		return fmt.Errorf("%w: send interval must be %d-%d seconds", ErrValidation, minSendInterval, maxSendInterval)
	}
	return nil
}

// ValidateReadTimeout checks the sensor read timeout bounds.
func ValidateReadTimeout(seconds int) error {
	if seconds < minReadTimeout || seconds > maxReadTimeout {
		return fmt.Errorf("%w: read timeout must be %d-%d seconds", ErrValidation, minReadTimeout, maxReadTimeout)
	}
	return nil
}

// ValidateReconnectTries checks the wifi reconnect attempt bounds.
func ValidateReconnectTries(tries int) error {
	if tries < 1 || tries > maxReconnects {
		return fmt.Errorf("%w: reconnect tries must be 1-%d", ErrValidation, maxReconnects)
	}
	return nil
}
