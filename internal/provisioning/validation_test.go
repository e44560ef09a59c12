package provisioning

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateSerial(t *testing.T) {
	tests := []struct {
		name    string
		serial  string
		wantErr bool
	}{
		{name: "valid", serial: "ESP-001", wantErr: false},
		{name: "valid with underscore", serial: "node_42", wantErr: false},
		{name: "empty", serial: "", wantErr: true},
		{name: "leading dash", serial: "-ESP", wantErr: true},
		{name: "spaces", serial: "ESP 001", wantErr: true},
		{name: "too long", serial: strings.Repeat("A", maxSerialLength+1), wantErr: true},
		{name: "max length ok", serial: strings.Repeat("A", maxSerialLength), wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSerial(tt.serial)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSerial(%q) error = %v, wantErr %v", tt.serial, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("ValidateSerial(%q) error = %v, want ErrValidation", tt.serial, err)
			}
		})
	}
}

func TestValidateSensors(t *testing.T) {
	if err := ValidateSensors(DefaultSensors()); err != nil {
		t.Errorf("ValidateSensors(defaults) error = %v", err)
	}
	if err := ValidateSensors(SensorSet{SensorLight: false}); err != nil {
		t.Errorf("ValidateSensors(partial) error = %v", err)
	}
	if err := ValidateSensors(SensorSet{"barometer": true}); !errors.Is(err, ErrValidation) {
		t.Errorf("ValidateSensors(unknown) error = %v, want ErrValidation", err)
	}
}

func TestValidateSendInterval(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		wantErr bool
	}{
		{name: "default", seconds: DefaultSendInterval, wantErr: false},
		{name: "minimum", seconds: minSendInterval, wantErr: false},
		{name: "maximum", seconds: maxSendInterval, wantErr: false},
		{name: "below minimum", seconds: minSendInterval - 1, wantErr: true},
		{name: "above maximum", seconds: maxSendInterval + 1, wantErr: true},
		{name: "zero", seconds: 0, wantErr: true},
		{name: "negative", seconds: -30, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSendInterval(tt.seconds)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSendInterval(%d) error = %v, wantErr %v", tt.seconds, err, tt.wantErr)
			}
		})
	}
}

func TestValidateReconnectTries(t *testing.T) {
	if err := ValidateReconnectTries(DefaultReconnectTries); err != nil {
		t.Errorf("ValidateReconnectTries(default) error = %v", err)
	}
	if err := ValidateReconnectTries(0); !errors.Is(err, ErrValidation) {
		t.Errorf("ValidateReconnectTries(0) error = %v, want ErrValidation", err)
	}
	if err := ValidateReconnectTries(maxReconnects + 1); !errors.Is(err, ErrValidation) {
		t.Errorf("ValidateReconnectTries(max+1) error = %v, want ErrValidation", err)
	}
}

func TestValidateReadTimeout(t *testing.T) {
	if err := ValidateReadTimeout(DefaultReadTimeout); err != nil {
		t.Errorf("ValidateReadTimeout(default) error = %v", err)
	}
	if err := ValidateReadTimeout(0); !errors.Is(err, ErrValidation) {
		t.Errorf("ValidateReadTimeout(0) error = %v, want ErrValidation", err)
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("Tomato Bed"); err != nil {
		t.Errorf("ValidateName() error = %v", err)
	}
	if err := ValidateName(""); !errors.Is(err, ErrValidation) {
		t.Errorf("ValidateName(empty) error = %v, want ErrValidation", err)
	}
	if err := ValidateName(strings.Repeat("x", maxNameLength+1)); !errors.Is(err, ErrValidation) {
		t.Errorf("ValidateName(long) error = %v, want ErrValidation", err)
	}
}
