package provisioning

import (
	"context"
	"fmt"
	"time"
)

// Logger defines the logging interface used by the provisioning services.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AnnounceRequest is a node announcing its presence.
// SignalStrength is optional; absent and zero are distinct.
type AnnounceRequest struct {
	Serial         string   `json:"serial"`
	DeviceKind     string   `json:"deviceKind"`
	SignalStrength *float64 `json:"signalStrength,omitempty"`
}

// Validate checks the announce request fields.
func (r AnnounceRequest) Validate() error {
	if err := ValidateSerial(r.Serial); err != nil {
		return err
	}
	return ValidateDeviceKind(r.DeviceKind)
}

// Registry handles announcements and the discovery listing.
//
// Nodes call Announce on boot and periodically afterwards; announcing is
// idempotent and at-least-once safe. Discoverability is evaluated at
// read time against the discovery window. No record is ever deleted for
// going stale, and announcing never reopens a paired record.
type Registry struct {
	repo   Repository
	window time.Duration
	logger Logger
	events EventSink

	// now is replaceable for window boundary tests.
	now func() time.Time
}

// NewRegistry creates a new discovery registry.
//
// window is the discovery liveness window: announcements older than this
// are filtered from the discoverable listing.
func NewRegistry(repo Repository, window time.Duration) *Registry {
	return &Registry{
		repo:   repo,
		window: window,
		logger: noopLogger{},
		events: noopSink{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetEvents sets the event sink for the registry.
func (r *Registry) SetEvents(events EventSink) {
	r.events = events
}

// Announce records a node's presence.
//
// The same serial can announce any number of times: the row is refreshed
// in place, never duplicated. If the node is already paired the record
// stays paired; the announce only refreshes its liveness timestamp.
func (r *Registry) Announce(ctx context.Context, req AnnounceRequest) (*DiscoveryAnnouncement, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ann, err := r.repo.UpsertAnnouncement(ctx, req.Serial, req.DeviceKind, req.SignalStrength, r.now())
	if err != nil {
		return nil, fmt.Errorf("announcing %s: %w", req.Serial, err)
	}

	r.logger.Debug("device announced",
		"serial", ann.Serial,
		"kind", ann.DeviceKind,
		"state", ann.PairingState,
	)
	r.events.Publish(EventDeviceAnnounced, ann)

	return ann, nil
}

// Discoverable lists announcements that an operator can pair right now:
// in discovery state and announced within the window.
func (r *Registry) Discoverable(ctx context.Context) ([]DiscoveryAnnouncement, error) {
	anns, err := r.repo.ListAnnouncements(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing announcements: %w", err)
	}

	cutoff := r.now().Add(-r.window)
	live := make([]DiscoveryAnnouncement, 0, len(anns))
	for _, ann := range anns {
		if ann.PairingState == PairingStateDiscovery && !ann.LastAnnouncedAt.Before(cutoff) {
			live = append(live, ann)
		}
	}
	return live, nil
}

// CountPaired counts paired nodes that announced within the window.
// Purely informational: pairing state never expires, this only reports
// which paired nodes are still checking in.
func (r *Registry) CountPaired(ctx context.Context) (int, error) {
	count, err := r.repo.CountPairedSince(ctx, r.now().Add(-r.window))
	if err != nil {
		return 0, fmt.Errorf("counting paired announcements: %w", err)
	}
	return count, nil
}

// ListAnnouncements lists every announcement regardless of state or age.
// Operator diagnostics view; stale and paired rows included.
func (r *Registry) ListAnnouncements(ctx context.Context) ([]DiscoveryAnnouncement, error) {
	return r.repo.ListAnnouncements(ctx)
}

// IsLive reports whether an announcement falls within the discovery window.
func (r *Registry) IsLive(ann *DiscoveryAnnouncement) bool {
	return !ann.LastAnnouncedAt.Before(r.now().Add(-r.window))
}

// Window returns the configured discovery window.
func (r *Registry) Window() time.Duration {
	return r.window
}

// ResetToDiscovery forces every announcement back to discovery state.
//
// Administrative escape hatch for recovering from inconsistent state.
// Paired device records and configurations are left untouched; only the
// discovery table is reset.
func (r *Registry) ResetToDiscovery(ctx context.Context) (int64, error) {
	count, err := r.repo.ResetAllToDiscovery(ctx)
	if err != nil {
		return 0, fmt.Errorf("resetting discovery state: %w", err)
	}

	r.logger.Warn("discovery state force-reset", "reset_count", count)
	r.events.Publish(EventDiscoveryReset, map[string]any{"resetCount": count})

	return count, nil
}
