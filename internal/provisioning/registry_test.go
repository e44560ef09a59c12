package provisioning

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fixedClock returns a now func pinned to t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestRegistry(t *testing.T) (*Registry, Repository) {
	t.Helper()
	repo := NewSQLiteRepository(setupTestDB(t))
	return NewRegistry(repo, 30*time.Second), repo
}

func TestAnnounce(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	ann, err := registry.Announce(ctx, AnnounceRequest{
		Serial:         "ESP-001",
		DeviceKind:     "soil_sensor",
		SignalStrength: signalPtr(-52),
	})
	if err != nil {
		t.Fatalf("Announce() error = %v", err)
	}

	if ann.PairingState != PairingStateDiscovery {
		t.Errorf("PairingState = %q, want discovery", ann.PairingState)
	}
}

func TestAnnounce_Validation(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  AnnounceRequest
	}{
		{
			name: "empty serial",
			req:  AnnounceRequest{DeviceKind: "soil_sensor"},
		},
		{
			name: "serial with spaces",
			req:  AnnounceRequest{Serial: "ESP 001", DeviceKind: "soil_sensor"},
		},
		{
			name: "missing device kind",
			req:  AnnounceRequest{Serial: "ESP-001"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Announce(ctx, tt.req)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Announce() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestAnnounce_RepeatIsIdempotent(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	req := AnnounceRequest{Serial: "ESP-001", DeviceKind: "soil_sensor", SignalStrength: signalPtr(-52)}
	for i := 0; i < 5; i++ {
		if _, err := registry.Announce(ctx, req); err != nil {
			t.Fatalf("Announce() #%d error = %v", i, err)
		}
	}

	anns, err := registry.ListAnnouncements(ctx)
	if err != nil {
		t.Fatalf("ListAnnouncements() error = %v", err)
	}
	if len(anns) != 1 {
		t.Errorf("announcement count = %d after 5 announces, want 1", len(anns))
	}
}

func TestDiscoverable_WindowBoundary(t *testing.T) {
	registry, repo := newTestRegistry(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// ESP-FRESH announced 29s ago, ESP-STALE 31s ago
	if _, err := repo.UpsertAnnouncement(ctx, "ESP-FRESH", "soil_sensor", signalPtr(-50), base.Add(-29*time.Second)); err != nil {
		t.Fatalf("UpsertAnnouncement() error = %v", err)
	}
	if _, err := repo.UpsertAnnouncement(ctx, "ESP-STALE", "soil_sensor", signalPtr(-50), base.Add(-31*time.Second)); err != nil {
		t.Fatalf("UpsertAnnouncement() error = %v", err)
	}

	registry.now = fixedClock(base)

	live, err := registry.Discoverable(ctx)
	if err != nil {
		t.Fatalf("Discoverable() error = %v", err)
	}

	if len(live) != 1 {
		t.Fatalf("Discoverable() count = %d, want 1", len(live))
	}
	if live[0].Serial != "ESP-FRESH" {
		t.Errorf("Discoverable() = %q, want ESP-FRESH", live[0].Serial)
	}
}

func TestCountPaired(t *testing.T) {
	registry, repo := newTestRegistry(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Two paired nodes still announcing, one paired node gone quiet,
	// one unpaired node announcing.
	for _, tc := range []struct {
		serial string
		age    time.Duration
		paired bool
	}{
		{"ESP-001", 10 * time.Second, true},
		{"ESP-002", 29 * time.Second, true},
		{"ESP-003", 5 * time.Minute, true},
		{"ESP-004", 5 * time.Second, false},
	} {
		if _, err := repo.UpsertAnnouncement(ctx, tc.serial, "soil_sensor", signalPtr(-50), base.Add(-tc.age)); err != nil {
			t.Fatalf("UpsertAnnouncement(%s) error = %v", tc.serial, err)
		}
		if tc.paired {
			if err := repo.ClaimAnnouncement(ctx, tc.serial, "user-1", "dev-"+tc.serial, base); err != nil {
				t.Fatalf("ClaimAnnouncement(%s) error = %v", tc.serial, err)
			}
		}
	}

	registry.now = fixedClock(base)

	count, err := registry.CountPaired(ctx)
	if err != nil {
		t.Fatalf("CountPaired() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountPaired() = %d, want 2", count)
	}
}

func TestDiscoverable_StaleRowsSurvive(t *testing.T) {
	registry, repo := newTestRegistry(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if _, err := repo.UpsertAnnouncement(ctx, "ESP-001", "soil_sensor", signalPtr(-50), base.Add(-5*time.Minute)); err != nil {
		t.Fatalf("UpsertAnnouncement() error = %v", err)
	}

	registry.now = fixedClock(base)

	live, err := registry.Discoverable(ctx)
	if err != nil {
		t.Fatalf("Discoverable() error = %v", err)
	}
	if len(live) != 0 {
		t.Errorf("Discoverable() count = %d, want 0", len(live))
	}

	// Expiry is advisory: the row is filtered, not deleted
	all, err := registry.ListAnnouncements(ctx)
	if err != nil {
		t.Fatalf("ListAnnouncements() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("stored announcement count = %d, want 1", len(all))
	}

	// A fresh announce revives discoverability with the same row
	registry.now = fixedClock(base.Add(time.Second))
	if _, err := registry.Announce(ctx, AnnounceRequest{Serial: "ESP-001", DeviceKind: "soil_sensor"}); err != nil {
		t.Fatalf("Announce() error = %v", err)
	}
	live, err = registry.Discoverable(ctx)
	if err != nil {
		t.Fatalf("Discoverable() error = %v", err)
	}
	if len(live) != 1 {
		t.Errorf("Discoverable() count after re-announce = %d, want 1", len(live))
	}
}

func TestDiscoverable_ExcludesPaired(t *testing.T) {
	registry, repo := newTestRegistry(t)
	ctx := context.Background()

	now := time.Now()
	if _, err := repo.UpsertAnnouncement(ctx, "ESP-001", "soil_sensor", signalPtr(-50), now); err != nil {
		t.Fatalf("UpsertAnnouncement() error = %v", err)
	}
	if err := repo.ClaimAnnouncement(ctx, "ESP-001", "user-1", "dev-1", now); err != nil {
		t.Fatalf("ClaimAnnouncement() error = %v", err)
	}

	live, err := registry.Discoverable(ctx)
	if err != nil {
		t.Fatalf("Discoverable() error = %v", err)
	}
	if len(live) != 0 {
		t.Errorf("Discoverable() includes paired device, want empty")
	}
}

func TestAnnounce_NoResurrection(t *testing.T) {
	registry, repo := newTestRegistry(t)
	ctx := context.Background()

	now := time.Now()
	if _, err := registry.Announce(ctx, AnnounceRequest{Serial: "ESP-001", DeviceKind: "soil_sensor"}); err != nil {
		t.Fatalf("Announce() error = %v", err)
	}
	if err := repo.ClaimAnnouncement(ctx, "ESP-001", "user-1", "dev-1", now); err != nil {
		t.Fatalf("ClaimAnnouncement() error = %v", err)
	}

	// Node keeps announcing after pairing (at-least-once behaviour)
	ann, err := registry.Announce(ctx, AnnounceRequest{Serial: "ESP-001", DeviceKind: "soil_sensor"})
	if err != nil {
		t.Fatalf("Announce() after pairing error = %v", err)
	}
	if ann.PairingState != PairingStatePaired {
		t.Errorf("PairingState = %q after re-announce, want paired", ann.PairingState)
	}
}

func TestResetToDiscovery(t *testing.T) {
	registry, repo := newTestRegistry(t)
	ctx := context.Background()

	now := time.Now()
	if _, err := repo.UpsertAnnouncement(ctx, "ESP-001", "soil_sensor", signalPtr(-50), now); err != nil {
		t.Fatalf("UpsertAnnouncement() error = %v", err)
	}
	if err := repo.ClaimAnnouncement(ctx, "ESP-001", "user-1", "dev-1", now); err != nil {
		t.Fatalf("ClaimAnnouncement() error = %v", err)
	}

	count, err := registry.ResetToDiscovery(ctx)
	if err != nil {
		t.Fatalf("ResetToDiscovery() error = %v", err)
	}
	if count != 1 {
		t.Errorf("reset count = %d, want 1", count)
	}

	ann, err := repo.GetAnnouncement(ctx, "ESP-001")
	if err != nil {
		t.Fatalf("GetAnnouncement() error = %v", err)
	}
	if ann.PairingState != PairingStateDiscovery {
		t.Errorf("PairingState = %q after reset, want discovery", ann.PairingState)
	}
}
