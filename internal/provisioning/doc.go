// Package provisioning implements the device lifecycle for Smart Garden Core.
//
// Garden nodes are polling-only: they announce themselves over HTTP, an
// operator pairs them from the dashboard, and the node picks up its
// configuration on its next poll. The package owns that whole lifecycle:
// discovery, pairing, status reporting, and configuration synchronisation.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────────┐
//	│                           Provisioning                                │
//	│                                                                       │
//	│  ┌──────────────┐  ┌──────────────┐  ┌──────────────┐  ┌───────────┐ │
//	│  │   Registry   │  │    Pairer    │  │ StatusOracle │  │ ConfigSync│ │
//	│  │ (registry.go)│  │ (pairing.go) │  │  (status.go) │  │(configsync│ │
//	│  │              │  │              │  │              │  │      .go) │ │
//	│  │ • Announce   │  │ • Pair       │  │ • Status     │  │ • Fetch   │ │
//	│  │ • Discovery  │  │ • Unpair     │  │   lookup     │  │ • Request │ │
//	│  │   listing    │  │ • Saga with  │  │   (pure read)│  │   update  │ │
//	│  │ • Reset      │  │   rollback   │  │              │  │ • Edit    │ │
//	│  └──────────────┘  └──────────────┘  └──────────────┘  └───────────┘ │
//	│          │                 │                 │               │        │
//	│          └─────────────────┴────────┬────────┴───────────────┘        │
//	│                                     ▼                                 │
//	│                       ┌──────────────────────┐                        │
//	│                       │      Repository      │                        │
//	│                       │   (repository.go)    │                        │
//	│                       │ • SQLite queries     │                        │
//	│                       │ • Conditional updates│                        │
//	│                       └──────────────────────┘                        │
//	└──────────────────────────────────────────────────────────────────────┘
//
// # Key Behaviours
//
//   - Announce is an idempotent upsert keyed on serial number. Announcing
//     never deletes anything and never reopens a paired record.
//   - Discoverability is decided at read time: an announcement counts as
//     live when it arrived within the discovery window. Expiry is
//     advisory; stale rows are filtered from listings, not removed.
//   - Pairing is one-shot. The winner is decided by a conditional update
//     guarded on the discovery state; the loser gets ErrAlreadyPaired.
//     Pairing writes three records (claim, device, config) as a saga with
//     compensation, so a failure part-way leaves nothing behind.
//   - Configuration sync is a two-state latch. Operators request an
//     update; the node's next config fetch returns the full configuration
//     and clears the latch in the same step.
//
// # Usage
//
//	repo := provisioning.NewSQLiteRepository(db)
//	registry := provisioning.NewRegistry(repo, 30*time.Second)
//	pairer := provisioning.NewPairer(repo, defaults)
//	sync := provisioning.NewConfigSync(repo)
//
//	// Node announces itself
//	ann, _ := registry.Announce(ctx, provisioning.AnnounceRequest{
//	    Serial:     "ESP-001",
//	    DeviceKind: "soil_sensor",
//	})
//
//	// Operator pairs it
//	dev, _ := pairer.Pair(ctx, provisioning.PairRequest{
//	    Serial:  "ESP-001",
//	    OwnerID: userID,
//	    Name:    "Tomato Bed",
//	})
//
//	// Node fetches its configuration (clears the update latch)
//	payload, _ := sync.FetchConfig(ctx, dev.DeviceID)
//
// # Thread Safety
//
// All services are safe for concurrent use. Race-sensitive transitions
// (pairing claims, latch clears) are single conditional SQL statements,
// so concurrent callers are serialised by the database.
package provisioning
