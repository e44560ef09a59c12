// Package database opens and migrates the SQLite file that backs gardend.
//
// Everything the dashboard serves — discovery announcements, paired
// devices, device configurations, users — lives in one file under the
// controller's data directory, opened in WAL mode so node announce writes
// do not block dashboard reads. Schema changes ship as versioned SQL
// files embedded by the migrations package and are applied on every
// start:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns are nullable or carry defaults, so
// a controller rolled back to an older gardend build still reads the
// database a newer build migrated.
package database
