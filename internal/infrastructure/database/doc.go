// Package database opens the companion's local SQLite file and applies the
// embedded schema migrations.
//
// The file is small: it holds board-level settings such as the identifier
// that names the board's MQTT topic. Losing it means the board gets a new
// identifier and every paired App Inventor client has to be reconfigured,
// so the file is created 0600 and written through transactions only.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are files named YYYYMMDD_HHMMSS_description.up.sql with an
// optional .down.sql twin, registered through MigrationsFS by the
// migrations package.
package database
