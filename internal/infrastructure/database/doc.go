// Package database provides SQLite connectivity for the command journal.
//
// This package manages:
//   - Opening the database file with WAL mode and a busy timeout
//   - Applying versioned migrations from an fs.FS (normally the embedded
//     migrations package)
//   - Health checks and lifecycle
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Journal.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql. A matching
// .down.sql is kept for manual rollback and never executed.
package database
