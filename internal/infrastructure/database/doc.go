// Package database provides SQLite connectivity for Luma Core.
//
// It manages:
//   - The database connection, with WAL mode for concurrent reads
//   - Embedded schema migrations, applied in version order
//   - Connection lifecycle and health checks
//
// All queries use parameterised statements, and the database file is
// created with 0600 permissions.
//
// Usage:
//
//	db, err := database.Open(cfg)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive-only: new columns must be nullable or carry a
// default, and each migration file has both .up.sql and .down.sql.
package database
