// Package pg bootstraps the PostgreSQL layer used by the billing and listing
// stores: a pgx/v5 connection pool opened with retries, goose migrations
// applied from an embedded filesystem, transaction scoping and error helpers
// for the SQLSTATE codes the stores branch on.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, migrations.FS, log); err != nil {
//	    return err
//	}
//
// Writes that must succeed or fail together go through InTx:
//
//	err := pg.InTx(ctx, pool, func(tx pgx.Tx) error {
//	    // ...
//	    return nil
//	})
//
// # Errors
//
// Connection, migration and health failures are reported with the sentinel
// errors declared in errors.go joined with the underlying driver error, so
// callers can match them with errors.Is.
package pg
