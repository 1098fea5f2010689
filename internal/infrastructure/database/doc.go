// Package database opens and manages the MacroDeck SQLite store.
//
// The store holds macro definitions and execution history. Connections
// run in WAL mode so reads (API listing macros, execution queries) do
// not block the single writer, and every query goes through
// parameterised statements. The database file is created 0600.
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are embedded via the migrations package and applied in
// filename order, each inside its own transaction. They are kept
// additive: new columns are nullable or carry defaults, and columns are
// never dropped or renamed, so an older binary can still read a newer
// database. Every migration ships an .up.sql and a matching .down.sql.
package database
