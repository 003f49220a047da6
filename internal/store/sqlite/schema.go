package sqlite

import "github.com/maloquacious/count/internal/store"

// bookkeepingSchema records which migrations have been applied.
const bookkeepingSchema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     INTEGER PRIMARY KEY,
    description TEXT NOT NULL,
    applied_at  INTEGER NOT NULL
);
`

// Migrations is the ordered schema history of the counters database.
// Append only; never edit or renumber an entry once released.
var Migrations = []store.Migration{
	{
		Version:     1,
		Description: "create_counters_table",
		SQL: `CREATE TABLE counters (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL,
    value      INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`,
	},
}
