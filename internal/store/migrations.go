package store

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration defines a column addition for databases created by an older
// schema. The base schema in sqlite.go is always current; these handle
// upgrades in place.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists all schema migrations to apply.
var pendingMigrations = []Migration{
	// Accumulated conversation context (added with the AI assistant)
	{"opportunities", "context_summary", "TEXT NOT NULL DEFAULT ''"},
	{"opportunities", "key_insights", "TEXT NOT NULL DEFAULT '[]'"},
	// Artifact provenance (added with owner scoping)
	{"artifacts", "created_by", "TEXT NOT NULL DEFAULT ''"},
	// Externally supplied progress percentage
	{"phase_progress", "completion_percentage", "INTEGER NOT NULL DEFAULT 0"},
}

// RunMigrations applies column migrations for existing databases.
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	applied := 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			// Column may already exist in a different form; don't fail startup.
			logger.Warn("migration failed",
				zap.String("table", m.Table),
				zap.String("column", m.Column),
				zap.Error(err))
			continue
		}
		logger.Debug("migration applied",
			zap.String("table", m.Table),
			zap.String("column", m.Column))
		applied++
	}

	if applied > 0 {
		logger.Info("schema migrations complete", zap.Int("applied", applied))
	}
	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// tableExists checks if a table exists in the database.
func tableExists(db *sql.DB, table string) bool {
	var count int
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
	if err := db.QueryRow(query, table).Scan(&count); err != nil {
		return false
	}
	return count > 0
}
