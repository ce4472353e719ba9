package cmd

import (
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/sekkot/portal/internal/db"
	"github.com/spf13/cobra"
)

var (
	dbDriver     string
	dbConnection string
)

// AddDatabaseFlags registers --driver and --db, defaulting to DB_DRIVER and
// DB_CONNECTION.
func AddDatabaseFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&dbDriver, "driver", envOr("DB_DRIVER", "sqlite"), "database driver (sqlite or pgx)")
	root.PersistentFlags().StringVar(&dbConnection, "db", envOr("DB_CONNECTION", "./data/portal.db?_pragma=foreign_keys(1)"), "database connection string")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// openDB connects and brings the schema up to date.
func openDB() (*sqlx.DB, error) {
	database, err := db.Init(dbDriver, dbConnection)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(database.DB, dbDriver); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}
