package cmd

import (
	"fmt"
	"os"

	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/internal/iocache"
	"github.com/gitlegend/gitlegend/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeCmd focused on persistence management.
//
// Note: store subcommands only open the database; they do not talk to GitHub
// or the generation provider.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the database that holds repositories and analyses",
	Long: `Manage the persistence store.

Supported backends: SQLite (default, ~/.gitlegend.db), MySQL, PostgreSQL.

Subcommands:
  status  - Show connection info, schema version and table sizes
  migrate - Run database schema migrations
  export  - Export analyses, commits and contributors to Parquet
  clear   - Remove all stored data

Examples:
  gitlegend store status
  GITLEGEND_DB_BACKEND=postgresql GITLEGEND_DB_CONNECT="host=... dbname=..." gitlegend store migrate
  gitlegend store export --output-file legend`,
}

// storeStatusCmd shows store status.
var storeStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display store statistics and connection details",
	Args:    cobra.NoArgs,
	PreRunE: storeSetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get store status", err)
		}
		iocache.PrintStoreStatus(os.Stdout, status)
	},
}

// storeMigrateCmd runs database migrations.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  gitlegend store migrate

  # Rollback to initial state
  gitlegend store migrate --target-version 0`,
	Args:    cobra.NoArgs,
	PreRunE: configSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		result, err := iocache.MigrateStore(cfg.DBBackend, cfg.DBConnect, targetVersion)
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		if !result.Changed {
			fmt.Printf("Store already at version %d\n", result.To)
			return
		}
		fmt.Printf("Migrated %s store from version %d to %d\n", cfg.DBBackend, result.From, result.To)
	},
}

// storeExportCmd exports stored data to Parquet files.
var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export analyses, commits and contributors to Parquet",
	Long: `Export every analysis run, commit and contributor to Parquet files
named <output-file>.analyses.parquet, <output-file>.commits.parquet and
<output-file>.contributors.parquet.

Requires: --output-file parameter

Examples:
  gitlegend store export --output-file legend
  duckdb -c "SELECT author_name, count(*) FROM read_parquet('legend.commits.parquet') GROUP BY 1"`,
	Args:    cobra.NoArgs,
	PreRunE: storeSetup,
	Run: func(_ *cobra.Command, _ []string) {
		summary, err := iocache.ExportParquet(rootCtx, iocache.Manager.GetStore(), cfg.OutputFile)
		if err != nil {
			contract.LogFatal("Failed to export data", err)
		}
		iocache.PrintExportSummary(os.Stdout, string(cfg.DBBackend), summary)
	},
}

// storeClearCmd clears all data.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored data",
	Long: `Delete every repository, analysis, commit, contributor and model config.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the tables and the migration history

WARNING: This action cannot be undone. Consider exporting data first.`,
	Args:    cobra.NoArgs,
	PreRunE: configSetup,
	Run: func(_ *cobra.Command, _ []string) {
		dbFilePath := iocache.GetDBFilePath()
		if cfg.DBBackend == schema.SQLiteBackend && cfg.DBConnect != "" {
			dbFilePath = cfg.DBConnect
		}
		if err := iocache.ClearStore(cfg.DBBackend, dbFilePath, cfg.DBConnect); err != nil {
			contract.LogFatal("Failed to clear store", err)
		}
		fmt.Println("Store cleared successfully.")
	},
}
