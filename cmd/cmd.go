// Package cmd defines the command-line interface for gitlegend.
package cmd

import (
	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(analysisCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(commitsCmd)
	rootCmd.AddCommand(contributorsCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	repoCmd.AddCommand(repoAddCmd)
	repoCmd.AddCommand(repoListCmd)

	analysisCmd.AddCommand(analysisStatusCmd)
	analysisCmd.AddCommand(analysisListCmd)

	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsConfigCmd)
	modelsCmd.AddCommand(modelsSetCmd)
	modelsCmd.AddCommand(modelsTestCmd)
	modelsCmd.AddCommand(modelsAvailableCmd)

	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeMigrateCmd)
	storeCmd.AddCommand(storeExportCmd)
	storeCmd.AddCommand(storeClearCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("db-backend", string(schema.SQLiteBackend), "Store backend: sqlite or mysql or postgresql")
	rootCmd.PersistentFlags().String("db-connect", "", "Database connection string (SQLite path, or user:pass@tcp(host:port)/dbname, or host=... dbname=...)")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent commit detail fetches")
	rootCmd.PersistentFlags().String("model", "", "Model to try before the configured primary model")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of analyzeCmd to Viper
	analyzeCmd.Flags().Int("commit-cap", schema.DefaultCommitCap, "Maximum number of recent commits to ingest")
	analyzeCmd.Flags().String("rollup-mode", string(schema.NewCommitsRollup), "Contributor rollup: new-commits or additive")
	if err := viper.BindPFlags(analyzeCmd.Flags()); err != nil {
		contract.LogFatal("Error binding analyze flags", err)
	}

	// Bind all flags of commitsCmd to Viper
	commitsCmd.Flags().Bool("key-only", false, "Only list key commits")
	commitsCmd.Flags().String("since", "", "Only list commits authored at or after this date (YYYY-MM-DD or RFC 3339)")
	commitsCmd.Flags().IntP("limit", "l", 0, "Maximum number of commits to list (0 = all)")
	if err := viper.BindPFlags(commitsCmd.Flags()); err != nil {
		contract.LogFatal("Error binding commits flags", err)
	}

	// Bind all flags of modelsListCmd to Viper
	modelsListCmd.Flags().Bool("free", false, "Only list free models")
	modelsListCmd.Flags().Bool("premium", false, "Only list premium models")
	modelsListCmd.Flags().Bool("recommended", false, "Only list recommended free models")
	modelsListCmd.MarkFlagsMutuallyExclusive("free", "premium", "recommended")
	if err := viper.BindPFlags(modelsListCmd.Flags()); err != nil {
		contract.LogFatal("Error binding models list flags", err)
	}

	// Bind all flags of modelsConfigCmd to Viper
	modelsConfigCmd.Flags().Int("history", 0, "Show this many saved versions instead of the active config")
	if err := viper.BindPFlags(modelsConfigCmd.Flags()); err != nil {
		contract.LogFatal("Error binding models config flags", err)
	}

	// Bind all flags of modelsSetCmd to Viper
	modelsSetCmd.Flags().String("primary", "", "Primary model id")
	modelsSetCmd.Flags().String("fallback", "", "Fallback model id")
	modelsSetCmd.Flags().StringSlice("enabled", nil, "Comma-separated enabled model ids")
	modelsSetCmd.Flags().String("updated-by", "", "Name recorded on the new version (default: OS user)")
	modelsSetCmd.Flags().Int64("base-version", -1, "Fail if the active version is no longer this one (-1 skips the check)")
	if err := viper.BindPFlags(modelsSetCmd.Flags()); err != nil {
		contract.LogFatal("Error binding models set flags", err)
	}

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding store migrate flags", err)
	}
}
