package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gitlegend/gitlegend/core"
	"github.com/gitlegend/gitlegend/internal/contract"
	"github.com/gitlegend/gitlegend/internal/genclient"
	"github.com/gitlegend/gitlegend/internal/githost"
	"github.com/gitlegend/gitlegend/internal/iocache"
	"github.com/gitlegend/gitlegend/internal/outwriter"
	"github.com/gitlegend/gitlegend/internal/registry"
	"github.com/gitlegend/gitlegend/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// service is the query surface, built by serviceSetup.
var service *core.Service

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "gitlegend",
	Short:              "Analyze GitHub repositories and tell their story.",
	Long:               `GitLegend ingests commit history from GitHub, scores every commit, summarizes the key ones with AI models and rolls the results up into contributor and health reports.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Set environment variable prefix
	viper.SetEnvPrefix("GITLEGEND")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Keys without a flag still need a default so that Unmarshal sees their env values.
	viper.SetDefault("db-backend", schema.SQLiteBackend)
	viper.SetDefault("db-connect", "")
	viper.SetDefault("github-token", "")
	viper.SetDefault("github-base-url", "")
	viper.SetDefault("commit-cap", schema.DefaultCommitCap)
	viper.SetDefault("page-size", schema.DefaultPageSize)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("openrouter-api-key", "")
	viper.SetDefault("openrouter-base-url", contract.DefaultOpenRouterBaseURL)
	viper.SetDefault("site-url", contract.DefaultSiteURL)
	viper.SetDefault("site-title", contract.DefaultSiteTitle)
	viper.SetDefault("request-timeout", contract.DefaultRequestTimeout.String())
	viper.SetDefault("max-attempts", contract.DefaultMaxAttempts)
	viper.SetDefault("retry-delay", contract.DefaultRetryDelay.String())
	viper.SetDefault("batch-size", contract.DefaultBatchSize)
	viper.SetDefault("batch-delay", contract.DefaultBatchDelay.String())
	viper.SetDefault("temperature", contract.DefaultTemperature)
	viper.SetDefault("max-tokens", contract.DefaultMaxTokens)
	viper.SetDefault("model", "")
	viper.SetDefault("rollup-mode", schema.NewCommitsRollup)
	viper.SetDefault("stale-after", contract.DefaultStaleAfter.String())
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".gitlegend") // Name of config file (without extension)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// configSetup resolves and validates configuration without touching the store.
func configSetup(_ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	color.NoColor = color.NoColor || !cfg.UseColors
	return nil
}

// storeSetup validates configuration and opens the store, migrating it first.
func storeSetup(cmd *cobra.Command, args []string) error {
	if err := configSetup(cmd, args); err != nil {
		return err
	}
	if err := iocache.InitStore(cfg.DBBackend, cfg.DBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return nil
}

// serviceSetup opens the store and wires the ingestor, the generation client
// and the service on top of it.
func serviceSetup(cmd *cobra.Command, args []string) error {
	return buildService(cmd, args, core.ServiceOptions{})
}

// progressServiceSetup is serviceSetup with run progress reported on stderr.
func progressServiceSetup(cmd *cobra.Command, args []string) error {
	return buildService(cmd, args, core.ServiceOptions{
		OnProgress: func(analysisID string, progress int) {
			contract.LogInfo("Analysis %s: %d%%", analysisID, progress)
		},
	})
}

func buildService(cmd *cobra.Command, args []string, extra core.ServiceOptions) error {
	if err := storeSetup(cmd, args); err != nil {
		return err
	}

	source, err := githost.NewIngestor(cfg)
	if err != nil {
		return err
	}
	models := registry.Default()
	summarizer := genclient.New(genclient.OptionsFromConfig(cfg), models)
	if cfg.OpenRouterAPIKey == "" {
		contract.LogWarn("openrouter-api-key is not set; key commits will not be summarized", nil)
	}

	opts := core.ServiceOptionsFromConfig(cfg)
	opts.OnProgress = extra.OnProgress
	service = core.NewService(iocache.Manager.GetStore(), source, summarizer, models, opts)
	return nil
}

// writer returns an output writer bound to the validated config.
func writer() *outwriter.OutWriter {
	return outwriter.NewOutWriter(cfg)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Shutdown stops in-flight analyses started by this process.
func Shutdown(ctx context.Context) error {
	if service == nil {
		return nil
	}
	return service.Shutdown(ctx)
}
