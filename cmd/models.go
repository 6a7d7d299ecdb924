package cmd

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/gitlegend/gitlegend/internal/outwriter"
	"github.com/gitlegend/gitlegend/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// modelsCmd groups model catalog and config administration.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Browse AI models and manage the active model config",
	Long: `Browse the model catalog and manage which models summarize key commits.

The active config names a primary model, a fallback model and the list of
enabled models. Every change is saved as a new version; the newest version
is active.

Examples:
  gitlegend models list --free
  gitlegend models config --history 5
  gitlegend models set --primary openai/gpt-4o-mini --fallback deepseek/deepseek-chat:free \
    --enabled openai/gpt-4o-mini,deepseek/deepseek-chat:free
  gitlegend models test deepseek/deepseek-chat:free
  gitlegend models available`,
}

// modelsListCmd prints the catalog.
var modelsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List catalog models and their role in the active config",
	Args:    cobra.NoArgs,
	PreRunE: serviceSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		catalog := service.Models()
		var models []schema.ModelDescriptor
		switch {
		case viper.GetBool("recommended"):
			models = catalog.ListRecommendedFree()
		case viper.GetBool("free"):
			models = catalog.ListFree()
		case viper.GetBool("premium"):
			models = catalog.ListPremium()
		default:
			models = catalog.All()
		}

		active, err := service.GetModelConfig(rootCtx)
		if err != nil {
			return err
		}
		return writer().WriteModels(models, active.ModelConfig)
	},
}

// modelsConfigCmd prints the active config, or its history.
var modelsConfigCmd = &cobra.Command{
	Use:     "config",
	Short:   "Show the active model config",
	Args:    cobra.NoArgs,
	PreRunE: serviceSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		if limit := viper.GetInt("history"); limit > 0 {
			history, err := service.ModelConfigHistory(rootCtx, limit)
			if err != nil {
				return err
			}
			return writer().WriteModelConfigs(history)
		}
		active, err := service.GetModelConfig(rootCtx)
		if err != nil {
			return err
		}
		return writer().WriteModelConfigs([]schema.ModelConfigVersion{active})
	},
}

// modelsSetCmd saves a new model config version.
var modelsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save a new model config version",
	Long: `Validate and save a new model config version.

Primary and fallback must be catalog models and must both be enabled. When
--enabled is omitted, the primary and fallback models are enabled.

Pass --base-version with the version you read to fail instead of
overwriting a config someone else saved in the meantime.`,
	Args:    cobra.NoArgs,
	PreRunE: serviceSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfgIn := schema.ModelConfig{
			Primary:  strings.TrimSpace(viper.GetString("primary")),
			Fallback: strings.TrimSpace(viper.GetString("fallback")),
			Enabled:  viper.GetStringSlice("enabled"),
		}
		if len(cfgIn.Enabled) == 0 {
			cfgIn.Enabled = []string{cfgIn.Primary, cfgIn.Fallback}
		}

		saved, err := service.SetModelConfig(rootCtx, cfgIn, updatedBy(), viper.GetInt64("base-version"))
		if err != nil {
			return err
		}
		fmt.Printf("Saved model config version %d\n", saved.Version)
		return writer().WriteModelConfigs([]schema.ModelConfigVersion{saved})
	},
}

// modelsTestCmd probes one model.
var modelsTestCmd = &cobra.Command{
	Use:     "test <model-id>",
	Short:   "Send a probe request to one model",
	Args:    cobra.ExactArgs(1),
	PreRunE: serviceSetup,
	RunE: func(_ *cobra.Command, args []string) error {
		ok := service.TestModelAvailability(rootCtx, args[0])
		return writer().WriteAvailability([]outwriter.ModelAvailability{{ModelID: args[0], Available: ok}})
	},
}

// modelsAvailableCmd probes every enabled model.
var modelsAvailableCmd = &cobra.Command{
	Use:     "available",
	Short:   "Probe every enabled model of the active config",
	Args:    cobra.NoArgs,
	PreRunE: serviceSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		active, err := service.GetModelConfig(rootCtx)
		if err != nil {
			return err
		}
		available, err := service.AvailableModels(rootCtx)
		if err != nil {
			return err
		}
		up := make(map[string]bool, len(available))
		for _, id := range available {
			up[id] = true
		}
		results := make([]outwriter.ModelAvailability, 0, len(active.Enabled))
		for _, id := range active.Enabled {
			results = append(results, outwriter.ModelAvailability{ModelID: id, Available: up[id]})
		}
		return writer().WriteAvailability(results)
	},
}

// updatedBy names who saved a config: --updated-by, else the OS user.
func updatedBy() string {
	if name := strings.TrimSpace(viper.GetString("updated-by")); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "cli"
}
