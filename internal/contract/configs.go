package contract

import (
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/gitlegend/gitlegend/schema"
)

// Default values for configuration.
const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultSiteURL           = "https://gitlegend.dev"
	DefaultSiteTitle         = "GitLegend Analysis"
	DefaultRequestTimeout    = 30 * time.Second
	DefaultMaxAttempts       = 3
	DefaultRetryDelay        = time.Second
	DefaultBatchSize         = 3
	DefaultBatchDelay        = 2 * time.Second
	DefaultTemperature       = 0.7
	DefaultMaxTokens         = 150
	DefaultStaleAfter        = time.Hour
	DefaultPrecision         = 2
)

// DefaultWorkers is the default number of concurrent detail fetches.
var DefaultWorkers = min(runtime.GOMAXPROCS(0), 8)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// Config holds the runtime configuration.
// This struct remains the "final, validated" config.
type Config struct {
	DBBackend schema.DatabaseBackend
	DBConnect string // Please use env var as this is plaintext

	GitHubToken   string
	GitHubBaseURL string // empty = public api.github.com
	CommitCap     int
	PageSize      int
	Workers       int

	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	SiteURL           string
	SiteTitle         string
	RequestTimeout    time.Duration
	MaxAttempts       int
	RetryDelay        time.Duration
	BatchSize         int
	BatchDelay        time.Duration
	Temperature       float64
	MaxTokens         int
	ModelOverride     string

	RollupMode schema.RollupMode
	StaleAfter time.Duration

	Output     schema.OutputMode
	OutputFile string
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Persistence ---
	DBBackend string `mapstructure:"db-backend"`
	DBConnect string `mapstructure:"db-connect"`

	// --- Hosting service ---
	GitHubToken   string `mapstructure:"github-token"`
	GitHubBaseURL string `mapstructure:"github-base-url"`
	CommitCap     int    `mapstructure:"commit-cap"`
	PageSize      int    `mapstructure:"page-size"`
	Workers       int    `mapstructure:"workers"`

	// --- Generation provider ---
	OpenRouterAPIKey  string  `mapstructure:"openrouter-api-key"`
	OpenRouterBaseURL string  `mapstructure:"openrouter-base-url"`
	SiteURL           string  `mapstructure:"site-url"`
	SiteTitle         string  `mapstructure:"site-title"`
	RequestTimeout    string  `mapstructure:"request-timeout"`
	MaxAttempts       int     `mapstructure:"max-attempts"`
	RetryDelay        string  `mapstructure:"retry-delay"`
	BatchSize         int     `mapstructure:"batch-size"`
	BatchDelay        string  `mapstructure:"batch-delay"`
	Temperature       float64 `mapstructure:"temperature"`
	MaxTokens         int     `mapstructure:"max-tokens"`
	Model             string  `mapstructure:"model"`

	// --- Pipeline ---
	RollupMode string `mapstructure:"rollup-mode"`
	StaleAfter string `mapstructure:"stale-after"`

	// --- Output ---
	Output     string `mapstructure:"output"`
	OutputFile string `mapstructure:"output-file"`
	Precision  int    `mapstructure:"precision"`
	Width      int    `mapstructure:"width"`
	Color      string `mapstructure:"color"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// ProcessAndValidate turns raw input into the validated config.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateBackendConfig(cfg, input); err != nil {
		return err
	}
	if err := processHostingInputs(cfg, input); err != nil {
		return err
	}
	if err := processGenerationInputs(cfg, input); err != nil {
		return err
	}
	if err := processPipelineInputs(cfg, input); err != nil {
		return err
	}
	return processOutputInputs(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfig validates the persistence backend.
func validateBackendConfig(cfg *Config, input *ConfigRawInput) error {
	backend := strings.ToLower(input.DBBackend)
	if backend == "" {
		backend = string(schema.SQLiteBackend)
	}
	cfg.DBBackend = schema.DatabaseBackend(backend)
	if _, ok := schema.ValidDatabaseBackends[cfg.DBBackend]; !ok {
		return fmt.Errorf("invalid db backend '%s'. must be sqlite, mysql, postgresql", input.DBBackend)
	}
	cfg.DBConnect = input.DBConnect
	return ValidateDatabaseConnectionString(cfg.DBBackend, cfg.DBConnect)
}

// processHostingInputs validates the hosting-service settings.
func processHostingInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.GitHubToken = input.GitHubToken
	cfg.GitHubBaseURL = input.GitHubBaseURL
	if cfg.GitHubBaseURL != "" {
		if _, err := url.ParseRequestURI(cfg.GitHubBaseURL); err != nil {
			return fmt.Errorf("invalid github-base-url '%s': %w", cfg.GitHubBaseURL, err)
		}
	}

	cfg.CommitCap = defaultInt(input.CommitCap, schema.DefaultCommitCap)
	if cfg.CommitCap < 1 {
		return fmt.Errorf("commit-cap must be at least 1, got %d", input.CommitCap)
	}
	cfg.PageSize = defaultInt(input.PageSize, schema.DefaultPageSize)
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		return fmt.Errorf("page-size must be between 1 and 100, got %d", input.PageSize)
	}
	cfg.Workers = defaultInt(input.Workers, DefaultWorkers)
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", input.Workers)
	}
	return nil
}

// processGenerationInputs validates the generation-provider settings.
func processGenerationInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OpenRouterAPIKey = input.OpenRouterAPIKey
	cfg.OpenRouterBaseURL = strings.TrimRight(defaultString(input.OpenRouterBaseURL, DefaultOpenRouterBaseURL), "/")
	if _, err := url.ParseRequestURI(cfg.OpenRouterBaseURL); err != nil {
		return fmt.Errorf("invalid openrouter-base-url '%s': %w", cfg.OpenRouterBaseURL, err)
	}
	cfg.SiteURL = defaultString(input.SiteURL, DefaultSiteURL)
	cfg.SiteTitle = defaultString(input.SiteTitle, DefaultSiteTitle)
	cfg.ModelOverride = strings.TrimSpace(input.Model)

	var err error
	if cfg.RequestTimeout, err = parseDuration("request-timeout", input.RequestTimeout, DefaultRequestTimeout); err != nil {
		return err
	}
	if cfg.RetryDelay, err = parseDuration("retry-delay", input.RetryDelay, DefaultRetryDelay); err != nil {
		return err
	}
	if cfg.BatchDelay, err = parseDuration("batch-delay", input.BatchDelay, DefaultBatchDelay); err != nil {
		return err
	}

	cfg.MaxAttempts = defaultInt(input.MaxAttempts, DefaultMaxAttempts)
	if cfg.MaxAttempts < 1 {
		return fmt.Errorf("max-attempts must be at least 1, got %d", input.MaxAttempts)
	}
	cfg.BatchSize = defaultInt(input.BatchSize, DefaultBatchSize)
	if cfg.BatchSize < 1 {
		return fmt.Errorf("batch-size must be at least 1, got %d", input.BatchSize)
	}
	cfg.MaxTokens = defaultInt(input.MaxTokens, DefaultMaxTokens)
	if cfg.MaxTokens < 1 {
		return fmt.Errorf("max-tokens must be at least 1, got %d", input.MaxTokens)
	}
	cfg.Temperature = input.Temperature
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %.2f", input.Temperature)
	}
	return nil
}

// processPipelineInputs validates orchestrator settings.
func processPipelineInputs(cfg *Config, input *ConfigRawInput) error {
	mode := strings.ToLower(defaultString(input.RollupMode, string(schema.NewCommitsRollup)))
	cfg.RollupMode = schema.RollupMode(mode)
	if _, ok := schema.ValidRollupModes[cfg.RollupMode]; !ok {
		return fmt.Errorf("invalid rollup mode '%s'. must be new-commits or additive", input.RollupMode)
	}

	var err error
	cfg.StaleAfter, err = parseDuration("stale-after", input.StaleAfter, DefaultStaleAfter)
	return err
}

// processOutputInputs validates output settings.
func processOutputInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Output = schema.OutputMode(strings.ToLower(defaultString(input.Output, string(schema.TextOut))))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}
	cfg.OutputFile = input.OutputFile

	cfg.Precision = input.Precision
	if cfg.Precision == 0 {
		cfg.Precision = DefaultPrecision
	}
	if cfg.Precision < 1 || cfg.Precision > 4 {
		return fmt.Errorf("precision must be 1 to 4, got %d", input.Precision)
	}

	if input.Width < 0 {
		return fmt.Errorf("width cannot be negative")
	}
	cfg.Width = input.Width

	colorStr := defaultString(input.Color, "yes")
	useColors, err := ParseBoolString(colorStr)
	if err != nil {
		return fmt.Errorf("invalid color value '%s': %w", input.Color, err)
	}
	cfg.UseColors = useColors
	return nil
}

// parseDuration parses a Go duration, falling back to def when raw is empty.
func parseDuration(name, raw string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", name, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s cannot be negative", name)
	}
	return d, nil
}

func defaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
