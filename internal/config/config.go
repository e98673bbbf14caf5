// Package config loads tool configuration from command-line flags, environment variables, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultNormalClass is the label used for non-anomalous samples.
const DefaultNormalClass = "good"

// Config holds the configuration for one tool invocation.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Build    BuildConfig
	Register RegisterConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// BuildConfig holds structure builder settings.
type BuildConfig struct {
	JSONDir    string
	ImageDir   string
	OutputDir  string
	Pattern    string // doublestar pattern for metadata files (default: *.json)
	ReportPath string // Optional YAML run report
	Overwrite  bool
	DryRun     bool
}

// RegisterConfig holds config scanner settings.
type RegisterConfig struct {
	DataRoot    string
	DatasetName string
	NormalClass string
	OutputDir   string // Directory for dataset_config_<name>.txt (default: .)
	Debounce    time.Duration
	Watch       bool
}

// commonFlags are shared by every tool.
type commonFlags struct {
	env      *string
	logLevel *string
	envFile  *string
}

func registerCommon(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		env:      fs.String("env", "", "Environment (development, production)"),
		logLevel: fs.String("log-level", "", "Log level (debug, info, warn, error)"),
		envFile:  fs.String("env-file", ".env", "Path to .env file"),
	}
}

func (c commonFlags) apply(cfg *Config) {
	// Missing .env files are fine.
	_ = loadEnvFile(*c.envFile)

	cfg.App.Environment = getConfigValue(*c.env, "IAD_ENV", "development")
	cfg.Logger.Level = getConfigValue(*c.logLevel, "IAD_LOG_LEVEL", "info")
}

// LoadBuildConfig parses build-structure arguments with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadBuildConfig(args []string, output io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("build-structure", flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}
	common := registerCommon(fs)

	jsonDir := fs.String("json_dir", "", "Directory containing JSON metadata files (*.json)")
	imageDir := fs.String("image_dir", "", "Root directory of the original image dataset")
	outputDir := fs.String("output_dir", "", "Output directory for the symlink structure")
	overwrite := fs.Bool("overwrite", false, "Rebuild into an existing output directory")
	pattern := fs.String("pattern", "", "Glob for metadata files relative to --json_dir (default: *.json)")
	dryRun := fs.Bool("dry_run", false, "Plan links and report without touching the filesystem")
	reportPath := fs.String("report", "", "Write the run summary as YAML to this path")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg := &Config{}
	common.apply(cfg)

	cfg.Build = BuildConfig{
		JSONDir:    getConfigValue(*jsonDir, "IAD_JSON_DIR", ""),
		ImageDir:   getConfigValue(*imageDir, "IAD_IMAGE_DIR", ""),
		OutputDir:  getConfigValue(*outputDir, "IAD_OUTPUT_DIR", ""),
		Pattern:    getConfigValue(*pattern, "IAD_PATTERN", "*.json"),
		ReportPath: getConfigValue(*reportPath, "IAD_REPORT", ""),
		Overwrite:  getBoolFlagValue(fs, "overwrite", *overwrite, "IAD_OVERWRITE", false),
		DryRun:     getBoolFlagValue(fs, "dry_run", *dryRun, "IAD_DRY_RUN", false),
	}

	for _, p := range []*string{&cfg.Build.JSONDir, &cfg.Build.ImageDir, &cfg.Build.OutputDir, &cfg.Build.ReportPath} {
		expanded, err := expandPath(*p)
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", *p, err)
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadRegisterConfig parses register-dataset arguments with the same precedence as LoadBuildConfig.
func LoadRegisterConfig(args []string, output io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("register-dataset", flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}
	common := registerCommon(fs)

	dataRoot := fs.String("data_root", "", "Path to the symlink dataset structure")
	datasetName := fs.String("dataset_name", "", "Name for the dataset (used with --dataset downstream)")
	normalClass := fs.String("normal_class", "", "Label of the normal class (default: good)")
	outputDir := fs.String("output_dir", "", "Directory for the generated config file (default: .)")
	watch := fs.Bool("watch", false, "Keep running and regenerate when the tree changes")
	debounce := fs.String("debounce", "", "Quiet period before regenerating in watch mode (default: 500ms)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg := &Config{}
	common.apply(cfg)

	cfg.Register = RegisterConfig{
		DataRoot:    getConfigValue(*dataRoot, "IAD_DATA_ROOT", ""),
		DatasetName: getConfigValue(*datasetName, "IAD_DATASET_NAME", ""),
		NormalClass: getConfigValue(*normalClass, "IAD_NORMAL_CLASS", DefaultNormalClass),
		OutputDir:   getConfigValue(*outputDir, "IAD_CONFIG_OUTPUT_DIR", "."),
		Watch:       getBoolFlagValue(fs, "watch", *watch, "IAD_WATCH", false),
	}

	debounceStr := getConfigValue(*debounce, "IAD_DEBOUNCE", "500ms")
	d, err := time.ParseDuration(debounceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid debounce %q: %w", debounceStr, err)
	}
	cfg.Register.Debounce = d

	if cfg.Register.DataRoot, err = expandPath(cfg.Register.DataRoot); err != nil {
		return nil, fmt.Errorf("invalid data root: %w", err)
	}
	if cfg.Register.OutputDir, err = expandPath(cfg.Register.OutputDir); err != nil {
		return nil, fmt.Errorf("invalid output directory: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings shared by every tool.
// Tool options are validated by the component that consumes them.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Register.Debounce < 0 {
		return errors.New("debounce must not be negative")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute. Empty paths stay empty.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolFlagValue returns a boolean flag if it was set explicitly, else the env var, else the default.
// Accepts: "true", "1", "yes" (case-insensitive) as true in the environment.
func getBoolFlagValue(fs *flag.FlagSet, name string, flagValue bool, envKey string, defaultValue bool) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	if set {
		return flagValue
	}

	envValue := strings.ToLower(os.Getenv(envKey))
	if envValue == "" {
		return defaultValue
	}
	return envValue == "true" || envValue == "1" || envValue == "yes"
}

// loadEnvFile loads KEY=value pairs from a .env file.
// Variables already set in the environment take precedence.
func loadEnvFile(path string) error {
	return godotenv.Load(path)
}
