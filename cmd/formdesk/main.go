package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/formdesk/formdesk/internal/api"
	"github.com/formdesk/formdesk/internal/genai"
	"github.com/formdesk/formdesk/internal/lockfile"
	"github.com/formdesk/formdesk/internal/store"
	"github.com/formdesk/formdesk/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for FormDesk state data
	DefaultStateDir = "/var/lib/formdesk"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "formdesk.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// A file-based store means the state directory is exclusive to one
	// FormDesk instance.
	if store.DetectDSNType(*flags.dbDSN) != "postgres" {
		lock, err := lockfile.AcquireLock(*flags.stateDir)
		if err != nil {
			slog.Error("Failed to acquire state directory lock", "error", err)
			os.Exit(1)
		}
		defer lock.Release()
	}

	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags, config)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping FormDesk with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "api", len(apiOpts))
	if err := api.Run(storeOpts, genaiOpts, apiOpts); err != nil {
		slog.Error("FormDesk failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("FormDesk exited successfully")
}

// Config holds environment configuration
type Config struct {
	DbDriver      string
	DatabaseURL   string
	StateDir      string
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	GenAIDisabled bool
	GenAITimeout  time.Duration
	APIAddr       string
	CatalogPath   string
	KnowledgePath string
	LogLevel      string
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDriver      *string
	dbDSN         *string
	openaiKey     *string
	openaiModel   *string
	apiAddr       *string
	catalogPath   *string
	knowledgePath *string
}

// initializeLogger sets up structured logging, honoring $LOG_LEVEL.
func initializeLogger() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DbDriver:      os.Getenv("FORMDESK_DB_DRIVER"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("FORMDESK_STATE_DIR"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		GenAIDisabled: util.ParseBoolEnv("GENAI_DISABLED", false),
		GenAITimeout:  util.ParseDurationEnv("GENAI_TIMEOUT", 0),
		APIAddr:       os.Getenv("API_ADDR"),
		CatalogPath:   os.Getenv("FORMDESK_CATALOG"),
		KnowledgePath: os.Getenv("FORMDESK_KNOWLEDGE"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No FORMDESK_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"FORMDESK_DB_DRIVER", config.DbDriver,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"FORMDESK_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"FORMDESK_CATALOG", config.CatalogPath,
		"FORMDESK_KNOWLEDGE", config.KnowledgePath)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for FormDesk data (overrides $FORMDESK_STATE_DIR)"),
		dbDriver:      flag.String("db-driver", config.DbDriver, "database driver for the checkpoint store (overrides $FORMDESK_DB_DRIVER)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN for the checkpoint store (overrides $DATABASE_URL)"),
		openaiKey:     flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:   flag.String("openai-model", config.OpenAIModel, "OpenAI model name (overrides $OPENAI_MODEL)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		catalogPath:   flag.String("catalog", config.CatalogPath, "forms catalog YAML file (overrides $FORMDESK_CATALOG)"),
		knowledgePath: flag.String("knowledge", config.KnowledgePath, "field knowledge YAML file (overrides $FORMDESK_KNOWLEDGE)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDriver", *flags.dbDriver,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr)

	// Follow a changed state directory when the DSN was left at its default.
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		return nil
	}
	stateDir := filepath.Dir(*flags.dbDSN)
	slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
		return err
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		storeOpts = append(storeOpts, store.WithDSN(*flags.dbDSN))
	}
	if *flags.dbDriver != "" {
		storeOpts = append(storeOpts, store.WithDriver(*flags.dbDriver))
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags, config Config) []genai.Option {
	if config.GenAIDisabled {
		slog.Info("GenAI disabled via GENAI_DISABLED, using deterministic fallbacks")
		return nil
	}
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	if config.OpenAIBaseURL != "" {
		genaiOpts = append(genaiOpts, genai.WithBaseURL(config.OpenAIBaseURL))
	}
	if config.GenAITimeout > 0 {
		genaiOpts = append(genaiOpts, genai.WithTimeout(config.GenAITimeout))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.catalogPath != "" {
		apiOpts = append(apiOpts, api.WithCatalogPath(*flags.catalogPath))
	}
	if *flags.knowledgePath != "" {
		apiOpts = append(apiOpts, api.WithKnowledgePath(*flags.knowledgePath))
	}
	return apiOpts
}
