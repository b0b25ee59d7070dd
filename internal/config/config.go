package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// CstLoc is the exchange timezone. A-share sessions are quoted in China
// Standard Time; a FixedZone keeps the binary independent of the host tzdata.
var CstLoc = time.FixedZone("CST", 8*3600)

// ConfigFile is the optional tuning file read from the working directory.
const ConfigFile = "watcher.yaml"

type Schedule struct {
	FullRunTimes  []string `yaml:"full_run_times"` // "15:04" wall-clock, exchange time
	ToleranceMins int      `yaml:"tolerance_mins"`
}

type Analysis struct {
	LookbackMins       int `yaml:"lookback_mins"`
	PrimaryTimeoutSec  int `yaml:"primary_timeout_sec"`
	FallbackTimeoutSec int `yaml:"fallback_timeout_sec"`
	RunBudgetMins      int `yaml:"run_budget_mins"`
	Workers            int `yaml:"workers"`
}

type Market struct {
	Provider   string `yaml:"provider"` // sina | alpaca
	RatePerMin int    `yaml:"rate_per_min"`
}

type Commands struct {
	// StrictSymbols rejects numeric input that fails the 6-digit A-share
	// predicate instead of watching it and letting the fetch fail later.
	StrictSymbols bool `yaml:"strict_symbols"`
}

type Config struct {
	Version string `yaml:"-"`

	LogLevel      string `yaml:"log_level"`
	MaxLogSizeMB  int64  `yaml:"max_log_size_mb"`
	MaxLogBackups int    `yaml:"max_log_backups"`

	StateFile  string `yaml:"state_file"`
	RunLogFile string `yaml:"run_log_file"`

	Schedule Schedule `yaml:"schedule"`
	Analysis Analysis `yaml:"analysis"`
	Market   Market   `yaml:"market"`
	Commands Commands `yaml:"commands"`

	GeminiAPIKey string `yaml:"-"`
	OpenAIAPIKey string `yaml:"-"`
}

// Load initializes the configuration. It reads a .env file when present,
// validates the required environment variables, applies defaults, and then
// overlays whatever watcher.yaml defines.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	requiredSecretVars := map[string]bool{
		"TELEGRAM_BOT_TOKEN": true,
		"TELEGRAM_CHAT_ID":   true,
	}

	var missing []string
	for key := range requiredSecretVars {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		log.Fatalf("CRITICAL: Missing required environment variables: %v", missing)
	}

	cfg := &Config{
		LogLevel:      getEnvAsString("WATCHER_LOG_LEVEL", "INFO"),
		MaxLogSizeMB:  int64(getEnvAsInt("WATCHER_MAX_LOG_SIZE_MB", 10)),
		MaxLogBackups: getEnvAsInt("WATCHER_MAX_LOG_BACKUPS", 3),
		StateFile:     getEnvAsString("WATCHER_STATE_FILE", "watch_state.json"),
		RunLogFile:    getEnvAsString("WATCHER_RUN_LOG_FILE", "run_log.db"),
		Schedule: Schedule{
			FullRunTimes:  []string{"12:00", "15:15"},
			ToleranceMins: 5,
		},
		Analysis: Analysis{
			LookbackMins:       240,
			PrimaryTimeoutSec:  90,
			FallbackTimeoutSec: 60,
			RunBudgetMins:      8,
			Workers:            1,
		},
		Market: Market{
			Provider:   getEnvAsString("MARKET_PROVIDER", "sina"),
			RatePerMin: 30,
		},
		Commands: Commands{
			StrictSymbols: getEnvAsBool("WATCHER_STRICT_SYMBOLS", false),
		},
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
	}

	if cfg.GeminiAPIKey == "" && cfg.OpenAIAPIKey == "" {
		log.Println("WARNING: No engine API key configured; full runs will report every symbol as unavailable.")
	}

	if err := cfg.overlayFile(ConfigFile); err != nil {
		log.Fatalf("CRITICAL: Could not parse %s: %v", ConfigFile, err)
	}

	logEnvFile(requiredSecretVars)

	return cfg
}

// overlayFile merges watcher.yaml over the defaults. A missing file is fine;
// a file that exists but does not parse is a configuration error.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

// logEnvFile echoes .env contents at startup with secret values masked.
func logEnvFile(secrets map[string]bool) {
	envMap, err := godotenv.Read()
	if err != nil {
		return
	}
	log.Println("--- .env File Variables ---")
	for key, val := range envMap {
		if secrets[key] || key == "GEMINI_API_KEY" || key == "OPENAI_API_KEY" {
			masked := "***"
			if len(val) > 4 {
				masked = "***" + val[len(val)-4:]
			}
			log.Printf("%s=%s", key, masked)
		} else {
			log.Printf("%s=%s", key, val)
		}
	}
	log.Println("---------------------------")
}

// Tolerance returns the scheduler window half-width.
func (c *Config) Tolerance() time.Duration {
	return time.Duration(c.Schedule.ToleranceMins) * time.Minute
}

// Lookback returns the analysis bar window.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Analysis.LookbackMins) * time.Minute
}

// RunBudget returns the global wall-clock ceiling for one invocation.
func (c *Config) RunBudget() time.Duration {
	return time.Duration(c.Analysis.RunBudgetMins) * time.Minute
}

// PrimaryTimeout bounds one primary-engine call.
func (c *Config) PrimaryTimeout() time.Duration {
	return time.Duration(c.Analysis.PrimaryTimeoutSec) * time.Second
}

// FallbackTimeout bounds one fallback-engine call.
func (c *Config) FallbackTimeout() time.Duration {
	return time.Duration(c.Analysis.FallbackTimeoutSec) * time.Second
}
