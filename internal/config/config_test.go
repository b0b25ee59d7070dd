package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	required := map[string]string{
		"TELEGRAM_BOT_TOKEN": "test_token",
		"TELEGRAM_CHAT_ID":   "123456",
		"GEMINI_API_KEY":     "test_gemini",
	}
	for k, v := range required {
		os.Setenv(k, v)
		defer os.Unsetenv(k)
	}

	optionals := []string{
		"WATCHER_LOG_LEVEL",
		"WATCHER_STATE_FILE",
		"WATCHER_STRICT_SYMBOLS",
		"MARKET_PROVIDER",
	}
	for _, k := range optionals {
		os.Unsetenv(k)
	}

	// Run from an empty dir so no watcher.yaml or .env leaks in.
	tmpDir := t.TempDir()
	originalWd, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to chdir: %v", err)
	}
	defer os.Chdir(originalWd)

	cfg := Load()

	if cfg.LogLevel != "INFO" {
		t.Errorf("Expected LogLevel 'INFO', got '%s'", cfg.LogLevel)
	}
	if cfg.StateFile != "watch_state.json" {
		t.Errorf("Expected default state file, got '%s'", cfg.StateFile)
	}
	if cfg.Market.Provider != "sina" {
		t.Errorf("Expected provider 'sina', got '%s'", cfg.Market.Provider)
	}
	if len(cfg.Schedule.FullRunTimes) != 2 || cfg.Schedule.FullRunTimes[0] != "12:00" {
		t.Errorf("Expected default run times [12:00 15:15], got %v", cfg.Schedule.FullRunTimes)
	}
	if cfg.Schedule.ToleranceMins != 5 {
		t.Errorf("Expected tolerance 5, got %d", cfg.Schedule.ToleranceMins)
	}
	if cfg.Analysis.LookbackMins != 240 {
		t.Errorf("Expected lookback 240, got %d", cfg.Analysis.LookbackMins)
	}
	if cfg.Analysis.Workers != 1 {
		t.Errorf("Expected workers 1, got %d", cfg.Analysis.Workers)
	}
	if cfg.Commands.StrictSymbols {
		t.Error("Expected lenient symbol mode by default")
	}
}

func TestLoadConfig_YamlOverlay(t *testing.T) {
	required := map[string]string{
		"TELEGRAM_BOT_TOKEN": "test_token",
		"TELEGRAM_CHAT_ID":   "123456",
		"OPENAI_API_KEY":     "test_openai",
	}
	for k, v := range required {
		os.Setenv(k, v)
		defer os.Unsetenv(k)
	}

	tmpDir := t.TempDir()
	originalWd, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to chdir: %v", err)
	}
	defer os.Chdir(originalWd)

	yaml := `
schedule:
  full_run_times: ["11:30"]
  tolerance_mins: 10
analysis:
  workers: 4
commands:
  strict_symbols: true
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFile), []byte(yaml), 0644); err != nil {
		t.Fatalf("Failed to write yaml: %v", err)
	}

	cfg := Load()

	if len(cfg.Schedule.FullRunTimes) != 1 || cfg.Schedule.FullRunTimes[0] != "11:30" {
		t.Errorf("Expected overlaid run times [11:30], got %v", cfg.Schedule.FullRunTimes)
	}
	if cfg.Schedule.ToleranceMins != 10 {
		t.Errorf("Expected tolerance 10, got %d", cfg.Schedule.ToleranceMins)
	}
	if cfg.Analysis.Workers != 4 {
		t.Errorf("Expected workers 4, got %d", cfg.Analysis.Workers)
	}
	if !cfg.Commands.StrictSymbols {
		t.Error("Expected strict symbol mode from yaml")
	}
	// Untouched sections keep their defaults.
	if cfg.Analysis.LookbackMins != 240 {
		t.Errorf("Expected lookback default 240, got %d", cfg.Analysis.LookbackMins)
	}
}
