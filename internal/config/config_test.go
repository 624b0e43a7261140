package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Reminders.TickSeconds != 60 {
		t.Errorf("expected default tick 60s, got %d", cfg.Reminders.TickSeconds)
	}
	if cfg.Reminders.GraceMinutes != 30 {
		t.Errorf("expected default grace 30m, got %d", cfg.Reminders.GraceMinutes)
	}
	if cfg.Storage.SQLitePath == "" {
		t.Error("expected sqlite path to be derived from data dir")
	}
}

func TestLoadFromFile(t *testing.T) {
	dataDir := t.TempDir()
	configPath := filepath.Join(dataDir, "medcare.yaml")

	content := `
server:
  port: 9090
reminders:
  tick_seconds: 30
  grace_minutes: 15
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath, dataDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Reminders.TickSeconds != 30 {
		t.Errorf("expected tick 30s, got %d", cfg.Reminders.TickSeconds)
	}
}

func TestLoadRejectsBadSummaryTime(t *testing.T) {
	dataDir := t.TempDir()
	configPath := filepath.Join(dataDir, "medcare.yaml")

	content := `
reminders:
  daily_summary: true
  daily_summary_time: "8pm"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath, dataDir); err == nil {
		t.Error("expected validation error for bad daily_summary_time")
	}
}

func TestLoadRejectsEnabledChannelWithoutToken(t *testing.T) {
	dataDir := t.TempDir()
	configPath := filepath.Join(dataDir, "medcare.yaml")

	content := `
channels:
  telegram:
    enabled: true
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath, dataDir); err == nil {
		t.Error("expected validation error for telegram without token")
	}
}

func TestLoadEnvFile(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# Test env file
MEDCARE_TEST_KEY1=value1
MEDCARE_TEST_KEY2="quoted value"
`
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	os.Unsetenv("MEDCARE_TEST_KEY1")
	os.Unsetenv("MEDCARE_TEST_KEY2")
	defer os.Unsetenv("MEDCARE_TEST_KEY1")
	defer os.Unsetenv("MEDCARE_TEST_KEY2")

	if err := loadEnvFile(envFile); err != nil {
		t.Fatalf("loadEnvFile failed: %v", err)
	}

	if os.Getenv("MEDCARE_TEST_KEY1") != "value1" {
		t.Errorf("KEY1 not set correctly: %s", os.Getenv("MEDCARE_TEST_KEY1"))
	}
	if os.Getenv("MEDCARE_TEST_KEY2") != "quoted value" {
		t.Errorf("KEY2 not set correctly: %s", os.Getenv("MEDCARE_TEST_KEY2"))
	}
}

func TestResolveEnvWithAliases(t *testing.T) {
	os.Unsetenv("MEDCARE_CHANNELS_TELEGRAM_BOT_TOKEN")
	os.Setenv("TELEGRAM_BOT_TOKEN", "tok123")
	defer os.Unsetenv("TELEGRAM_BOT_TOKEN")

	if got := ResolveEnvWithAliases("MEDCARE_CHANNELS_TELEGRAM_BOT_TOKEN"); got != "tok123" {
		t.Errorf("expected alias fallback, got %q", got)
	}
}
