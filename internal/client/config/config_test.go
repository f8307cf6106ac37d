package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"algocrack/internal/client/config"
	"algocrack/internal/testutil"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	testutil.AssertEqual(t, cfg.Services.Gateway, config.DefaultGatewayURL, "gateway")
	testutil.AssertEqual(t, cfg.Services.Submission, config.DefaultGatewayURL, "submission falls back to gateway")
	testutil.AssertEqual(t, cfg.Timeout, config.DefaultTimeout, "timeout")
	testutil.AssertEqual(t, cfg.Poll.Submit.Attempts, 30, "submit attempts")
	testutil.AssertEqual(t, cfg.Poll.Submit.Interval, time.Second, "submit interval")
	testutil.AssertEqual(t, cfg.Poll.Run.Attempts, 20, "run attempts")
	testutil.AssertEqual(t, cfg.Poll.Run.Interval, 500*time.Millisecond, "run interval")
	testutil.AssertEqual(t, cfg.Realtime.Mode, config.RealtimeSTOMP, "realtime mode")
	testutil.AssertEqual(t, cfg.Realtime.ReconnectDelay, 5*time.Second, "reconnect delay")
	testutil.AssertEqual(t, cfg.Log.Level, "warn", "log level")
	testutil.AssertTrue(t, cfg.PrettyJSON != nil && *cfg.PrettyJSON, "pretty json default")
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cli.yaml")
	yamlBody := `
services:
  gateway: http://gateway:9000
  submission: http://submission:9100
timeout: 3s
poll:
  submit:
    attempts: 5
    interval: 250ms
realtime:
  mode: KAFKA
  kafka:
    brokers: [k1:9092]
prettyJSON: false
`
	if err := os.WriteFile(cfgPath, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("ALGOCRACK_REDIS_ADDR=localhost:6379\nALGOCRACK_TIMEOUT=7s\n"), 0o600); err != nil {
		t.Fatalf("write env failed: %v", err)
	}
	t.Setenv("ALGOCRACK_TIMEOUT", "9s")

	cfg, err := config.Load(cfgPath, envPath)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	testutil.AssertEqual(t, cfg.Services.Gateway, "http://gateway:9000", "gateway")
	testutil.AssertEqual(t, cfg.Services.Submission, "http://submission:9100", "submission")
	testutil.AssertEqual(t, cfg.Services.Problem, "http://gateway:9000", "problem falls back to gateway")
	testutil.AssertEqual(t, cfg.Timeout, 9*time.Second, "process env wins over env file")
	testutil.AssertEqual(t, cfg.Cache.RedisAddr, "localhost:6379", "redis from env file")
	testutil.AssertEqual(t, cfg.Poll.Submit.Attempts, 5, "submit attempts")
	testutil.AssertEqual(t, cfg.Poll.Submit.Interval, 250*time.Millisecond, "submit interval")
	testutil.AssertEqual(t, cfg.Poll.Run.Attempts, config.DefaultRunAttempts, "run attempts default")
	testutil.AssertEqual(t, cfg.Realtime.Mode, config.RealtimeKafka, "mode lowercased")
	testutil.AssertFalse(t, *cfg.PrettyJSON, "pretty json from yaml")
}

func TestLoadRejectsBadEnvDuration(t *testing.T) {
	t.Setenv("ALGOCRACK_TIMEOUT", "soon")
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Fatalf("expected error for invalid timeout")
	}
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("load failed: %v", err)
	}
}
