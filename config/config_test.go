package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Messaging.EventsTopic != "tms.scheduler" {
		t.Errorf("EventsTopic = %q, want tms.scheduler", cfg.Messaging.EventsTopic)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tmscore.yaml")
	data := []byte(`
database:
  driver: postgres
  postgres:
    host: db.internal
messaging:
  backend: mqtt
  outbox_drain_interval: 2s
scheduler:
  default_view: vehicle
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Database.Postgres.Host != "db.internal" {
		t.Errorf("Host = %q, want db.internal", cfg.Database.Postgres.Host)
	}
	// Untouched nested defaults survive.
	if cfg.Database.Postgres.Port != 5432 {
		t.Errorf("Port = %d, want 5432", cfg.Database.Postgres.Port)
	}
	if cfg.Messaging.Backend != "mqtt" {
		t.Errorf("Backend = %q, want mqtt", cfg.Messaging.Backend)
	}
	if cfg.Messaging.OutboxDrainInterval != 2*time.Second {
		t.Errorf("OutboxDrainInterval = %v, want 2s", cfg.Messaging.OutboxDrainInterval)
	}
	if cfg.Scheduler.DefaultView != "vehicle" {
		t.Errorf("DefaultView = %q, want vehicle", cfg.Scheduler.DefaultView)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tmscore.yaml")
	cfg := Defaults()
	cfg.Backend.BaseURL = "http://tms.local/api"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Backend.BaseURL != "http://tms.local/api" {
		t.Errorf("BaseURL = %q", got.Backend.BaseURL)
	}
}

func TestLoadEnvAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TMSCORE_BACKEND_URL=http://upstream:8000\nTMSCORE_WEB_PORT=9000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TMSCORE_BACKEND_URL", "")
	os.Unsetenv("TMSCORE_BACKEND_URL")
	t.Setenv("TMSCORE_WEB_PORT", "")
	os.Unsetenv("TMSCORE_WEB_PORT")
	t.Setenv("TMSCORE_KAFKA_BROKERS", "k1:9092,k2:9092")

	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	cfg := Defaults()
	cfg.ApplyEnv()
	if cfg.Backend.BaseURL != "http://upstream:8000" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Web.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Web.Port)
	}
	if len(cfg.Messaging.Kafka.Brokers) != 2 || cfg.Messaging.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Brokers = %v", cfg.Messaging.Kafka.Brokers)
	}

	if err := LoadEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing env file should be ignored: %v", err)
	}
}
