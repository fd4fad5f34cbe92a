package backend

import (
	"path/filepath"
	"strings"
	"testing"

	"finanzapp/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	appCfg := &config.Config{
		DataBackend:   "sqlite",
		SQLiteDBPath:  "/tmp/app.db",
		DataDirectory: "/tmp/data",
		AMQPURL:       "amqp://localhost",
		AMQPExchange:  "finanzapp",
		AMQPQueue:     "sync_budget",
	}

	cfg, err := FromAppConfig(appCfg)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if cfg.Type != SQLiteBackend {
		t.Errorf("Type = %q, want sqlite", cfg.Type)
	}
	if cfg.SQLiteDBPath != "/tmp/app.db" || cfg.AMQPQueue != "sync_budget" {
		t.Errorf("config = %+v", cfg)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("nil app config should error")
	}

	appCfg.DataBackend = "redis"
	if _, err := FromAppConfig(appCfg); err == nil || !strings.Contains(err.Error(), "invalid backend type") {
		t.Errorf("invalid backend error = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "/tmp/a.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"valid kv", Config{Type: KVBackend, DataDirectory: "/tmp/data"}, false},
		{"kv without directory", Config{Type: KVBackend}, true},
		{"unknown type", Config{Type: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactoryCreatesBackends(t *testing.T) {
	f := NewFactory(nil)

	t.Run("sqlite without amqp", func(t *testing.T) {
		res, err := f.Create(Config{
			Type:         SQLiteBackend,
			SQLiteDBPath: filepath.Join(t.TempDir(), "app.db"),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		defer res.Cleanup()
		if res.Store == nil {
			t.Fatal("store is nil")
		}
		if res.Queue != nil {
			t.Error("queue should be nil without an AMQP URL")
		}
	})

	t.Run("kv", func(t *testing.T) {
		res, err := f.Create(Config{
			Type:          KVBackend,
			DataDirectory: t.TempDir(),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		defer res.Cleanup()
		if res.Store == nil {
			t.Fatal("store is nil")
		}
		if res.Queue != nil {
			t.Error("kv backend never carries a queue")
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		if _, err := f.Create(Config{Type: "redis"}); err == nil {
			t.Error("expected error for invalid config")
		}
	})
}
