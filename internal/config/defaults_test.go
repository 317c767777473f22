package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ServerName != "amFTPd" {
		t.Errorf("expected default server_name 'amFTPd', got %q", cfg.ServerName)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected default logging level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Listener.BindAddr != ":2121" {
		t.Errorf("expected default bind_addr ':2121', got %q", cfg.Listener.BindAddr)
	}
	if cfg.Listener.ShutdownGrace != 10*time.Second {
		t.Errorf("expected default shutdown grace 10s, got %v", cfg.Listener.ShutdownGrace)
	}
	if cfg.Data.PassivePortLow != 40000 || cfg.Data.PassivePortHigh != 40199 {
		t.Errorf("expected default passive port range 40000-40199, got %d-%d", cfg.Data.PassivePortLow, cfg.Data.PassivePortHigh)
	}
	if cfg.Abuse.MaxFailedLoginsPerIP != 5 {
		t.Errorf("expected default max failed logins 5, got %d", cfg.Abuse.MaxFailedLoginsPerIP)
	}
	if cfg.Ident.Timeout != 3*time.Second {
		t.Errorf("expected default ident timeout 3s, got %v", cfg.Ident.Timeout)
	}
	if cfg.TLS.MinVersion != "1.2" {
		t.Errorf("expected default TLS min version '1.2', got %q", cfg.TLS.MinVersion)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		ServerName: "custom",
		Listener: ListenerConfig{
			BindAddr:      ":9000",
			ShutdownGrace: 3 * time.Second,
		},
		Abuse: AbuseConfig{
			MaxFailedLoginsPerIP: 1,
		},
	}

	ApplyDefaults(cfg)

	if cfg.ServerName != "custom" {
		t.Errorf("expected explicit server_name preserved, got %q", cfg.ServerName)
	}
	if cfg.Listener.BindAddr != ":9000" {
		t.Errorf("expected explicit bind_addr preserved, got %q", cfg.Listener.BindAddr)
	}
	if cfg.Listener.ShutdownGrace != 3*time.Second {
		t.Errorf("expected explicit shutdown grace preserved, got %v", cfg.Listener.ShutdownGrace)
	}
	if cfg.Abuse.MaxFailedLoginsPerIP != 1 {
		t.Errorf("expected explicit max failed logins preserved, got %d", cfg.Abuse.MaxFailedLoginsPerIP)
	}
	// Untouched sections still get filled.
	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected default logging level filled in, got %q", cfg.Logging.Level)
	}
	if cfg.Dupe.StoreDir != "dupe" {
		t.Errorf("expected default dupe store_dir filled in, got %q", cfg.Dupe.StoreDir)
	}
}
