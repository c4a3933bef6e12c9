package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
  mode: debug
jwt:
  secret: dev-secret
  expire_hours: 2
`)

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if cfg.JWT.ExpireTime != 2*time.Hour {
		t.Fatalf("expire = %v", cfg.JWT.ExpireTime)
	}
	if cfg.Certificate.Bands.Excellent != 90 || cfg.Certificate.Bands.Good != 80 || cfg.Certificate.Bands.Fair != 70 {
		t.Fatalf("unexpected default bands: %+v", cfg.Certificate.Bands)
	}
	if cfg.Grading.MaxSubmitRetries != 3 {
		t.Fatalf("max submit retries = %d", cfg.Grading.MaxSubmitRetries)
	}
	if cfg.Outbox.ChannelPrefix != "elearning" {
		t.Fatalf("channel prefix = %q", cfg.Outbox.ChannelPrefix)
	}
	if cfg.Log.File != "logs/app.log" || cfg.Log.MaxSizeMB != 100 || !cfg.Log.Compress {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoadConfig_RejectsUnorderedBands(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: debug
certificate:
  bands:
    excellent: 80
    good: 85
    fair: 70
`)

	if _, err := LoadConfig(dir); err == nil {
		t.Fatalf("expected error for non-descending bands")
	}
}

func TestLoadConfig_ReleaseRequiresStrongSecrets(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
jwt:
  secret: short
`)

	if _, err := LoadConfig(dir); err == nil {
		t.Fatalf("expected error for short jwt secret in release mode")
	}
}

func TestGradeBands_Validate(t *testing.T) {
	tests := []struct {
		name    string
		bands   GradeBands
		wantErr bool
	}{
		{name: "default", bands: GradeBands{Excellent: 90, Good: 80, Fair: 70}},
		{name: "equal bounds", bands: GradeBands{Excellent: 90, Good: 90, Fair: 70}, wantErr: true},
		{name: "above hundred", bands: GradeBands{Excellent: 101, Good: 80, Fair: 70}, wantErr: true},
		{name: "zero fair", bands: GradeBands{Excellent: 90, Good: 80, Fair: 0}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.bands.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
