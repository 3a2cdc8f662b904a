package config

import (
	"os"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestBaseFallbacks(t *testing.T) {
	cfg := &Config{Server: ServerConfig{APIURL: "https://api.tivly.se"}}

	if got := cfg.StreamBase(); got != "https://api.tivly.se" {
		t.Errorf("StreamBase() = %q", got)
	}
	if got := cfg.WSBase(); got != "wss://api.tivly.se" {
		t.Errorf("WSBase() = %q, want wss derived from API root", got)
	}

	cfg.Server.StreamURL = "https://stream.tivly.se"
	cfg.Server.WSURL = "wss://ws.tivly.se"
	if got := cfg.StreamBase(); got != "https://stream.tivly.se" {
		t.Errorf("StreamBase() = %q", got)
	}
	if got := cfg.WSBase(); got != "wss://ws.tivly.se" {
		t.Errorf("WSBase() = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty api url", func(c *Config) { c.Server.APIURL = "" }, true},
		{"bad api scheme", func(c *Config) { c.Server.APIURL = "ftp://api.tivly.se" }, true},
		{"bad ws scheme", func(c *Config) { c.Server.WSURL = "https://api.tivly.se" }, true},
		{"ws url optional", func(c *Config) { c.Server.WSURL = "" }, false},
		{"zero sample rate", func(c *Config) { c.Recording.SampleRate = 0 }, true},
		{"zero channels", func(c *Config) { c.Recording.Channels = 0 }, true},
		{"zero buffer", func(c *Config) { c.Recording.BufferSize = 0 }, true},
		{"empty format", func(c *Config) { c.Recording.Format = "" }, true},
		{"bad language", func(c *Config) { c.Transcription.Language = "swedish" }, true},
		{"auto language ok", func(c *Config) { c.Transcription.Language = "" }, false},
		{"protocol enabled without key", func(c *Config) { c.Protocol.Enabled = true; c.Protocol.APIKey = "" }, true},
		{"protocol enabled with key", func(c *Config) { c.Protocol.Enabled = true; c.Protocol.APIKey = "sk-x" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if _, err := os.UserConfigDir(); err != nil {
		t.Skipf("no user config dir: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Server.APIURL = "https://api.example.test"
	cfg.Transcription.Language = "en"

	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.APIURL != "https://api.example.test" {
		t.Errorf("api_url = %q", loaded.Server.APIURL)
	}
	if loaded.Transcription.Language != "en" {
		t.Errorf("language = %q", loaded.Transcription.Language)
	}
	// defaults filled for fields absent from the file
	if loaded.Recording.SampleRate != 48000 {
		t.Errorf("sample_rate = %d, want default 48000", loaded.Recording.SampleRate)
	}
}

func TestLoadMissingConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if _, err := os.UserConfigDir(); err != nil {
		t.Skipf("no user config dir: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Error("Load() without a config file should fail")
	}

	cfg := LoadOrDefault()
	if cfg.Server.APIURL != DefaultConfig().Server.APIURL {
		t.Errorf("LoadOrDefault() should return defaults, got %+v", cfg.Server)
	}
}
