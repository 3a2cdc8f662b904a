package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tivly/tivly-cli/internal/api"
	"github.com/tivly/tivly-cli/internal/config"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			APIURL: "https://api.tivly.se",
			WSURL:  "wss://api.tivly.se",
		},
		Recording: config.RecordingConfig{
			SampleRate:        48000,
			Channels:          1,
			Format:            "f32le",
			BufferSize:        16384,
			ChannelBufferSize: 30,
		},
		Transcription: config.TranscriptionConfig{
			Language: "sv",
		},
		Protocol: config.ProtocolConfig{
			Enabled: false,
			Model:   "gpt-4o-mini",
		},
		Notifications: config.NotificationsConfig{
			Enabled: true,
		},
	}
}

// CompletedStatus returns a poll response in its terminal success shape.
func CompletedStatus(transcript string) *api.JobStatus {
	return &api.JobStatus{
		Status:     api.StatusCompleted,
		Stage:      api.StageDone,
		Progress:   100,
		Transcript: transcript,
		SISStatus:  api.SISDone,
	}
}

// ProcessingStatus returns a mid-pipeline poll response.
func ProcessingStatus(progress float64) *api.JobStatus {
	return &api.JobStatus{
		Status:   api.StatusProcessing,
		Stage:    "transcribing",
		Progress: progress,
	}
}

// WriteTempConfig writes cfg as TOML into a temp dir and points
// XDG_CONFIG_HOME at it for the duration of the test.
func WriteTempConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := os.MkdirAll(filepath.Join(dir, "tivly"), 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := config.Save(cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	path, err := config.GetConfigPath()
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	return path
}
