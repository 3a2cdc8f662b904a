package config

import "strings"

// ServerConfig holds the backend endpoints. The stream and websocket roots
// default to the API root when left empty.
type ServerConfig struct {
	APIURL    string `toml:"api_url"`
	StreamURL string `toml:"stream_url"`
	WSURL     string `toml:"ws_url"`
}

// RecordingConfig mirrors the microphone capture settings. Capture runs at
// the device's native rate; downsampling to the wire rate happens in the
// encoder, not here.
type RecordingConfig struct {
	SampleRate        int    `toml:"sample_rate"`
	Channels          int    `toml:"channels"`
	Format            string `toml:"format"`
	BufferSize        int    `toml:"buffer_size"`
	Device            string `toml:"device"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
}

type TranscriptionConfig struct {
	Language string `toml:"language"`
}

// ProtocolConfig configures meeting-protocol generation from transcripts.
type ProtocolConfig struct {
	Enabled bool   `toml:"enabled"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

type NotificationsConfig struct {
	Enabled bool `toml:"enabled"`
}

type Config struct {
	Server        ServerConfig        `toml:"server"`
	Recording     RecordingConfig     `toml:"recording"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Protocol      ProtocolConfig      `toml:"protocol"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// StreamBase returns the SSE root, falling back to the API root.
func (c *Config) StreamBase() string {
	if c.Server.StreamURL != "" {
		return c.Server.StreamURL
	}
	return c.Server.APIURL
}

// WSBase returns the websocket root, derived from the API root when no
// explicit ws_url is configured.
func (c *Config) WSBase() string {
	if c.Server.WSURL != "" {
		return c.Server.WSURL
	}
	base := c.Server.APIURL
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base
}
