package config

import (
	"fmt"
	"net/url"
	"strings"
)

func (c *Config) Validate() error {
	if c.Server.APIURL == "" {
		return fmt.Errorf("invalid server.api_url: empty")
	}
	if err := validateHTTPURL(c.Server.APIURL); err != nil {
		return fmt.Errorf("invalid server.api_url: %w", err)
	}
	if c.Server.StreamURL != "" {
		if err := validateHTTPURL(c.Server.StreamURL); err != nil {
			return fmt.Errorf("invalid server.stream_url: %w", err)
		}
	}
	if c.Server.WSURL != "" {
		u, err := url.Parse(c.Server.WSURL)
		if err != nil {
			return fmt.Errorf("invalid server.ws_url: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("invalid server.ws_url: scheme must be ws or wss, got %q", u.Scheme)
		}
	}

	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels <= 0 {
		return fmt.Errorf("invalid recording.channels: %d", c.Recording.Channels)
	}
	if c.Recording.BufferSize <= 0 {
		return fmt.Errorf("invalid recording.buffer_size: %d", c.Recording.BufferSize)
	}
	if c.Recording.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid recording.channel_buffer_size: %d", c.Recording.ChannelBufferSize)
	}
	if c.Recording.Format == "" {
		return fmt.Errorf("invalid recording.format: empty")
	}

	if c.Transcription.Language != "" && len(c.Transcription.Language) != 2 {
		return fmt.Errorf("invalid transcription.language: %s (use empty string for auto-detect or ISO-639-1 codes like 'sv', 'en')", c.Transcription.Language)
	}

	if c.Protocol.Enabled && c.Protocol.APIKey == "" {
		return fmt.Errorf("protocol.api_key required when protocol generation is enabled")
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(u.Scheme, "http") {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
