package config

// DefaultConfig returns the initial configuration written by onboarding.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			APIURL:    "https://api.tivly.se",
			StreamURL: "",
			WSURL:     "wss://api.tivly.se",
		},
		Recording: RecordingConfig{
			// capture floats at the device rate; the realtime encoder
			// decimates to the 16kHz wire rate
			SampleRate:        48000,
			Channels:          1,
			Format:            "f32le",
			BufferSize:        16384, // 4096 samples * 4 bytes
			Device:            "",
			ChannelBufferSize: 20,
		},
		Transcription: TranscriptionConfig{
			Language: "sv",
		},
		Protocol: ProtocolConfig{
			Enabled: false,
			Model:   "gpt-4o-mini",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
		},
	}
}
