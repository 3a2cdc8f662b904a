package protocol

import (
	"context"
	"fmt"
)

// Generator turns a finished meeting transcript into a written protocol.
type Generator interface {
	Generate(ctx context.Context, transcript string, speakers []string) (string, error)
}

// Config holds protocol generator configuration
type Config struct {
	APIKey             string
	Model              string
	Language           string
	CustomInstructions string
}

// NewGenerator creates a protocol generator. Only the OpenAI chat
// completions backend is supported for now.
func NewGenerator(cfg Config) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key required")
	}
	return NewOpenAIGenerator(cfg), nil
}
