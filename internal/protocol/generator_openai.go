package protocol

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIGenerator implements Generator using OpenAI's chat completions API
type OpenAIGenerator struct {
	client *openai.Client
	config Config
}

// NewOpenAIGenerator creates a new OpenAI protocol generator
func NewOpenAIGenerator(cfg Config) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClient(cfg.APIKey),
		config: cfg,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, transcript string, speakers []string) (string, error) {
	if transcript == "" {
		return "", fmt.Errorf("empty transcript")
	}

	systemPrompt := BuildSystemPrompt(g.config.Language, speakers)
	userPrompt := BuildUserPrompt(transcript, g.config.CustomInstructions)

	model := g.config.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.3, // Low temperature for consistent structure
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		log.Printf("protocol: API call failed after %v: %v", duration, err)
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no response choices")
	}

	result := resp.Choices[0].Message.Content
	log.Printf("protocol: generated in %v (%d chars in, %d chars out)", duration, len(transcript), len(result))
	return result, nil
}
