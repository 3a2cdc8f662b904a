package protocol

import (
	"strings"
	"testing"
)

func TestBuildSystemPrompt(t *testing.T) {
	tests := []struct {
		name     string
		language string
		speakers []string
		contains []string
	}{
		{
			name:     "swedish with speakers",
			language: "sv",
			speakers: []string{"Anna Lindqvist", "Erik Berg"},
			contains: []string{
				"Swedish",
				"Anna Lindqvist",
				"Erik Berg",
				"Identified attendees",
			},
		},
		{
			name:     "english no speakers",
			language: "en",
			speakers: nil,
			contains: []string{
				"English",
				"Decisions made",
				"Action items",
			},
		},
		{
			name:     "unknown language falls back",
			language: "xx",
			speakers: nil,
			contains: []string{
				"same language as the transcript",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prompt := BuildSystemPrompt(tc.language, tc.speakers)
			for _, want := range tc.contains {
				if !strings.Contains(prompt, want) {
					t.Errorf("prompt missing %q:\n%s", want, prompt)
				}
			}
		})
	}
}

func TestBuildSystemPromptOmitsAttendeesWhenEmpty(t *testing.T) {
	prompt := BuildSystemPrompt("sv", nil)
	if strings.Contains(prompt, "Identified attendees") {
		t.Errorf("attendee section present without speakers:\n%s", prompt)
	}
}

func TestBuildUserPrompt(t *testing.T) {
	tests := []struct {
		name         string
		transcript   string
		instructions string
		want         []string
	}{
		{
			name:       "plain transcript",
			transcript: "vi beslutade att skjuta upp lanseringen",
			want:       []string{"Transcript:", "vi beslutade att skjuta upp lanseringen"},
		},
		{
			name:         "custom instructions first",
			transcript:   "some discussion",
			instructions: "Focus on budget decisions",
			want:         []string{"Focus on budget decisions", "Transcript:", "some discussion"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prompt := BuildUserPrompt(tc.transcript, tc.instructions)
			for _, want := range tc.want {
				if !strings.Contains(prompt, want) {
					t.Errorf("prompt missing %q:\n%s", want, prompt)
				}
			}
		})
	}
}

func TestNewGeneratorRequiresAPIKey(t *testing.T) {
	if _, err := NewGenerator(Config{}); err == nil {
		t.Error("NewGenerator without API key should fail")
	}
	if _, err := NewGenerator(Config{APIKey: "sk-test"}); err != nil {
		t.Errorf("NewGenerator with API key: %v", err)
	}
}
