package protocol

import (
	"fmt"
	"strings"
)

var languageNames = map[string]string{
	"sv": "Swedish",
	"en": "English",
	"no": "Norwegian",
	"da": "Danish",
	"fi": "Finnish",
	"de": "German",
}

// BuildSystemPrompt generates the system prompt for protocol writing
func BuildSystemPrompt(language string, speakers []string) string {
	prompt := "You are a meeting secretary. Your job is to write a formal meeting protocol from a transcript.\n\n"
	prompt += "Structure:\n"
	prompt += "- Title and date placeholder\n"
	prompt += "- Attendees\n"
	prompt += "- Summary of each topic discussed\n"
	prompt += "- Decisions made\n"
	prompt += "- Action items with responsible person where identifiable\n"

	prompt += "\nRules:\n"
	prompt += "- Base the protocol strictly on the transcript, do not invent content\n"
	prompt += "- Attribute statements to speakers when the transcript identifies them\n"
	prompt += "- Keep a neutral, formal tone\n"
	prompt += "- Output ONLY the protocol text, nothing else\n"

	if name, ok := languageNames[language]; ok {
		prompt += fmt.Sprintf("- Write the protocol in %s\n", name)
	} else {
		prompt += "- Write the protocol in the same language as the transcript\n"
	}

	if len(speakers) > 0 {
		prompt += fmt.Sprintf("\nIdentified attendees (use correct spelling for these names): %s\n", strings.Join(speakers, ", "))
	}

	return prompt
}

// BuildUserPrompt generates the user prompt with the transcript
func BuildUserPrompt(transcript string, customInstructions string) string {
	if customInstructions != "" {
		return fmt.Sprintf("%s\n\nTranscript:\n%s", customInstructions, transcript)
	}
	return fmt.Sprintf("Transcript:\n%s", transcript)
}
