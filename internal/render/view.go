package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/muesli/termenv"

	"github.com/tivly/tivly-cli/internal/api"
	"github.com/tivly/tivly-cli/internal/poller"
	"github.com/tivly/tivly-cli/internal/stream"
)

// StatusLine renders one colored line summarizing a poll response.
func StatusLine(s api.JobStatus) string {
	var label string
	switch {
	case api.StatusSucceeded(s.Status):
		label = StyleSuccess.Render(s.Status)
	case api.StatusFailedToken(s.Status):
		label = StyleError.Render(s.Status)
	default:
		label = StyleWarning.Render(s.Status)
	}

	line := StyleLabel.Render("status ") + label
	if s.Stage != "" {
		line += StyleMuted.Render("  stage=" + s.Stage)
	}
	if s.SISStatus != "" {
		line += StyleMuted.Render("  speakers=" + s.SISStatus)
	}
	if s.Progress > 0 {
		line += StyleMuted.Render(fmt.Sprintf("  %.0f%%", s.Progress))
	}
	return line
}

// ProgressBar renders a fixed-width bar for a 0-100 percentage.
func ProgressBar(percent float64, width int) string {
	if width <= 0 {
		width = 30
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100 * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return StyleHighlight.Render(bar) + StyleMuted.Render(fmt.Sprintf(" %3.0f%%", percent))
}

// RenderSnapshot renders the live view of an in-flight stream session.
func RenderSnapshot(s stream.Snapshot) string {
	var b strings.Builder

	if s.Connected {
		b.WriteString(StyleSuccess.Render("● live"))
	} else {
		b.WriteString(StyleMuted.Render("○ connecting"))
	}
	if s.Stage != "" {
		b.WriteString(StyleMuted.Render("  " + s.Stage))
	}
	if s.TotalChunks > 0 {
		b.WriteString(StyleMuted.Render(fmt.Sprintf("  chunk %d/%d", s.ChunksReceived, s.TotalChunks)))
	}
	b.WriteString("\n")
	b.WriteString(ProgressBar(s.Progress, 30))
	b.WriteString("\n\n")

	if s.LiveTranscript != "" {
		b.WriteString(StyleBox.Render(s.LiveTranscript))
		b.WriteString("\n")
	}

	if s.Failed {
		msg := s.FailureMessage
		if msg == "" {
			msg = "transcription failed"
		}
		b.WriteString(StyleError.Render("✗ " + msg))
		b.WriteString("\n")
	} else if s.Completed {
		b.WriteString(StyleSuccess.Render("✓ completed"))
		b.WriteString("\n")
	}

	return b.String()
}

// RenderResult renders a completed transcription with speaker info.
func RenderResult(r poller.Result) string {
	var b strings.Builder

	b.WriteString(StyleHeader.Render("Transcript"))
	b.WriteString("\n")

	if len(r.Segments) > 0 {
		for _, seg := range r.Segments {
			if seg.Speaker != "" {
				b.WriteString(StyleHighlight.Render(speakerDisplayName(seg.Speaker, r.SpeakerNames) + ": "))
			}
			b.WriteString(seg.Text)
			b.WriteString("\n")
		}
	} else {
		b.WriteString(r.Transcript)
		b.WriteString("\n")
	}

	if len(r.Matches) > 0 {
		b.WriteString("\n")
		b.WriteString(StyleHeader.Render("Speakers"))
		b.WriteString("\n")
		for _, m := range r.Matches {
			best := m.Best()
			line := StyleHighlight.Render(speakerDisplayName(m.Speaker, r.SpeakerNames))
			if best.Email != "" {
				line += StyleMuted.Render(fmt.Sprintf("  %s (%.0f%%)", best.Email, best.Confidence*100))
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func speakerDisplayName(speaker string, names map[string]string) string {
	if name, ok := names[speaker]; ok && name != "" {
		return name
	}
	return speaker
}

// Screen repaints a region of the terminal in place, for the live views.
type Screen struct {
	out   *termenv.Output
	lines int
}

func NewScreen() *Screen {
	return &Screen{out: termenv.NewOutput(os.Stdout)}
}

// Paint replaces the previously painted content with the given text.
func (s *Screen) Paint(content string) {
	for i := 0; i < s.lines; i++ {
		s.out.CursorPrevLine(1)
		s.out.ClearLine()
	}
	fmt.Fprint(s.out, content)
	if !strings.HasSuffix(content, "\n") {
		fmt.Fprintln(s.out)
		content += "\n"
	}
	s.lines = strings.Count(content, "\n")
}
