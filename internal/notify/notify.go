package notify

import (
	"fmt"
	"log"
	"os/exec"
)

type Notifier interface {
	TranscriptReady(jobID string)
	Failed(msg string)
	Notify(title, message string)
}

type Desktop struct{}

func (Desktop) TranscriptReady(jobID string) {
	cmd := exec.Command("notify-send", "-a", "Tivly",
		fmt.Sprintf("Tivly: transcript ready (%s)", jobID))
	if err := cmd.Run(); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

func (Desktop) Failed(msg string) {
	cmd := exec.Command("notify-send", "-a", "Tivly", "-u", "critical",
		fmt.Sprintf("Tivly: %s", msg))
	if err := cmd.Run(); err != nil {
		log.Printf("Failed to send error notification: %v", err)
	}
}

func (Desktop) Notify(title, message string) {
	cmd := exec.Command("notify-send", "-a", "Tivly", title, message)
	if err := cmd.Run(); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

// Log is a Notifier that writes to the process log instead of the
// desktop. Used when notify-send is unavailable.
type Log struct{}

func (Log) TranscriptReady(jobID string) {
	log.Printf("Tivly: transcript ready (%s)", jobID)
}

func (Log) Failed(msg string) {
	log.Printf("Tivly error: %s", msg)
}

func (Log) Notify(title, message string) {
	log.Printf("Tivly: %s: %s", title, message)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) TranscriptReady(jobID string) {}
func (Nop) Failed(msg string)            {}
func (Nop) Notify(title, message string) {}
