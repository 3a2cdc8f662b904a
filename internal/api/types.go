package api

// Job status tokens returned by the backend. Both "completed" and "done"
// mark success; both "error" and "failed" mark failure.
const (
	StatusQueued     = "queued"
	StatusUploading  = "uploading"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusDone       = "done"
	StatusError      = "error"
	StatusFailed     = "failed"
)

// StageDone is the pipeline stage that marks the whole job as finished.
const StageDone = "done"

// Speaker-identification subsystem states that count as terminal.
const (
	SISDone      = "done"
	SISNoSamples = "no_samples"
	SISDisabled  = "disabled"
)

// Segment is one transcript segment with speaker attribution.
type Segment struct {
	Speaker string  `json:"speaker,omitempty"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// Word carries word-level timing.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// MatchCandidate is one possible identity for a speaker label.
type MatchCandidate struct {
	Email      string  `json:"email"`
	Confidence float64 `json:"confidence"`
}

// SpeakerMatch is the identification result for one speaker label.
type SpeakerMatch struct {
	Speaker    string           `json:"speaker"`
	Duration   float64          `json:"duration"`
	Email      string           `json:"email,omitempty"`
	Confidence float64          `json:"confidence,omitempty"`
	Candidates []MatchCandidate `json:"candidates,omitempty"`
}

// Best returns the candidate with the highest confidence, falling back to
// the match's own email/confidence pair when no candidate list is present.
func (m SpeakerMatch) Best() MatchCandidate {
	best := MatchCandidate{Email: m.Email, Confidence: m.Confidence}
	for _, c := range m.Candidates {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best
}

// AudioBackup describes the server-side backup of the uploaded audio.
type AudioBackup struct {
	URL       string `json:"url,omitempty"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
	Format    string `json:"format,omitempty"`
}

// JobStatus is the normalized view of one poll response. Legacy field-name
// variants are already resolved; code past this point never sees them.
type JobStatus struct {
	Status     string
	Stage      string
	Progress   float64
	Transcript string
	Segments   []Segment
	Words      []Word

	SISStatus    string
	Matches      []SpeakerMatch
	Speakers     []string
	SpeakerNames map[string]string

	Engine   string
	Language string
	Duration float64

	AudioBackup *AudioBackup
	Error       string
}

// StatusSucceeded reports whether a status token is completed-equivalent.
func StatusSucceeded(status string) bool {
	return status == StatusCompleted || status == StatusDone
}

// StatusFailedToken reports whether a status token is failure-equivalent.
func StatusFailedToken(status string) bool {
	return status == StatusError || status == StatusFailed
}

// SISTerminal reports whether the speaker-identification subsystem has
// nothing further to contribute.
func SISTerminal(status string) bool {
	switch status {
	case SISDone, SISNoSamples, SISDisabled:
		return true
	}
	return false
}

// Complete applies the full completion rule: the primary status must have
// succeeded, a transcript must be present, and either the stage says done or
// the identification subsystem is terminal. A transcript can arrive before
// speaker identification finishes; the conjunction keeps the job "in
// progress" until both sides are settled.
func (s *JobStatus) Complete() bool {
	return StatusSucceeded(s.Status) &&
		s.Transcript != "" &&
		(s.Stage == StageDone || SISTerminal(s.SISStatus))
}

// Failed reports whether the job ended in a failure status.
func (s *JobStatus) Failed() bool {
	return StatusFailedToken(s.Status)
}

// BestMatch returns the highest-confidence identity across all speaker
// matches, or false when there are no matches.
func (s *JobStatus) BestMatch() (SpeakerMatch, bool) {
	var best SpeakerMatch
	found := false
	for _, m := range s.Matches {
		if !found || m.Best().Confidence > best.Best().Confidence {
			best = m
			found = true
		}
	}
	return best, found
}
