package api

// jobStatusResponse is the raw wire shape of a poll response. The backend is
// mid-rename from the "lyra" speaker-identification field names to "sis";
// both variants are still emitted depending on job age, so both are decoded
// and resolved here at the ingress boundary.
type jobStatusResponse struct {
	Status     string    `json:"status"`
	Stage      string    `json:"stage"`
	Progress   *float64  `json:"progress"`
	Transcript string    `json:"transcript"`
	Segments   []Segment `json:"transcriptSegments"`
	Words      []Word    `json:"words"`

	SISStatus  string         `json:"sisStatus"`
	LyraStatus string         `json:"lyraStatus"`
	SISMatches []SpeakerMatch `json:"sisMatches"`
	LyraMatch  []SpeakerMatch `json:"lyraMatches"`

	Speakers           []string          `json:"speakers"`
	SpeakerNames       map[string]string `json:"speakerNames"`
	CustomSpeakerNames map[string]string `json:"customSpeakerNames"`

	Engine   string `json:"engine"`
	Language string `json:"language"`
	// seconds of audio
	Duration float64 `json:"duration"`

	AudioBackup *AudioBackup `json:"audioBackup"`
	Error       string       `json:"error"`
}

// normalize resolves the legacy/current field-name split and produces the
// JobStatus the rest of the codebase works with. Current names win when both
// are set.
func (r *jobStatusResponse) normalize() *JobStatus {
	s := &JobStatus{
		Status:      r.Status,
		Stage:       r.Stage,
		Transcript:  r.Transcript,
		Segments:    r.Segments,
		Words:       r.Words,
		Speakers:    r.Speakers,
		Engine:      r.Engine,
		Language:    r.Language,
		Duration:    r.Duration,
		AudioBackup: r.AudioBackup,
		Error:       r.Error,
	}

	if r.Progress != nil {
		s.Progress = *r.Progress
	}

	s.SISStatus = r.SISStatus
	if s.SISStatus == "" {
		s.SISStatus = r.LyraStatus
	}

	s.Matches = r.SISMatches
	if len(s.Matches) == 0 {
		s.Matches = r.LyraMatch
	}

	s.SpeakerNames = r.SpeakerNames
	if len(s.SpeakerNames) == 0 {
		s.SpeakerNames = r.CustomSpeakerNames
	}

	return s
}
