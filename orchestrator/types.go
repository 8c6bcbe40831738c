package orchestrator

// EmotionScore is one named emotion dimension in [0,1].
type EmotionScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Utterance is one speech turn. Start/End are seconds; Emotions is empty
// (never nil in output) when emotion analysis did not run for it.
type Utterance struct {
	Text     string         `json:"text"`
	Start    float64        `json:"start"`
	End      float64        `json:"end"`
	Emotions []EmotionScore `json:"emotions"`
}

// SpeakerAnalysis is the labeled per-speaker output. IsUser is true for
// at most one speaker per analysis.
type SpeakerAnalysis struct {
	IsUser      bool        `json:"is_user"`
	DisplayName string      `json:"display_name"`
	Utterances  []Utterance `json:"utterances"`
}

// ConversationAnalysis is the pipeline's terminal artifact.
type ConversationAnalysis struct {
	Speakers []SpeakerAnalysis `json:"speakers"`
}
