package eventbus

import "time"

const (
	TopicCaptionStored     = "caption.stored"
	TopicAnalysisCompleted = "analysis.completed"
)

// CaptionStored is published once a caption vector has been upserted.
type CaptionStored struct {
	RequestID   string
	Filename    string
	ImageType   string
	Caption     string
	LLMResponse string
	Provider    string
	VectorDim   int
	Image       []byte
	ContentType string
	StoredAt    time.Time
}

// AnalysisCompleted is published after every analysis request.
type AnalysisCompleted struct {
	RequestID string
	Kind      string
	Filename  string
	Success   bool
	Duration  time.Duration
	Error     string
	Data      map[string]any
	At        time.Time
}
