package storage

import (
	"time"

	"gorm.io/datatypes"
)

// CaptionRecord is the latest caption stored for an uploaded filename.
type CaptionRecord struct {
	ID          uint           `gorm:"primaryKey"                                json:"id"`
	Filename    string         `gorm:"type:varchar(512);uniqueIndex;not null"    json:"filename"`
	ImageType   string         `gorm:"type:varchar(32);not null"                 json:"image_type"`
	Caption     string         `gorm:"type:text;not null"                        json:"caption"`
	LLMResponse string         `gorm:"column:llm_response;type:text"             json:"llm_response"`
	Provider    string         `gorm:"type:varchar(64)"                          json:"provider"`
	VectorDim   int            `gorm:"column:vector_dim"                         json:"vector_dim"`
	Metadata    datatypes.JSON `                                                 json:"metadata,omitempty"`
	CreatedAt   time.Time      `                                                 json:"created_at"`
	UpdatedAt   time.Time      `                                                 json:"updated_at"`
}

func (CaptionRecord) TableName() string { return "caption_records" }

// AnalysisEvent logs one analysis request.
type AnalysisEvent struct {
	ID         uint           `gorm:"primaryKey"            json:"id"`
	RequestID  string         `gorm:"type:varchar(64)"      json:"request_id"`
	Kind       string         `gorm:"type:varchar(64);index" json:"kind"`
	Filename   string         `gorm:"type:varchar(512)"     json:"filename"`
	Success    bool           `                             json:"success"`
	DurationMS int64          `gorm:"column:duration_ms"    json:"duration_ms"`
	Error      string         `gorm:"type:text"             json:"error,omitempty"`
	Data       datatypes.JSON `                             json:"data,omitempty"`
	CreatedAt  time.Time      `gorm:"index"                 json:"created_at"`
}

func (AnalysisEvent) TableName() string { return "analysis_events" }
