package model

import (
	"encoding/json"
	"time"
)

// Task represents a background operation in the system. The record is created
// when an operation is submitted and mutated only by that operation's own
// execution path.
type Task struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Status      TaskStatus             `json:"status"`
	Progress    float64                `json:"progress"`
	Message     string                 `json:"message"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Payload     json.RawMessage        `json:"-"`
	CreatedAt   time.Time              `json:"createdAt"`
	StartedAt   *time.Time             `json:"startedAt,omitempty"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}

// DownloadPayload contains the data for a download task.
type DownloadPayload struct {
	URL string `json:"url"`
}

// SeparatePayload contains the data for a separation task.
type SeparatePayload struct {
	VideoPath string          `json:"videoPath"`
	Model     SeparationModel `json:"model"`
}

// MergePayload contains the data for a stem assembly task.
type MergePayload struct {
	SeparatedDir string `json:"separatedDir"`
}

// ExportPayload contains the data for a mix export task.
type ExportPayload struct {
	VideoPath        string             `json:"videoPath"`
	MultichannelPath string             `json:"multichannelPath"`
	Gains            map[string]float64 `json:"gains"`
	OutputFilename   string             `json:"outputFilename"`
}
