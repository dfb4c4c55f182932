package model

// Task status
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal reports whether the status is final. Terminal task records are
// never overwritten.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task types (asynq task type names)
const (
	TaskTypeDownload = "download:process"
	TaskTypeSeparate = "separate:process"
	TaskTypeMerge    = "merge:process"
	TaskTypeExport   = "export:process"
)

// Separation models
type SeparationModel string

const (
	ModelFourStem SeparationModel = "htdemucs"
	ModelSixStem  SeparationModel = "htdemucs_6s"
)
