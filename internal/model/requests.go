package model

// DownloadRequest starts a video download.
type DownloadRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// SeparateRequest starts stem separation on a downloaded video. TaskID is
// accepted for wire compatibility with older clients but the server always
// mints a fresh id per submission.
type SeparateRequest struct {
	TaskID    string          `json:"taskId"`
	VideoPath string          `json:"videoPath" validate:"required"`
	Model     SeparationModel `json:"model" validate:"omitempty,oneof=htdemucs htdemucs_6s"`
}

// MergeRequest assembles separated stems into a multichannel container.
type MergeRequest struct {
	TaskID       string `json:"taskId"`
	SeparatedDir string `json:"separatedDir" validate:"required"`
}

// ExportRequest renders a gain-mixed bounce and remuxes it with the video.
type ExportRequest struct {
	TaskID           string             `json:"taskId"`
	VideoPath        string             `json:"videoPath" validate:"required"`
	MultichannelPath string             `json:"multichannelPath" validate:"required"`
	Gains            map[string]float64 `json:"gains" validate:"dive,gte=0,lte=2"`
	OutputFilename   string             `json:"outputFilename" validate:"required"`
}

// TaskAccepted is returned when a background task has been submitted.
type TaskAccepted struct {
	TaskID  string `json:"taskId"`
	Message string `json:"message"`
}

// ProgressResponse reports the state of a background task.
type ProgressResponse struct {
	TaskID   string                 `json:"taskId"`
	Status   TaskStatus             `json:"status"`
	Progress float64                `json:"progress"`
	Message  string                 `json:"message"`
	Result   map[string]interface{} `json:"result,omitempty"`
}

// AssembledFile describes one remuxed video and the stem set behind it.
type AssembledFile struct {
	Filename      string   `json:"filename"`
	Path          string   `json:"path"`
	SizeMB        float64  `json:"sizeMb"`
	SeparatedDir  string   `json:"separatedDir,omitempty"`
	StemOrder     []string `json:"stemOrder,omitempty"`
	ChannelLayout string   `json:"channelLayout,omitempty"`
}

// LibraryResponse lists all assembled files.
type LibraryResponse struct {
	Files []AssembledFile `json:"files"`
}

// UploadVideoResponse is returned after a local video upload.
type UploadVideoResponse struct {
	VideoPath string  `json:"videoPath"`
	SizeMB    float64 `json:"sizeMb"`
}

// SessionOpenRequest opens a playback session on an assembled stem set.
type SessionOpenRequest struct {
	SeparatedDir string `json:"separatedDir" validate:"required"`
}

// SessionOpenResponse describes the opened session.
type SessionOpenResponse struct {
	SessionID       string   `json:"sessionId"`
	StemOrder       []string `json:"stemOrder"`
	ChannelLayout   string   `json:"channelLayout"`
	DurationSeconds float64  `json:"durationSeconds"`
}

// SeekRequest repositions the transport.
type SeekRequest struct {
	Position float64 `json:"position" validate:"gte=0"`
}

// GainRequest adjusts one stem's gain.
type GainRequest struct {
	Stem string  `json:"stem" validate:"required"`
	Gain float64 `json:"gain" validate:"gte=0,lte=2"`
}

// TransportStateResponse reports the current transport state.
type TransportStateResponse struct {
	SessionID string             `json:"sessionId"`
	Phase     string             `json:"phase"`
	Position  float64            `json:"position"`
	Gains     map[string]float64 `json:"gains"`
}
