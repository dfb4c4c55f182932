package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/stemstage/api/internal/model"
)

// UploadService stores user-provided video files in the downloads root, as
// an alternative to fetching them by URL.
type UploadService struct {
	downloadsDir string
}

func NewUploadService(downloadsDir string) *UploadService {
	return &UploadService{downloadsDir: downloadsDir}
}

// SaveVideo writes the uploaded stream into the downloads directory.
func (s *UploadService) SaveVideo(filename string, file io.Reader) (*model.UploadVideoResponse, error) {
	if err := os.MkdirAll(s.downloadsDir, 0755); err != nil {
		return nil, err
	}

	// Strip any client-supplied directory components.
	name := filepath.Base(filepath.Clean(filename))
	if name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid filename %q", filename)
	}
	dest := filepath.Join(s.downloadsDir, name)

	out, err := os.Create(dest)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	written, err := io.Copy(out, file)
	if err != nil {
		os.Remove(dest)
		return nil, err
	}

	return &model.UploadVideoResponse{
		VideoPath: dest,
		SizeMB:    float64(written) / (1024 * 1024),
	}, nil
}
