package service

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/stemstage/api/internal/config"
	"github.com/stemstage/api/internal/model"
	"github.com/stemstage/api/internal/stem"
	"github.com/stemstage/api/internal/taskstore"
)

// LibraryService lists assembled media, resolves file-serving paths against
// the allow-listed roots and clears all working state.
type LibraryService struct {
	dirs  config.DirsConfig
	store taskstore.Store
}

func NewLibraryService(dirs config.DirsConfig, store taskstore.Store) *LibraryService {
	return &LibraryService{dirs: dirs, store: store}
}

// List scans the remuxed directory and pairs each file with its separated
// stem directory and persisted manifest. The manifest is read back verbatim;
// stem order is never re-derived from the directory listing.
func (s *LibraryService) List(ctx context.Context) (*model.LibraryResponse, error) {
	files := make([]model.AssembledFile, 0)

	entries, err := os.ReadDir(s.dirs.Remuxed)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.LibraryResponse{Files: files}, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".mp4") {
			continue
		}
		path := filepath.Join(s.dirs.Remuxed, name)
		info, err := entry.Info()
		if err != nil {
			continue
		}

		file := model.AssembledFile{
			Filename: name,
			Path:     path,
			SizeMB:   float64(info.Size()) / (1024 * 1024),
		}

		base := strings.TrimSuffix(name, "_remuxed.mp4")
		if dir := s.findSeparatedDir(base); dir != "" {
			file.SeparatedDir = dir
			if manifest, err := stem.LoadManifest(dir); err == nil {
				file.StemOrder = manifest.StemOrder
				file.ChannelLayout = manifest.ChannelLayout
			}
		}
		files = append(files, file)
	}

	return &model.LibraryResponse{Files: files}, nil
}

// findSeparatedDir locates the stem directory produced for a video base
// name. Separation output dirs are uuid-suffixed, hence the prefix match.
func (s *LibraryService) findSeparatedDir(base string) string {
	entries, err := os.ReadDir(s.dirs.Separated)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), base+"_") {
			continue
		}
		candidate := filepath.Join(s.dirs.Separated, entry.Name())
		if dir := findManifestDir(candidate); dir != "" {
			return dir
		}
	}
	return ""
}

// findManifestDir walks down for the directory carrying the stem index.
func findManifestDir(root string) string {
	var found string
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == stem.ManifestFilename {
			found = filepath.Dir(path)
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

// Resolve maps a requested file path onto the allow-listed roots. Paths
// escaping every root are reported as not found — never served.
func (s *LibraryService) Resolve(requested string) (string, error) {
	candidates := []string{requested}
	for _, root := range s.dirs.Roots() {
		candidates = append(candidates, filepath.Join(root, requested))
	}

	for _, candidate := range candidates {
		if !s.allowed(candidate) {
			continue
		}
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		return candidate, nil
	}
	return "", errors.New("file not found")
}

func (s *LibraryService) allowed(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, root := range s.dirs.Roots() {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if abs == rootAbs || strings.HasPrefix(abs, rootAbs+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Cleanup removes every working directory's contents and drops the task
// table.
func (s *LibraryService) Cleanup(ctx context.Context) error {
	for _, dir := range s.dirs.Roots() {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := s.store.Clear(ctx); err != nil {
		log.Printf("Failed to clear task store: %v", err)
		return err
	}
	return nil
}
