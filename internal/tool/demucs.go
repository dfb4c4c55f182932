package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Separator runs the demucs source-separation model through its python
// entrypoint.
type Separator struct {
	python string
	runner *Runner
}

func NewSeparator(python string, runner *Runner) *Separator {
	return &Separator{python: python, runner: runner}
}

// Separate splits the media file into stems under outDir and returns the
// directory holding the per-stem WAV files. Demucs nests its output, so the
// result is located by searching for the first directory containing WAVs.
func (s *Separator) Separate(ctx context.Context, mediaPath, model, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}

	_, err := s.runner.Run(ctx, s.python,
		"-m", "demucs.separate",
		"-n", model,
		"-o", outDir,
		"--filename", "{stem}.{ext}",
		mediaPath,
	)
	if err != nil {
		return "", err
	}

	stemDir, err := findStemDir(outDir)
	if err != nil {
		return "", err
	}
	return stemDir, nil
}

// findStemDir walks outDir for the first directory directly containing WAV
// files.
func findStemDir(outDir string) (string, error) {
	var found string
	err := filepath.WalkDir(outDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if found != "" {
			return filepath.SkipAll
		}
		if !d.IsDir() && filepath.Ext(d.Name()) == ".wav" {
			found = filepath.Dir(path)
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("separation produced no stem files in %s", outDir)
	}
	return found, nil
}
