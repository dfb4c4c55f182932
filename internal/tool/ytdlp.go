package tool

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Downloader fetches videos with yt-dlp.
type Downloader struct {
	bin    string
	runner *Runner
}

func NewDownloader(bin string, runner *Runner) *Downloader {
	return &Downloader{bin: bin, runner: runner}
}

const downloadFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

var downloadPercentRe = regexp.MustCompile(`\[download\]\s+([0-9.]+)%`)

// Download fetches the best mp4 rendition of the URL into dir and returns
// the final file path. Progress fractions parsed from yt-dlp's own output
// are forwarded to onProgress.
func (d *Downloader) Download(ctx context.Context, url, dir string, onProgress func(frac float64, message string)) (string, error) {
	outputTemplate := filepath.Join(dir, "%(title)s.%(ext)s")

	// Resolve the output filename first so the caller gets a stable path
	// even though yt-dlp picks the title.
	name, err := d.runner.Run(ctx, d.bin,
		"--print", "filename",
		"-o", outputTemplate,
		"-f", downloadFormat,
		"--skip-download",
		url,
	)
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(name)
	videoPath := strings.TrimSuffix(name, ext) + ".mp4"

	err = d.runner.RunLines(ctx, func(line string) {
		if onProgress == nil {
			return
		}
		if m := downloadPercentRe.FindStringSubmatch(line); m != nil {
			if pct, err := strconv.ParseFloat(m[1], 64); err == nil {
				onProgress(pct/100, fmt.Sprintf("Downloading: %.1f%%", pct))
			}
		}
	}, d.bin,
		"--newline",
		"-o", outputTemplate,
		"-f", downloadFormat,
		"--merge-output-format", "mp4",
		url,
	)
	if err != nil {
		return "", err
	}
	return videoPath, nil
}
