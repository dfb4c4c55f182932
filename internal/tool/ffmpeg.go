package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Remuxer drives ffmpeg/ffprobe for container work: pairing a mixed audio
// stream with an untouched video stream, and verifying channel layouts.
type Remuxer struct {
	ffmpeg  string
	ffprobe string
	runner  *Runner
}

func NewRemuxer(ffmpeg, ffprobe string, runner *Runner) *Remuxer {
	return &Remuxer{ffmpeg: ffmpeg, ffprobe: ffprobe, runner: runner}
}

// Remux writes outPath with the video stream copied bit-identical from
// videoPath and the audio stream encoded from audioPath.
func (r *Remuxer) Remux(ctx context.Context, videoPath, audioPath, outPath, audioTitle string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "384k",
	}
	if audioTitle != "" {
		args = append(args,
			"-movflags", "use_metadata_tags",
			"-metadata:s:a:0", "title="+audioTitle,
		)
	}
	args = append(args, outPath)

	_, err := r.runner.Run(ctx, r.ffmpeg, args...)
	return err
}

// ProbeLayout reads the channel count and layout tag of the first audio
// stream.
func (r *Remuxer) ProbeLayout(ctx context.Context, path string) (int, string, error) {
	out, err := r.runner.Run(ctx, r.ffprobe,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=channels,channel_layout",
		"-of", "json",
		path,
	)
	if err != nil {
		return 0, "", err
	}

	var probe struct {
		Streams []struct {
			Channels      int    `json:"channels"`
			ChannelLayout string `json:"channel_layout"`
		} `json:"streams"`
	}
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return 0, "", fmt.Errorf("unable to parse ffprobe output for %s: %w", path, err)
	}
	if len(probe.Streams) == 0 {
		return 0, "", fmt.Errorf("no audio stream found in %s", path)
	}

	stream := probe.Streams[0]
	if stream.ChannelLayout == "" || strings.EqualFold(stream.ChannelLayout, "unknown") {
		return stream.Channels, "", fmt.Errorf("%s is missing a valid channel layout", path)
	}
	return stream.Channels, stream.ChannelLayout, nil
}
