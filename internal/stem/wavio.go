package stem

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ReadWAV decodes a whole WAV file into an interleaved float32 buffer
// normalized to [-1, 1].
func ReadWAV(path string) (*Stem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid WAV file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("%s reports no channels", path)
	}

	bitDepth := int(dec.BitDepth)
	if buf.SourceBitDepth != 0 {
		bitDepth = buf.SourceBitDepth
	}
	scale := float32(int(1) << uint(bitDepth-1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}

	return &Stem{
		Samples:      samples,
		SampleRate:   buf.Format.SampleRate,
		FrameCount:   len(samples) / channels,
		ChannelCount: channels,
	}, nil
}

// WriteWAV encodes an interleaved float32 buffer as PCM WAV at the given bit
// depth. Values outside [-1, 1] are clipped.
func WriteWAV(path string, samples []float32, sampleRate, channels, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scale := float64(int(1)<<uint(bitDepth-1) - 1)
	data := make([]int, len(samples))
	for i, v := range samples {
		s := float64(v)
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * scale)
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return enc.Close()
}
