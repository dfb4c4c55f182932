// Package stem implements the stem assembly and gain mixing core: it
// validates per-stem audio files, reconciles their lengths, interleaves them
// into a multichannel container with a persisted channel-order manifest, and
// applies the per-stem gain model for both live monitoring and offline
// export.
package stem

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// CanonicalOrder is the fixed stem vocabulary. Its order — not filesystem or
// alphabetical order — decides which channel group each stem occupies.
var CanonicalOrder = []string{"vocals", "drums", "bass", "guitar", "piano", "other"}

const (
	// MultichannelFilename is the assembled container written next to the
	// individual stems.
	MultichannelFilename = "multichannel_stems.wav"
	// ManifestFilename is the persisted channel-order manifest.
	ManifestFilename = "stem_index.json"

	// DefaultSilenceRMS is the full-duration RMS below which a stem is
	// considered silent.
	DefaultSilenceRMS = 1e-6
)

var channelLayouts = map[int]string{
	1: "mono",
	2: "stereo",
	3: "3.0",
	4: "4.0",
	5: "5.0",
	6: "6.0",
}

// LayoutName returns the layout tag for a channel count.
func LayoutName(channels int) string {
	if name, ok := channelLayouts[channels]; ok {
		return name
	}
	return fmt.Sprintf("%d.0", channels)
}

// Stem is one decoded instrument/vocal track.
type Stem struct {
	Name         string
	Samples      []float32 // channel-interleaved
	SampleRate   int
	FrameCount   int
	ChannelCount int
}

// RMS returns the root-mean-square energy over the stem's full duration.
func (s *Stem) RMS() float64 {
	if len(s.Samples) == 0 {
		return 0
	}
	var total float64
	for _, v := range s.Samples {
		total += float64(v) * float64(v)
	}
	return math.Sqrt(total / float64(len(s.Samples)))
}

// StemSet is an ordered, reconciled set of stems sharing one sample rate and
// frame count. It is immutable once handed off by the assembler.
type StemSet struct {
	Stems      []Stem
	SampleRate int
	FrameCount int
}

// Order returns the stem names in channel order.
func (set *StemSet) Order() []string {
	names := make([]string, len(set.Stems))
	for i := range set.Stems {
		names[i] = set.Stems[i].Name
	}
	return names
}

// TotalChannels is the channel count of the assembled container: each stem
// occupies a group matching its own channel count.
func (set *StemSet) TotalChannels() int {
	total := 0
	for i := range set.Stems {
		total += set.Stems[i].ChannelCount
	}
	return total
}

// Duration returns the set length in seconds.
func (set *StemSet) Duration() float64 {
	if set.SampleRate == 0 {
		return 0
	}
	return float64(set.FrameCount) / float64(set.SampleRate)
}

// Manifest records the channel-to-stem mapping of an assembled container.
// Once written it is the single source of truth: later stages read it back
// verbatim and never re-derive the order from a directory scan.
type Manifest struct {
	StemOrder     []string `json:"order"`
	ChannelLayout string   `json:"channel_layout"`
	ChannelCount  int      `json:"channel_count"`
	SampleRate    int      `json:"sample_rate,omitempty"`
	FrameCount    int      `json:"frame_count,omitempty"`
}

// WriteManifest persists the manifest next to the stems.
func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestFilename), data, 0644)
}

// LoadManifest reads the persisted manifest, or ErrManifestMissing when the
// directory has none.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrManifestMissing
		}
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestFilename, err)
	}
	return &m, nil
}

// DiscoverStems lists the stem WAV files present in dir, in canonical order.
// Files outside the vocabulary are ignored.
func DiscoverStems(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".wav" || name == MultichannelFilename {
			continue
		}
		present[name[:len(name)-len(".wav")]] = true
	}

	var ordered []string
	for _, name := range CanonicalOrder {
		if present[name] {
			ordered = append(ordered, name)
		}
	}
	return ordered, nil
}
