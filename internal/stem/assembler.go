package stem

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
)

// Assembler turns a directory of per-stem WAV files into a reconciled
// StemSet, a multichannel container and its manifest.
type Assembler struct {
	// SilenceRMS is the rejection threshold; zero means DefaultSilenceRMS.
	SilenceRMS float64
	// Progress, when set, receives coarse progress in [0,1] with a message.
	Progress func(frac float64, message string)
}

// AssemblyResult is what Assemble hands off to the mixer and exporter.
type AssemblyResult struct {
	Set              *StemSet
	Manifest         *Manifest
	MultichannelPath string
}

// Assemble validates, reconciles and interleaves the stems found in dir.
// Any failure aborts the whole assembly; no partial container is written.
// Re-running on the same inputs yields an identical manifest.
func (a *Assembler) Assemble(dir string) (*AssemblyResult, error) {
	names, err := DiscoverStems(dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoStems, dir)
	}

	set, err := a.load(dir, names)
	if err != nil {
		return nil, err
	}

	a.report(0.8, "Interleaving stems...")
	interleaved := Interleave(set)

	manifest := &Manifest{
		StemOrder:     set.Order(),
		ChannelLayout: LayoutName(set.TotalChannels()),
		ChannelCount:  set.TotalChannels(),
		SampleRate:    set.SampleRate,
		FrameCount:    set.FrameCount,
	}

	outPath := filepath.Join(dir, MultichannelFilename)
	if err := WriteWAV(outPath, interleaved, set.SampleRate, set.TotalChannels(), 24); err != nil {
		return nil, fmt.Errorf("failed to write multichannel container: %w", err)
	}
	if err := WriteManifest(dir, manifest); err != nil {
		return nil, fmt.Errorf("failed to write stem index: %w", err)
	}
	a.report(1.0, "Stems assembled.")

	return &AssemblyResult{Set: set, Manifest: manifest, MultichannelPath: outPath}, nil
}

// load reads the named stems and applies the set invariants: one shared
// sample rate, no silent stems, one canonical frame count.
func (a *Assembler) load(dir string, names []string) (*StemSet, error) {
	threshold := a.SilenceRMS
	if threshold == 0 {
		threshold = DefaultSilenceRMS
	}

	stems := make([]Stem, 0, len(names))
	var silent []string
	for i, name := range names {
		a.report(0.7*float64(i)/float64(len(names)), fmt.Sprintf("Reading stem %s...", name))
		s, err := ReadWAV(filepath.Join(dir, name+".wav"))
		if err != nil {
			return nil, err
		}
		s.Name = name

		if len(stems) > 0 && s.SampleRate != stems[0].SampleRate {
			return nil, fmt.Errorf("%w: stem %s is %d Hz, expected %d Hz",
				ErrSampleRateMismatch, name, s.SampleRate, stems[0].SampleRate)
		}
		if s.RMS() < threshold {
			silent = append(silent, name)
		}
		stems = append(stems, *s)
	}
	if len(silent) > 0 {
		return nil, fmt.Errorf("%w: %s (RMS below %g)", ErrSilentStem, strings.Join(silent, ", "), threshold)
	}

	// The first stem's frame count is canonical: shorter stems are
	// zero-padded at the tail, longer ones truncated. Truncation discards
	// audio, so it is logged.
	canonical := stems[0].FrameCount
	for i := range stems {
		s := &stems[i]
		if s.FrameCount == canonical {
			continue
		}
		if s.FrameCount > canonical {
			log.Printf("Truncating stem %s from %d to %d frames to match %s",
				s.Name, s.FrameCount, canonical, stems[0].Name)
			s.Samples = s.Samples[:canonical*s.ChannelCount]
		} else {
			padded := make([]float32, canonical*s.ChannelCount)
			copy(padded, s.Samples)
			s.Samples = padded
		}
		s.FrameCount = canonical
	}

	return &StemSet{
		Stems:      stems,
		SampleRate: stems[0].SampleRate,
		FrameCount: canonical,
	}, nil
}

// Interleave lays the set out as one multichannel buffer: frame by frame,
// each stem contributes its own channel group in stem order.
func Interleave(set *StemSet) []float32 {
	total := set.TotalChannels()
	out := make([]float32, set.FrameCount*total)

	for frame := 0; frame < set.FrameCount; frame++ {
		ch := 0
		for i := range set.Stems {
			s := &set.Stems[i]
			base := frame * s.ChannelCount
			for c := 0; c < s.ChannelCount; c++ {
				out[frame*total+ch] = s.Samples[base+c]
				ch++
			}
		}
	}
	return out
}

// LoadSet reads the stems named by the manifest back into a set, reconciled
// to the manifest's frame count when recorded. Used by playback sessions and
// the export renderer; the manifest — not a directory scan — decides order.
func LoadSet(dir string, manifest *Manifest) (*StemSet, error) {
	if len(manifest.StemOrder) == 0 {
		return nil, fmt.Errorf("%w: manifest has an empty stem order", ErrNoStems)
	}

	stems := make([]Stem, 0, len(manifest.StemOrder))
	for _, name := range manifest.StemOrder {
		s, err := ReadWAV(filepath.Join(dir, name+".wav"))
		if err != nil {
			return nil, err
		}
		s.Name = name
		if len(stems) > 0 && s.SampleRate != stems[0].SampleRate {
			return nil, fmt.Errorf("%w: stem %s is %d Hz, expected %d Hz",
				ErrSampleRateMismatch, name, s.SampleRate, stems[0].SampleRate)
		}
		stems = append(stems, *s)
	}

	canonical := manifest.FrameCount
	if canonical == 0 {
		canonical = stems[0].FrameCount
	}
	for i := range stems {
		s := &stems[i]
		if s.FrameCount == canonical {
			continue
		}
		if s.FrameCount > canonical {
			s.Samples = s.Samples[:canonical*s.ChannelCount]
		} else {
			padded := make([]float32, canonical*s.ChannelCount)
			copy(padded, s.Samples)
			s.Samples = padded
		}
		s.FrameCount = canonical
	}

	return &StemSet{
		Stems:      stems,
		SampleRate: stems[0].SampleRate,
		FrameCount: canonical,
	}, nil
}

func (a *Assembler) report(frac float64, message string) {
	if a.Progress != nil {
		a.Progress(frac, message)
	}
}
