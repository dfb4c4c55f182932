package stem

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeSine writes a stereo-or-mono sine stem fixture.
func writeSine(t *testing.T, path string, freq float64, sampleRate, frames, channels int, amp float64) {
	t.Helper()
	samples := make([]float32, frames*channels)
	for f := 0; f < frames; f++ {
		v := float32(amp * math.Sin(2*math.Pi*freq*float64(f)/float64(sampleRate)))
		for c := 0; c < channels; c++ {
			samples[f*channels+c] = v
		}
	}
	if err := WriteWAV(path, samples, sampleRate, channels, 16); err != nil {
		t.Fatalf("WriteWAV(%s): %v", path, err)
	}
}

func writeStemDir(t *testing.T, names []string, sampleRate, frames int) string {
	t.Helper()
	dir := t.TempDir()
	for i, name := range names {
		writeSine(t, filepath.Join(dir, name+".wav"), 220*float64(i+1), sampleRate, frames, 2, 0.5)
	}
	return dir
}

func TestAssembleCanonicalOrder(t *testing.T) {
	// Written in non-canonical order on purpose; assembly must ignore it.
	dir := writeStemDir(t, []string{"other", "bass", "vocals"}, 44100, 2048)

	a := &Assembler{}
	result, err := a.Assemble(dir)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	want := []string{"vocals", "bass", "other"}
	if !reflect.DeepEqual(result.Manifest.StemOrder, want) {
		t.Errorf("stem order = %v, want %v", result.Manifest.StemOrder, want)
	}
	if result.Manifest.ChannelCount != 6 {
		t.Errorf("channel count = %d, want 6", result.Manifest.ChannelCount)
	}
	if result.Manifest.ChannelLayout != "6.0" {
		t.Errorf("channel layout = %q, want 6.0", result.Manifest.ChannelLayout)
	}
	if _, err := os.Stat(result.MultichannelPath); err != nil {
		t.Errorf("multichannel container missing: %v", err)
	}
}

func TestAssembleDeterministic(t *testing.T) {
	dir := writeStemDir(t, []string{"vocals", "drums"}, 44100, 1024)

	a := &Assembler{}
	first, err := a.Assemble(dir)
	if err != nil {
		t.Fatalf("first Assemble: %v", err)
	}
	second, err := a.Assemble(dir)
	if err != nil {
		t.Fatalf("second Assemble: %v", err)
	}
	if !reflect.DeepEqual(first.Manifest, second.Manifest) {
		t.Errorf("manifests differ across runs: %+v vs %+v", first.Manifest, second.Manifest)
	}
}

func TestAssembleReconcilesLengths(t *testing.T) {
	dir := t.TempDir()
	writeSine(t, filepath.Join(dir, "vocals.wav"), 220, 44100, 2000, 2, 0.5)
	writeSine(t, filepath.Join(dir, "drums.wav"), 330, 44100, 1500, 2, 0.5) // padded
	writeSine(t, filepath.Join(dir, "bass.wav"), 110, 44100, 2500, 2, 0.5) // truncated

	a := &Assembler{}
	result, err := a.Assemble(dir)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if result.Set.FrameCount != 2000 {
		t.Fatalf("frame count = %d, want first stem's 2000", result.Set.FrameCount)
	}
	for _, s := range result.Set.Stems {
		if s.FrameCount != 2000 {
			t.Errorf("stem %s frame count = %d, want 2000", s.Name, s.FrameCount)
		}
		if len(s.Samples) != 2000*s.ChannelCount {
			t.Errorf("stem %s sample length = %d, want %d", s.Name, len(s.Samples), 2000*s.ChannelCount)
		}
	}

	// The padded tail must be silence.
	drums := result.Set.Stems[1]
	if drums.Name != "drums" {
		t.Fatalf("unexpected stem order: %v", result.Set.Order())
	}
	for _, v := range drums.Samples[1500*2:] {
		if v != 0 {
			t.Fatalf("padded tail carries signal: %v", v)
		}
	}
}

func TestAssembleSampleRateMismatch(t *testing.T) {
	dir := t.TempDir()
	writeSine(t, filepath.Join(dir, "vocals.wav"), 220, 44100, 1024, 2, 0.5)
	writeSine(t, filepath.Join(dir, "drums.wav"), 330, 48000, 1024, 2, 0.5)

	a := &Assembler{}
	if _, err := a.Assemble(dir); !errors.Is(err, ErrSampleRateMismatch) {
		t.Fatalf("err = %v, want ErrSampleRateMismatch", err)
	}
	if _, err := os.Stat(filepath.Join(dir, MultichannelFilename)); !os.IsNotExist(err) {
		t.Error("container written despite failed assembly")
	}
}

func TestAssembleRejectsSilentStem(t *testing.T) {
	dir := t.TempDir()
	writeSine(t, filepath.Join(dir, "vocals.wav"), 220, 44100, 1024, 2, 0.5)
	writeSine(t, filepath.Join(dir, "drums.wav"), 330, 44100, 1024, 2, 0)

	a := &Assembler{}
	_, err := a.Assemble(dir)
	if !errors.Is(err, ErrSilentStem) {
		t.Fatalf("err = %v, want ErrSilentStem", err)
	}
}

func TestAssembleEmptyDir(t *testing.T) {
	a := &Assembler{}
	if _, err := a.Assemble(t.TempDir()); !errors.Is(err, ErrNoStems) {
		t.Fatalf("err = %v, want ErrNoStems", err)
	}
}

func TestInterleaveChannelGroups(t *testing.T) {
	set := &StemSet{
		Stems: []Stem{
			{Name: "vocals", Samples: []float32{0.1, 0.2, 0.3, 0.4}, ChannelCount: 2, FrameCount: 2},
			{Name: "bass", Samples: []float32{0.5, 0.6}, ChannelCount: 1, FrameCount: 2},
		},
		SampleRate: 44100,
		FrameCount: 2,
	}

	got := Interleave(set)
	want := []float32{0.1, 0.2, 0.5, 0.3, 0.4, 0.6}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Interleave = %v, want %v", got, want)
	}
}

func TestLoadSetFollowsManifestOrder(t *testing.T) {
	dir := writeStemDir(t, []string{"vocals", "drums", "bass"}, 44100, 1024)

	a := &Assembler{}
	result, err := a.Assemble(dir)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	set, err := LoadSet(dir, result.Manifest)
	if err != nil {
		t.Fatalf("LoadSet: %v", err)
	}
	if !reflect.DeepEqual(set.Order(), result.Manifest.StemOrder) {
		t.Errorf("loaded order = %v, want %v", set.Order(), result.Manifest.StemOrder)
	}
	if set.FrameCount != result.Manifest.FrameCount {
		t.Errorf("frame count = %d, want %d", set.FrameCount, result.Manifest.FrameCount)
	}
}

func TestLoadManifestMissing(t *testing.T) {
	if _, err := LoadManifest(t.TempDir()); !errors.Is(err, ErrManifestMissing) {
		t.Fatalf("err = %v, want ErrManifestMissing", err)
	}
}

func TestDiscoverStemsFiltersVocabulary(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"drums.wav", "vocals.wav", "karaoke.wav", "notes.txt", MultichannelFilename} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := DiscoverStems(dir)
	if err != nil {
		t.Fatalf("DiscoverStems: %v", err)
	}
	want := []string{"vocals", "drums"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DiscoverStems = %v, want %v", got, want)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocals.wav")
	samples := []float32{0.0, 0.25, -0.25, 0.5, -0.5, 0.99}
	if err := WriteWAV(path, samples, 44100, 2, 16); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	s, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if s.SampleRate != 44100 || s.ChannelCount != 2 || s.FrameCount != 3 {
		t.Fatalf("decoded shape = %d Hz %d ch %d frames", s.SampleRate, s.ChannelCount, s.FrameCount)
	}
	for i, v := range s.Samples {
		if math.Abs(float64(v)-float64(samples[i])) > 1e-3 {
			t.Errorf("sample %d = %v, want ~%v", i, v, samples[i])
		}
	}
}
