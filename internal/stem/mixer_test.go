package stem

import (
	"math"
	"testing"
)

func testSet(frames int) *StemSet {
	mk := func(name string, amp float32) Stem {
		samples := make([]float32, frames*2)
		for f := 0; f < frames; f++ {
			v := amp * float32(math.Sin(2*math.Pi*440*float64(f)/44100))
			samples[f*2] = v
			samples[f*2+1] = v
		}
		return Stem{Name: name, Samples: samples, SampleRate: 44100, FrameCount: frames, ChannelCount: 2}
	}
	return &StemSet{
		Stems:      []Stem{mk("vocals", 0.8), mk("drums", 0.6), mk("bass", 0.4)},
		SampleRate: 44100,
		FrameCount: frames,
	}
}

func peakOf(samples []float32) float32 {
	var peak float32
	for _, v := range samples {
		if v > peak {
			peak = v
		} else if -v > peak {
			peak = -v
		}
	}
	return peak
}

func TestMixdownNeverClips(t *testing.T) {
	set := testSet(2048)

	tables := []GainState{
		nil,
		{"vocals": 2.0, "drums": 2.0, "bass": 2.0},
		{"vocals": 1.5},
		{"vocals": 0.0, "drums": 2.0},
	}
	for _, gains := range tables {
		out, channels, err := Mixdown(set, gains)
		if err != nil {
			t.Fatalf("Mixdown(%v): %v", gains, err)
		}
		if channels != 2 {
			t.Fatalf("channels = %d, want 2", channels)
		}
		if peak := peakOf(out); peak > 1.0+1e-6 {
			t.Errorf("Mixdown(%v) peak = %v, exceeds 1.0", gains, peak)
		}
	}
}

func TestMixdownGainZeroExcludesStem(t *testing.T) {
	set := testSet(1024)

	muted, _, err := Mixdown(set, GainState{"vocals": 0})
	if err != nil {
		t.Fatalf("Mixdown muted: %v", err)
	}

	// A zero-gain stem must be indistinguishable from an absent one.
	without := &StemSet{
		Stems:      set.Stems[1:],
		SampleRate: set.SampleRate,
		FrameCount: set.FrameCount,
	}
	absent, _, err := Mixdown(without, nil)
	if err != nil {
		t.Fatalf("Mixdown absent: %v", err)
	}

	for i := range muted {
		if muted[i] != absent[i] {
			t.Fatalf("sample %d: muted %v != absent %v", i, muted[i], absent[i])
		}
	}
}

func TestMixdownDefaultsToUnity(t *testing.T) {
	set := &StemSet{
		Stems: []Stem{
			{Name: "vocals", Samples: []float32{0.25, 0.25}, ChannelCount: 1, FrameCount: 2},
			{Name: "bass", Samples: []float32{0.25, 0.25}, ChannelCount: 1, FrameCount: 2},
		},
		SampleRate: 44100,
		FrameCount: 2,
	}

	out, _, err := Mixdown(set, nil)
	if err != nil {
		t.Fatalf("Mixdown: %v", err)
	}
	for i, v := range out {
		if math.Abs(float64(v)-0.5) > 1e-6 {
			t.Errorf("sample %d = %v, want 0.5", i, v)
		}
	}
}

func TestMixdownChannelMismatch(t *testing.T) {
	set := &StemSet{
		Stems: []Stem{
			{Name: "vocals", Samples: make([]float32, 4), ChannelCount: 2, FrameCount: 2},
			{Name: "bass", Samples: make([]float32, 2), ChannelCount: 1, FrameCount: 2},
		},
		FrameCount: 2,
	}
	if _, _, err := Mixdown(set, nil); err == nil {
		t.Fatal("expected channel mismatch error")
	}
}

func TestGainStateClamping(t *testing.T) {
	g := GainState{"vocals": -0.5, "drums": 3.0, "bass": 1.2}
	if got := g.Get("vocals"); got != GainMin {
		t.Errorf("vocals gain = %v, want %v", got, GainMin)
	}
	if got := g.Get("drums"); got != GainMax {
		t.Errorf("drums gain = %v, want %v", got, GainMax)
	}
	if got := g.Get("bass"); got != 1.2 {
		t.Errorf("bass gain = %v, want 1.2", got)
	}
	if got := g.Get("piano"); got != GainUnity {
		t.Errorf("absent stem gain = %v, want unity", got)
	}
}

func TestLiveMixerIgnoresUnknownStem(t *testing.T) {
	m := NewLiveMixer(testSet(64))
	m.SetGain("kazoo", 0.5)
	if _, ok := m.Gains()["kazoo"]; ok {
		t.Error("unknown stem accepted into gain state")
	}
}

func TestLiveMixerRampReachesTarget(t *testing.T) {
	frames := 44100 // one second, far past any ramp
	set := &StemSet{
		Stems: []Stem{{
			Name:         "vocals",
			Samples:      constantSamples(frames, 0.5),
			SampleRate:   44100,
			FrameCount:   frames,
			ChannelCount: 1,
		}},
		SampleRate: 44100,
		FrameCount: frames,
	}

	m := NewLiveMixer(set)
	m.SetGain("vocals", 0.0)
	out := m.MixBlock(0, frames)

	// The first sample still carries most of the old gain.
	if out[0] < 0.4 {
		t.Errorf("first sample = %v, ramp started too abruptly", out[0])
	}
	// Well past the ramp the stem must be fully muted.
	if last := out[len(out)-1]; last != 0 {
		t.Errorf("final sample = %v, want 0 after ramp", last)
	}
}

func TestLiveMixerMonoUpmix(t *testing.T) {
	set := &StemSet{
		Stems: []Stem{
			{Name: "vocals", Samples: []float32{0.1, 0.2, 0.3, 0.4}, SampleRate: 44100, FrameCount: 2, ChannelCount: 2},
			{Name: "bass", Samples: []float32{0.5, 0.5}, SampleRate: 44100, FrameCount: 2, ChannelCount: 1},
		},
		SampleRate: 44100,
		FrameCount: 2,
	}

	m := NewLiveMixer(set)
	out := m.MixBlock(0, 2)
	want := []float32{0.1 + 0.5, 0.2 + 0.5, 0.3 + 0.5, 0.4 + 0.5}
	for i := range want {
		if math.Abs(float64(out[i])-float64(want[i])) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestLiveMixerPastEndIsSilent(t *testing.T) {
	m := NewLiveMixer(testSet(128))
	out := m.MixBlock(128, 64)
	if len(out) != 64*2 {
		t.Fatalf("block length = %d, want %d", len(out), 64*2)
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d past end = %v, want 0", i, v)
		}
	}
}

func constantSamples(n int, v float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}
	return s
}
