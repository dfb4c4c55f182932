package stem

import (
	"fmt"
	"sync"
)

const (
	// GainMin..GainMax is the per-stem gain domain; GainUnity is the default.
	GainMin   = 0.0
	GainMax   = 2.0
	GainUnity = 1.0

	// rampSeconds is the live gain ramp length. Short enough to feel
	// immediate, long enough to avoid audible clicks.
	rampSeconds = 0.02
)

// GainState maps stem names to gain scalars. Names absent from the current
// stem order are ignored by the mixers; stems absent from the state mix at
// unity.
type GainState map[string]float64

// Get returns the clamped gain for a stem, defaulting to unity.
func (g GainState) Get(name string) float64 {
	gain, ok := g[name]
	if !ok {
		return GainUnity
	}
	return clampGain(gain)
}

func clampGain(gain float64) float64 {
	if gain < GainMin {
		return GainMin
	}
	if gain > GainMax {
		return GainMax
	}
	return gain
}

// Mixdown is the offline bounce: for every frame, the output is the sum of
// stem samples scaled by their gains, in stem order. After summing, if the
// peak absolute amplitude exceeds 1.0 the whole signal is scaled by 1/peak
// in a single global pass — the export never clips, at the cost of uniform
// loudness reduction.
//
// All stems must share a channel count; the output carries that count.
func Mixdown(set *StemSet, gains GainState) ([]float32, int, error) {
	if len(set.Stems) == 0 {
		return nil, 0, ErrNoStems
	}

	channels := set.Stems[0].ChannelCount
	for i := range set.Stems {
		if set.Stems[i].ChannelCount != channels {
			return nil, 0, fmt.Errorf("channel count mismatch for stem %s: %d vs %d",
				set.Stems[i].Name, set.Stems[i].ChannelCount, channels)
		}
	}

	out := make([]float32, set.FrameCount*channels)
	for i := range set.Stems {
		s := &set.Stems[i]
		gain := float32(gains.Get(s.Name))
		if gain == 0 {
			continue
		}
		for j, v := range s.Samples {
			out[j] += v * gain
		}
	}

	var peak float32
	for _, v := range out {
		if v > peak {
			peak = v
		} else if -v > peak {
			peak = -v
		}
	}
	if peak > 1.0 {
		inv := 1.0 / peak
		for i := range out {
			out[i] *= inv
		}
	}

	return out, channels, nil
}

// LiveMixer is the real-time gain stage: one control per stem in the set's
// order, summed into a master bus block by block. Gain changes take effect
// on the next processed block through a short linear ramp.
type LiveMixer struct {
	mu         sync.RWMutex
	set        *StemSet
	current    map[string]float64
	target     map[string]float64
	rampFrames int
}

func NewLiveMixer(set *StemSet) *LiveMixer {
	m := &LiveMixer{
		set:        set,
		current:    make(map[string]float64, len(set.Stems)),
		target:     make(map[string]float64, len(set.Stems)),
		rampFrames: int(rampSeconds * float64(set.SampleRate)),
	}
	for _, name := range set.Order() {
		m.current[name] = GainUnity
		m.target[name] = GainUnity
	}
	return m
}

// SetGain updates one stem's target gain. Names outside the stem order are
// ignored.
func (m *LiveMixer) SetGain(name string, gain float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.target[name]; !ok {
		return
	}
	m.target[name] = clampGain(gain)
}

// Gains returns a snapshot of the target gain state.
func (m *LiveMixer) Gains() GainState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot := make(GainState, len(m.target))
	for name, gain := range m.target {
		snapshot[name] = gain
	}
	return snapshot
}

// MixBlock renders frames starting at frameOffset into a master-bus block.
// The master carries the widest stem's channel count; mono stems feed every
// master channel. Each stem's gain ramps linearly toward its target across
// at most rampFrames.
func (m *LiveMixer) MixBlock(frameOffset, frames int) []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	channels := 0
	for i := range m.set.Stems {
		if m.set.Stems[i].ChannelCount > channels {
			channels = m.set.Stems[i].ChannelCount
		}
	}
	out := make([]float32, frames*channels)

	if frameOffset >= m.set.FrameCount {
		return out
	}
	avail := m.set.FrameCount - frameOffset
	if avail > frames {
		avail = frames
	}

	for i := range m.set.Stems {
		s := &m.set.Stems[i]
		gain := m.current[s.Name]
		target := m.target[s.Name]
		step := 0.0
		if gain != target && m.rampFrames > 0 {
			step = (target - gain) / float64(m.rampFrames)
		}

		for f := 0; f < avail; f++ {
			if step != 0 {
				gain += step
				if (step > 0 && gain >= target) || (step < 0 && gain <= target) {
					gain = target
					step = 0
				}
			}
			base := (frameOffset + f) * s.ChannelCount
			for c := 0; c < channels; c++ {
				sc := c
				if sc >= s.ChannelCount {
					sc = s.ChannelCount - 1
				}
				out[f*channels+c] += s.Samples[base+sc] * float32(gain)
			}
		}
		m.current[s.Name] = gain
	}

	return out
}
