package frontend

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	SampleRate    = 48000
	ToneFrequency = 440
	ToneVolume    = 0.1
)

// SquareWave is an endless mono stream of float32 little-endian samples.
type SquareWave struct {
	phase  float32
	step   float32
	volume float32
}

func NewSquareWave(freq float64, sampleRate int, volume float32) *SquareWave {
	return &SquareWave{
		step:   float32(freq / float64(sampleRate)),
		volume: volume,
	}
}

// Read fills p with whole samples.
func (s *SquareWave) Read(p []byte) (int, error) {
	n := len(p) &^ 3
	for i := 0; i < n; i += 4 {
		v := s.volume
		if s.phase > 0.5 {
			v = -v
		}
		binary.LittleEndian.PutUint32(p[i:], math.Float32bits(v))
		s.phase += s.step
		if s.phase >= 1 {
			s.phase--
		}
	}
	return n, nil
}

// Samples returns the next n samples as bytes.
func (s *SquareWave) Samples(n int) []byte {
	b := make([]byte, 4*n)
	_, _ = s.Read(b)
	return b
}

// FormatFrequency renders a clock rate with an SI suffix and two decimals.
func FormatFrequency(freq float64) string {
	suffix, number := "Hz", freq
	switch {
	case freq < 1e3:
	case freq < 1e6:
		suffix, number = "kHz", freq/1e3
	case freq < 1e9:
		suffix, number = "MHz", freq/1e6
	default:
		suffix, number = "GHz", freq/1e9
	}
	return fmt.Sprintf("%.2f %s", number, suffix)
}
