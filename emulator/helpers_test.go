package emulator

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.t = f.t.Add(d)
}

// fixedRandom replays values in order, then repeats the last one.
type fixedRandom struct {
	values []uint32
	pos    int
}

func (f *fixedRandom) Uint32() uint32 {
	v := f.values[f.pos]
	if f.pos < len(f.values)-1 {
		f.pos++
	}
	return v
}

func program(words ...uint16) []byte {
	b := make([]byte, 2*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint16(b[2*i:], w)
	}
	return b
}

func newTestChip8(t *testing.T, rom []byte, opts ...Option) (*Chip8, *fakeClock) {
	t.Helper()
	clk := newFakeClock()
	base := []Option{
		WithClock(clk.Now),
		WithRandom(&fixedRandom{values: []uint32{0xA5}}),
	}
	c := New(append(base, opts...)...)
	require.NoError(t, c.LoadProgram(rom))
	return c, clk
}

func runCycles(t *testing.T, c *Chip8, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, c.Cycle())
	}
}
