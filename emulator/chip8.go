package emulator

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	DisplayW             = 64
	DisplayH             = 32
	MemorySize           = 4096
	FontOffset           = 0x050
	CharacterSpriteBytes = 5
	ProgramOffset        = 0x200
	MaxProgramSize       = MemorySize - ProgramOffset
	TimerFrequency       = 60
	TimerPeriod          = time.Second / TimerFrequency
	OpHistoryNum         = 16
)

// Framebuffer is the 64x32 monochrome display, row-major.
type Framebuffer [DisplayW * DisplayH]bool

// At reports whether the pixel at (x, y) is lit.
func (f *Framebuffer) At(x, y int) bool {
	return f[y*DisplayW+x]
}

// RandomSource feeds the Cxkk instruction. *rand.Rand from math/rand/v2
// satisfies it.
type RandomSource interface {
	Uint32() uint32
}

// Chip8 holds the complete machine state. It has no internal loop: the host
// drives it by calling Cycle at its own cadence.
type Chip8 struct {
	mem   [MemorySize]uint8 // memory
	pc    uint16            // program counter
	v     [16]uint8         // registers
	i     uint16            // index register
	dt    uint8             // delay timer
	st    uint8             // sound timer
	stack []uint16          // return addresses
	keys  [16]bool          // keypad state
	disp  Framebuffer       // graphics
	dirty bool

	program  []byte
	lastTick time.Time
	halted   error

	rng    RandomSource
	now    func() time.Time
	quirks Quirks
	trace  int
	log    *slog.Logger

	ophistory      [OpHistoryNum]string
	ophistoryIndex int
}

// Option configures a Chip8 at construction time.
type Option func(*Chip8)

// WithRandom replaces the random byte source used by Cxkk.
func WithRandom(r RandomSource) Option {
	return func(c *Chip8) { c.rng = r }
}

// WithSeed seeds the default PCG source so runs are reproducible.
func WithSeed(seed uint64) Option {
	return func(c *Chip8) { c.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithClock replaces the wall clock used for the 60 Hz timers.
func WithClock(now func() time.Time) Option {
	return func(c *Chip8) { c.now = now }
}

func WithQuirks(q Quirks) Option {
	return func(c *Chip8) { c.quirks = q }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Chip8) { c.log = l }
}

// WithTrace sets the instruction trace level: 1 logs every executed
// instruction, 2 also logs the register file.
func WithTrace(level int) Option {
	return func(c *Chip8) { c.trace = level }
}

var characterSprites = []uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// New returns a machine with zeroed memory, the font installed and PC at
// ProgramOffset.
func New(opts ...Option) *Chip8 {
	c := &Chip8{
		now:   time.Now,
		log:   slog.Default(),
		stack: make([]uint16, 0, 16),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	c.reset()
	return c
}

// LoadProgram resets the whole machine except the keypad and copies the
// program to ProgramOffset.
func (c *Chip8) LoadProgram(b []byte) error {
	if len(b) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrProgramTooLarge, len(b), MaxProgramSize)
	}
	c.program = append(c.program[:0], b...)
	c.reset()
	copy(c.mem[ProgramOffset:], c.program)
	c.log.Debug("program loaded", "bytes", len(b))
	return nil
}

// Reset restarts the last loaded program.
func (c *Chip8) Reset() {
	c.reset()
	copy(c.mem[ProgramOffset:], c.program)
	c.log.Debug("machine reset")
}

func (c *Chip8) reset() {
	c.mem = [MemorySize]uint8{}
	copy(c.mem[FontOffset:], characterSprites)
	c.pc = ProgramOffset
	c.v = [16]uint8{}
	c.i = 0
	c.dt = 0
	c.st = 0
	c.stack = c.stack[:0]
	c.disp = Framebuffer{}
	c.dirty = true
	c.halted = nil
	c.lastTick = c.now()
	c.ophistory = [OpHistoryNum]string{}
	c.ophistoryIndex = 0
}

// Cycle fetches, decodes and executes one instruction and ticks the timers.
// Any error is fatal: the machine stays halted and keeps returning it until
// the next LoadProgram or Reset.
func (c *Chip8) Cycle() error {
	if c.halted != nil {
		return c.halted
	}

	pc := c.pc
	op, err := c.fetchOpcode()
	if err != nil {
		return c.halt(pc, op, err)
	}
	c.pc += 2
	c.tickTimers()

	c.record(pc, op)
	if err := c.execOpcode(decode(op)); err != nil {
		return c.halt(pc, op, err)
	}
	return nil
}

func (c *Chip8) halt(pc, op uint16, err error) error {
	c.halted = &Fault{PC: pc, Opcode: op, Err: err}
	return c.halted
}

func (c *Chip8) fetchOpcode() (uint16, error) {
	if int(c.pc)+1 >= MemorySize {
		return 0, ErrAddressOutOfRange
	}
	return uint16(c.mem[c.pc])<<8 | uint16(c.mem[c.pc+1]), nil
}

// tickTimers decrements both timers once per whole TimerPeriod elapsed since
// the last tick.
func (c *Chip8) tickTimers() {
	now := c.now()
	elapsed := now.Sub(c.lastTick)
	if elapsed < TimerPeriod {
		return
	}
	ticks := elapsed / TimerPeriod
	c.lastTick = c.lastTick.Add(ticks * TimerPeriod)
	c.dt = countDown(c.dt, ticks)
	c.st = countDown(c.st, ticks)
}

func countDown(v uint8, ticks time.Duration) uint8 {
	if ticks >= time.Duration(v) {
		return 0
	}
	return v - uint8(ticks)
}

func (c *Chip8) setFlag(b bool) {
	if b {
		c.v[0xf] = 1
	} else {
		c.v[0xf] = 0
	}
}

func (c *Chip8) pushStack(v uint16) {
	c.stack = append(c.stack, v)
}

func (c *Chip8) popStack() (uint16, error) {
	if len(c.stack) == 0 {
		return 0, ErrStackUnderflow
	}
	v := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return v, nil
}

// memRange returns n bytes of memory starting at addr.
func (c *Chip8) memRange(addr uint16, n int) ([]uint8, error) {
	end := int(addr) + n
	if end > MemorySize {
		return nil, fmt.Errorf("%w: %03X+%d", ErrAddressOutOfRange, addr, n)
	}
	return c.mem[addr:end], nil
}

// draw XORs sprite rows onto the display at (x, y). Pixels beyond the right
// or bottom edge are clipped.
func (c *Chip8) draw(x, y uint8, sprite []uint8) bool {
	flipped := false
	for iy, row := range sprite {
		ty := int(y) + iy
		if ty >= DisplayH {
			break
		}
		for ix := 0; ix < 8; ix++ {
			tx := int(x) + ix
			if tx >= DisplayW {
				break
			}
			if (row>>(7-ix))&0x01 == 0 {
				continue
			}
			p := &c.disp[ty*DisplayW+tx]
			if *p {
				flipped = true
			}
			*p = !*p
		}
	}
	return flipped
}

// Framebuffer returns a copy of the display.
func (c *Chip8) Framebuffer() Framebuffer {
	return c.disp
}

// Dirty reports whether the display changed since the last ClearDirty.
func (c *Chip8) Dirty() bool {
	return c.dirty
}

func (c *Chip8) ClearDirty() {
	c.dirty = false
}

// SoundActive reports whether the tone should be audible.
func (c *Chip8) SoundActive() bool {
	return c.st > 0
}

// Memory returns a copy of n bytes of memory starting at addr.
func (c *Chip8) Memory(addr uint16, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrAddressOutOfRange, n)
	}
	b, err := c.memRange(addr, n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (c *Chip8) DelayTimer() uint8 { return c.dt }

func (c *Chip8) SoundTimer() uint8 { return c.st }

func (c *Chip8) PC() uint16 { return c.pc }

// Halted returns the fatal error that stopped the machine, if any.
func (c *Chip8) Halted() error {
	return c.halted
}
