package emulator

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memory range is 0x200 - 0x300
var opcodeTestTable = []struct {
	opcode uint16
	before func(c *Chip8)
	assert func(t *testing.T, c *Chip8)
}{
	// clear display
	{
		0x00E0,
		func(c *Chip8) {
			for i := range c.disp {
				c.disp[i] = true
			}
			c.ClearDirty()
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, Framebuffer{}, c.disp)
			assert.True(t, c.Dirty())
		},
	},
	// ret
	{
		0x00EE,
		func(c *Chip8) {
			c.stack = append(c.stack, 0x300)
		},
		func(t *testing.T, c *Chip8) {
			assert.Empty(t, c.stack)
			assert.Equal(t, uint16(0x300), c.pc)
		},
	},
	// goto 0x0NNN
	{
		0x1234,
		nil,
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x234), c.pc)
		},
	},
	// call 0x0NNN
	{
		0x2208,
		nil,
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x208), c.pc)
			assert.Equal(t, []uint16{0x202}, c.stack)
		},
	},
	// 0x3XNN if(Vx==NN) [true]
	{
		0x3012,
		func(c *Chip8) {
			c.v[0] = 0x12
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x204), c.pc)
		},
	},
	// 0x3XNN if(Vx==NN) [false]
	{
		0x3012,
		func(c *Chip8) {
			c.v[0] = 0x1
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x202), c.pc)
		},
	},
	// 0x4XNN if(Vx!=NN) [true]
	{
		0x4012,
		func(c *Chip8) {
			c.v[0] = 0x1
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x204), c.pc)
		},
	},
	// 0x4XNN if(Vx!=NN) [false]
	{
		0x4012,
		func(c *Chip8) {
			c.v[0] = 0x12
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x202), c.pc)
		},
	},
	// 0x5XY0 if(Vx==Vy) [true]
	{
		0x5120,
		func(c *Chip8) {
			c.v[1] = 0x1
			c.v[2] = 0x1
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x204), c.pc)
		},
	},
	// 0x5XY0 if(Vx==Vy) [false]
	{
		0x5120,
		func(c *Chip8) {
			c.v[1] = 0x1
			c.v[2] = 0x2
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x202), c.pc)
		},
	},
	// 6XNN Vx = NN
	{
		0x6355,
		nil,
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0x55), c.v[3])
		},
	},
	// 7XNN Vx += NN (Carry flag is not changed)
	{
		0x78f0,
		func(c *Chip8) {
			c.v[8] = 0xf
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0xff), c.v[8])
			assert.Equal(t, uint8(0), c.v[0xf])
		},
	},
	// 7XNN Vx += NN (wraps, flag untouched)
	{
		0x7002,
		func(c *Chip8) {
			c.v[0] = 0xff
			c.v[0xf] = 0x7
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0x01), c.v[0])
			assert.Equal(t, uint8(0x7), c.v[0xf])
		},
	},
	// 8XY0	Vx=Vy
	{
		0x8450,
		func(c *Chip8) {
			c.v[5] = 0x33
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0x33), c.v[4])
		},
	},
	// 8XY1	Vx=Vx|Vy
	{
		0x8231,
		func(c *Chip8) {
			c.v[2] = 0x01
			c.v[3] = 0x10
			c.v[0xf] = 0x5
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0x11), c.v[2])
			assert.Equal(t, uint8(0), c.v[0xf])
		},
	},
	// 8XY2	Vx=Vx&Vy
	{
		0x8012,
		func(c *Chip8) {
			c.v[0] = 0x01
			c.v[1] = 0x10
			c.v[0xf] = 0x5
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0), c.v[0])
			assert.Equal(t, uint8(0), c.v[0xf])
		},
	},
	// 8XY3	Vx=Vx^Vy
	{
		0x8673,
		func(c *Chip8) {
			c.v[6] = 0x09
			c.v[7] = 0x0f
			c.v[0xf] = 0x5
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(6), c.v[6])
			assert.Equal(t, uint8(0), c.v[0xf])
		},
	},
	// 8XY4	Vx += Vy (not carry)
	{
		0x8894,
		func(c *Chip8) {
			c.v[8] = 0x12
			c.v[9] = 0x34
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0x46), c.v[8])
			assert.Equal(t, uint8(0), c.v[0xf])
		},
	},
	// 8XY4	Vx += Vy (carry)
	{
		0x8894,
		func(c *Chip8) {
			c.v[8] = 0xab
			c.v[9] = 0xcd
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0x0ff&(0xab+0xcd)), c.v[8])
			assert.Equal(t, uint8(1), c.v[0xf])
		},
	},
	// 8XY4	VF += Vy (flag wins over result)
	{
		0x8F14,
		func(c *Chip8) {
			c.v[0xf] = 0xff
			c.v[1] = 0x01
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(1), c.v[0xf])
		},
	},
	// 8XY5	Vx -= Vy (not borrow)
	{
		0x8ab5,
		func(c *Chip8) {
			c.v[0xa] = 0x45
			c.v[0xb] = 0x23
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0x22), c.v[0xa])
			assert.Equal(t, uint8(1), c.v[0xf])
		},
	},
	// 8XY5	Vx -= Vy (borrow)
	{
		0x8ab5,
		func(c *Chip8) {
			c.v[0xa] = 0x45
			c.v[0xb] = 0x56
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0xef), c.v[0xa])
			assert.Equal(t, uint8(0), c.v[0xf])
		},
	},
	// 8XY5	Vx -= Vy (equal, no borrow)
	{
		0x8ab5,
		func(c *Chip8) {
			c.v[0xa] = 0x05
			c.v[0xb] = 0x05
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0), c.v[0xa])
			assert.Equal(t, uint8(1), c.v[0xf])
		},
	},
	// 8XY6	Vx=Vy>>1 (bit0 is 1)
	{
		0x8cd6,
		func(c *Chip8) {
			c.v[0xd] = 0x3
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(1), c.v[0xc])
			assert.Equal(t, uint8(1), c.v[0xf])
		},
	},
	// 8XY6	Vx=Vy>>1 (bit0 is 0)
	{
		0x8cd6,
		func(c *Chip8) {
			c.v[0xc] = 0xff
			c.v[0xd] = 0x2
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(1), c.v[0xc])
			assert.Equal(t, uint8(0), c.v[0xf])
		},
	},
	// 8XY7	Vx=Vy-Vx (not borrow)
	{
		0x8ef7,
		func(c *Chip8) {
			c.v[0xe] = 0x45
			c.v[0xf] = 0x67
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0x22), c.v[0xe])
			assert.Equal(t, uint8(1), c.v[0xf])
		},
	},
	// 8XY7	Vx=Vy-Vx (borrow)
	{
		0x8ef7,
		func(c *Chip8) {
			c.v[0xe] = 0x67
			c.v[0xf] = 0x45
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0xde), c.v[0xe])
			assert.Equal(t, uint8(0), c.v[0xf])
		},
	},
	// 8XYE Vx=Vy<<1 (bit7 is 0)
	{
		0x801E,
		func(c *Chip8) {
			c.v[1] = 0x08
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0x10), c.v[0])
			assert.Equal(t, uint8(0), c.v[0xf])
		},
	},
	// 8XYE Vx=Vy<<1 (bit7 is 1)
	{
		0x801E,
		func(c *Chip8) {
			c.v[1] = 0x88
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0x10), c.v[0])
			assert.Equal(t, uint8(1), c.v[0xf])
		},
	},
	// 9XY0 if(Vx!=Vy) (true)
	{
		0x9120,
		func(c *Chip8) {
			c.v[1] = 1
			c.v[2] = 2
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x204), c.pc)
		},
	},
	// 9XY0 if(Vx!=Vy) (false)
	{
		0x9120,
		func(c *Chip8) {
			c.v[1] = 1
			c.v[2] = 1
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x202), c.pc)
		},
	},
	// ANNN I = NNN
	{
		0xA123,
		nil,
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x123), c.i)
		},
	},
	// BNNN PC=V0+NNN
	{
		0xB100,
		func(c *Chip8) {
			c.v[0] = 0x23
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x123), c.pc)
		},
	},
	// CXNN Vx=rand()&NN
	{
		0xC80F,
		func(c *Chip8) {
			c.v[8] = 0xff
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0x05), c.v[8])
		},
	},
	// CXNN Vx=rand()&NN (mask 0)
	{
		0xC800,
		func(c *Chip8) {
			c.v[8] = 0xff
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0), c.v[8])
		},
	},
	// DXYN draw(Vx,Vy,N) (not flip)
	{
		0xD128,
		func(c *Chip8) {
			c.v[1] = 8
			c.v[2] = 8
			c.i = 0x300
			for i := range c.mem[0x300:0x308] {
				c.mem[0x300+i] = 0xff
			}
			c.ClearDirty()
		},
		func(t *testing.T, c *Chip8) {
			for y := 0; y < 8; y++ {
				for x := 0; x < 8; x++ {
					assert.True(t, c.disp.At(x+8, y+8))
				}
			}
			assert.False(t, c.disp.At(7, 7))
			assert.Equal(t, uint8(0), c.v[0xf])
			assert.True(t, c.Dirty())
		},
	},
	// DXYN draw(Vx,Vy,N) (flip)
	{
		0xD128,
		func(c *Chip8) {
			c.v[1] = 8
			c.v[2] = 8
			c.i = 0x300
			for i := range c.mem[0x300:0x308] {
				c.mem[0x300+i] = 0xff
			}
			for i := range c.disp {
				c.disp[i] = true
			}
		},
		func(t *testing.T, c *Chip8) {
			for y := 0; y < 8; y++ {
				for x := 0; x < 8; x++ {
					assert.False(t, c.disp.At(x+8, y+8))
				}
			}
			assert.True(t, c.disp.At(7, 7))
			assert.Equal(t, uint8(1), c.v[0xf])
		},
	},
	// DXYN origin wraps
	{
		0xD121,
		func(c *Chip8) {
			c.v[1] = 64 + 3
			c.v[2] = 32 + 2
			c.i = 0x300
			c.mem[0x300] = 0x80
		},
		func(t *testing.T, c *Chip8) {
			assert.True(t, c.disp.At(3, 2))
		},
	},
	// EX9E if(key()==Vx) (true)
	{
		0xE09E,
		func(c *Chip8) {
			c.v[0] = 7
			c.keys[7] = true
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x204), c.pc)
		},
	},
	// EX9E if(key()==Vx) (false)
	{
		0xE09E,
		func(c *Chip8) {
			c.v[0] = 7
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x202), c.pc)
		},
	},
	// EXA1 if(key()!=Vx) (pressed)
	{
		0xE0A1,
		func(c *Chip8) {
			c.v[0] = 7
			c.keys[7] = true
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x202), c.pc)
		},
	},
	// EXA1 if(key()!=Vx) (not pressed)
	{
		0xE0A1,
		func(c *Chip8) {
			c.v[0] = 7
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x204), c.pc)
		},
	},
	// FX07 Vx = get_delay()
	{
		0xF107,
		func(c *Chip8) {
			c.dt = 10
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(10), c.v[1])
		},
	},
	// FX0A Vx = get_key() (any key pressed)
	{
		0xF20A,
		func(c *Chip8) {
			c.keys[1] = true
			c.keys[9] = true
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(1), c.v[2])
			assert.Equal(t, uint16(0x202), c.pc)
		},
	},
	// FX0A Vx = get_key() (key not pressed)
	{
		0xF20A,
		nil,
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(0), c.v[2])
			assert.Equal(t, uint16(0x200), c.pc)
		},
	},
	// FX15 delay_timer(Vx)
	{
		0xF215,
		func(c *Chip8) {
			c.v[2] = 10
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(10), c.dt)
		},
	},
	// FX18 sound_timer(Vx)
	{
		0xF318,
		func(c *Chip8) {
			c.v[3] = 10
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint8(10), c.st)
			assert.True(t, c.SoundActive())
		},
	},
	// FX1E I +=Vx
	{
		0xF41E,
		func(c *Chip8) {
			c.v[4] = 10
			c.i = 0x100
			c.v[0xf] = 1
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x100+10), c.i)
			assert.Equal(t, uint8(0), c.v[0xf])
		},
	},
	// FX1E I +=Vx (overflow past 0xFFF)
	{
		0xF41E,
		func(c *Chip8) {
			c.v[4] = 1
			c.i = 0xfff
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(0x1000), c.i)
			assert.Equal(t, uint8(1), c.v[0xf])
		},
	},
	// FX29 I=sprite_addr[Vx]
	{
		0xF529,
		func(c *Chip8) {
			c.v[5] = 5
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(FontOffset+5*CharacterSpriteBytes), c.i)
		},
	},
	// FX29 I=sprite_addr[Vx] (only the low nibble selects a glyph)
	{
		0xF529,
		func(c *Chip8) {
			c.v[5] = 0x1a
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, uint16(FontOffset+0xa*CharacterSpriteBytes), c.i)
		},
	},
	// FX33 set_BCD(Vx); Vx = 123
	{
		0xF633,
		func(c *Chip8) {
			c.v[6] = 123
			c.i = 0x300
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, []uint8{1, 2, 3}, c.mem[0x300:0x303])
		},
	},
	// FX33 set_BCD(Vx); Vx = 45
	{
		0xF633,
		func(c *Chip8) {
			c.v[6] = 45
			c.i = 0x300
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, []uint8{0, 4, 5}, c.mem[0x300:0x303])
		},
	},
	// FX33 set_BCD(Vx); Vx = 6
	{
		0xF633,
		func(c *Chip8) {
			c.v[6] = 6
			c.i = 0x300
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, []uint8{0, 0, 6}, c.mem[0x300:0x303])
		},
	},
	// FX55 reg_dump(Vx,&I)
	{
		0xF755,
		func(c *Chip8) {
			for i := range c.v {
				c.v[i] = uint8(i + 1)
			}
			c.i = 0x300
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, c.v[:7+1], c.mem[0x300:0x300+7+1])
			assert.Equal(t, uint8(0), c.mem[0x308])
			assert.Equal(t, uint16(0x308), c.i)
		},
	},
	// FX65 reg_load(Vx,&I)
	{
		0xF865,
		func(c *Chip8) {
			for i := 0; i < 16; i++ {
				c.mem[0x300+i] = uint8(i + 1)
			}
			c.i = 0x300
		},
		func(t *testing.T, c *Chip8) {
			assert.Equal(t, c.mem[0x300:0x300+8+1], c.v[:8+1])
			assert.Equal(t, uint8(0), c.v[9])
			assert.Equal(t, uint16(0x309), c.i)
		},
	},
}

func TestExecOpcodes(t *testing.T) {
	for _, test := range opcodeTestTable {
		t.Run(fmt.Sprintf("opcode[%04X]", test.opcode), func(t *testing.T) {
			b := make([]byte, 0x100)
			binary.BigEndian.PutUint16(b, test.opcode)
			c, _ := newTestChip8(t, b)

			if test.before != nil {
				test.before(c)
			}

			require.NoError(t, c.Cycle())

			test.assert(t, c)
		})
	}
}

func TestUnknownOpcodes(t *testing.T) {
	for _, op := range []uint16{0x0000, 0x0123, 0x00E1, 0x5121, 0x8008, 0x800F, 0x9121, 0xE000, 0xE09F, 0xF000, 0xF0FF} {
		t.Run(fmt.Sprintf("opcode[%04X]", op), func(t *testing.T) {
			c, _ := newTestChip8(t, program(op))

			err := c.Cycle()
			require.ErrorIs(t, err, ErrUnknownOpcode)

			var fault *Fault
			require.ErrorAs(t, err, &fault)
			assert.Equal(t, uint16(0x200), fault.PC)
			assert.Equal(t, op, fault.Opcode)
		})
	}
}

func TestQuirks(t *testing.T) {
	t.Run("shift in place", func(t *testing.T) {
		c, _ := newTestChip8(t, program(0x8126, 0x834E), WithQuirks(Quirks{ShiftInPlace: true}))
		c.v[1] = 0x05
		c.v[2] = 0xf0
		c.v[3] = 0x81
		c.v[4] = 0x00
		runCycles(t, c, 2)
		assert.Equal(t, uint8(0x02), c.v[1])
		assert.Equal(t, uint8(0x02), c.v[3])
		assert.Equal(t, uint8(1), c.v[0xf])
	})

	t.Run("keep flag on logic", func(t *testing.T) {
		c, _ := newTestChip8(t, program(0x8121), WithQuirks(Quirks{KeepFlagOnLogic: true}))
		c.v[0xf] = 0x9
		runCycles(t, c, 1)
		assert.Equal(t, uint8(0x9), c.v[0xf])
	})

	t.Run("static index", func(t *testing.T) {
		c, _ := newTestChip8(t, program(0xA300, 0xF355, 0xF365), WithQuirks(Quirks{StaticIndex: true}))
		runCycles(t, c, 3)
		assert.Equal(t, uint16(0x300), c.i)
	})

	t.Run("no index overflow flag", func(t *testing.T) {
		c, _ := newTestChip8(t, program(0xF01E), WithQuirks(Quirks{NoIndexOverflowFlag: true}))
		c.i = 0xfff
		c.v[0] = 2
		c.v[0xf] = 0x3
		runCycles(t, c, 1)
		assert.Equal(t, uint16(0x1001), c.i)
		assert.Equal(t, uint8(0x3), c.v[0xf])
	})
}

func TestParseQuirks(t *testing.T) {
	q, err := ParseQuirks("shift-in-place, Static-Index")
	require.NoError(t, err)
	assert.Equal(t, Quirks{ShiftInPlace: true, StaticIndex: true}, q)
	assert.Equal(t, "shift-in-place,static-index", q.String())

	q, err = ParseQuirks("")
	require.NoError(t, err)
	assert.Equal(t, "none", q.String())

	_, err = ParseQuirks("vblank-wait")
	assert.EqualError(t, err, `unknown quirk "vblank-wait"`)
}
