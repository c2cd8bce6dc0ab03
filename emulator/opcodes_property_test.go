package emulator

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	return gopter.NewProperties(parameters)
}

// execute runs a single opcode on a fresh machine prepared by setup.
func execute(op uint16, setup func(c *Chip8)) *Chip8 {
	c := New(WithRandom(&fixedRandom{values: []uint32{0}}))
	if err := c.LoadProgram(program(op)); err != nil {
		panic(err)
	}
	if setup != nil {
		setup(c)
	}
	if err := c.Cycle(); err != nil {
		panic(err)
	}
	return c
}

func TestPropertyRegisterArithmetic(t *testing.T) {
	properties := newProperties()

	properties.Property("6XKK sets VX to exactly KK", prop.ForAll(
		func(x, kk uint8) bool {
			c := execute(0x6000|uint16(x)<<8|uint16(kk), nil)
			return c.v[x] == kk
		},
		gen.UInt8Range(0, 15),
		gen.UInt8(),
	))

	properties.Property("7XKK wraps at 256 and leaves VF alone", prop.ForAll(
		func(a, kk, vf uint8) bool {
			c := execute(0x7000|uint16(kk), func(c *Chip8) {
				c.v[0] = a
				c.v[0xf] = vf
			})
			return c.v[0] == uint8((int(a)+int(kk))%256) && c.v[0xf] == vf
		},
		gen.UInt8(),
		gen.UInt8(),
		gen.UInt8(),
	))

	properties.Property("8XY4 carries into VF", prop.ForAll(
		func(a, b uint8) bool {
			c := execute(0x8124, func(c *Chip8) {
				c.v[1] = a
				c.v[2] = b
			})
			sum := int(a) + int(b)
			carry := uint8(0)
			if sum > 0xff {
				carry = 1
			}
			return c.v[1] == uint8(sum&0xff) && c.v[0xf] == carry
		},
		gen.UInt8(),
		gen.UInt8(),
	))

	properties.Property("8XY5 sets VF when no borrow occurs", prop.ForAll(
		func(a, b uint8) bool {
			c := execute(0x8125, func(c *Chip8) {
				c.v[1] = a
				c.v[2] = b
			})
			noBorrow := uint8(0)
			if a >= b {
				noBorrow = 1
			}
			return c.v[1] == uint8((int(a)-int(b)+256)%256) && c.v[0xf] == noBorrow
		},
		gen.UInt8(),
		gen.UInt8(),
	))

	properties.Property("8XY6 and 8XYE shift VY into VX", prop.ForAll(
		func(b uint8) bool {
			r := execute(0x8126, func(c *Chip8) { c.v[2] = b })
			l := execute(0x812E, func(c *Chip8) { c.v[2] = b })
			return r.v[1] == b>>1 && r.v[0xf] == b&1 &&
				l.v[1] == b<<1 && l.v[0xf] == b>>7
		},
		gen.UInt8(),
	))

	properties.TestingRun(t)
}

func TestPropertyMemoryOps(t *testing.T) {
	properties := newProperties()

	properties.Property("FX33 stores the decimal digits of VX", prop.ForAll(
		func(v uint8) bool {
			c := execute(0xF333, func(c *Chip8) {
				c.v[3] = v
				c.i = 0x400
			})
			got := int(c.mem[0x400])*100 + int(c.mem[0x401])*10 + int(c.mem[0x402])
			return got == int(v) && c.mem[0x400] <= 2 && c.mem[0x401] <= 9 && c.mem[0x402] <= 9
		},
		gen.UInt8(),
	))

	properties.Property("FX55 then FX65 round-trips V0..VX", prop.ForAll(
		func(x uint8, regs []uint8) bool {
			store := execute(0xF055|uint16(x)<<8, func(c *Chip8) {
				copy(c.v[:], regs)
				c.i = 0x500
			})
			if store.i != 0x500+uint16(x)+1 {
				return false
			}

			c := New()
			if err := c.LoadProgram(program(0xF065 | uint16(x)<<8)); err != nil {
				return false
			}
			copy(c.mem[0x500:], store.mem[0x500:0x510])
			c.i = 0x500
			if err := c.Cycle(); err != nil {
				return false
			}
			for r := 0; r <= int(x); r++ {
				if c.v[r] != regs[r] {
					return false
				}
			}
			return c.i == 0x500+uint16(x)+1
		},
		gen.UInt8Range(0, 15),
		gen.SliceOfN(16, gen.UInt8()),
	))

	properties.TestingRun(t)
}

func TestPropertySpriteDraw(t *testing.T) {
	properties := newProperties()

	properties.Property("drawing a sprite twice restores the display", prop.ForAll(
		func(x, y uint8, sprite []uint8) bool {
			c := New()
			if err := c.LoadProgram(program(0xD015, 0xD015)); err != nil {
				return false
			}
			copy(c.mem[0x300:], sprite)
			c.i = 0x300
			c.v[0] = x
			c.v[1] = y
			before := c.disp

			if err := c.Cycle(); err != nil {
				return false
			}
			firstVF := c.v[0xf]
			if err := c.Cycle(); err != nil {
				return false
			}

			ox, oy := int(x%DisplayW), int(y%DisplayH)
			visible := false
			for r, row := range sprite {
				if oy+r >= DisplayH {
					break
				}
				for b := 0; b < 8; b++ {
					if ox+b < DisplayW && row>>(7-b)&1 == 1 {
						visible = true
					}
				}
			}
			wantVF := uint8(0)
			if visible {
				wantVF = 1
			}
			return c.disp == before && firstVF == 0 && c.v[0xf] == wantVF
		},
		gen.UInt8(),
		gen.UInt8(),
		gen.SliceOfN(5, gen.UInt8()),
	))

	properties.Property("sprites never wrap past the right edge", prop.ForAll(
		func(x uint8) bool {
			c := execute(0xD011, func(c *Chip8) {
				c.v[0] = x
				c.v[1] = 0
				c.i = 0x300
				c.mem[0x300] = 0xff
			})
			ox := int(x % DisplayW)
			for col := 0; col < DisplayW; col++ {
				want := col >= ox && col < ox+8
				if c.disp.At(col, 0) != want {
					return false
				}
			}
			return true
		},
		gen.UInt8(),
	))

	properties.TestingRun(t)
}
