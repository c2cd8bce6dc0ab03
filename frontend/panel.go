package frontend

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/tuboc/chip8vm/emulator"
)

// PanelLineHeight is the pixel height of one debug panel text line.
const PanelLineHeight = 14

// Panel is the text of the debugger view: recent instructions on the left,
// registers and keypad on the right.
type Panel struct {
	History   []string
	Registers []string
}

// Lines returns how many text lines the taller column needs.
func (p Panel) Lines() int {
	return max(len(p.History), len(p.Registers))
}

func DebugPanel(vm *emulator.Chip8) Panel {
	s := vm.Registers()
	regs := make([]string, 0, 24)
	for i, v := range s.V {
		regs = append(regs, fmt.Sprintf("V%X = %02X", i, v))
	}
	regs = append(regs,
		fmt.Sprintf("DT = %02X", s.DT),
		fmt.Sprintf("ST = %02X", s.ST),
		fmt.Sprintf("SP = %02X", s.StackDepth),
		fmt.Sprintf(" I = %04X", s.I),
		fmt.Sprintf("PC = %04X", s.PC),
	)

	keys := vm.Keys()
	bit := func(k int) int {
		if keys[k] {
			return 1
		}
		return 0
	}
	regs = append(regs,
		fmt.Sprintf("KEYS %d%d%d%d", bit(0x1), bit(0x2), bit(0x3), bit(0xC)),
		fmt.Sprintf("     %d%d%d%d", bit(0x4), bit(0x5), bit(0x6), bit(0xD)),
		fmt.Sprintf("     %d%d%d%d", bit(0x7), bit(0x8), bit(0x9), bit(0xE)),
		fmt.Sprintf("     %d%d%d%d", bit(0xA), bit(0x0), bit(0xB), bit(0xF)),
	)
	return Panel{History: vm.History(), Registers: regs}
}

// Mask rasterizes the panel with basicfont into a width-pixel wide alpha
// mask. The register column starts at half the width.
func (p Panel) Mask(width int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, width, p.Lines()*PanelLineHeight))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: basicfont.Face7x13,
	}
	column := func(x int, lines []string) {
		for i, line := range lines {
			d.Dot = fixed.P(x, (i+1)*PanelLineHeight-3)
			d.DrawString(line)
		}
	}
	column(2, p.History)
	column(width/2, p.Registers)
	return mask
}
