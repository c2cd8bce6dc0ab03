package emulator

import (
	"context"
	"fmt"
	"log/slog"
)

// Snapshot is a copy of the CPU registers for debug displays.
type Snapshot struct {
	PC         uint16
	I          uint16
	V          [16]uint8
	DT         uint8
	ST         uint8
	StackDepth int
}

// Registers returns the current register file.
func (c *Chip8) Registers() Snapshot {
	return Snapshot{
		PC:         c.pc,
		I:          c.i,
		V:          c.v,
		DT:         c.dt,
		ST:         c.st,
		StackDepth: len(c.stack),
	}
}

// History returns the most recently executed instructions, oldest first.
func (c *Chip8) History() []string {
	out := make([]string, 0, OpHistoryNum)
	for n := 0; n < OpHistoryNum; n++ {
		line := c.ophistory[(c.ophistoryIndex+n)%OpHistoryNum]
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (c *Chip8) record(pc, op uint16) {
	mnemonic := Disassemble(op)
	c.ophistory[c.ophistoryIndex] = fmt.Sprintf("%03X-%04X %s", pc, op, mnemonic)
	c.ophistoryIndex = (c.ophistoryIndex + 1) % OpHistoryNum

	if c.trace < 1 || !c.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{
		"pc", fmt.Sprintf("0x%03X", pc),
		"opcode", fmt.Sprintf("0x%04X", op),
		"instr", mnemonic,
	}
	if c.trace >= 2 {
		attrs = append(attrs,
			"v", fmt.Sprintf("% X", c.v[:]),
			"i", fmt.Sprintf("0x%03X", c.i),
			"dt", c.dt,
			"st", c.st,
			"sp", len(c.stack),
		)
	}
	c.log.Debug("exec", attrs...)
}
