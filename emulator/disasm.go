package emulator

import (
	"fmt"
	"io"
)

// Disassemble renders an opcode as an assembler mnemonic. Words that do not
// decode to an instruction render as a DW directive.
func Disassemble(op uint16) string {
	in := decode(op)
	x, y, nn, nnn := in.x, in.y, in.nn, in.nnn

	switch in.i {
	case 0x0:
		switch op {
		case 0x00E0:
			return "CLS"
		case 0x00EE:
			return "RET"
		}
	case 0x1:
		return fmt.Sprintf("JP   %03X", nnn)
	case 0x2:
		return fmt.Sprintf("CALL %03X", nnn)
	case 0x3:
		return fmt.Sprintf("SE   V%X,#%02X", x, nn)
	case 0x4:
		return fmt.Sprintf("SNE  V%X,#%02X", x, nn)
	case 0x5:
		if in.n == 0 {
			return fmt.Sprintf("SE   V%X,V%X", x, y)
		}
	case 0x6:
		return fmt.Sprintf("LD   V%X,#%02X", x, nn)
	case 0x7:
		return fmt.Sprintf("ADD  V%X,#%02X", x, nn)
	case 0x8:
		switch in.n {
		case 0x0:
			return fmt.Sprintf("LD   V%X,V%X", x, y)
		case 0x1:
			return fmt.Sprintf("OR   V%X,V%X", x, y)
		case 0x2:
			return fmt.Sprintf("AND  V%X,V%X", x, y)
		case 0x3:
			return fmt.Sprintf("XOR  V%X,V%X", x, y)
		case 0x4:
			return fmt.Sprintf("ADD  V%X,V%X", x, y)
		case 0x5:
			return fmt.Sprintf("SUB  V%X,V%X", x, y)
		case 0x6:
			return fmt.Sprintf("SHR  V%X,V%X", x, y)
		case 0x7:
			return fmt.Sprintf("SUBN V%X,V%X", x, y)
		case 0xE:
			return fmt.Sprintf("SHL  V%X,V%X", x, y)
		}
	case 0x9:
		if in.n == 0 {
			return fmt.Sprintf("SNE  V%X,V%X", x, y)
		}
	case 0xA:
		return fmt.Sprintf("LD   I,#%03X", nnn)
	case 0xB:
		return fmt.Sprintf("JP   V0,#%03X", nnn)
	case 0xC:
		return fmt.Sprintf("RND  V%X,#%02X", x, nn)
	case 0xD:
		return fmt.Sprintf("DRW  V%X,V%X,%d", x, y, in.n)
	case 0xE:
		switch nn {
		case 0x9E:
			return fmt.Sprintf("SKP  V%X", x)
		case 0xA1:
			return fmt.Sprintf("SKNP V%X", x)
		}
	case 0xF:
		switch nn {
		case 0x07:
			return fmt.Sprintf("LD   V%X,DT", x)
		case 0x0A:
			return fmt.Sprintf("LD   V%X,K", x)
		case 0x15:
			return fmt.Sprintf("LD   DT,V%X", x)
		case 0x18:
			return fmt.Sprintf("LD   ST,V%X", x)
		case 0x1E:
			return fmt.Sprintf("ADD  I,V%X", x)
		case 0x29:
			return fmt.Sprintf("LD   F,V%X", x)
		case 0x33:
			return fmt.Sprintf("LD   B,V%X", x)
		case 0x55:
			return fmt.Sprintf("LD   [I],V%X", x)
		case 0x65:
			return fmt.Sprintf("LD   V%X,[I]", x)
		}
	}
	return fmt.Sprintf("DW   #%04X", op)
}

// ListProgram writes one line per instruction word of program, addressed as
// it would be once loaded. A trailing odd byte is listed as DB.
func ListProgram(w io.Writer, program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrProgramTooLarge, len(program), MaxProgramSize)
	}
	for off := 0; off < len(program); off += 2 {
		addr := ProgramOffset + off
		if off+1 == len(program) {
			if _, err := fmt.Fprintf(w, "%03X  %02X    DB   #%02X\n", addr, program[off], program[off]); err != nil {
				return err
			}
			break
		}
		op := uint16(program[off])<<8 | uint16(program[off+1])
		if _, err := fmt.Fprintf(w, "%03X  %04X  %s\n", addr, op, Disassemble(op)); err != nil {
			return err
		}
	}
	return nil
}
