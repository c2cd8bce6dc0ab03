package emulator

import (
	"errors"
	"fmt"
)

var (
	ErrProgramTooLarge   = errors.New("program too large")
	ErrUnknownOpcode     = errors.New("unknown opcode")
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrAddressOutOfRange = errors.New("address out of range")
)

// Fault is the fatal error returned by Cycle. It records where the machine
// stopped and wraps the cause.
type Fault struct {
	PC     uint16
	Opcode uint16
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%v at %03X (opcode %04X)", f.Err, f.PC, f.Opcode)
}

func (f *Fault) Unwrap() error {
	return f.Err
}
