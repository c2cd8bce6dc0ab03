// Package monitor is an interactive debugger shell for a machine.
package monitor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"

	"github.com/tuboc/chip8vm/emulator"
	"github.com/tuboc/chip8vm/frontend"
)

const (
	// DefaultRunLimit bounds "run" without an argument, so a tight loop
	// returns control to the shell.
	DefaultRunLimit = 100000
	dumpWidth       = 16
)

var errUsage = errors.New("usage")

type command struct {
	name  string
	args  string
	help  string
	exec  func(m *Monitor, args []string) error
	alias []string
}

var commands []command

func init() {
	commands = []command{
		{name: "step", args: "[n]", help: "execute n instructions (default 1)", exec: (*Monitor).step, alias: []string{"s"}},
		{name: "run", args: "[n]", help: "run until a breakpoint, a fault or n instructions", exec: (*Monitor).run, alias: []string{"r"}},
		{name: "regs", help: "show registers and keypad", exec: (*Monitor).regs},
		{name: "mem", args: "addr [n]", help: "hex dump n bytes of memory (default 64)", exec: (*Monitor).mem},
		{name: "dis", args: "[addr] [n]", help: "disassemble n instructions (default PC, 10)", exec: (*Monitor).dis},
		{name: "break", args: "[addr]", help: "set a breakpoint or list them", exec: (*Monitor).setBreak, alias: []string{"b"}},
		{name: "clear", args: "[addr]", help: "remove one or all breakpoints", exec: (*Monitor).clearBreak},
		{name: "press", args: "key", help: "hold a keypad key (0-F)", exec: (*Monitor).press},
		{name: "release", args: "[key]", help: "release one or all keypad keys", exec: (*Monitor).release},
		{name: "reset", help: "reload the program", exec: (*Monitor).reset},
		{name: "history", help: "show recently executed instructions", exec: (*Monitor).history},
		{name: "help", help: "show this help", exec: (*Monitor).help, alias: []string{"?"}},
	}
}

// Monitor executes debugger commands against a machine.
type Monitor struct {
	vm          *emulator.Chip8
	out         io.Writer
	log         *slog.Logger
	breakpoints map[uint16]bool
	hostKeys    [16]emulator.Key
	quit        bool
}

type Option func(*Monitor)

func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

func New(vm *emulator.Chip8, out io.Writer, opts ...Option) *Monitor {
	m := &Monitor{
		vm:          vm,
		out:         out,
		log:         slog.Default(),
		breakpoints: make(map[uint16]bool),
	}
	for _, r := range "1234qwerasdfzxcv" {
		i, _ := emulator.KeyIndex(emulator.Key(r))
		m.hostKeys[i] = emulator.Key(r)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Exec runs one command line. It returns false once the shell should exit.
func (m *Monitor) Exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return !m.quit
	}
	name := strings.ToLower(fields[0])
	if name == "quit" || name == "exit" {
		m.quit = true
		return false
	}
	c, ok := lookup(name)
	if !ok {
		fmt.Fprintf(m.out, "unknown command: %s (try help)\n", name)
		return true
	}
	if err := c.exec(m, fields[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(m.out, "usage: %s %s\n", c.name, c.args)
		} else {
			fmt.Fprintf(m.out, "error: %v\n", err)
		}
	}
	return true
}

// Run reads commands from the terminal until quit, exit or Ctrl-D.
func (m *Monitor) Run() {
	fmt.Fprintln(m.out, "CHIP-8 monitor. Type 'help' for commands.")
	m.where()
	p := prompt.New(
		func(in string) { m.Exec(in) },
		m.Completer,
		prompt.OptionPrefix("chip8> "),
		prompt.OptionTitle("CHIP-8 monitor"),
		prompt.OptionSetExitCheckerOnInput(func(string, bool) bool { return m.quit }),
		prompt.OptionAddKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn:  func(*prompt.Buffer) { fmt.Fprintln(m.out) },
		}),
	)
	p.Run()
}

// Completer suggests command names for the first word and breakpoint
// addresses for clear.
func (m *Monitor) Completer(d prompt.Document) []prompt.Suggest {
	args := strings.Fields(d.TextBeforeCursor())
	word := d.GetWordBeforeCursor()
	if len(args) == 0 || (len(args) == 1 && word != "") {
		suggests := make([]prompt.Suggest, 0, len(commands)+1)
		for _, c := range commands {
			suggests = append(suggests, prompt.Suggest{Text: c.name, Description: c.help})
		}
		suggests = append(suggests, prompt.Suggest{Text: "quit", Description: "leave the monitor"})
		return prompt.FilterHasPrefix(suggests, word, true)
	}

	if strings.ToLower(args[0]) == "clear" {
		var suggests []prompt.Suggest
		for _, addr := range m.Breakpoints() {
			suggests = append(suggests, prompt.Suggest{
				Text:        fmt.Sprintf("%03X", addr),
				Description: emulator.Disassemble(m.word(addr)),
			})
		}
		return prompt.FilterHasPrefix(suggests, word, true)
	}
	return []prompt.Suggest{}
}

// Breakpoints returns the breakpoint addresses in ascending order.
func (m *Monitor) Breakpoints() []uint16 {
	out := make([]uint16, 0, len(m.breakpoints))
	for addr := range m.breakpoints {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
		for _, a := range c.alias {
			if a == name {
				return c, true
			}
		}
	}
	return command{}, false
}

func (m *Monitor) where() {
	pc := m.vm.PC()
	fmt.Fprintf(m.out, "%03X  %s\n", pc, emulator.Disassemble(m.word(pc)))
}

func (m *Monitor) word(addr uint16) uint16 {
	b, err := m.vm.Memory(addr, 2)
	if err != nil {
		return 0
	}
	return uint16(b[0])<<8 | uint16(b[1])
}

func (m *Monitor) cycle() error {
	if err := m.vm.Cycle(); err != nil {
		m.log.Debug("cycle failed", "err", err)
		return err
	}
	return nil
}

func (m *Monitor) step(args []string) error {
	n, err := count(args, 0, 1)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := m.cycle(); err != nil {
			return err
		}
	}
	m.where()
	return nil
}

func (m *Monitor) run(args []string) error {
	n, err := count(args, 0, DefaultRunLimit)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if i > 0 && m.breakpoints[m.vm.PC()] {
			fmt.Fprintf(m.out, "breakpoint at %03X after %d instructions\n", m.vm.PC(), i)
			m.where()
			return nil
		}
		if err := m.cycle(); err != nil {
			return err
		}
	}
	fmt.Fprintf(m.out, "ran %d instructions\n", n)
	m.where()
	return nil
}

func (m *Monitor) regs([]string) error {
	for _, line := range frontend.DebugPanel(m.vm).Registers {
		fmt.Fprintln(m.out, line)
	}
	return nil
}

func (m *Monitor) mem(args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errUsage
	}
	addr, err := address(args[0])
	if err != nil {
		return err
	}
	n, err := count(args, 1, 64)
	if err != nil {
		return err
	}
	b, err := m.vm.Memory(addr, n)
	if err != nil {
		return err
	}
	for off := 0; off < len(b); off += dumpWidth {
		end := min(off+dumpWidth, len(b))
		fmt.Fprintf(m.out, "%03X  % X\n", int(addr)+off, b[off:end])
	}
	return nil
}

func (m *Monitor) dis(args []string) error {
	if len(args) > 2 {
		return errUsage
	}
	addr := m.vm.PC()
	if len(args) > 0 {
		a, err := address(args[0])
		if err != nil {
			return err
		}
		addr = a
	}
	n, err := count(args, 1, 10)
	if err != nil {
		return err
	}
	for i := 0; i < n && int(addr)+1 < emulator.MemorySize; i++ {
		op := m.word(addr)
		marker := " "
		if addr == m.vm.PC() {
			marker = ">"
		}
		if m.breakpoints[addr] {
			marker = "*"
		}
		fmt.Fprintf(m.out, "%s%03X  %04X  %s\n", marker, addr, op, emulator.Disassemble(op))
		addr += 2
	}
	return nil
}

func (m *Monitor) setBreak(args []string) error {
	switch len(args) {
	case 0:
		bps := m.Breakpoints()
		if len(bps) == 0 {
			fmt.Fprintln(m.out, "no breakpoints")
		}
		for _, addr := range bps {
			fmt.Fprintf(m.out, "%03X  %s\n", addr, emulator.Disassemble(m.word(addr)))
		}
		return nil
	case 1:
		addr, err := address(args[0])
		if err != nil {
			return err
		}
		m.breakpoints[addr] = true
		fmt.Fprintf(m.out, "breakpoint set at %03X\n", addr)
		return nil
	default:
		return errUsage
	}
}

func (m *Monitor) clearBreak(args []string) error {
	switch len(args) {
	case 0:
		clear(m.breakpoints)
		fmt.Fprintln(m.out, "breakpoints cleared")
		return nil
	case 1:
		addr, err := address(args[0])
		if err != nil {
			return err
		}
		if !m.breakpoints[addr] {
			return fmt.Errorf("no breakpoint at %03X", addr)
		}
		delete(m.breakpoints, addr)
		return nil
	default:
		return errUsage
	}
}

func (m *Monitor) press(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	i, err := keypadIndex(args[0])
	if err != nil {
		return err
	}
	m.vm.KeyDown(m.hostKeys[i])
	return nil
}

func (m *Monitor) release(args []string) error {
	switch len(args) {
	case 0:
		for _, k := range m.hostKeys {
			m.vm.KeyUp(k)
		}
		return nil
	case 1:
		i, err := keypadIndex(args[0])
		if err != nil {
			return err
		}
		m.vm.KeyUp(m.hostKeys[i])
		return nil
	default:
		return errUsage
	}
}

func (m *Monitor) reset([]string) error {
	m.vm.Reset()
	m.log.Info("machine reset")
	m.where()
	return nil
}

func (m *Monitor) history([]string) error {
	h := m.vm.History()
	if len(h) == 0 {
		fmt.Fprintln(m.out, "no instructions executed")
	}
	for _, line := range h {
		fmt.Fprintln(m.out, line)
	}
	return nil
}

func (m *Monitor) help([]string) error {
	for _, c := range commands {
		usage := strings.TrimSpace(c.name + " " + c.args)
		fmt.Fprintf(m.out, "  %-16s %s\n", usage, c.help)
	}
	fmt.Fprintf(m.out, "  %-16s %s\n", "quit", "leave the monitor")
	return nil
}

// address parses a hexadecimal address, with or without a 0x or # prefix.
func address(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "0x"), "#")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil || v >= emulator.MemorySize {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint16(v), nil
}

// count parses the decimal argument at index i, or returns def when it is
// absent.
func count(args []string, i, def int) (int, error) {
	if len(args) <= i {
		return def, nil
	}
	if len(args) > i+1 {
		return 0, errUsage
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid count %q", args[i])
	}
	return n, nil
}

func keypadIndex(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil || v > 0xF {
		return 0, fmt.Errorf("invalid key %q (0-F)", s)
	}
	return uint8(v), nil
}
