package termhost

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/tuboc/chip8vm/emulator"
	"github.com/tuboc/chip8vm/frontend"
)

const (
	frameInterval = time.Second / 30
	// Terminals report presses only; a key counts as held until no repeat
	// arrived for this long.
	holdWindow = 150 * time.Millisecond
	bell       = "\a"
)

// Host renders to an ANSI terminal and reads the keypad from stdin in raw
// mode.
type Host struct {
	out      *bufio.Writer
	log      *slog.Logger
	fd       int
	oldState *term.State
	input    chan []byte
	now      func() time.Time

	held    map[emulator.Key]time.Time
	fb      emulator.Framebuffer
	palette frontend.Palette
	dirty   bool
	drawnAt time.Time
	tone    bool
}

type Option func(*Host)

func WithLogger(l *slog.Logger) Option {
	return func(h *Host) { h.log = l }
}

// New takes over the terminal. When in is a terminal it is switched to raw
// mode until Close.
func New(in io.Reader, out io.Writer, opts ...Option) (*Host, error) {
	h := &Host{
		out:   bufio.NewWriterSize(out, 64*1024),
		log:   slog.Default(),
		fd:    -1,
		input: make(chan []byte, 64),
		now:   time.Now,
		held:  make(map[emulator.Key]time.Time),
	}
	for _, opt := range opts {
		opt(h)
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		h.fd = int(f.Fd())
		oldState, err := term.MakeRaw(h.fd)
		if err != nil {
			return nil, fmt.Errorf("set raw mode: %w", err)
		}
		h.oldState = oldState
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, ht, err := term.GetSize(int(f.Fd())); err == nil && (w < emulator.DisplayW || ht < emulator.DisplayH/2) {
			h.log.Warn("terminal smaller than the display", "cols", w, "rows", ht)
		}
	}

	go read(in, h.input)

	h.out.WriteString(clearScreen + hideCursor)
	return h, h.out.Flush()
}

// read forwards stdin chunks until EOF. The goroutine ends with the
// process when the reader never returns.
func read(in io.Reader, ch chan<- []byte) {
	defer close(ch)
	buf := make([]byte, 64)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			ch <- chunk
		}
		if err != nil {
			return
		}
	}
}

func (h *Host) Draw(fb *emulator.Framebuffer, p frontend.Palette) error {
	h.fb = *fb
	h.palette = p
	h.dirty = true
	return nil
}

func (h *Host) SetTone(on bool) {
	if on && !h.tone {
		h.out.WriteString(bell)
		h.out.Flush()
	}
	h.tone = on
}

func (h *Host) PollEvents(eh frontend.EventHandler) bool {
drain:
	for {
		select {
		case chunk, ok := <-h.input:
			if !ok {
				// stdin closed; keep running without input
				h.input = nil
				continue
			}
			if !h.handle(chunk, eh) {
				return false
			}
		default:
			break drain
		}
	}
	h.releaseExpired(eh)

	if h.dirty && h.now().Sub(h.drawnAt) >= frameInterval {
		if err := render(h.out, &h.fb, h.palette); err != nil {
			h.log.Error("render", "err", err)
		}
		h.out.Flush()
		h.dirty = false
		h.drawnAt = h.now()
	}
	return true
}

func (h *Host) handle(chunk []byte, eh frontend.EventHandler) bool {
	for _, ev := range parseInput(chunk) {
		switch ev.kind {
		case evQuit:
			return false
		case evReset:
			eh.Reset()
		case evStep:
			eh.StepMode()
		case evResume:
			eh.Resume()
		case evKey:
			if _, ok := h.held[ev.key]; !ok {
				eh.KeyDown(ev.key)
			}
			h.held[ev.key] = h.now()
		}
	}
	return true
}

func (h *Host) releaseExpired(eh frontend.EventHandler) {
	now := h.now()
	for k, at := range h.held {
		if now.Sub(at) >= holdWindow {
			eh.KeyUp(k)
			delete(h.held, k)
		}
	}
}

func (h *Host) SetTitle(title string) {
	fmt.Fprintf(h.out, "\x1b]0;%s\a", title)
	h.out.Flush()
}

func (h *Host) Close() error {
	h.out.WriteString(resetStyle + showCursor + "\r\n")
	err := h.out.Flush()
	if h.oldState != nil {
		if rerr := term.Restore(h.fd, h.oldState); rerr != nil {
			return rerr
		}
	}
	return err
}
