package termhost

import (
	"fmt"
	"image/color"
	"io"

	"github.com/tuboc/chip8vm/emulator"
	"github.com/tuboc/chip8vm/frontend"
)

const (
	cursorHome  = "\x1b[H"
	clearScreen = "\x1b[2J"
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"
	resetStyle  = "\x1b[0m"
	upperHalf   = "▀"
)

// render paints the frame with one upper-half block per pair of rows:
// the glyph colour is the top pixel and the cell background the bottom one.
func render(w io.Writer, fb *emulator.Framebuffer, p frontend.Palette) error {
	pick := func(on bool) color.RGBA {
		if on {
			return p.Foreground
		}
		return p.Background
	}

	if _, err := io.WriteString(w, cursorHome); err != nil {
		return err
	}
	for y := 0; y < emulator.DisplayH; y += 2 {
		var fg, bg color.RGBA
		for x := 0; x < emulator.DisplayW; x++ {
			top, bottom := pick(fb.At(x, y)), pick(fb.At(x, y+1))
			if x == 0 || top != fg {
				fg = top
				fmt.Fprintf(w, "\x1b[38;2;%d;%d;%dm", fg.R, fg.G, fg.B)
			}
			if x == 0 || bottom != bg {
				bg = bottom
				fmt.Fprintf(w, "\x1b[48;2;%d;%d;%dm", bg.R, bg.G, bg.B)
			}
			io.WriteString(w, upperHalf)
		}
		if _, err := io.WriteString(w, resetStyle+"\r\n"); err != nil {
			return err
		}
	}
	return nil
}
