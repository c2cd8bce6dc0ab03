package frontend

import (
	"image/color"
	"log/slog"
	"sort"

	"github.com/tuboc/chip8vm/emulator"
)

const DefaultPalette = "mono"

// Palette is the foreground/background pair used to present lit and unlit
// pixels.
type Palette struct {
	Name       string
	Foreground color.RGBA
	Background color.RGBA
}

var palettes = map[string]Palette{
	"mono": {
		Name:       "mono",
		Foreground: color.RGBA{255, 255, 255, 255},
		Background: color.RGBA{0, 0, 0, 255},
	},
	"amber": {
		Name:       "amber",
		Foreground: color.RGBA{255, 197, 0, 255},
		Background: color.RGBA{30, 18, 8, 255},
	},
	"pride": {
		Name:       "pride",
		Foreground: color.RGBA{245, 169, 184, 255},
		Background: color.RGBA{91, 206, 250, 255},
	},
	"moneybags": {
		Name:       "moneybags",
		Foreground: color.RGBA{239, 152, 21, 255},
		Background: color.RGBA{196, 196, 196, 255},
	},
}

func LookupPalette(name string) (Palette, bool) {
	p, ok := palettes[name]
	return p, ok
}

// ResolvePalette returns the named palette, falling back to mono with a
// warning for unknown names.
func ResolvePalette(name string, log *slog.Logger) Palette {
	if name == "" {
		return palettes[DefaultPalette]
	}
	p, ok := palettes[name]
	if !ok {
		log.Warn("unknown palette, defaulting to mono", "palette", name)
		return palettes[DefaultPalette]
	}
	return p
}

// PaletteNames lists the built-in palettes in alphabetical order.
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pixels converts a frame to row-major RGBA bytes.
func (p Palette) Pixels(fb *emulator.Framebuffer) []byte {
	out := make([]byte, 0, 4*len(fb))
	for _, on := range fb {
		c := p.Background
		if on {
			c = p.Foreground
		}
		out = append(out, c.R, c.G, c.B, c.A)
	}
	return out
}
