package ebitenhost

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/tuboc/chip8vm/emulator"
)

// keypad maps the physical QWERTY block to the characters the machine's
// keymap expects.
var keypad = map[ebiten.Key]emulator.Key{
	ebiten.Key1: '1', ebiten.Key2: '2', ebiten.Key3: '3', ebiten.Key4: '4',
	ebiten.KeyQ: 'q', ebiten.KeyW: 'w', ebiten.KeyE: 'e', ebiten.KeyR: 'r',
	ebiten.KeyA: 'a', ebiten.KeyS: 's', ebiten.KeyD: 'd', ebiten.KeyF: 'f',
	ebiten.KeyZ: 'z', ebiten.KeyX: 'x', ebiten.KeyC: 'c', ebiten.KeyV: 'v',
}
