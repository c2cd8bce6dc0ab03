package emulator

import "unicode"

// Key identifies a physical host key by the character printed on it.
type Key rune

// keymap lays the hex keypad over the left-hand 4x4 block of a QWERTY
// keyboard:
//
//	1 2 3 4      1 2 3 C
//	q w e r  ->  4 5 6 D
//	a s d f      7 8 9 E
//	z x c v      A 0 B F
var keymap = map[Key]uint8{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

// KeyIndex maps a host key to its keypad index.
func KeyIndex(k Key) (uint8, bool) {
	i, ok := keymap[Key(unicode.ToLower(rune(k)))]
	return i, ok
}

// KeyDown marks the mapped keypad key as pressed. Unmapped keys are ignored.
func (c *Chip8) KeyDown(k Key) {
	if i, ok := KeyIndex(k); ok {
		c.keys[i] = true
	}
}

// KeyUp marks the mapped keypad key as released.
func (c *Chip8) KeyUp(k Key) {
	if i, ok := KeyIndex(k); ok {
		c.keys[i] = false
	}
}

// Keys returns a snapshot of the keypad.
func (c *Chip8) Keys() [16]bool {
	return c.keys
}

func (c *Chip8) pressedAnyKey() (uint8, bool) {
	for i, down := range c.keys {
		if down {
			return uint8(i), true
		}
	}
	return 0, false
}
