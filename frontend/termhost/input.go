package termhost

import "github.com/tuboc/chip8vm/emulator"

type eventKind int

const (
	evKey eventKind = iota
	evQuit
	evReset
	evStep
	evResume
)

type inputEvent struct {
	kind eventKind
	key  emulator.Key
}

const (
	ctrlC  = 0x03
	escape = 0x1b
)

// f5Sequence is what xterm compatible terminals send for F5.
const f5Sequence = "[15~"

// parseInput splits a chunk read from a raw-mode terminal into events.
// Escape sequences other than F5 are dropped; a lone escape quits.
func parseInput(chunk []byte) []inputEvent {
	var events []inputEvent
	for i := 0; i < len(chunk); i++ {
		b := chunk[i]
		switch {
		case b == ctrlC:
			events = append(events, inputEvent{kind: evQuit})
		case b == escape:
			if i+1 == len(chunk) || (chunk[i+1] != '[' && chunk[i+1] != 'O') {
				events = append(events, inputEvent{kind: evQuit})
				continue
			}
			end := i + 2
			for end < len(chunk) && (chunk[end] < 0x40 || chunk[end] > 0x7E) {
				end++
			}
			if string(chunk[i+1:min(end+1, len(chunk))]) == f5Sequence {
				events = append(events, inputEvent{kind: evReset})
			}
			i = end
		case b == ' ':
			events = append(events, inputEvent{kind: evStep})
		case b == '\r' || b == '\n':
			events = append(events, inputEvent{kind: evResume})
		case b < 0x80:
			events = append(events, inputEvent{kind: evKey, key: emulator.Key(rune(b))})
		}
	}
	return events
}
