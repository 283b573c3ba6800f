package terminal

import (
	"unicode/utf8"
)

// KeyCode identifies non-printable keys. Printable keys use KeyRune.
type KeyCode int

const (
	KeyRune KeyCode = iota
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
	KeyEnter
	KeyTab
	KeyBackspace
	KeyEsc
	KeyCtrlC
	KeyCtrlD
)

var codeNames = map[KeyCode]string{
	KeyUp:        "up",
	KeyDown:      "down",
	KeyRight:     "right",
	KeyLeft:      "left",
	KeyEnter:     "enter",
	KeyTab:       "tab",
	KeyBackspace: "backspace",
	KeyEsc:       "esc",
	KeyCtrlC:     "ctrl+c",
	KeyCtrlD:     "ctrl+d",
}

// Key is one keyboard event. A raw terminal only reports presses, so
// Press is always true for keys read from a Terminal.
type Key struct {
	Code  KeyCode
	Rune  rune
	Press bool
}

// String returns the binding name of the key: the character itself for
// printable keys ("q", "space" for ' '), or a name like "right".
func (k Key) String() string {
	if k.Code == KeyRune {
		if k.Rune == ' ' {
			return "space"
		}
		return string(k.Rune)
	}
	if name, ok := codeNames[k.Code]; ok {
		return name
	}
	return "unknown"
}

// Parse decodes as many keys as buf holds. Bytes belonging to an
// incomplete escape sequence at the end of buf are returned in rest so the
// caller can prepend them to the next read. Unknown sequences are dropped.
func Parse(buf []byte) (keys []Key, rest []byte) {
	for len(buf) > 0 {
		b := buf[0]
		switch {
		case b == 0x1b:
			k, n, ok := parseEscape(buf)
			if n == 0 {
				return keys, buf
			}
			if ok {
				keys = append(keys, k)
			}
			buf = buf[n:]
		case b == '\r' || b == '\n':
			keys = append(keys, press(KeyEnter))
			buf = buf[1:]
		case b == '\t':
			keys = append(keys, press(KeyTab))
			buf = buf[1:]
		case b == 0x7f || b == 0x08:
			keys = append(keys, press(KeyBackspace))
			buf = buf[1:]
		case b == 0x03:
			keys = append(keys, press(KeyCtrlC))
			buf = buf[1:]
		case b == 0x04:
			keys = append(keys, press(KeyCtrlD))
			buf = buf[1:]
		case b < 0x20:
			buf = buf[1:]
		default:
			if !utf8.FullRune(buf) {
				return keys, buf
			}
			r, size := utf8.DecodeRune(buf)
			if r != utf8.RuneError {
				keys = append(keys, Key{Code: KeyRune, Rune: r, Press: true})
			}
			buf = buf[size:]
		}
	}
	return keys, nil
}

func press(c KeyCode) Key {
	return Key{Code: c, Press: true}
}

// parseEscape decodes an escape sequence at the start of buf. n is the
// number of bytes consumed, 0 if the sequence is incomplete. A lone ESC
// followed by nothing is reported as incomplete; the reader flushes it as
// KeyEsc when no more input arrives.
func parseEscape(buf []byte) (k Key, n int, ok bool) {
	if len(buf) < 2 {
		return Key{}, 0, false
	}
	switch buf[1] {
	case '[', 'O':
	default:
		// ESC followed by an ordinary byte is a bare escape press
		return press(KeyEsc), 1, true
	}

	// CSI: parameters 0x30-0x3f, intermediates 0x20-0x2f, final 0x40-0x7e
	for i := 2; i < len(buf); i++ {
		c := buf[i]
		if c >= 0x40 && c <= 0x7e {
			if i != 2 && buf[1] == 'O' {
				return Key{}, i + 1, false
			}
			switch c {
			case 'A':
				return press(KeyUp), i + 1, true
			case 'B':
				return press(KeyDown), i + 1, true
			case 'C':
				return press(KeyRight), i + 1, true
			case 'D':
				return press(KeyLeft), i + 1, true
			default:
				return Key{}, i + 1, false
			}
		}
		if c < 0x20 {
			return Key{}, i, false
		}
	}
	return Key{}, 0, false
}
