// Package terminal puts the controlling terminal in raw mode and turns its
// input into key events.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// ErrNotTerminal is returned when stdin is not a terminal
var ErrNotTerminal = errors.New("stdin is not a terminal")

// Terminal owns raw mode on an input file and a reader goroutine
type Terminal struct {
	in  *os.File
	out *os.File
	fd  int

	mu       sync.Mutex
	oldState *term.State

	keys chan Key
	errs chan error
	once sync.Once
}

// Open switches in to raw mode. Call Restore (or Close) before exiting.
func Open(in, out *os.File) (*Terminal, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}

	return &Terminal{
		in:       in,
		out:      out,
		fd:       fd,
		oldState: state,
		keys:     make(chan Key, 16),
		errs:     make(chan error, 1),
	}, nil
}

// Keys starts the reader on first use and returns its channel
func (t *Terminal) Keys() <-chan Key {
	t.once.Do(func() { go t.readLoop(t.in) })
	return t.keys
}

// Errors reports the error that stopped the reader
func (t *Terminal) Errors() <-chan error {
	return t.errs
}

func (t *Terminal) readLoop(r io.Reader) {
	err := ReadKeys(r, t.keys)
	t.errs <- err
}

// ReadKeys reads r until it fails, sending each decoded key to out. The
// error is io.EOF when the input closes.
func ReadKeys(r io.Reader, out chan<- Key) error {
	buf := make([]byte, 256)
	var pending []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := append(pending, buf[:n]...)
			keys, rest := Parse(data)
			for _, k := range keys {
				out <- k
			}

			switch {
			case len(rest) == 1 && rest[0] == 0x1b:
				// a read ending in a lone ESC is the escape key itself
				out <- press(KeyEsc)
				pending = nil
			case len(rest) > 16:
				pending = nil
			default:
				pending = append([]byte(nil), rest...)
			}
		}
		if err != nil {
			return err
		}
	}
}

// Size returns the terminal size in cells
func (t *Terminal) Size() (cols, rows int, err error) {
	fd := int(t.out.Fd())
	if !term.IsTerminal(fd) {
		fd = t.fd
	}
	return term.GetSize(fd)
}

// Restore leaves raw mode. It is safe to call more than once.
func (t *Terminal) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.oldState == nil {
		return nil
	}
	err := term.Restore(t.fd, t.oldState)
	t.oldState = nil
	return err
}

// Close restores the terminal. The reader goroutine stays blocked on stdin
// until the process exits.
func (t *Terminal) Close() error {
	return t.Restore()
}
