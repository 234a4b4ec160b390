package backend

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Neverlord/sash/pkg/sashtypes"
)

// Script is a non-interactive backend that reads input from an io.Reader.
// It drives batch files and tests.
type Script struct {
	base
	in        *bufio.Reader
	src       io.Reader
	echo      io.Writer
	completer sashtypes.Completer
	resets    int
}

// NewScript creates a backend reading from r.
func NewScript(r io.Reader, opts Options) *Script {
	return &Script{base: newBase(opts), in: bufio.NewReader(r), src: r}
}

// NewScriptString creates a backend reading from s.
func NewScriptString(s string, opts Options) *Script {
	return NewScript(strings.NewReader(s), opts)
}

// SetEcho makes the backend write the prompt and each line read to w,
// producing a transcript of the session.
func (b *Script) SetEcho(w io.Writer) {
	b.echo = w
}

// ReadLine returns the next line without its line terminator.
func (b *Script) ReadLine() (string, error) {
	line, err := b.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if b.echo != nil {
		fmt.Fprintf(b.echo, "%s%s\n", b.plain, line)
	}
	return line, nil
}

// ReadChar returns the next character.
func (b *Script) ReadChar() (rune, error) {
	r, _, err := b.in.ReadRune()
	if err != nil {
		return 0, err
	}
	return r, nil
}

// Reset counts resets; there is no terminal to re-sync.
func (b *Script) Reset() {
	b.resets++
}

// Resets returns how often Reset was called.
func (b *Script) Resets() int {
	return b.resets
}

func (b *Script) HistoryEnter(entry string) {
	b.history.Enter(entry)
}

func (b *Script) HistoryLoad() error {
	return b.history.Load()
}

func (b *Script) SetCompleter(c sashtypes.Completer) {
	b.completer = c
}

// Completer returns the completer installed by SetCompleter.
func (b *Script) Completer() sashtypes.Completer {
	return b.completer
}

// PlainPrompt returns the prompt without color escapes.
func (b *Script) PlainPrompt() string {
	return b.plain
}

// Close persists the history and closes the source if it is closable.
func (b *Script) Close() error {
	saveErr := b.history.Save()
	var closeErr error
	if c, ok := b.src.(io.Closer); ok {
		closeErr = c.Close()
	}
	return errors.Join(saveErr, closeErr)
}
