// Package backend provides the line-editing backends used by sash modes.
// Readline wraps chzyer/readline, Liner wraps peterh/liner and Script reads
// from any io.Reader for batch runs and tests.
package backend

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/Neverlord/sash/internal/color"
	"github.com/Neverlord/sash/internal/history"
	"github.com/Neverlord/sash/pkg/sashtypes"
	"golang.org/x/term"
)

// Kinds accepted by New.
const (
	KindReadline = "readline"
	KindLiner    = "liner"
)

// Options configure a backend.
type Options struct {
	// HistoryFile is where the history is persisted. Empty disables persistence.
	HistoryFile string
	// HistorySize bounds the number of history entries.
	HistorySize int
	// HistoryUnique drops consecutive duplicate entries.
	HistoryUnique bool
	// Palette renders prompt colors. Defaults to a palette for stdout.
	Palette *color.Palette
}

func (o Options) palette() *color.Palette {
	if o.Palette != nil {
		return o.Palette
	}
	return color.New(os.Stdout)
}

// New creates a terminal backend of the given kind.
func New(kind string, opts Options) (sashtypes.Backend, error) {
	switch kind {
	case KindReadline, "":
		return NewReadline(opts)
	case KindLiner:
		return NewLiner(opts), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
}

// IsTerminal reports whether standard input is an interactive terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// base holds the prompt and history state shared by all backends.
type base struct {
	palette *color.Palette
	plain   string
	prompt  string
	history *history.Log
}

func newBase(opts Options) base {
	return base{
		palette: opts.palette(),
		history: history.New(opts.HistoryFile, opts.HistorySize, opts.HistoryUnique),
	}
}

func (b *base) SetPrompt(text, tag string) {
	b.plain = text
	b.prompt = b.palette.Render(text, tag)
}

func (b *base) AddToPrompt(text, tag string) {
	b.plain += text
	b.prompt += b.palette.Render(text, tag)
}

func (b *base) Prompt() string {
	return b.prompt
}

// History exposes the backend's history log.
func (b *base) History() *history.Log {
	return b.history
}

func (b *base) HistorySave() error {
	return b.history.Save()
}

// readRawChar reads one UTF-8 encoded character from f with the terminal in
// raw mode. The previous terminal state is restored before returning.
func readRawChar(f *os.File) (rune, error) {
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return 0, fmt.Errorf("failed to enter raw mode: %w", err)
		}
		defer func() { _ = term.Restore(fd, state) }()
	}
	return readRune(f)
}

// readRune reads a single character without buffering past its last byte.
func readRune(r io.Reader) (rune, error) {
	var buf [utf8.UTFMax]byte
	n := 0
	for n < len(buf) {
		if _, err := io.ReadFull(r, buf[n:n+1]); err != nil {
			if n > 0 && err == io.EOF {
				return utf8.RuneError, nil
			}
			return 0, err
		}
		n++
		if utf8.FullRune(buf[:n]) {
			break
		}
	}
	ch, _ := utf8.DecodeRune(buf[:n])
	return ch, nil
}
