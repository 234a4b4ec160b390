package backend

import (
	"errors"
	"io"
	"os"

	"github.com/peterh/liner"

	"github.com/Neverlord/sash/internal/completion"
	"github.com/Neverlord/sash/pkg/sashtypes"
)

// Liner is a terminal backend built on peterh/liner. liner rejects escape
// sequences in prompts, so the prompt is shown uncolored.
type Liner struct {
	base
	state *liner.State
}

// NewLiner creates a liner backend.
func NewLiner(opts Options) *Liner {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return &Liner{base: newBase(opts), state: state}
}

// ReadLine reads one line. Ctrl-C yields an empty line; Ctrl-D yields io.EOF.
func (b *Liner) ReadLine() (string, error) {
	line, err := b.state.Prompt(b.plain)
	switch {
	case errors.Is(err, liner.ErrPromptAborted):
		return "", nil
	case errors.Is(err, io.EOF):
		return "", io.EOF
	case err != nil:
		return "", err
	}
	return line, nil
}

// ReadChar reads one character from standard input in raw mode.
func (b *Liner) ReadChar() (rune, error) {
	r, err := readRawChar(os.Stdin)
	if err != nil {
		return 0, err
	}
	if r == ctrlD {
		return 0, io.EOF
	}
	return r, nil
}

// Reset is a no-op; liner redraws the line on every prompt.
func (b *Liner) Reset() {}

func (b *Liner) HistoryEnter(entry string) {
	if b.history.Enter(entry) {
		b.state.AppendHistory(entry)
	}
}

func (b *Liner) HistoryLoad() error {
	before := b.history.Len()
	if err := b.history.Load(); err != nil {
		return err
	}
	for _, e := range b.history.Entries()[before:] {
		b.state.AppendHistory(e)
	}
	return nil
}

func (b *Liner) SetCompleter(c sashtypes.Completer) {
	b.state.SetCompleter(completion.LinerCompleter(c))
}

// Close persists the history and restores the terminal.
func (b *Liner) Close() error {
	saveErr := b.history.Save()
	closeErr := b.state.Close()
	return errors.Join(saveErr, closeErr)
}
