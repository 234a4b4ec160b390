package backend

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/chzyer/readline"

	"github.com/Neverlord/sash/internal/completion"
	"github.com/Neverlord/sash/pkg/sashtypes"
)

const ctrlD = 4

// Readline is a terminal backend built on chzyer/readline.
type Readline struct {
	base
	rl        *readline.Instance
	completer *completion.ReadlineAdapter

	mu     sync.Mutex
	charCh chan rune
}

// NewReadline creates a readline backend. History is managed by the backend
// itself and mirrored into readline for arrow-key navigation.
func NewReadline(opts Options) (*Readline, error) {
	b := &Readline{
		base:      newBase(opts),
		completer: &completion.ReadlineAdapter{},
	}
	rl, err := readline.NewEx(&readline.Config{
		HistoryLimit:           opts.HistorySize,
		DisableAutoSaveHistory: true,
		AutoComplete:           b.completer,
		InterruptPrompt:        "^C",
		FuncFilterInputRune:    b.filterRune,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize readline: %w", err)
	}
	b.rl = rl
	return b, nil
}

// ReadLine reads one line. Ctrl-C yields an empty line; Ctrl-D on an empty
// line yields io.EOF.
func (b *Readline) ReadLine() (string, error) {
	b.rl.SetPrompt(b.prompt)
	line, err := b.rl.Readline()
	switch {
	case errors.Is(err, readline.ErrInterrupt):
		return "", nil
	case errors.Is(err, io.EOF):
		return "", io.EOF
	case err != nil:
		return "", err
	}
	return line, nil
}

// ReadChar reads a single key press. The rune is intercepted before readline's
// line editor sees it.
func (b *Readline) ReadChar() (rune, error) {
	ch := make(chan rune, 1)
	b.mu.Lock()
	b.charCh = ch
	b.mu.Unlock()

	if err := b.rl.Terminal.EnterRawMode(); err != nil {
		return 0, fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer func() { _ = b.rl.Terminal.ExitRawMode() }()

	b.rl.Terminal.KickRead()
	r := <-ch
	if r == ctrlD {
		return 0, io.EOF
	}
	return r, nil
}

func (b *Readline) filterRune(r rune) (rune, bool) {
	b.mu.Lock()
	ch := b.charCh
	b.charCh = nil
	b.mu.Unlock()

	if ch == nil {
		return r, true
	}
	ch <- r
	return r, false
}

// Reset refreshes the line editor before a read.
func (b *Readline) Reset() {
	b.rl.Refresh()
}

// HistoryEnter records entry and makes it available to arrow-key navigation.
func (b *Readline) HistoryEnter(entry string) {
	if b.history.Enter(entry) {
		_ = b.rl.SaveHistory(entry)
	}
}

// HistoryLoad loads the history file and mirrors it into readline.
func (b *Readline) HistoryLoad() error {
	before := b.history.Len()
	if err := b.history.Load(); err != nil {
		return err
	}
	for _, e := range b.history.Entries()[before:] {
		_ = b.rl.SaveHistory(e)
	}
	return nil
}

// SetCompleter routes the tab key to c.
func (b *Readline) SetCompleter(c sashtypes.Completer) {
	b.completer.Completer = c
}

// Close persists the history and releases the terminal.
func (b *Readline) Close() error {
	saveErr := b.history.Save()
	closeErr := b.rl.Close()
	return errors.Join(saveErr, closeErr)
}
