package completion

import (
	"github.com/chzyer/readline"
	"github.com/peterh/liner"

	"github.com/Neverlord/sash/pkg/sashtypes"
)

// ReadlineAdapter implements readline.AutoCompleter on top of a Completer.
// The text left of the cursor is the completion prefix and the completer's
// result is offered as the single candidate inserted at the cursor.
type ReadlineAdapter struct {
	Completer sashtypes.Completer
}

var _ readline.AutoCompleter = (*ReadlineAdapter)(nil)

// Do implements the readline.AutoCompleter interface.
func (a *ReadlineAdapter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	if a.Completer == nil {
		return nil, 0
	}
	if pos > len(line) {
		pos = len(line)
	}
	result, code := a.Completer.Complete(string(line[:pos]))
	if code != sashtypes.Completed || result == "" {
		return nil, 0
	}
	return [][]rune{[]rune(result)}, 0
}

// LinerCompleter returns a liner.Completer on top of c. Liner completes whole
// lines, so the single candidate is the current line with the result appended.
func LinerCompleter(c sashtypes.Completer) liner.Completer {
	return func(line string) []string {
		if c == nil {
			return nil
		}
		result, code := c.Complete(line)
		if code != sashtypes.Completed || result == "" {
			return nil
		}
		return []string{line + result}
	}
}
