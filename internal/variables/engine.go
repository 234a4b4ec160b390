// Package variables implements shell-style variable substitution for input
// lines. It expands $name and ${name} references from a binding table and
// recognizes name=value lines as assignments. The engine satisfies the
// preprocessor contract so it can sit in front of a shell's command tree.
package variables

import (
	"fmt"
	"maps"
	"unicode/utf8"

	"github.com/Neverlord/sash/internal/logger"
	"github.com/Neverlord/sash/pkg/sashtypes"
)

// SyntaxError describes malformed variable syntax in an input line.
type SyntaxError struct {
	// Pos is the byte offset of the offending character in the input line.
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

// state is the scanner state while traversing an input line.
type state int

const (
	// traverse - copying input verbatim
	traverse state = iota
	// afterDollar - just read a $ that starts a variable reference
	afterDollar
	// readVariable - reading a name in the form $name
	readVariable
	// readBracedVariable - reading a name in the form ${name}
	readBracedVariable
)

func (s state) String() string {
	switch s {
	case traverse:
		return "Traverse"
	case afterDollar:
		return "AfterDollar"
	case readVariable:
		return "ReadVariable"
	case readBracedVariable:
		return "ReadBracedVariable"
	default:
		return "Unknown"
	}
}

// Engine substitutes variables in input lines. The zero value is not usable;
// create engines with New or NewWithBindings.
type Engine struct {
	bindings map[string]string
}

var _ sashtypes.Preprocessor = (*Engine)(nil)

// New creates an engine with an empty binding table.
func New() *Engine {
	return &Engine{bindings: make(map[string]string)}
}

// NewWithBindings creates an engine initialized with a copy of predef.
func NewWithBindings(predef map[string]string) *Engine {
	e := New()
	maps.Copy(e.bindings, predef)
	return e
}

// NewPreprocessor returns a preprocessor bound to a private engine that
// starts out with the predefined bindings.
func NewPreprocessor(predef map[string]string) sashtypes.Preprocessor {
	return NewWithBindings(predef)
}

// Preprocess implements sashtypes.Preprocessor. It is Parse.
func (e *Engine) Preprocess(input string) (string, error) {
	return e.Parse(input)
}

// Parse substitutes all variables in input. A line of the form name=value
// is an assignment: the value is expanded, bound to name and the output is
// empty. On error the output is empty and no binding changes.
func (e *Engine) Parse(input string) (string, error) {
	return e.parse(input, false, 0)
}

// Expand substitutes all variables in input without recognizing assignments.
func (e *Engine) Expand(input string) (string, error) {
	return e.parse(input, true, 0)
}

// Set binds name to value, replacing any previous value.
func (e *Engine) Set(name, value string) {
	e.bindings[name] = value
}

// Unset removes the binding for name.
func (e *Engine) Unset(name string) {
	delete(e.bindings, name)
}

// Get returns the value bound to name.
func (e *Engine) Get(name string) (string, bool) {
	v, ok := e.bindings[name]
	return v, ok
}

// Bindings returns a copy of the binding table.
func (e *Engine) Bindings() map[string]string {
	return maps.Clone(e.bindings)
}

// parse runs the scanner over input. Sub-parses expand assignment values and
// never recognize assignments themselves. base is the offset of input in the
// line the user typed and only affects error positions.
func (e *Engine) parse(input string, subParse bool, base int) (string, error) {
	var out []byte
	st := traverse
	// pos is the first character of the pending verbatim text or of the
	// variable name currently being read
	pos := 0
	lastc := byte(' ')

	fail := func(i int, format string, args ...any) (string, error) {
		return "", &SyntaxError{Pos: base + i, Msg: fmt.Sprintf(format, args...)}
	}

	for i := 0; i < len(input); i++ {
		c := input[i]
		switch st {
		case traverse:
			switch {
			case c == '=' && !subParse && isName(input[:i]):
				return e.assign(input[:i], input[i+1:], base+i+1)
			case c == '$' && lastc != '\\':
				out = append(out, input[pos:i]...)
				st = afterDollar
			}
		case afterDollar:
			switch {
			case c == '{':
				st = readBracedVariable
				pos = i + 1
			case isNameChar(c):
				st = readVariable
				pos = i
			case c == '$':
				return fail(i, "$$ is not a valid expression")
			default:
				return fail(i, "unexpected character '%c' after $", runeAt(input, i))
			}
		case readVariable:
			if isNameChar(c) {
				break
			}
			out = append(out, e.bindings[input[pos:i]]...)
			st = traverse
			pos = i
			// the previous character is part of a name, so this $ is never escaped
			if c == '$' {
				st = afterDollar
			}
		case readBracedVariable:
			switch {
			case c == '}':
				out = append(out, e.bindings[input[pos:i]]...)
				st = traverse
				pos = i + 1
			case !isNameChar(c):
				return fail(i, "'%c' is an invalid character inside ${...}", runeAt(input, i))
			}
		}
		lastc = c
	}

	switch st {
	case afterDollar:
		return fail(len(input), "$ at end of line")
	case readBracedVariable:
		return fail(len(input), "missing '}' at end of line")
	case readVariable:
		out = append(out, e.bindings[input[pos:]]...)
	default:
		out = append(out, input[pos:]...)
	}
	return string(out), nil
}

// assign expands value and binds it to name. Assignments produce no output.
func (e *Engine) assign(name, value string, base int) (string, error) {
	expanded, err := e.parse(value, true, base)
	if err != nil {
		return "", err
	}
	e.bindings[name] = expanded
	logger.VariableOperation("assign", name, expanded)
	return "", nil
}

func isNameChar(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// runeAt decodes the character starting at byte offset i for error messages.
func runeAt(s string, i int) rune {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return r
}

// isName reports whether s is a non-empty run of name characters.
func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isNameChar(s[i]) {
			return false
		}
	}
	return true
}

// ValidName reports whether s can be used as a variable name.
func ValidName(s string) bool {
	return isName(s)
}
