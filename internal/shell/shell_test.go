package shell

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neverlord/sash/internal/backend"
	"github.com/Neverlord/sash/internal/color"
	"github.com/Neverlord/sash/internal/mode"
	"github.com/Neverlord/sash/internal/variables"
	"github.com/Neverlord/sash/pkg/sashtypes"
)

// trackedBackend counts Close calls of a script backend.
type trackedBackend struct {
	*backend.Script
	closed int
}

func (b *trackedBackend) Close() error {
	b.closed++
	return b.Script.Close()
}

type harness struct {
	backends map[string]*trackedBackend
	input    map[string]string
}

func newHarness() *harness {
	return &harness{backends: make(map[string]*trackedBackend), input: make(map[string]string)}
}

func (h *harness) factory(spec mode.Spec) (sashtypes.Backend, error) {
	b := &trackedBackend{Script: backend.NewScriptString(h.input[spec.Name], backend.Options{
		HistoryFile:   spec.HistoryFile,
		HistorySize:   spec.HistorySize,
		HistoryUnique: spec.HistoryUnique,
		Palette:       color.NewWithProfile(termenv.Ascii),
	})}
	h.backends[spec.Name] = b
	return b, nil
}

func newShell(t *testing.T, opts ...Option) (*Shell, *harness) {
	t.Helper()
	h := newHarness()
	return New(h.factory, opts...), h
}

func echoMode(t *testing.T, s *Shell, name string, out *[]string) *mode.Mode {
	t.Helper()
	m, err := s.AddMode(name, name+"> ")
	require.NoError(t, err)
	m.AddFunc("echo", "print", func(args string) (sashtypes.Result, error) {
		*out = append(*out, name+":"+args)
		return sashtypes.Executed, nil
	})
	return m
}

func TestShell_ProcessEmptyLineIsNop(t *testing.T) {
	s, _ := newShell(t)

	result, err := s.Process("")
	assert.NoError(t, err)
	assert.Equal(t, sashtypes.Nop, result)
	assert.Empty(t, s.LastError())

	var out []string
	echoMode(t, s, "default", &out)
	require.True(t, s.PushMode("default"))

	result, err = s.Process("")
	assert.NoError(t, err)
	assert.Equal(t, sashtypes.Nop, result)
}

func TestShell_ProcessEmptyStack(t *testing.T) {
	s, _ := newShell(t)

	result, err := s.Process("echo hi")
	assert.Equal(t, sashtypes.NoCommand, result)
	assert.ErrorIs(t, err, ErrEmptyModeStack)
	assert.Equal(t, "shell: mode stack is empty", s.LastError())
}

func TestShell_ProcessDispatchesToActiveMode(t *testing.T) {
	s, _ := newShell(t)
	var out []string
	echoMode(t, s, "default", &out)
	echoMode(t, s, "vars", &out)

	require.True(t, s.PushMode("default"))
	_, err := s.Process("echo one")
	require.NoError(t, err)

	require.True(t, s.PushMode("vars"))
	_, err = s.Process("echo two")
	require.NoError(t, err)

	require.True(t, s.PopMode())
	_, err = s.Process("echo three")
	require.NoError(t, err)

	assert.Equal(t, []string{"default:one", "vars:two", "default:three"}, out)
}

func TestShell_ProcessUnknownCommand(t *testing.T) {
	s, _ := newShell(t)
	var out []string
	echoMode(t, s, "default", &out)
	require.True(t, s.PushMode("default"))

	result, err := s.Process("zzz")
	assert.Equal(t, sashtypes.NoCommand, result)
	assert.Error(t, err)
	assert.Equal(t, "zzz: command not found", s.LastError())

	_, err = s.Process("echo ok")
	require.NoError(t, err)
	assert.Empty(t, s.LastError(), "last error is cleared by the next line")
}

func TestShell_AddMode(t *testing.T) {
	s, h := newShell(t)

	m, err := s.AddMode("default", "sash> ", mode.WithPromptColor("green"))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "sash> ", h.backends["default"].PlainPrompt())

	dup, err := s.AddMode("default", "other> ")
	assert.Nil(t, dup)
	assert.ErrorIs(t, err, ErrModeExists)
	assert.Same(t, m, s.Mode("default"), "existing mode is not overwritten")

	_, err = s.AddMode("vars", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "vars"}, s.Modes())
}

func TestShell_AddModeFactoryError(t *testing.T) {
	s := New(func(mode.Spec) (sashtypes.Backend, error) {
		return nil, errors.New("no terminal")
	})

	m, err := s.AddMode("default", "")
	assert.Nil(t, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no terminal")
	assert.Empty(t, s.Modes())
}

func TestShell_PushPop(t *testing.T) {
	s, _ := newShell(t)
	_, err := s.AddMode("default", "")
	require.NoError(t, err)

	assert.False(t, s.PushMode("missing"))
	assert.False(t, s.PopMode())
	assert.False(t, s.HasActiveMode())

	assert.True(t, s.PushMode("default"))
	assert.True(t, s.PushMode("default"), "a mode may be pushed twice")
	assert.Equal(t, 2, s.Depth())
	assert.Equal(t, "default", s.CurrentMode().Name())

	assert.True(t, s.PopMode())
	assert.True(t, s.PopMode())
	assert.False(t, s.HasActiveMode())
}

func TestShell_CurrentModePanicsWithoutActiveMode(t *testing.T) {
	s, _ := newShell(t)
	assert.Panics(t, func() { s.CurrentMode() })
}

func TestShell_RemoveMode(t *testing.T) {
	s, h := newShell(t)
	_, err := s.AddMode("idle", "")
	require.NoError(t, err)
	_, err = s.AddMode("active", "")
	require.NoError(t, err)
	require.True(t, s.PushMode("active"))

	assert.False(t, s.RemoveMode("missing"))

	assert.True(t, s.RemoveMode("idle"))
	assert.Equal(t, 1, h.backends["idle"].closed)

	assert.True(t, s.RemoveMode("active"))
	assert.Equal(t, 0, h.backends["active"].closed, "still on the stack")
	assert.Equal(t, "active", s.CurrentMode().Name())

	assert.True(t, s.PopMode())
	assert.Equal(t, 1, h.backends["active"].closed)
	assert.Empty(t, s.Modes())
}

func TestShell_PreprocessorChain(t *testing.T) {
	var calls []string
	upper := sashtypes.PreprocessorFunc(func(in string) (string, error) {
		calls = append(calls, "upper")
		return strings.ToUpper(in), nil
	})
	prefix := sashtypes.PreprocessorFunc(func(in string) (string, error) {
		calls = append(calls, "prefix")
		return "echo " + in, nil
	})

	s, _ := newShell(t, WithPreprocessors(upper))
	s.AddPreprocessor(prefix)
	var out []string
	echoMode(t, s, "default", &out)
	require.True(t, s.PushMode("default"))

	result, err := s.Process("hello")
	require.NoError(t, err)
	assert.Equal(t, sashtypes.Executed, result)
	assert.Equal(t, []string{"upper", "prefix"}, calls)
	assert.Equal(t, []string{"default:HELLO"}, out)
}

func TestShell_PreprocessorErrorAbortsChain(t *testing.T) {
	failing := sashtypes.PreprocessorFunc(func(string) (string, error) {
		return "", errors.New("bad input")
	})
	reached := false
	later := sashtypes.PreprocessorFunc(func(in string) (string, error) {
		reached = true
		return in, nil
	})

	s, _ := newShell(t, WithPreprocessors(failing, later))
	var out []string
	echoMode(t, s, "default", &out)
	require.True(t, s.PushMode("default"))

	result, err := s.Process("echo hi")
	assert.Equal(t, sashtypes.NoCommand, result)
	var perr *PreprocessError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "bad input", s.LastError())
	assert.False(t, reached)
	assert.Empty(t, out)
}

func TestShell_PreprocessorConsumesLine(t *testing.T) {
	s, _ := newShell(t)
	s.AddPreprocessor(variables.NewPreprocessor(map[string]string{"y": "z"}))
	var out []string
	echoMode(t, s, "default", &out)
	require.True(t, s.PushMode("default"))

	result, err := s.Process("x=$y")
	require.NoError(t, err)
	assert.Equal(t, sashtypes.Executed, result)
	assert.Empty(t, out, "assignment never reaches the command tree")

	_, err = s.Process("echo $x")
	require.NoError(t, err)
	assert.Equal(t, []string{"default:z"}, out)

	result, err = s.Process("echo ${x")
	assert.Equal(t, sashtypes.NoCommand, result)
	var syntaxErr *variables.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, "syntax error at position 8: missing '}' at end of line", s.LastError())
}

func TestShell_Observer(t *testing.T) {
	type event struct {
		mode   string
		result sashtypes.Result
		failed bool
	}
	var events []event
	s, _ := newShell(t, WithObserver(func(m string, r sashtypes.Result, err error) {
		events = append(events, event{m, r, err != nil})
	}))

	_, _ = s.Process("echo")
	var out []string
	echoMode(t, s, "default", &out)
	require.True(t, s.PushMode("default"))
	_, _ = s.Process("echo hi")
	_, _ = s.Process("")
	_, _ = s.Process("nope")

	assert.Equal(t, []event{
		{"", sashtypes.NoCommand, true},
		{"default", sashtypes.Executed, false},
		{"default", sashtypes.NoCommand, true},
	}, events)
}

func TestShell_ReadLine(t *testing.T) {
	s, h := newShell(t)
	h.input["default"] = "  echo hi  \n"

	_, err := s.ReadLine()
	assert.ErrorIs(t, err, ErrNoActiveMode)

	_, err = s.AddMode("default", "")
	require.NoError(t, err)
	require.True(t, s.PushMode("default"))

	line, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "echo hi", line)
	assert.Equal(t, 1, h.backends["default"].Resets())

	_, err = s.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestShell_ReadChar(t *testing.T) {
	s, h := newShell(t)
	h.input["default"] = "y"

	_, err := s.ReadChar()
	assert.ErrorIs(t, err, ErrNoActiveMode)

	_, err = s.AddMode("default", "")
	require.NoError(t, err)
	require.True(t, s.PushMode("default"))

	r, err := s.ReadChar()
	require.NoError(t, err)
	assert.Equal(t, 'y', r)
}

func TestShell_AppendToHistory(t *testing.T) {
	s, h := newShell(t)
	assert.False(t, s.AppendToHistory("echo hi"))

	path := filepath.Join(t.TempDir(), "history")
	_, err := s.AddMode("default", "", mode.WithHistoryFile(path))
	require.NoError(t, err)
	require.True(t, s.PushMode("default"))

	assert.True(t, s.AppendToHistory("echo hi"))
	assert.Equal(t, []string{"echo hi"}, h.backends["default"].History().Entries())
	assert.FileExists(t, path)
}

func TestShell_Close(t *testing.T) {
	s, h := newShell(t)
	_, err := s.AddMode("a", "")
	require.NoError(t, err)
	_, err = s.AddMode("b", "")
	require.NoError(t, err)
	require.True(t, s.PushMode("a"))
	require.True(t, s.PushMode("a"))

	require.NoError(t, s.Close())
	assert.Equal(t, 1, h.backends["a"].closed)
	assert.Equal(t, 1, h.backends["b"].closed)
	assert.False(t, s.HasActiveMode())
	assert.Empty(t, s.Modes())
}

func TestShell_SessionID(t *testing.T) {
	a, _ := newShell(t)
	b, _ := newShell(t)
	assert.Len(t, a.SessionID(), 36)
	assert.NotEqual(t, a.SessionID(), b.SessionID())
}
