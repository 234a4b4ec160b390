// Package shell implements the mode stack and the dispatch of input lines.
// A Shell owns a registry of named modes, a stack whose top is the active
// mode, and an ordered chain of preprocessors that rewrite every line before
// it reaches the active mode's command tree.
package shell

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Neverlord/sash/internal/logger"
	"github.com/Neverlord/sash/internal/mode"
	"github.com/Neverlord/sash/pkg/sashtypes"
)

var (
	// ErrEmptyModeStack is reported when a line is processed without an active mode.
	ErrEmptyModeStack = errors.New("shell: mode stack is empty")
	// ErrModeExists is returned by AddMode for a name already in use.
	ErrModeExists = errors.New("shell: mode already exists")
	// ErrNoActiveMode is returned by reads without an active mode.
	ErrNoActiveMode = errors.New("shell: no active mode")
)

// PreprocessError wraps an error reported by a preprocessor. Its message is
// the preprocessor's message.
type PreprocessError struct {
	Err error
}

func (e *PreprocessError) Error() string {
	return e.Err.Error()
}

func (e *PreprocessError) Unwrap() error {
	return e.Err
}

// BackendFactory creates the backend owned by a new mode.
type BackendFactory func(spec mode.Spec) (sashtypes.Backend, error)

// Observer is notified after every dispatch of a non-empty line.
type Observer func(modeName string, result sashtypes.Result, err error)

// Option configures a Shell.
type Option func(*Shell)

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(s *Shell) {
		s.observers = append(s.observers, o)
	}
}

// WithPreprocessors appends preprocessors to the chain.
func WithPreprocessors(ps ...sashtypes.Preprocessor) Option {
	return func(s *Shell) {
		s.preprocessors = append(s.preprocessors, ps...)
	}
}

// Shell is the explicit context of an interactive session. It is driven by a
// single goroutine and is not safe for concurrent use.
type Shell struct {
	factory       BackendFactory
	modes         map[string]*mode.Mode
	stack         []*mode.Mode
	preprocessors []sashtypes.Preprocessor
	observers     []Observer
	lastError     string
	session       string
	log           *log.Logger
}

// New creates a shell without modes. factory creates one backend per mode.
func New(factory BackendFactory, opts ...Option) *Shell {
	s := &Shell{
		factory: factory,
		modes:   make(map[string]*mode.Mode),
		session: uuid.New().String(),
		log:     logger.NewStyledLogger("Shell"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log.Debug("Shell created", "session", s.session)
	return s
}

// SessionID returns the unique id of this shell instance.
func (s *Shell) SessionID() string {
	return s.session
}

// AddMode creates and registers a mode. It fails with ErrModeExists if the
// name is already registered; existing modes are never overwritten.
func (s *Shell) AddMode(name, prompt string, opts ...mode.Option) (*mode.Mode, error) {
	if _, exists := s.modes[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrModeExists, name)
	}
	spec := mode.NewSpec(name, prompt, opts...)
	b, err := s.factory(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend for mode %s: %w", name, err)
	}
	m := mode.New(spec, b)
	s.modes[name] = m
	s.log.Debug("Mode added", "mode", name)
	return m, nil
}

// RemoveMode unregisters a mode and reports whether it existed. A mode that
// is still on the stack stays usable until popped; its backend is closed once
// it is neither registered nor on the stack.
func (s *Shell) RemoveMode(name string) bool {
	m, ok := s.modes[name]
	if !ok {
		return false
	}
	delete(s.modes, name)
	s.release(m)
	return true
}

// PushMode makes the named mode the active one. The same mode may appear on
// the stack more than once.
func (s *Shell) PushMode(name string) bool {
	m, ok := s.modes[name]
	if !ok {
		return false
	}
	s.stack = append(s.stack, m)
	s.log.Debug("Mode pushed", "mode", name, "depth", len(s.stack))
	return true
}

// PopMode removes the active mode from the stack. It returns false when the
// stack is empty.
func (s *Shell) PopMode() bool {
	if len(s.stack) == 0 {
		return false
	}
	top := s.stack[len(s.stack)-1]
	s.stack[len(s.stack)-1] = nil
	s.stack = s.stack[:len(s.stack)-1]
	s.log.Debug("Mode popped", "mode", top.Name(), "depth", len(s.stack))
	s.release(top)
	return true
}

// release closes m's backend when nothing references m anymore.
func (s *Shell) release(m *mode.Mode) {
	if registered, ok := s.modes[m.Name()]; ok && registered == m {
		return
	}
	for _, on := range s.stack {
		if on == m {
			return
		}
	}
	if err := m.Backend().Close(); err != nil {
		s.log.Warn("Failed to close backend", "mode", m.Name(), "error", err)
	}
}

// Mode returns the registered mode with the given name, or nil.
func (s *Shell) Mode(name string) *mode.Mode {
	return s.modes[name]
}

// Modes returns the names of all registered modes, sorted.
func (s *Shell) Modes() []string {
	names := make([]string, 0, len(s.modes))
	for name := range s.modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Depth returns the number of modes on the stack.
func (s *Shell) Depth() int {
	return len(s.stack)
}

// AddPreprocessor appends p to the preprocessor chain.
func (s *Shell) AddPreprocessor(p sashtypes.Preprocessor) {
	s.preprocessors = append(s.preprocessors, p)
}

// Process runs line through the preprocessor chain and dispatches the result
// to the active mode.
//
// An empty line is a Nop. Without an active mode the result is NoCommand. A
// preprocessor error aborts the chain with NoCommand; a preprocessor that
// returns an empty line consumed it and the result is Executed without
// dispatch. Any error is also recorded as the last error.
func (s *Shell) Process(line string) (sashtypes.Result, error) {
	if line == "" {
		return sashtypes.Nop, nil
	}
	s.lastError = ""

	if len(s.stack) == 0 {
		return s.finish("", line, sashtypes.NoCommand, ErrEmptyModeStack)
	}
	m := s.CurrentMode()

	input := line
	for _, p := range s.preprocessors {
		out, err := p.Preprocess(input)
		if err != nil {
			return s.finish(m.Name(), line, sashtypes.NoCommand, &PreprocessError{Err: err})
		}
		if out == "" {
			return s.finish(m.Name(), line, sashtypes.Executed, nil)
		}
		input = out
	}

	result, err := m.Execute(input)
	return s.finish(m.Name(), line, result, err)
}

func (s *Shell) finish(modeName, line string, result sashtypes.Result, err error) (sashtypes.Result, error) {
	if err != nil {
		s.lastError = err.Error()
		s.log.Debug("Dispatch", "session", s.session, "mode", modeName, "input", line, "result", result, "error", err)
	} else {
		s.log.Debug("Dispatch", "session", s.session, "mode", modeName, "input", line, "result", result)
	}
	for _, o := range s.observers {
		o(modeName, result, err)
	}
	return result, err
}

// ReadLine reads a line from the active mode's backend with surrounding
// whitespace removed. It returns io.EOF at the end of input.
func (s *Shell) ReadLine() (string, error) {
	if !s.HasActiveMode() {
		return "", ErrNoActiveMode
	}
	b := s.CurrentMode().Backend()
	b.Reset()
	line, err := b.ReadLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadChar reads a single character from the active mode's backend.
func (s *Shell) ReadChar() (rune, error) {
	if !s.HasActiveMode() {
		return 0, ErrNoActiveMode
	}
	b := s.CurrentMode().Backend()
	b.Reset()
	return b.ReadChar()
}

// AppendToHistory records entry in the active mode's history and persists
// it. It returns false when there is no active mode.
func (s *Shell) AppendToHistory(entry string) bool {
	if !s.HasActiveMode() {
		return false
	}
	b := s.CurrentMode().Backend()
	b.HistoryEnter(entry)
	if err := b.HistorySave(); err != nil {
		s.log.Warn("Failed to save history", "mode", s.CurrentMode().Name(), "error", err)
	}
	return true
}

// LastError returns the message of the most recent failure of Process. It is
// cleared by every Process call with a non-empty line.
func (s *Shell) LastError() string {
	return s.lastError
}

// HasActiveMode reports whether the stack is non-empty.
func (s *Shell) HasActiveMode() bool {
	return len(s.stack) > 0
}

// CurrentMode returns the active mode. It panics if HasActiveMode is false.
func (s *Shell) CurrentMode() *mode.Mode {
	return s.stack[len(s.stack)-1]
}

// Close closes the backends of all modes, persisting their history, and
// empties the stack.
func (s *Shell) Close() error {
	seen := make(map[*mode.Mode]bool)
	var errs []error
	closeMode := func(m *mode.Mode) {
		if seen[m] {
			return
		}
		seen[m] = true
		if err := m.Backend().Close(); err != nil {
			errs = append(errs, fmt.Errorf("mode %s: %w", m.Name(), err))
		}
	}
	for _, name := range s.Modes() {
		closeMode(s.modes[name])
	}
	for _, m := range s.stack {
		closeMode(m)
	}
	s.stack = nil
	s.modes = make(map[string]*mode.Mode)
	return errors.Join(errs...)
}
