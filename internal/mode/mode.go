// Package mode implements a command-line context with its own commands,
// completions, prompt and history.
package mode

import (
	"github.com/Neverlord/sash/internal/command"
	"github.com/Neverlord/sash/internal/completion"
	"github.com/Neverlord/sash/internal/logger"
	"github.com/Neverlord/sash/pkg/sashtypes"
)

// Default settings of a mode.
const (
	DefaultPrompt      = ">"
	DefaultHistorySize = 1000
)

// Spec describes a mode before it exists. Backend factories receive it to
// configure the backend owned by the mode.
type Spec struct {
	Name          string
	Prompt        string
	PromptColor   string
	HistoryFile   string
	HistorySize   int
	HistoryUnique bool
}

// Option configures a Spec.
type Option func(*Spec)

// WithPromptColor sets the color tag of the prompt.
func WithPromptColor(tag string) Option {
	return func(s *Spec) {
		s.PromptColor = tag
	}
}

// WithHistoryFile sets the file the mode's history is persisted to.
func WithHistoryFile(path string) Option {
	return func(s *Spec) {
		s.HistoryFile = path
	}
}

// WithHistorySize bounds the number of history entries.
func WithHistorySize(n int) Option {
	return func(s *Spec) {
		s.HistorySize = n
	}
}

// WithHistoryUnique toggles suppression of consecutive duplicate entries.
func WithHistoryUnique(unique bool) Option {
	return func(s *Spec) {
		s.HistoryUnique = unique
	}
}

// NewSpec builds a Spec from a name, a prompt and options.
func NewSpec(name, prompt string, opts ...Option) Spec {
	s := Spec{
		Name:          name,
		Prompt:        prompt,
		HistorySize:   DefaultHistorySize,
		HistoryUnique: true,
	}
	if s.Prompt == "" {
		s.Prompt = DefaultPrompt
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Clause describes one command for AddAll.
type Clause struct {
	Name        string
	Description string
	Handler     sashtypes.HandlerFunc
}

// Mode composes a command tree, a completion registry and a backend.
type Mode struct {
	root        *command.Node
	completer   *completion.Registry
	backend     sashtypes.Backend
	historyFile string
}

// New creates a mode owning backend b. The backend's prompt is set from the
// spec, its completion key is wired to the mode's registry and, if a history
// file is configured, the history is loaded.
func New(spec Spec, b sashtypes.Backend) *Mode {
	reg := completion.NewRegistry()
	m := &Mode{
		root:        command.NewRoot(spec.Name, reg),
		completer:   reg,
		backend:     b,
		historyFile: spec.HistoryFile,
	}
	b.SetPrompt(spec.Prompt, spec.PromptColor)
	b.SetCompleter(reg)
	if spec.HistoryFile != "" {
		if err := b.HistoryLoad(); err != nil {
			logger.Warn("Failed to load history", "mode", spec.Name, "file", spec.HistoryFile, "error", err)
		}
	}
	return m
}

// Add adds a top-level command to this mode.
func (m *Mode) Add(name, description string) *command.Node {
	return m.root.Add(name, description)
}

// AddFunc adds a top-level command with a handler.
func (m *Mode) AddFunc(name, description string, fn sashtypes.HandlerFunc) *command.Node {
	return m.root.AddFunc(name, description, fn)
}

// AddAll adds every command in clauses. Clauses whose name is empty or
// already taken are skipped.
func (m *Mode) AddAll(clauses []Clause) {
	for _, c := range clauses {
		m.AddFunc(c.Name, c.Description, c.Handler)
	}
}

// OnUnknownCommand sets the handler for input that matches no command.
func (m *Mode) OnUnknownCommand(fn sashtypes.HandlerFunc) {
	m.root.On(fn)
}

// OnComplete sets the completion callback.
func (m *Mode) OnComplete(cb completion.Callback) {
	m.completer.OnCompletion(cb)
}

// AddCompletion registers an extra completion candidate.
func (m *Mode) AddCompletion(candidate string) bool {
	return m.completer.Add(candidate)
}

// ReplaceCompletions replaces all completion candidates.
func (m *Mode) ReplaceCompletions(candidates []string) {
	m.completer.Replace(candidates)
}

// Execute dispatches a command line to the mode's command tree.
func (m *Mode) Execute(line string) (sashtypes.Result, error) {
	return m.root.Execute(line)
}

// Help returns the help text for the mode's top-level commands.
func (m *Mode) Help(indent int) string {
	return m.root.Help(indent)
}

// Name returns the mode's name.
func (m *Mode) Name() string {
	return m.root.Name()
}

// Root returns the root of the mode's command tree.
func (m *Mode) Root() *command.Node {
	return m.root
}

// Completer returns the mode's completion registry.
func (m *Mode) Completer() *completion.Registry {
	return m.completer
}

// Backend returns the backend owned by this mode.
func (m *Mode) Backend() sashtypes.Backend {
	return m.backend
}

// Prompt returns the rendered prompt.
func (m *Mode) Prompt() string {
	return m.backend.Prompt()
}

// SetPrompt replaces the prompt.
func (m *Mode) SetPrompt(text, tag string) {
	m.backend.SetPrompt(text, tag)
}

// HistoryFile returns the file the mode's history is persisted to.
func (m *Mode) HistoryFile() string {
	return m.historyFile
}
