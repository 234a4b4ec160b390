// Package app assembles the sash demo shell: a default mode with builtin
// commands, a vars mode that echoes expanded input, and a variable
// substitution preprocessor in front of both.
package app

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Neverlord/sash/internal/backend"
	"github.com/Neverlord/sash/internal/color"
	"github.com/Neverlord/sash/internal/command"
	"github.com/Neverlord/sash/internal/completion"
	"github.com/Neverlord/sash/internal/config"
	"github.com/Neverlord/sash/internal/history"
	"github.com/Neverlord/sash/internal/logger"
	"github.com/Neverlord/sash/internal/mode"
	"github.com/Neverlord/sash/internal/shell"
	"github.com/Neverlord/sash/internal/variables"
	"github.com/Neverlord/sash/pkg/sashtypes"
)

// Mode names of the demo shell.
const (
	DefaultMode = "default"
	VarsMode    = "vars"
)

// App is the demo shell.
type App struct {
	cfg     *config.Config
	shell   *shell.Shell
	vars    *variables.Engine
	out     io.Writer
	errOut  io.Writer
	palette *color.Palette
	done    bool
}

// Options wires an App to its environment.
type Options struct {
	// Factory creates the backend of each mode.
	Factory shell.BackendFactory
	// Out receives command output; ErrOut receives error messages.
	Out    io.Writer
	ErrOut io.Writer
	// Palette renders error messages. Defaults to a palette for ErrOut.
	Palette *color.Palette
	// ShellOptions are passed to the shell, e.g. observers.
	ShellOptions []shell.Option
}

// New builds the demo shell and activates the default mode.
func New(cfg *config.Config, opts Options) (*App, error) {
	bindings := maps.Clone(cfg.Variables)
	if bindings == nil {
		bindings = make(map[string]string)
	}
	if cfg.VariablesFile != "" {
		loaded, err := variables.LoadBindings(cfg.VariablesFile)
		if err != nil {
			return nil, err
		}
		maps.Copy(bindings, loaded)
	}

	palette := opts.Palette
	if palette == nil {
		palette = color.New(opts.ErrOut)
	}

	a := &App{
		cfg:     cfg,
		vars:    variables.NewWithBindings(bindings),
		out:     opts.Out,
		errOut:  opts.ErrOut,
		palette: palette,
	}
	a.shell = shell.New(opts.Factory, opts.ShellOptions...)
	a.shell.AddPreprocessor(a.vars)

	if err := a.addDefaultMode(); err != nil {
		return nil, err
	}
	if err := a.addVarsMode(); err != nil {
		return nil, err
	}
	a.shell.PushMode(DefaultMode)
	return a, nil
}

// Shell returns the underlying shell.
func (a *App) Shell() *shell.Shell {
	return a.shell
}

// Variables returns the variable engine used as preprocessor.
func (a *App) Variables() *variables.Engine {
	return a.vars
}

// Done reports whether quit was executed.
func (a *App) Done() bool {
	return a.done
}

func (a *App) modeOptions(name string) []mode.Option {
	return []mode.Option{
		mode.WithHistoryFile(a.cfg.HistoryFile(name)),
		mode.WithHistorySize(a.cfg.HistorySize),
		mode.WithHistoryUnique(a.cfg.HistoryUnique),
	}
}

func (a *App) addDefaultMode() error {
	opts := append(a.modeOptions(DefaultMode), mode.WithPromptColor(a.cfg.PromptColor))
	m, err := a.shell.AddMode(DefaultMode, a.cfg.Prompt, opts...)
	if err != nil {
		return err
	}
	a.addCommon(m)
	m.AddFunc("echo", "prints its arguments", a.echo)

	vars := m.Add("vars", "manages variables")
	vars.On(a.usage(vars))
	vars.AddFunc("set", "binds a variable: vars set <name> <value>", a.varsSet)
	vars.AddFunc("unset", "removes a variable: vars unset <name>", a.varsUnset)
	vars.AddFunc("list", "lists all variables", a.varsList)
	vars.AddFunc("dump", "prints all variables as YAML", a.varsDump)
	return nil
}

func (a *App) addVarsMode() error {
	opts := append(a.modeOptions(VarsMode), mode.WithPromptColor("cyan"))
	m, err := a.shell.AddMode(VarsMode, "vars> ", opts...)
	if err != nil {
		return err
	}
	a.addCommon(m)
	m.OnUnknownCommand(a.echo)
	return nil
}

// addCommon registers the commands available in every mode.
func (a *App) addCommon(m *mode.Mode) {
	m.OnComplete(completion.CommonPrefixSuffix)
	m.AddAll([]mode.Clause{
		{Name: "help", Description: "displays this help text", Handler: a.help},
		{Name: "quit", Description: "terminates the shell", Handler: a.quit},
		{Name: "history", Description: "prints the history of this mode", Handler: a.history},
	})

	modeCmd := m.Add("mode", "manages the mode stack")
	modeCmd.On(a.usage(modeCmd))
	modeCmd.AddFunc("push", "enters a mode: mode push <name>", a.modePush)
	modeCmd.AddFunc("pop", "leaves the current mode", a.modePop)
	modeCmd.AddFunc("list", "lists all modes", a.modeList)
}

// usage returns the handler of a command group. Without arguments it prints
// the group's help; anything else is an unknown sub-command.
func (a *App) usage(group *command.Node) sashtypes.HandlerFunc {
	return func(args string) (sashtypes.Result, error) {
		if args != "" {
			token, _, _ := strings.Cut(args, " ")
			return sashtypes.NoCommand, fmt.Errorf("%s: unknown sub-command %q", group.AbsoluteName(), token)
		}
		fmt.Fprintf(a.out, "Usage of %s:\n%s", group.AbsoluteName(), group.Help(2))
		return sashtypes.Executed, nil
	}
}

func (a *App) help(string) (sashtypes.Result, error) {
	fmt.Fprintf(a.out, "Commands of mode %s:\n%s", a.shell.CurrentMode().Name(), a.shell.CurrentMode().Help(2))
	return sashtypes.Executed, nil
}

func (a *App) quit(string) (sashtypes.Result, error) {
	a.done = true
	return sashtypes.Executed, nil
}

func (a *App) echo(args string) (sashtypes.Result, error) {
	fmt.Fprintln(a.out, args)
	return sashtypes.Executed, nil
}

func (a *App) history(string) (sashtypes.Result, error) {
	h, ok := a.shell.CurrentMode().Backend().(interface{ History() *history.Log })
	if !ok {
		return sashtypes.Executed, nil
	}
	for i, e := range h.History().Entries() {
		fmt.Fprintf(a.out, "%4d  %s\n", i+1, e)
	}
	return sashtypes.Executed, nil
}

func (a *App) modePush(args string) (sashtypes.Result, error) {
	name := strings.TrimSpace(args)
	if name == "" {
		return sashtypes.NoCommand, errors.New("mode push: missing mode name")
	}
	if !a.shell.PushMode(name) {
		return sashtypes.NoCommand, fmt.Errorf("mode push: unknown mode %q", name)
	}
	return sashtypes.Executed, nil
}

func (a *App) modePop(string) (sashtypes.Result, error) {
	if a.shell.Depth() <= 1 {
		return sashtypes.NoCommand, errors.New("mode pop: cannot leave the last mode")
	}
	a.shell.PopMode()
	return sashtypes.Executed, nil
}

func (a *App) modeList(string) (sashtypes.Result, error) {
	active := a.shell.CurrentMode().Name()
	for _, name := range a.shell.Modes() {
		marker := " "
		if name == active {
			marker = "*"
		}
		fmt.Fprintf(a.out, "%s %s\n", marker, name)
	}
	return sashtypes.Executed, nil
}

func (a *App) varsSet(args string) (sashtypes.Result, error) {
	name, value, _ := strings.Cut(strings.TrimSpace(args), " ")
	if !variables.ValidName(name) {
		return sashtypes.NoCommand, fmt.Errorf("vars set: invalid variable name %q", name)
	}
	a.vars.Set(name, value)
	return sashtypes.Executed, nil
}

func (a *App) varsUnset(args string) (sashtypes.Result, error) {
	name := strings.TrimSpace(args)
	if _, ok := a.vars.Get(name); !ok {
		return sashtypes.NoCommand, fmt.Errorf("vars unset: no such variable %q", name)
	}
	a.vars.Unset(name)
	return sashtypes.Executed, nil
}

func (a *App) varsList(string) (sashtypes.Result, error) {
	bindings := a.vars.Bindings()
	for _, name := range slices.Sorted(maps.Keys(bindings)) {
		fmt.Fprintf(a.out, "%s=%s\n", name, bindings[name])
	}
	return sashtypes.Executed, nil
}

func (a *App) varsDump(string) (sashtypes.Result, error) {
	data, err := yaml.Marshal(a.vars.Bindings())
	if err != nil {
		return sashtypes.NoCommand, fmt.Errorf("vars dump: %w", err)
	}
	_, _ = a.out.Write(data)
	return sashtypes.Executed, nil
}

// report prints the shell's last error.
func (a *App) report() {
	if msg := a.shell.LastError(); msg != "" {
		fmt.Fprintln(a.errOut, a.palette.Render(msg, "red"))
	}
}

// Run is the interactive read-eval loop. It ends on quit or end of input.
func (a *App) Run() error {
	logger.Info("Starting interactive shell", "session", a.shell.SessionID())
	for !a.done {
		line, err := a.shell.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		a.shell.AppendToHistory(line)
		if result, _ := a.shell.Process(line); result == sashtypes.NoCommand {
			a.report()
		}
	}
	return nil
}

// RunBatch processes every line of r. Lines starting with # are comments. It
// stops at the first failing line unless keepGoing is set, and returns an
// error naming the first failure.
func (a *App) RunBatch(r io.Reader, keepGoing bool) error {
	logger.Info("Starting batch run", "session", a.shell.SessionID())
	var firstErr error
	src := backend.NewScript(r, backend.Options{Palette: a.palette})
	lineNo := 0
	for !a.done {
		raw, err := src.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to read script: %w", err)
			}
			break
		}
		lineNo++
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if result, _ := a.shell.Process(line); result == sashtypes.NoCommand {
			a.report()
			if firstErr == nil {
				firstErr = fmt.Errorf("line %d: %s", lineNo, a.shell.LastError())
			}
			if !keepGoing {
				break
			}
		}
	}
	return firstErr
}

// Close closes the shell, persisting the history of every mode.
func (a *App) Close() error {
	return a.shell.Close()
}
