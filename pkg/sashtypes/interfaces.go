package sashtypes

// Handler executes a command. It receives the part of the input line that was
// not consumed by command names and returns a result code. A non-nil error
// describes the failure and is surfaced by the shell as its last error.
type Handler interface {
	Handle(args string) (Result, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(args string) (Result, error)

// Handle calls f(args).
func (f HandlerFunc) Handle(args string) (Result, error) {
	return f(args)
}

// Preprocessor rewrites an input line before it reaches the command tree.
// A non-nil error aborts processing. An empty output with a nil error means
// the preprocessor consumed the line and dispatch stops successfully.
type Preprocessor interface {
	Preprocess(input string) (string, error)
}

// PreprocessorFunc adapts an ordinary function to the Preprocessor interface.
type PreprocessorFunc func(input string) (string, error)

// Preprocess calls f(input).
func (f PreprocessorFunc) Preprocess(input string) (string, error) {
	return f(input)
}

// Completer resolves a prefix typed on the command line into a string that
// gets spliced into the input at the cursor.
type Completer interface {
	Complete(prefix string) (string, CompletionResult)
}

// Backend is the line-editing collaborator owned by every mode. It performs
// the blocking reads and keeps the per-mode prompt and history.
type Backend interface {
	// ReadLine blocks until a full line is available. It returns io.EOF
	// when the input is exhausted.
	ReadLine() (string, error)
	// ReadChar blocks until a single character is available. It returns
	// io.EOF when the input is exhausted.
	ReadChar() (rune, error)
	// Reset re-syncs terminal state before a read.
	Reset()

	SetPrompt(text string, color string)
	AddToPrompt(text string, color string)
	Prompt() string

	HistoryEnter(entry string)
	HistorySave() error
	HistoryLoad() error

	// SetCompleter wires the backend's completion key to c.
	SetCompleter(c Completer)

	// Close releases the backend and persists its history.
	Close() error
}
