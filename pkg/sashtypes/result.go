// Package sashtypes defines the core types shared by the sash packages:
// dispatch result codes, completion result codes and the capability
// interfaces implemented by command handlers, preprocessors and backends.
package sashtypes

// Result is the return code of a command dispatch. Each dispatch either
// executes a handler, performs a NOP because no input was provided, or fails
// because no command matched.
type Result int

const (
	// Executed - a handler ran, or a preprocessor fully consumed the line
	Executed Result = iota
	// Nop - valid no-op, e.g. an empty line
	Nop
	// NoCommand - dispatch failed: no match, empty mode stack or preprocessor error
	NoCommand
)

// String returns a human-readable representation of the result code.
func (r Result) String() string {
	switch r {
	case Executed:
		return "executed"
	case Nop:
		return "nop"
	case NoCommand:
		return "no_command"
	default:
		return "unknown"
	}
}

// CompletionResult is the return code of a completion request.
type CompletionResult int

const (
	// Completed - the completion callback produced a result
	Completed CompletionResult = iota
	// NotFound - there are no candidates to complete from
	NotFound
	// NoCompletion - no completion callback is installed
	NoCompletion
)

// String returns a human-readable representation of the completion result.
func (c CompletionResult) String() string {
	switch c {
	case Completed:
		return "completed"
	case NotFound:
		return "not_found"
	case NoCompletion:
		return "no_completion"
	default:
		return "unknown"
	}
}
