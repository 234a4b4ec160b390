// Package command implements the hierarchical command namespace of a mode.
// A command is a recursive element of zero or more space-separated names;
// each node carries a description for the generated help and an optional
// handler for input that does not name one of its children.
package command

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/Neverlord/sash/internal/completion"
	"github.com/Neverlord/sash/pkg/sashtypes"
)

// NotFoundError is returned when no command matches the input and no
// handler can take it.
type NotFoundError struct {
	Token string
}

func (e *NotFoundError) Error() string {
	return e.Token + ": command not found"
}

// Node is a named command in a command tree. Each node owns its children and
// keeps a back-reference to its parent for computing its absolute name.
type Node struct {
	parent      *Node
	completer   *completion.Registry
	children    []*Node
	name        string
	description string
	handler     sashtypes.Handler
}

// NewRoot creates the root of a command tree. The root's name is never part
// of an absolute name and is not registered as a completion.
func NewRoot(name string, completer *completion.Registry) *Node {
	if completer == nil {
		completer = completion.NewRegistry()
	}
	return &Node{
		completer: completer,
		name:      name,
	}
}

// Add creates a sub-command. Returns nil if name is empty or already taken by
// a sibling. The new command's absolute name followed by a space is
// registered with the completion registry.
func (n *Node) Add(name, description string) *Node {
	if name == "" || n.Child(name) != nil {
		return nil
	}
	child := &Node{
		parent:      n,
		completer:   n.completer,
		name:        name,
		description: description,
	}
	n.children = append(n.children, child)
	n.completer.Add(child.AbsoluteName() + " ")
	return child
}

// AddFunc creates a sub-command with a handler function.
func (n *Node) AddFunc(name, description string, fn sashtypes.HandlerFunc) *Node {
	child := n.Add(name, description)
	if child != nil && fn != nil {
		child.SetHandler(fn)
	}
	return child
}

// AddCopy creates a sub-command with the name, description and handler of
// other. Children of other are not copied.
func (n *Node) AddCopy(other *Node) *Node {
	child := n.Add(other.name, other.description)
	if child != nil {
		child.handler = other.handler
	}
	return child
}

// SetHandler replaces the handler of this command.
func (n *Node) SetHandler(h sashtypes.Handler) {
	n.handler = h
}

// On replaces the handler of this command with a function.
func (n *Node) On(fn sashtypes.HandlerFunc) {
	if fn == nil {
		n.handler = nil
		return
	}
	n.handler = fn
}

// Handler returns the handler of this command, or nil.
func (n *Node) Handler() sashtypes.Handler {
	return n.handler
}

// Name returns the name of this command.
func (n *Node) Name() string {
	return n.name
}

// Description returns the one-line description of this command.
func (n *Node) Description() string {
	return n.description
}

// Parent returns the parent command, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the direct sub-commands in insertion order.
func (n *Node) Children() []*Node {
	return n.children
}

// Child returns the direct sub-command with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// IsRoot reports whether this command has no parent.
func (n *Node) IsRoot() bool {
	return n.parent == nil
}

// IsLeaf reports whether this command has no sub-commands.
func (n *Node) IsLeaf() bool {
	return len(n.children) == 0
}

// AbsoluteName returns the space-separated path from the root to this
// command. The root has no name.
func (n *Node) AbsoluteName() string {
	if n.IsRoot() {
		return ""
	}
	var names []string
	for i := n; !i.IsRoot(); i = i.parent {
		names = append(names, i.name)
	}
	var sb strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		sb.WriteString(names[i])
		if i > 0 {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// Help returns one line per direct sub-command: the name padded to the
// longest sibling name, two spaces and the description.
func (n *Node) Help(indent int) string {
	if len(n.children) == 0 {
		return ""
	}
	width := 0
	for _, c := range n.children {
		width = max(width, runewidth.StringWidth(c.name))
	}
	padding := strings.Repeat(" ", max(indent, 0))
	var sb strings.Builder
	for _, c := range n.children {
		sb.WriteString(padding)
		sb.WriteString(runewidth.FillRight(c.name, width))
		sb.WriteString("  ")
		sb.WriteString(c.description)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Execute dispatches input to the matching sub-command. The first token is
// compared against the names of the direct children; on an exact match the
// rest of the input is dispatched to that child. Otherwise the handler of
// this command receives the whole input.
func (n *Node) Execute(input string) (sashtypes.Result, error) {
	if n.IsRoot() && input == "" {
		return sashtypes.Nop, nil
	}
	token, rest, _ := strings.Cut(input, " ")
	if child := n.Child(token); child != nil {
		return child.Execute(rest)
	}
	if n.handler != nil {
		return n.handler.Handle(input)
	}
	return sashtypes.NoCommand, &NotFoundError{Token: token}
}
