// Package completion provides the per-mode completion context: a flat set of
// candidate strings plus a single callback that turns the candidates matching
// a prefix into the text inserted on the command line.
package completion

import (
	"slices"
	"strings"

	"github.com/Neverlord/sash/pkg/sashtypes"
)

// Callback receives the prefix typed so far and the candidates starting with
// it. A non-empty return value is inserted at the cursor.
type Callback func(prefix string, matches []string) string

// Registry stores completion candidates in insertion order.
type Registry struct {
	candidates []string
	callback   Callback
}

// NewRegistry creates an empty registry without a callback.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a candidate. Returns false if it was already present.
func (r *Registry) Add(candidate string) bool {
	if slices.Contains(r.candidates, candidate) {
		return false
	}
	r.candidates = append(r.candidates, candidate)
	return true
}

// Remove unregisters a candidate. Returns true if it existed.
func (r *Registry) Remove(candidate string) bool {
	i := slices.Index(r.candidates, candidate)
	if i < 0 {
		return false
	}
	r.candidates = slices.Delete(r.candidates, i, i+1)
	return true
}

// Replace swaps the whole candidate set.
func (r *Registry) Replace(candidates []string) {
	r.candidates = slices.Clone(candidates)
}

// Candidates returns a copy of the registered candidates.
func (r *Registry) Candidates() []string {
	return slices.Clone(r.candidates)
}

// OnCompletion installs the completion callback, replacing any previous one.
func (r *Registry) OnCompletion(cb Callback) {
	r.callback = cb
}

// Matches returns the candidates starting with prefix, in insertion order.
func (r *Registry) Matches(prefix string) []string {
	var matches []string
	for _, c := range r.candidates {
		if strings.HasPrefix(c, prefix) {
			matches = append(matches, c)
		}
	}
	return matches
}

// Complete runs the callback over the candidates matching prefix.
func (r *Registry) Complete(prefix string) (string, sashtypes.CompletionResult) {
	if r.callback == nil {
		return "", sashtypes.NoCompletion
	}
	if len(r.candidates) == 0 {
		return "", sashtypes.NotFound
	}
	return r.callback(prefix, r.Matches(prefix)), sashtypes.Completed
}

// CommonPrefixSuffix is a Callback that extends prefix up to the longest
// common prefix of all matches.
func CommonPrefixSuffix(prefix string, matches []string) string {
	lcp := LongestCommonPrefix(matches)
	if len(lcp) <= len(prefix) {
		return ""
	}
	return lcp[len(prefix):]
}

// LongestCommonPrefix returns the longest byte prefix shared by all items.
func LongestCommonPrefix(items []string) string {
	if len(items) == 0 {
		return ""
	}
	prefix := items[0]
	for _, it := range items[1:] {
		n := 0
		for n < len(prefix) && n < len(it) && prefix[n] == it[n] {
			n++
		}
		prefix = prefix[:n]
		if prefix == "" {
			break
		}
	}
	return prefix
}
