// Package color renders prompt text in one of a fixed set of named colors.
package color

import (
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// None leaves text uncolored.
const None = "none"

const boldPrefix = "bold_"

// ANSI color indexes of the named tags.
var tags = map[string]string{
	"black":   "0",
	"red":     "1",
	"green":   "2",
	"yellow":  "3",
	"blue":    "4",
	"magenta": "5",
	"cyan":    "6",
	"white":   "7",
}

// Palette renders tags for a particular output and its color profile.
type Palette struct {
	renderer *lipgloss.Renderer
}

// New creates a palette whose color profile is detected from w.
func New(w io.Writer) *Palette {
	return &Palette{renderer: lipgloss.NewRenderer(w)}
}

// NewWithProfile creates a palette with a fixed color profile.
func NewWithProfile(profile termenv.Profile) *Palette {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(profile)
	return &Palette{renderer: r}
}

// Profile returns the palette's color profile.
func (p *Palette) Profile() termenv.Profile {
	return p.renderer.ColorProfile()
}

// Render wraps text in the escape sequences for tag. Unknown tags, None and
// the empty tag return text unchanged, as does a palette without color support.
func (p *Palette) Render(text, tag string) string {
	if text == "" || p.Profile() == termenv.Ascii {
		return text
	}
	bold := strings.HasPrefix(tag, boldPrefix)
	code, ok := tags[strings.TrimPrefix(tag, boldPrefix)]
	if !ok {
		return text
	}
	style := p.renderer.NewStyle().Foreground(lipgloss.Color(code))
	if bold {
		style = style.Bold(true)
	}
	return style.Render(text)
}

// Valid reports whether tag names a known color.
func Valid(tag string) bool {
	if tag == "" || tag == None {
		return true
	}
	_, ok := tags[strings.TrimPrefix(tag, boldPrefix)]
	return ok
}

// Names returns every known tag, sorted.
func Names() []string {
	names := []string{None}
	for name := range tags {
		names = append(names, name, boldPrefix+name)
	}
	sort.Strings(names)
	return names
}
