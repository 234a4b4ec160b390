package variables

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Substitution(t *testing.T) {
	e := NewWithBindings(map[string]string{
		"x":     "hello",
		"user":  "alice",
		"empty": "",
		"_v1":   "one",
	})

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare variable", "$x", "hello"},
		{"braced variable", "${x}", "hello"},
		{"plain text", "no variables here", "no variables here"},
		{"embedded", "echo $x world", "echo hello world"},
		{"adjacent", "$x$user", "helloalice"},
		{"braced suffix", "${x}world", "helloworld"},
		{"name ends at non-identifier", "$x-$user.", "hello-alice."},
		{"underscore and digits", "[$_v1]", "[one]"},
		{"unbound bare", "a${nope}b", "ab"},
		{"unbound braced", "${nope}", ""},
		{"empty value", "<$empty>", "<>"},
		{"escaped dollar", `echo \$x`, `echo \$x`},
		{"escaped braced", `\${x} $x`, `\${x} hello`},
		{"equals inside text", "a b=c", "a b=c"},
		{"leading equals", "=x", "=x"},
		{"variable before equals", "$x=1", "hello=1"},
		{"closing brace outside variable", "$x}", "hello}"},
		{"empty braced name", "${}", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := e.Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, out)
		})
	}
}

func TestEngine_SetThenParse(t *testing.T) {
	e := New()
	e.Set("x", "hello")

	out, err := e.Parse("$x")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestEngine_UnboundBracedIsEmpty(t *testing.T) {
	e := New()
	out, err := e.Parse("${x}")
	assert.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestEngine_SyntaxErrors(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		message string
	}{
		{"dangling dollar", "$", "syntax error at position 1: $ at end of line"},
		{"dangling dollar after text", "echo $", "syntax error at position 6: $ at end of line"},
		{"double dollar", "$$", "syntax error at position 1: $$ is not a valid expression"},
		{"missing brace", "${abc", "syntax error at position 5: missing '}' at end of line"},
		{"invalid char in braces", "${a b}", "syntax error at position 3: ' ' is an invalid character inside ${...}"},
		{"dollar in braces", "${a$}", "syntax error at position 3: '$' is an invalid character inside ${...}"},
		{"unexpected after dollar", "$-x", "syntax error at position 1: unexpected character '-' after $"},
		{"space after dollar", "cost $ 5", "syntax error at position 6: unexpected character ' ' after $"},
		{"multibyte after dollar", "$é", "syntax error at position 1: unexpected character 'é' after $"},
		{"multibyte in braces", "${é}", "syntax error at position 2: 'é' is an invalid character inside ${...}"},
		{"multibyte inside name", "${aé}", "syntax error at position 3: 'é' is an invalid character inside ${...}"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewWithBindings(map[string]string{"a": "1"})
			out, err := e.Parse(tc.input)
			require.Error(t, err)
			assert.Equal(t, tc.message, err.Error())
			assert.Empty(t, out, "output must be cleared on error")

			var se *SyntaxError
			assert.True(t, errors.As(err, &se))
		})
	}
}

func TestEngine_ErrorClearsPartialOutput(t *testing.T) {
	e := NewWithBindings(map[string]string{"x": "hello"})
	out, err := e.Parse("echo $x and $$")
	require.Error(t, err)
	assert.Empty(t, out)
}

func TestEngine_Assignment(t *testing.T) {
	e := New()
	e.Set("y", "z")

	out, err := e.Parse("x=$y")
	require.NoError(t, err)
	assert.Empty(t, out, "assignments produce no output")

	v, ok := e.Get("x")
	require.True(t, ok)
	assert.Equal(t, "z", v)

	out2, err := e.Parse("$x")
	require.NoError(t, err)
	assert.Equal(t, "z", out2)
}

func TestEngine_AssignmentCapturesCurrentValue(t *testing.T) {
	e := New()
	e.Set("b", "first")

	_, err := e.Parse("a=$b")
	require.NoError(t, err)
	e.Set("b", "second")

	out, err := e.Parse("$a")
	require.NoError(t, err)
	assert.Equal(t, "first", out)
}

func TestEngine_AssignmentForms(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		key   string
		value string
	}{
		{"empty value", "x=", "x", ""},
		{"second equals is value", "x=1=2", "x", "1=2"},
		{"spaces in value", "greeting=hello big world", "greeting", "hello big world"},
		{"braced value", "path=${home}/bin", "path", "/home/alice/bin"},
		{"digits and underscores", "_a1=v", "_a1", "v"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewWithBindings(map[string]string{"home": "/home/alice"})
			out, err := e.Parse(tc.input)
			require.NoError(t, err)
			assert.Empty(t, out)

			v, ok := e.Get(tc.key)
			require.True(t, ok)
			assert.Equal(t, tc.value, v)
		})
	}
}

func TestEngine_ReassignmentOverwrites(t *testing.T) {
	e := New()
	_, err := e.Parse("x=1")
	require.NoError(t, err)
	_, err = e.Parse("x=2")
	require.NoError(t, err)

	v, _ := e.Get("x")
	assert.Equal(t, "2", v)
}

func TestEngine_FailedAssignmentIsNotCommitted(t *testing.T) {
	e := NewWithBindings(map[string]string{"x": "old"})

	out, err := e.Parse("x=${broken")
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Equal(t, "syntax error at position 10: missing '}' at end of line", err.Error())

	v, _ := e.Get("x")
	assert.Equal(t, "old", v)

	_, err = e.Parse("y=$")
	require.Error(t, err)
	_, ok := e.Get("y")
	assert.False(t, ok)
}

func TestEngine_NotAnAssignment(t *testing.T) {
	e := New()
	for _, input := range []string{"a-b=c", "a b=c", "=c", "$a=c"} {
		_, err := e.Parse(input)
		require.NoError(t, err, input)
	}
	assert.Empty(t, e.Bindings())
}

func TestEngine_Expand(t *testing.T) {
	e := NewWithBindings(map[string]string{"y": "z"})

	out, err := e.Expand("x=$y")
	require.NoError(t, err)
	assert.Equal(t, "x=z", out)

	_, ok := e.Get("x")
	assert.False(t, ok, "expansion never assigns")
}

func TestEngine_Unset(t *testing.T) {
	e := NewWithBindings(map[string]string{"x": "1"})
	e.Unset("x")
	e.Unset("missing")

	out, err := e.Parse("[$x]")
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestEngine_BindingsIsACopy(t *testing.T) {
	e := NewWithBindings(map[string]string{"x": "1"})
	b := e.Bindings()
	b["x"] = "changed"

	v, _ := e.Get("x")
	assert.Equal(t, "1", v)
}

func TestNewPreprocessor(t *testing.T) {
	predef := map[string]string{"user": "alice"}
	p1 := NewPreprocessor(predef)
	p2 := NewPreprocessor(predef)
	predef["user"] = "mallory"

	out, err := p1.Preprocess("hi $user")
	require.NoError(t, err)
	assert.Equal(t, "hi alice", out)

	out, err = p1.Preprocess("user=bob")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = p1.Preprocess("hi $user")
	require.NoError(t, err)
	assert.Equal(t, "hi bob", out)

	out, err = p2.Preprocess("hi $user")
	require.NoError(t, err)
	assert.Equal(t, "hi alice", out, "each preprocessor owns a private engine")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Traverse", traverse.String())
	assert.Equal(t, "AfterDollar", afterDollar.String())
	assert.Equal(t, "ReadVariable", readVariable.String())
	assert.Equal(t, "ReadBracedVariable", readBracedVariable.String())
	assert.Equal(t, "Unknown", state(42).String())
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("user_1"))
	assert.True(t, ValidName("9"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("a-b"))
	assert.False(t, ValidName("a b"))
}
