package l5k

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParenDelta(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"()", 0},
		{"(a(b)", 1},
		{"a)b)", -2},
		{`("(((")`, 0},          // parens inside a string are ignored
		{`("\"(")`, 0},          // backslash escapes an embedded quote
		{`TAG (Description := "say (hi)"`, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parenDelta(tt.input), "input: %s", tt.input)
	}
}

func TestFirstOutsideParens(t *testing.T) {
	tests := []struct {
		input  string
		target string
		want   int
	}{
		{"a := 5;", ":=", 2},
		{"(a;b);", ";", 5},
		{"'a;b';c", ";", 5},
		{`"a$"b";c`, ";", 6}, // $ escapes the embedded quote
		{"[;];", ";", 3},
		{")]};", ";", 3}, // depth clamps at zero
		{"([;", ";", -1},
		{"{a;b}", ";", -1},
		{"no terminator", ";", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, firstOutsideParens(tt.input, tt.target),
			"input: %s target: %s", tt.input, tt.target)
	}
}

// firstOutsideParens must never report a hit inside a quoted string or a
// nested group, balanced or not.
func TestFirstOutsideParensDepthSafety(t *testing.T) {
	inputs := []string{
		`(;)`,
		`[[;]`,
		`"; ;" (;) ';'`,
		`($";");`,
	}
	for _, in := range inputs {
		idx := firstOutsideParens(in, ";")
		if idx == -1 {
			continue
		}
		// Re-scan up to idx: depth must be zero and no quote open.
		depth, inSQ, inDQ, esc := 0, false, false, false
		for i := 0; i < idx; i++ {
			ch := in[i]
			if inSQ || inDQ {
				switch {
				case esc:
					esc = false
				case ch == '$':
					esc = true
				case inSQ && ch == '\'':
					inSQ = false
				case inDQ && ch == '"':
					inDQ = false
				}
				continue
			}
			switch ch {
			case '\'':
				inSQ = true
			case '"':
				inDQ = true
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				if depth > 0 {
					depth--
				}
			}
		}
		assert.Zero(t, depth, "input: %s", in)
		assert.False(t, inSQ || inDQ, "input: %s", in)
	}
}

func TestSplitOuterAttrs(t *testing.T) {
	tests := []struct {
		input      string
		wantPrefix string
		wantAttrs  string
	}{
		{`Tag : DINT (Description := "d")`, "Tag : DINT", `Description := "d"`},
		{"Tag : DINT", "Tag : DINT", ""},
		{`PT : Timer(2) (Description := "t")`, "PT : Timer(2)", `Description := "t"`},
		{`X : DINT (A := (1,2)) extra`, "X : DINT", "A := (1,2)"},
		{"", "", ""},
	}
	for _, tt := range tests {
		prefix, attrs := splitOuterAttrs(tt.input)
		assert.Equal(t, tt.wantPrefix, prefix, "input: %s", tt.input)
		assert.Equal(t, tt.wantAttrs, attrs, "input: %s", tt.input)
	}
}

func TestEncodeString(t *testing.T) {
	assert.Equal(t, "$$price", EncodeString("$price"))
	assert.Equal(t, `a$"b`, EncodeString(`a"b`))
	assert.Equal(t, "it$'s", EncodeString("it's"))
	assert.Equal(t, "a$R$Nb", EncodeString("a\r\nb"))
}

func TestStringEscapingRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"plain",
		"$",
		"$$",
		`"`,
		"'",
		"\r", "\n", "\r\n",
		`mix $ of " all ' special` + "\r\n" + "chars $$",
		`$"$'$R$N`,
	}
	for _, s := range cases {
		assert.Equal(t, s, DecodeString(EncodeString(s)), "input: %q", s)
	}
}

func TestStripNamedAttrs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"leading",
			`P : DINT (DefaultData := 123, Description := "keep me");`,
			`P : DINT (Description := "keep me");`,
		},
		{
			"trailing",
			`P : DINT (Description := "keep me", DefaultData := 123);`,
			`P : DINT (Description := "keep me");`,
		},
		{
			"sole",
			`P : DINT (DefaultData := 123);`,
			`P : DINT ();`,
		},
		{
			"quoted value with comma",
			`P : DINT (DefaultData := "1,2", Description := "keep me");`,
			`P : DINT (Description := "keep me");`,
		},
		{
			"parenthesized value",
			`P : DINT (Description := "keep me", DefaultData := (1,2));`,
			`P : DINT (Description := "keep me");`,
		},
		{
			"absent",
			`P : DINT (Description := "keep me");`,
			`P : DINT (Description := "keep me");`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripNamedAttrs(tt.input, "DefaultData")
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "DefaultData")
		})
	}
}

func TestStripNamedAttrsCaseInsensitive(t *testing.T) {
	got := stripNamedAttrs(`P : DINT (defaultdata := 1);`, "DefaultData")
	assert.Equal(t, `P : DINT ();`, got)
}

func TestDescFrom(t *testing.T) {
	assert.Equal(t, "hello", descFrom(`X (Description := "hello", Y := 1)`))
	assert.Equal(t, "", descFrom("X (Y := 1)"))
}

func TestDedent(t *testing.T) {
	require.Equal(t, "a\n\tb", dedent("\t\ta\n\t\t\tb"))
	require.Equal(t, "a\nb", dedent("a\nb"))
	lines := dedentLines("\n\t\tName : BOOL (\n\t\t\tX := 1\n\t\t);\n")
	require.Equal(t, []string{"Name : BOOL (", "\tX := 1", ");"}, lines)
}
