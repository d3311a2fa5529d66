package l5k

import (
	"fmt"
	"regexp"
	"strings"
)

var reDescription = regexp.MustCompile(`(?is)Description\s*:=\s*"([^"]*)"`)

// parenDelta returns the net count of '(' minus ')' on one line, ignoring
// parentheses inside double-quoted strings. A backslash inside the string
// escapes the following character.
func parenDelta(line string) int {
	delta := 0
	inStr := false
	esc := false
	for _, ch := range line {
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '(':
			delta++
		case ')':
			delta--
		}
	}
	return delta
}

// firstOutsideParens returns the byte index of the first occurrence of target
// that sits outside (), [], {} and outside both single- and double-quoted
// strings. Inside a quoted string a '$' escapes the next character. Returns
// -1 when no such occurrence exists.
func firstOutsideParens(s, target string) int {
	depth := 0
	inSQ := false
	inDQ := false
	esc := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inSQ {
			switch {
			case esc:
				esc = false
			case ch == '$':
				esc = true
			case ch == '\'':
				inSQ = false
			}
			continue
		}
		if inDQ {
			switch {
			case esc:
				esc = false
			case ch == '$':
				esc = true
			case ch == '"':
				inDQ = false
			}
			continue
		}
		switch ch {
		case '\'':
			inSQ = true
			continue
		case '"':
			inDQ = true
			continue
		case '(', '[', '{':
			depth++
			continue
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth == 0 && strings.HasPrefix(s[i:], target) {
			return i
		}
	}
	return -1
}

// splitOuterAttrs splits a statement prefix that ends with a single balanced
// parenthesized attribute group. It returns the text before the group and the
// group interior. When no trailing group exists it returns the input and "".
func splitOuterAttrs(left string) (prefix, attrs string) {
	s := strings.TrimRight(left, " \t")
	if idx := strings.LastIndexByte(s, ')'); idx != -1 {
		s = s[:idx+1]
	}
	if !strings.HasSuffix(s, ")") {
		return left, ""
	}
	depth := 0
	start := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			if depth == 0 {
				start = i
			}
			depth++
		case ')':
			depth--
		}
	}
	if start != -1 && depth == 0 {
		return strings.TrimRight(s[:start], " \t"), s[start+1 : len(s)-1]
	}
	return left, ""
}

// EncodeString escapes a value for use inside an L5K string literal.
// '$' is the escape character, so it is doubled first.
func EncodeString(s string) string {
	out := strings.ReplaceAll(s, "$", "$$")
	out = strings.ReplaceAll(out, `"`, `$"`)
	out = strings.ReplaceAll(out, "'", "$'")
	out = strings.ReplaceAll(out, "\r", "$R")
	out = strings.ReplaceAll(out, "\n", "$N")
	return out
}

// DecodeString is the inverse of EncodeString. Unknown escape pairs are kept
// verbatim; a trailing lone '$' is kept as-is.
func DecodeString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '$' {
			sb.WriteByte(ch)
			continue
		}
		if i+1 >= len(s) {
			sb.WriteByte('$')
			break
		}
		i++
		switch s[i] {
		case '$':
			sb.WriteByte('$')
		case '"':
			sb.WriteByte('"')
		case '\'':
			sb.WriteByte('\'')
		case 'R', 'r':
			sb.WriteByte('\r')
		case 'N', 'n':
			sb.WriteByte('\n')
		default:
			sb.WriteByte('$')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// Attribute-stripping patterns for one named attribute, in three textual
// positions: preceded by a comma (covers "not last" and "last"), followed by
// a comma (attribute comes first), and sole attribute in the group. The value
// alternatives keep quoted and parenthesized values from being cut at an
// embedded comma.
type attrPatterns struct {
	lead  *regexp.Regexp
	trail *regexp.Regexp
	sole  *regexp.Regexp
}

func compileAttrPatterns(name string) attrPatterns {
	q := regexp.QuoteMeta(name)
	value := `(?:\([^)]*\)|"[^"]*"|[^,)]*)`
	return attrPatterns{
		lead:  regexp.MustCompile(`(?is),\s*` + q + `\s*:=\s*` + value + `\s*([,)])`),
		trail: regexp.MustCompile(`(?is)` + q + `\s*:=\s*` + value + `\s*,\s*`),
		sole:  regexp.MustCompile(`(?is)\(\s*` + q + `\s*:=\s*` + value + `\s*\)`),
	}
}

var defaultDataPatterns = compileAttrPatterns("DefaultData")

// stripNamedAttrs removes the named attributes from the parenthesized
// attribute list of a single-statement definition, case-insensitively.
// Overlapping attribute patterns can require re-matching, so each name is
// applied to a fixed point (at most two passes).
func stripNamedAttrs(definition string, names ...string) string {
	s := definition
	for _, name := range names {
		if !strings.Contains(strings.ToLower(s), strings.ToLower(name)) {
			continue
		}
		pats := defaultDataPatterns
		if !strings.EqualFold(name, "DefaultData") {
			pats = compileAttrPatterns(name)
		}
		for pass := 0; pass < 2; pass++ {
			next := pats.lead.ReplaceAllString(s, "$1")
			next = pats.trail.ReplaceAllString(next, "")
			next = pats.sole.ReplaceAllString(next, "()")
			if next == s {
				break
			}
			s = next
		}
	}
	return s
}

// descFrom extracts the Description attribute value from a text blob.
func descFrom(text string) string {
	if m := reDescription.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// dedent removes the longest common leading whitespace prefix from all
// non-blank lines of text.
func dedent(text string) string {
	lines := strings.Split(text, "\n")
	margin := ""
	first := true
	for _, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		indent := ln[:len(ln)-len(strings.TrimLeft(ln, " \t"))]
		if first {
			margin = indent
			first = false
			continue
		}
		i := 0
		for i < len(margin) && i < len(indent) && margin[i] == indent[i] {
			i++
		}
		margin = margin[:i]
	}
	if margin == "" {
		return text
	}
	for i, ln := range lines {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		lines[i] = strings.TrimPrefix(ln, margin)
	}
	return strings.Join(lines, "\n")
}

// dedentLines dedents a stored multi-line definition and returns its
// non-empty-trimmed lines, preserving relative indentation.
func dedentLines(defText string) []string {
	if defText == "" {
		return nil
	}
	return strings.Split(strings.Trim(dedent(defText), "\n"), "\n")
}

// indentLines prefixes every line with level copies of indent.
func indentLines(lines []string, level int, indent string) []string {
	pref := strings.Repeat(indent, level)
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		out = append(out, fmt.Sprintf("%s%s", pref, strings.TrimRight(ln, " \t")))
	}
	return out
}
