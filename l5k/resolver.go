package l5k

import (
	"fmt"
	"regexp"
	"strings"
)

// Primitive base types a resolution chain terminates at.
var baseTypes = map[string]bool{
	"BOOL": true,
	"SINT": true,
	"INT":  true,
	"DINT": true,
	"LINT": true,
	"REAL": true,
}

// Integer word types whose individual bits can back a boolean parameter.
var wordTypes = map[string]bool{
	"SINT": true,
	"INT":  true,
	"DINT": true,
	"LINT": true,
}

// ResolveBaseTypes is the second pass over all instruction parameters whose
// declared type is a dotted path. Each resolvable path is rewritten to its
// concrete base type, the first line of the captured definition is updated to
// a ": <type>" declarator, and a correction entry is logged. Unresolvable
// paths are left unchanged. Running the pass again produces no further
// corrections, since resolved types are recognized as base types.
func ResolveBaseTypes(p *Project) []string {
	var log []string
	p.Instructions.Each(func(_ string, instr *Instruction) {
		instr.Parameters.Each(func(_ string, param *InstructionParameter) {
			original := param.DataType
			if !strings.Contains(original, ".") {
				return
			}
			visited := make(map[string]bool)
			base := findBaseType(p, original, instr, visited)
			if base == "" || base == original {
				return
			}
			param.DataType = base
			param.IsCorrected = true
			if base == "BOOL" {
				param.IsBitAlias = true
			}
			if param.Definition != "" {
				param.Definition = rewriteDeclarator(param.Definition, param.Name, base)
			}
			log = append(log, fmt.Sprintf("Corrected %s.%s: from %q to %q",
				instr.Name, param.Name, original, base))
		})
	})
	return log
}

// findBaseType follows local-tag and parameter indirection chains down to a
// primitive type. The visited set guards against instruction definitions that
// reference each other's parameters circularly; on a revisit the path is
// returned unresolved.
func findBaseType(p *Project, path string, ctx *Instruction, visited map[string]bool) string {
	if baseTypes[path] {
		return path
	}
	root, member, found := strings.Cut(path, ".")
	if !found {
		return path
	}

	key := ctx.Name + "\x00" + path
	if visited[key] {
		return path
	}
	visited[key] = true

	if local, ok := ctx.LocalTags.Get(root); ok {
		// A purely numeric member addresses a single bit of a word-typed
		// local tag.
		if isDigits(member) && wordTypes[strings.ToUpper(local.DataType)] {
			return "BOOL"
		}
		// Composition: the local tag's type names another instruction
		// definition whose parameter carries the real type.
		if parent, ok := p.Instructions.Get(local.DataType); ok {
			if pp, ok := parent.Parameters.Get(member); ok {
				return findBaseType(p, pp.DataType, parent, visited)
			}
		}
	}
	return path
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// rewriteDeclarator replaces the "OF <path>" or ": <type>" declarator on the
// first line of a captured definition with ": <base>". The attribute body on
// subsequent lines is untouched.
func rewriteDeclarator(definition, name, base string) string {
	lines := strings.Split(definition, "\n")
	re := regexp.MustCompile(`^(\s*` + regexp.QuoteMeta(name) + `)\s+(?:OF\s+[\w.]+|:\s*[\w.]+)`)
	lines[0] = re.ReplaceAllString(lines[0], "${1} : "+base)
	return strings.Join(lines, "\n")
}
