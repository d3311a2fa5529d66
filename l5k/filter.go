package l5k

import (
	"regexp"
	"strings"
)

var reTagNameLead = regexp.MustCompile(`^([\w.]+)\s*:\s*`)

// filterState tracks which structural block the filter walk is inside.
type filterState struct {
	inController bool
	inRoutine    bool
	inTags       bool
	inUDT        bool
	inAOI        bool
	inParams     bool
	inLocals     bool
	currentUDT   string
	currentAOI   string
	program      string
	inProgTags   bool
}

// filterWalk holds the per-block output buffer. Lines are buffered while a
// block is open and emitted at block close only when at least one line was
// marked kept; a block with zero kept lines vanishes entirely, header and
// footer included.
type filterWalk struct {
	out        []string
	blockLines []string
	kept       int
}

func (w *filterWalk) open(lines ...string) {
	w.blockLines = append(w.blockLines[:0], lines...)
	w.kept = 0
}

func (w *filterWalk) add(line string)  { w.blockLines = append(w.blockLines, line) }
func (w *filterWalk) keep(line string) { w.blockLines = append(w.blockLines, line); w.kept++ }

func (w *filterWalk) flush(endLine string) {
	w.blockLines = append(w.blockLines, endLine)
	if w.kept > 0 {
		w.out = append(w.out, w.blockLines...)
	}
	w.blockLines = nil
	w.kept = 0
}

// ExportFiltered walks the original source lines after the header, block by
// block, suppressing unselected entities and stripped attributes while
// passing everything outside recognized blocks through verbatim. Routine
// bodies are always elided. Unlike the whitelist renderer, a container whose
// members were all suppressed produces no output at all.
func (r *Result) ExportFiltered(sel Selection) string {
	sel = sel.Normalize()
	headerText, body := r.headerAndBody()

	w := &filterWalk{}
	if headerText != "" {
		w.out = append(w.out, headerText)
	}

	st := filterState{}
	skipUntilStmtEnd := false

	i := 0
	n := len(body)
	for i < n {
		line := body[i]
		s := strings.TrimSpace(line)

		// Source lines already replaced by an injected captured definition.
		if skipUntilStmtEnd {
			if strings.HasSuffix(s, ");") || (!strings.Contains(s, "(") && strings.HasSuffix(s, ";")) {
				skipUntilStmtEnd = false
			}
			i++
			continue
		}

		// Routine bodies are never exported.
		if st.inRoutine {
			if strings.HasPrefix(s, "END_ROUTINE") {
				st.inRoutine = false
			}
			i++
			continue
		}
		if strings.HasPrefix(s, "ROUTINE") {
			st.inRoutine = true
			i++
			continue
		}

		if strings.HasPrefix(s, "CONTROLLER") {
			st.inController = true
			if len(r.ControllerHeaderLines) > 0 {
				w.out = append(w.out, r.ControllerHeaderLines...)
				i += len(r.ControllerHeaderLines)
				continue
			}
			w.out = append(w.out, line)
			i++
			continue
		}
		if strings.HasPrefix(s, "END_CONTROLLER") {
			st.inController = false
			if !strings.Contains(s, "DefaultData :=") {
				w.out = append(w.out, line)
			}
			i++
			continue
		}

		// Program blocks are buffered like any other block: a program with
		// no kept tags disappears.
		if strings.HasPrefix(s, "PROGRAM") {
			name := strings.TrimLeft(strings.TrimPrefix(s, "PROGRAM"), " \t")
			if idx := strings.IndexAny(name, " \t("); idx != -1 {
				name = name[:idx]
			}
			st.program = name
			st.inProgTags = false
			w.open(line)
			i++
			continue
		}
		if strings.HasPrefix(s, "END_PROGRAM") {
			w.flush(line)
			st.program = ""
			st.inProgTags = false
			i++
			continue
		}

		if st.program != "" {
			i = r.filterProgramLine(w, &st, sel, line, s, i)
			continue
		}

		// Controller-level tag section.
		if st.inController && s == "TAG" {
			st.inTags = true
			w.open(line)
			i++
			continue
		}
		if st.inController && s == "END_TAG" {
			w.flush(line)
			st.inTags = false
			i++
			continue
		}
		if st.inController && st.inTags {
			if m := reTagNameLead.FindStringSubmatch(s); m != nil {
				if sel.Tags.Has(m[1]) {
					// Rebuild from the model's clean, value-free definition.
					indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
					if tag, ok := r.Project.Tags.Get(m[1]); ok && tag.Definition != "" {
						for _, dl := range strings.Split(tag.Definition, "\n") {
							w.keep(indent + dl)
						}
					} else {
						prefix := s
						if idx := firstOutsideParens(s, ":="); idx != -1 {
							prefix = strings.TrimRight(s[:idx], " \t")
						}
						w.keep(indent + prefix + ";")
					}
				}
			}
			// Original tag lines, selected or not, are never emitted raw.
			i++
			continue
		}

		// Type definition blocks.
		if strings.HasPrefix(s, "DATATYPE") {
			st.inUDT = true
			st.currentUDT = extractBlockName(s, "DATATYPE")
			header := line
			if dt, ok := r.Project.DataTypes.Get(st.currentUDT); ok {
				header = dt.headerLine(Indent)
			}
			w.open(header)
			i++
			continue
		}
		if strings.HasPrefix(s, "END_DATATYPE") {
			w.flush(line)
			st.inUDT = false
			st.currentUDT = ""
			i++
			continue
		}

		// Instruction definition blocks, both header styles.
		if strings.HasPrefix(s, "ADD_ON_INSTRUCTION_DEFINITION") {
			st.inAOI = true
			st.currentAOI = extractBlockName(s, "ADD_ON_INSTRUCTION_DEFINITION")
			st.inParams = false
			st.inLocals = false
			w.open(line)
			i++
			continue
		}
		if strings.HasPrefix(s, "END_ADD_ON_INSTRUCTION_DEFINITION") {
			w.flush(line)
			st.inAOI = false
			st.currentAOI = ""
			st.inParams = false
			st.inLocals = false
			i++
			continue
		}
		if strings.HasPrefix(s, "ENCODED_DATA") {
			metaLines := []string{line}
			j := i + 1
			for j < n {
				metaLines = append(metaLines, body[j])
				if strings.Contains(body[j], ")") {
					j++
					break
				}
				j++
			}
			trimmed := make([]string, len(metaLines))
			for k, ml := range metaLines {
				trimmed[k] = strings.TrimSpace(ml)
			}
			blob := strings.Join(trimmed, " ")
			st.currentAOI = ""
			if strings.Contains(blob, "EncodedType := ADD_ON_INSTRUCTION_DEFINITION") {
				if m := reEncodedName.FindStringSubmatch(blob); m != nil {
					st.currentAOI = m[1]
				}
			}
			st.inAOI = true
			st.inParams = false
			st.inLocals = false
			w.open(metaLines...)
			i = j
			continue
		}
		if strings.HasPrefix(s, "END_ENCODED_DATA") {
			w.flush(line)
			st.inAOI = false
			st.currentAOI = ""
			st.inParams = false
			st.inLocals = false
			i++
			continue
		}

		if st.inUDT && st.currentUDT != "" {
			r.filterUDTLine(w, &st, sel, line, s)
			i++
			continue
		}

		if st.inAOI && st.currentAOI != "" {
			var skip bool
			skip = r.filterAOILine(w, &st, sel, line, s)
			if skip {
				skipUntilStmtEnd = true
			}
			i++
			continue
		}

		// Outside any recognized block: pass through verbatim, except lines
		// carrying runtime default data.
		if !strings.Contains(s, "DefaultData :=") {
			w.out = append(w.out, line)
		}
		i++
	}

	return strings.Join(w.out, "\n")
}

// headerAndBody returns the header text and the source lines from the first
// CONTROLLER line after the header onward.
func (r *Result) headerAndBody() (string, []string) {
	if r.HeaderText == "" {
		return "", r.lines
	}
	headerLen := len(strings.Split(r.HeaderText, "\n"))
	start := headerLen
	for k := headerLen; k < len(r.lines); k++ {
		if strings.HasPrefix(strings.TrimSpace(r.lines[k]), "CONTROLLER") {
			start = k
			break
		}
	}
	if start > len(r.lines) {
		start = len(r.lines)
	}
	return r.HeaderText, r.lines[start:]
}

// filterProgramLine handles one line inside a PROGRAM block. Returns the next
// line index.
func (r *Result) filterProgramLine(w *filterWalk, st *filterState, sel Selection, line, s string, i int) int {
	switch s {
	case "TAG":
		st.inProgTags = true
		w.add(line)
		return i + 1
	case "END_TAG":
		st.inProgTags = false
		w.add(line)
		return i + 1
	}

	if st.inProgTags {
		if m := reTagNameLead.FindStringSubmatch(s); m != nil {
			selTags := sel.ProgramTags[st.program]
			if selTags.Has(m[1]) {
				indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
				prog, ok := r.Project.Programs.Get(st.program)
				if ok {
					if tag, tagOK := prog.Tags.Get(m[1]); tagOK && tag.Definition != "" {
						for _, dl := range strings.Split(tag.Definition, "\n") {
							w.keep(indent + dl)
						}
						return i + 1
					}
				}
				prefix := s
				if idx := firstOutsideParens(s, ":="); idx != -1 {
					prefix = strings.TrimRight(s[:idx], " \t")
				}
				w.keep(indent + prefix + ";")
			}
		}
		return i + 1
	}

	if !strings.Contains(s, "DefaultData :=") {
		w.add(line)
	}
	return i + 1
}

// filterUDTLine decides whether one member line of an open DATATYPE block is
// kept. A type selected as a whole keeps every member; otherwise only
// selected members and hidden words backing a selected bit alias survive.
func (r *Result) filterUDTLine(w *filterWalk, st *filterState, sel Selection, line, s string) {
	memberName := ""
	if m := reTypeFirst.FindStringSubmatch(s); m != nil {
		memberName = m[2]
	}
	if memberName == "" {
		if m := reTagNameLead.FindStringSubmatch(s); m != nil {
			memberName = m[1]
		}
	}
	if m := reBitAlias.FindStringSubmatch(s); m != nil {
		memberName = m[1]
	}

	if memberName != "" {
		membersSel := sel.DataTypeMembers[st.currentUDT]
		if sel.DataTypes.Has(st.currentUDT) && len(membersSel) == 0 {
			w.keep(line)
			return
		}
		if membersSel.Has(memberName) || r.hiddenWordKept(st.currentUDT, memberName, membersSel) {
			w.keep(line)
			return
		}
	}
	w.add(line)
}

// hiddenWordKept reports whether memberName is a hidden word whose selected
// bit-alias children require it to be retained.
func (r *Result) hiddenWordKept(udtName, memberName string, membersSel StringSet) bool {
	dt, ok := r.Project.DataTypes.Get(udtName)
	if !ok {
		return false
	}
	parent, ok := dt.Members.Get(memberName)
	if !ok || parent.Children.Len() == 0 {
		return false
	}
	for _, c := range parent.Children.Names() {
		if membersSel.Has(c) {
			return true
		}
	}
	return false
}

// filterAOILine handles one line of an open instruction definition block.
// When a parameter or local tag line is recognized, the stored captured
// definition replaces the original source lines; the return value tells the
// caller to skip source lines up to the statement terminator.
func (r *Result) filterAOILine(w *filterWalk, st *filterState, sel Selection, line, s string) (skip bool) {
	switch s {
	case "PARAMETERS":
		st.inParams = true
		st.inLocals = false
		w.add(line)
		return false
	case "END_PARAMETERS":
		st.inParams = false
		w.add(line)
		return false
	case "LOCAL_TAGS":
		st.inLocals = true
		st.inParams = false
		w.add(line)
		return false
	case "END_LOCAL_TAGS":
		st.inLocals = false
		w.add(line)
		return false
	}

	instr, _ := r.Project.Instructions.Get(st.currentAOI)
	// Whether the statement terminates on this source line; a multi-line
	// statement needs its remaining source lines skipped whenever the first
	// line is replaced or suppressed.
	ended := strings.HasSuffix(s, ");") || (!strings.Contains(s, "(") && strings.HasSuffix(s, ";"))

	if st.inParams {
		if m := reParam.FindStringSubmatch(s); m != nil {
			if sel.Parameters[st.currentAOI].Has(m[1]) && instr != nil {
				if param, ok := instr.Parameters.Get(m[1]); ok && param.Definition != "" {
					for _, dl := range strings.Split(param.Definition, "\n") {
						w.keep(dl)
					}
					return !ended
				}
				w.keep(line)
				return false
			}
			// Unselected parameter: suppress its whole statement.
			return !ended
		}
		w.add(line)
		return false
	}

	if st.inLocals {
		if m := reLocalTag.FindStringSubmatch(s); m != nil {
			if sel.LocalTags[st.currentAOI].Has(m[1]) && instr != nil {
				if local, ok := instr.LocalTags.Get(m[1]); ok && local.Definition != "" {
					for _, dl := range strings.Split(local.Definition, "\n") {
						w.keep(dl)
					}
					return !ended
				}
				w.keep(line)
				return false
			}
			return !ended
		}
		w.add(line)
		return false
	}

	w.add(line)
	return false
}
