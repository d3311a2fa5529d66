package l5k

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Hidden integer word members carry a fixed ten-character sentinel prefix on
// their name; the BIT aliases that follow address their bits.
const hiddenWordPrefix = "ZZZZZZZZZZ"

// bom is the UTF-8 byte order mark some exports carry on their first line.
const bom = "\uFEFF"

var (
	reHeaderOpen    = regexp.MustCompile(`^\(\*{5,}\s*$`)
	reHeaderClose   = regexp.MustCompile(`^\*{5,}\)\s*$`)
	reControllerHdr = regexp.MustCompile(`^CONTROLLER\s+([A-Za-z_]\w*)\s*(\(|$)`)

	// Type-first member line: "<type> <name>[dims]". The dims group captures
	// an array declarator attached to the name, separate from the base name.
	reTypeFirst = regexp.MustCompile(`^([A-Za-z_]\w*) ([A-Za-z_]\w*)(\[\d+(?:,\d+)*\])?`)
	reBitAlias  = regexp.MustCompile(`^BIT\s+(\w+)\s+(\w+)\s*:\s*(\d+)\b`)
	reFamily    = regexp.MustCompile(`(?i)\bFamilyType\s*:=\s*([A-Za-z_]\w*)`)

	// Full captured parameter/local-tag definition: name, declarator kind,
	// right-hand side, attribute interior.
	reParamDef = regexp.MustCompile(`(?s)^\s*(\w+)\s+(OF|:)\s+([\w.:]+)\s*\((.*)\)\s*;?\s*$`)
	reParam    = regexp.MustCompile(`^(\w+)\s+(?:OF|:)\s+([\w.]+)`)
	reLocalTag = regexp.MustCompile(`^(\w+)\s*:\s*(\w+)`)

	// Tag statement prefix: <name> [OF alias] : <type...>
	reTagPrefix = regexp.MustCompile(`(?s)^\s*([A-Za-z_][\w.]*)\s*(?:(?i:OF)\s+([A-Za-z_][\w.\[\]:]*))?\s*:\s*(.+?)\s*$`)

	reEncodedName = regexp.MustCompile(`Name\s*:=\s*"([^"]+)"`)
)

// Result is the output of one parse pass: the model plus the raw artifacts
// both exporters need (header text, controller header lines, original lines)
// and the correction log from semantic resolution.
type Result struct {
	Project               *Project
	ControllerHeaderLines []string
	ControllerName        string
	HeaderText            string
	Corrections           []string

	// DroppedStatements counts tag statements that did not match the
	// expected shape and were tolerated by dropping them from the model.
	DroppedStatements int

	lines []string // original source lines, retained for the filter exporter
}

// Restore rebuilds a Result around an existing model, as when loading a
// persisted project snapshot. The original source lines are gone, so the
// source-line filter exporter has nothing to walk; whitelist export is fully
// available.
func Restore(project *Project, headerText string, controllerHeaderLines []string, controllerName string) *Result {
	return &Result{
		Project:               project,
		ControllerHeaderLines: controllerHeaderLines,
		ControllerName:        controllerName,
		HeaderText:            headerText,
	}
}

// Parse reads vendor L5K text into a Result. Any well-formed UTF-8 input is
// accepted; unrecognized content is tolerated line by line, so even empty
// input yields an empty model rather than an error.
func Parse(src []byte) (*Result, error) {
	if !utf8.Valid(src) {
		return nil, &ParseError{Message: "input is not valid UTF-8 text"}
	}
	p := &parser{
		lines:   splitLines(string(src)),
		project: NewProject(),
	}
	p.parseHeader()
	p.parseStructures()
	p.corrections = append(p.corrections, ResolveBaseTypes(p.project)...)

	return &Result{
		Project:               p.project,
		ControllerHeaderLines: p.controllerHeaderLines,
		ControllerName:        p.controllerName,
		HeaderText:            p.headerText,
		Corrections:           p.corrections,
		DroppedStatements:     p.dropped,
		lines:                 p.lines,
	}, nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i, ln := range lines {
		lines[i] = strings.TrimSuffix(ln, "\r")
	}
	return lines
}

// sectionKind is the structural block the parser is currently inside. The
// parameter and local-tag sections exist only within an instruction
// definition, so they are variants of the same enumeration rather than
// independent flags.
type sectionKind int

const (
	secNone sectionKind = iota
	secDataType
	secInstruction
	secInstructionParams
	secInstructionLocals
)

func (s sectionKind) inInstruction() bool {
	return s == secInstruction || s == secInstructionParams || s == secInstructionLocals
}

// parseMode is the active context of the line scanner.
type parseMode struct {
	inController bool
	inTags       bool   // controller-level TAG section
	program      string // current program name, "" when outside PROGRAM
	inProgTags   bool   // TAG section inside the current program
	section      sectionKind
}

type parser struct {
	lines   []string
	project *Project

	corrections []string
	dropped     int

	controllerHeaderLines []string
	controllerName        string
	headerText            string
}

// parseHeader extracts the file header block. The block spans from the first
// line matching the open delimiter through the first line matching the close
// delimiter, plus the two lines after the close, clamped to end of input.
// A missing open delimiter means no header, which is not an error.
func (p *parser) parseHeader() {
	n := len(p.lines)
	start := -1
	for i, ln := range p.lines {
		s := strings.TrimSpace(strings.TrimPrefix(ln, bom))
		if reHeaderOpen.MatchString(s) {
			start = i
			break
		}
	}
	if start == -1 {
		return
	}
	end := start // malformed header still includes the open line
	for j := start; j < n; j++ {
		s := strings.TrimSpace(strings.TrimPrefix(p.lines[j], bom))
		if reHeaderClose.MatchString(s) {
			end = j
			break
		}
	}
	endInclusive := end + 2
	if endInclusive > n-1 {
		endInclusive = n - 1
	}
	p.headerText = strings.Join(p.lines[start:endInclusive+1], "\n")
	p.project.Header = &Header{Content: p.headerText}
}

// captureBlock gathers a member/parameter definition starting at line start,
// up to and including the line where paren depth returns to zero and the
// trailing content ends with ';'. Single-line definitions are returned as-is.
func (p *parser) captureBlock(start int) (string, int) {
	n := len(p.lines)
	acc := []string{p.lines[start]}
	j := start + 1

	first := strings.TrimSpace(p.lines[start])
	if strings.HasSuffix(first, ");") ||
		(!strings.Contains(first, "(") && strings.HasSuffix(first, ";")) {
		return strings.Trim(dedent(strings.Join(acc, "\n")), "\n"), j
	}

	depth := parenDelta(p.lines[start])
	for j < n {
		lineJ := p.lines[j]
		acc = append(acc, lineJ)
		depth += parenDelta(lineJ)
		if depth == 0 && strings.HasSuffix(strings.TrimSpace(lineJ), ";") {
			j++
			break
		}
		j++
	}
	return strings.Trim(dedent(strings.Join(acc, "\n")), "\n"), j
}

// captureControllerHeader captures the CONTROLLER keyword line and, when an
// attribute group is present (opening on the same line or the next), every
// line until the group balances.
func (p *parser) captureControllerHeader(i int) (header []string, next int, name string) {
	n := len(p.lines)
	first := p.lines[i]
	header = []string{first}

	if m := reControllerHdr.FindStringSubmatch(strings.TrimSpace(first)); m != nil {
		name = m[1]
	}

	depth := parenDelta(first)
	j := i + 1
	if depth == 0 && j < n && strings.HasPrefix(strings.TrimLeft(p.lines[j], " \t"), "(") {
		header = append(header, p.lines[j])
		depth += parenDelta(p.lines[j])
		j++
	}
	for j < n && depth > 0 {
		header = append(header, p.lines[j])
		depth += parenDelta(p.lines[j])
		j++
	}
	return header, j, name
}

func extractBlockName(headerLine, keyword string) string {
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(keyword) + `\s+([^\s(]+)`)
	if m := re.FindStringSubmatch(headerLine); m != nil {
		return m[1]
	}
	return ""
}

func (p *parser) parseStructures() {
	n := len(p.lines)
	i := 0

	st := parseMode{}
	var curType *DataType
	var curInstr *Instruction
	var tagBuf, progTagBuf stmtBuffer

	for i < n {
		raw := p.lines[i]
		s := strings.TrimSpace(raw)
		if s == "" {
			i++
			continue
		}

		// Controller open/close and tag section toggles.
		if strings.HasPrefix(s, "CONTROLLER") {
			st.inController = true
			if p.controllerHeaderLines == nil {
				hdr, j, name := p.captureControllerHeader(i)
				p.controllerHeaderLines = hdr
				p.controllerName = name
				i = j
				continue
			}
			i++
			continue
		}
		if strings.HasPrefix(s, "END_CONTROLLER") {
			st.inController = false
			i++
			continue
		}

		if st.inController && st.program == "" && s == "TAG" {
			st.inTags = true
			tagBuf.reset()
			i++
			continue
		}
		if st.inController && st.program == "" && s == "END_TAG" {
			if tagBuf.pending() {
				p.emitTag(tagBuf.flush())
			} else {
				tagBuf.reset()
			}
			st.inTags = false
			i++
			continue
		}

		if st.program != "" && s == "TAG" {
			st.inProgTags = true
			progTagBuf.reset()
			i++
			continue
		}
		if st.program != "" && s == "END_TAG" {
			if st.inProgTags && progTagBuf.pending() {
				p.emitProgramTag(st.program, progTagBuf.flush())
			} else {
				progTagBuf.reset()
			}
			st.inProgTags = false
			i++
			continue
		}

		// Structural block transitions.
		if strings.HasPrefix(s, "DATATYPE") {
			hdrLines := []string{raw}
			j := i + 1
			depth := parenDelta(s)
			if depth > 0 {
				for j < n {
					hdrLines = append(hdrLines, p.lines[j])
					depth += parenDelta(p.lines[j])
					j++
					if depth <= 0 {
						break
					}
				}
			}
			trimmed := make([]string, len(hdrLines))
			for k, hl := range hdrLines {
				trimmed[k] = strings.TrimSpace(hl)
			}
			blob := strings.Join(trimmed, " ")

			if parenDelta(strings.Join(hdrLines, " ")) != 0 {
				p.corrections = append(p.corrections,
					"Unballanced parens in header starting at line "+strconv.Itoa(i+1))
			}

			name := extractBlockName(strings.TrimSpace(hdrLines[0]), "DATATYPE")
			if name == "" {
				i = j
				continue
			}
			curType = NewDataType(name)
			curType.Description = descFrom(blob)
			if m := reFamily.FindStringSubmatch(blob); m != nil {
				curType.FamilyType = m[1]
			}
			p.project.DataTypes.Set(name, curType)
			curInstr = nil
			st.section = secDataType
			i = j
			continue
		}
		if strings.HasPrefix(s, "END_DATATYPE") {
			st.section = secNone
			curType = nil
			i++
			continue
		}
		if strings.HasPrefix(s, "ADD_ON_INSTRUCTION_DEFINITION") {
			name := extractBlockName(s, "ADD_ON_INSTRUCTION_DEFINITION")
			if name == "" {
				i++
				continue
			}
			curInstr = NewInstruction(name)
			curInstr.Description = descFrom(s)
			p.project.Instructions.Set(name, curInstr)
			curType = nil
			st.section = secInstruction
			i++
			continue
		}
		if strings.HasPrefix(s, "END_ADD_ON_INSTRUCTION_DEFINITION") {
			st.section = secNone
			curInstr = nil
			i++
			continue
		}

		// Alternate encoded instruction header: name and description live in
		// a metadata block collected until the first line containing ')'.
		if strings.HasPrefix(s, "ENCODED_DATA") {
			metaLines := []string{raw}
			j := i + 1
			for j < n {
				metaLines = append(metaLines, p.lines[j])
				if strings.Contains(p.lines[j], ")") {
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
			if strings.Contains(blob, "EncodedType := ADD_ON_INSTRUCTION_DEFINITION") {
				if m := reEncodedName.FindStringSubmatch(blob); m != nil {
					curInstr = NewInstruction(m[1])
					curInstr.Description = descFrom(blob)
					p.project.Instructions.Set(m[1], curInstr)
					curType = nil
					st.section = secInstruction
				}
			}
			i = j
			continue
		}
		if strings.HasPrefix(s, "END_ENCODED_DATA") {
			st.section = secNone
			curInstr = nil
			i++
			continue
		}

		if strings.HasPrefix(s, "PROGRAM") {
			after := strings.TrimLeft(strings.TrimPrefix(s, "PROGRAM"), " \t")
			progName := after
			if idx := strings.IndexAny(progName, " \t"); idx != -1 {
				progName = progName[:idx]
			}
			if idx := strings.IndexByte(progName, '('); idx != -1 {
				progName = progName[:idx]
			}

			if progName != "" {
				desc := descFrom(raw)
				if existing, ok := p.project.Programs.Get(progName); ok {
					// Redundant program headers update the description only
					// when it was not already set.
					if existing.Description == "" && desc != "" {
						existing.Description = desc
					}
				} else {
					p.project.Programs.Set(progName, NewProgram(progName, desc))
				}
			}
			st.program = progName
			st.inProgTags = false
			i++
			continue
		}
		if strings.HasPrefix(s, "END_PROGRAM") {
			if st.inProgTags && progTagBuf.pending() && st.program != "" {
				p.emitProgramTag(st.program, progTagBuf.flush())
			} else {
				progTagBuf.reset()
			}
			st.program = ""
			st.inProgTags = false
			i++
			continue
		}

		// Incremental, multiline-safe tag statements.
		if st.program != "" && st.inProgTags {
			if progTagBuf.feed(s) {
				p.emitProgramTag(st.program, progTagBuf.flush())
			}
			i++
			continue
		}
		if st.inController && st.inTags {
			if tagBuf.feed(s) {
				p.emitTag(tagBuf.flush())
			}
			i++
			continue
		}

		// Section toggles inside an instruction definition.
		if st.section.inInstruction() {
			switch s {
			case "PARAMETERS":
				st.section = secInstructionParams
				i++
				continue
			case "END_PARAMETERS":
				st.section = secInstruction
				i++
				continue
			case "LOCAL_TAGS":
				st.section = secInstructionLocals
				i++
				continue
			case "END_LOCAL_TAGS":
				st.section = secInstruction
				i++
				continue
			}
		}

		switch {
		case st.section == secDataType && curType != nil:
			if next, ok := p.parseTypeMember(curType, s, i); ok {
				i = next
				continue
			}
			i++
			continue

		case st.section == secInstructionParams && curInstr != nil:
			if m := reParam.FindStringSubmatch(s); m != nil {
				def, next := p.captureBlock(i)
				def = stripNamedAttrs(def, "DefaultData")
				curInstr.AddParameter(&InstructionParameter{
					Name:        m[1],
					DataType:    m[2],
					Description: descFrom(def),
					Definition:  def,
				})
				i = next
				continue
			}
			i++
			continue

		case st.section == secInstructionLocals && curInstr != nil:
			if m := reLocalTag.FindStringSubmatch(s); m != nil {
				def, next := p.captureBlock(i)
				def = stripNamedAttrs(def, "DefaultData")
				curInstr.AddLocalTag(&InstructionLocalTag{
					Name:        m[1],
					DataType:    m[2],
					Description: descFrom(def),
					Definition:  def,
				})
				i = next
				continue
			}
			i++
			continue
		}

		// Routine bodies and anything else the model does not represent.
		i++
	}
}

// parseTypeMember tries the three member line shapes in order: hidden word,
// BIT alias, general type-first. Returns the next line index and whether a
// shape matched.
func (p *parser) parseTypeMember(dt *DataType, s string, i int) (int, bool) {
	// Hidden integer word acting as parent for following BIT aliases.
	if m := reTypeFirst.FindStringSubmatch(s); m != nil &&
		m[1] == "SINT" && strings.HasPrefix(m[2], hiddenWordPrefix) {
		name := m[2]
		def, next := p.captureBlock(i)
		if member, ok := dt.Members.Get(name); ok {
			// Placeholder created earlier by a BIT alias; update in place.
			member.DataType = "SINT"
			member.Definition = strings.TrimSpace(def)
			member.IsHiddenParent = true
		} else {
			member := NewDataTypeMember(name, "SINT")
			member.Description = descFrom(def)
			member.Definition = strings.TrimSpace(def)
			member.IsHiddenParent = true
			dt.AddMember(member)
		}
		return next, true
	}

	// BIT alias: "BIT <alias> <word> : <bit>;"
	if m := reBitAlias.FindStringSubmatch(s); m != nil {
		alias, word := m[1], m[2]
		bit, _ := strconv.Atoi(m[3])
		def, next := p.captureBlock(i)

		child := NewDataTypeMember(alias, "BOOL")
		child.Description = descFrom(def)
		child.Definition = strings.TrimSpace(def)
		child.IsBit = true
		child.ParentWord = word
		child.BitIndex = bit
		dt.AddMember(child)

		parent, ok := dt.Members.Get(word)
		if !ok {
			parent = NewDataTypeMember(word, "SINT")
			parent.Description = descFrom(def)
			parent.IsHiddenParent = true
			dt.AddMember(parent)
		}
		parent.AddChild(child)
		return next, true
	}

	// General type-first member.
	if m := reTypeFirst.FindStringSubmatch(s); m != nil {
		def, next := p.captureBlock(i)
		member := NewDataTypeMember(m[2], m[1])
		member.Description = descFrom(def)
		member.Definition = strings.TrimSpace(def)
		member.NameDims = m[3]
		dt.AddMember(member)
		return next, true
	}
	return 0, false
}

// parseTagFields splits an accumulated tag statement into its fields. The
// top-level assignment operator and everything after it are discarded (the
// runtime value), as is anything at or after a top-level comma before the
// assignment (force data). Program-level tags additionally strip a
// parenthesized suffix attached directly to the type token.
func parseTagFields(stmt string, stripParenFromType bool) (name, dataType, desc, definition string, ok bool) {
	s := strings.TrimSpace(stmt)

	left := s
	if idx := firstOutsideParens(s, ":="); idx != -1 {
		left = strings.TrimRight(s[:idx], " \t")
	}
	if idx := firstOutsideParens(left, ","); idx != -1 {
		left = strings.TrimRight(left[:idx], " \t")
	}

	prefix, attrs := splitOuterAttrs(left)

	m := reTagPrefix.FindStringSubmatch(prefix)
	if m == nil {
		return "", "", "", "", false
	}
	name = m[1]
	dataType = strings.TrimSpace(m[3])
	if stripParenFromType {
		if idx := strings.IndexByte(dataType, '('); idx != -1 {
			dataType = strings.TrimSpace(dataType[:idx])
		}
	}
	if attrs != "" {
		desc = descFrom(attrs)
	}

	definition = prefix
	if attrs != "" {
		definition = prefix + " (" + attrs + ")"
	}
	if !strings.HasSuffix(definition, ";") {
		definition = strings.TrimRight(definition, " \t") + ";"
	}
	return name, dataType, desc, definition, true
}

func (p *parser) emitTag(stmt string) {
	name, dataType, desc, definition, ok := parseTagFields(stmt, false)
	if !ok {
		p.dropped++
		return
	}
	p.project.Tags.Set(name, &Tag{
		Name:        name,
		DataType:    dataType,
		Description: desc,
		Definition:  definition,
	})
}

func (p *parser) emitProgramTag(programName, stmt string) {
	prog, ok := p.project.Programs.Get(programName)
	if !ok {
		return
	}
	name, dataType, desc, definition, fieldsOK := parseTagFields(stmt, true)
	if !fieldsOK {
		p.dropped++
		return
	}
	prog.Tags.Set(name, &Tag{
		Name:        name,
		DataType:    dataType,
		Description: desc,
		Definition:  definition,
	})
}
