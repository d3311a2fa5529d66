package l5k

import (
	"fmt"
	"strings"
)

// ExportWhitelist builds a clean L5K file purely from the model: header,
// controller header, selected type definitions (restricted to selected
// members), instruction definitions touched by the selection, the controller
// tag section, program tag blocks, and a closing END_CONTROLLER. Entities not
// reachable through the selection are omitted entirely.
func (r *Result) ExportWhitelist(sel Selection) string {
	sel = sel.Normalize()
	p := r.Project
	var out []string

	if r.HeaderText != "" {
		out = append(out, strings.TrimRight(r.HeaderText, "\n"), "")
	}

	if len(r.ControllerHeaderLines) > 0 {
		out = append(out, r.ControllerHeaderLines...)
	} else {
		name := r.ControllerName
		if name == "" {
			name = "Controller"
		}
		out = append(out, "CONTROLLER "+name)
	}

	// Type definitions, restricted to selected members. A type selected with
	// no member selection keeps all its members.
	p.DataTypes.Each(func(name string, dt *DataType) {
		if !sel.DataTypes.Has(name) {
			return
		}
		out = append(out, renderDataType(dt, sel.DataTypeMembers[name], Indent)...)
		out = append(out, "")
	})

	// Instruction definitions with any selection touching them.
	p.Instructions.Each(func(name string, instr *Instruction) {
		selParams := sel.Parameters[name]
		selLocals := sel.LocalTags[name]
		if !sel.Instructions.Has(name) && len(selParams) == 0 && len(selLocals) == 0 {
			return
		}

		if instr.Description != "" {
			out = append(out, fmt.Sprintf("%sADD_ON_INSTRUCTION_DEFINITION %s (Description := \"%s\")",
				Indent, name, EncodeString(instr.Description)))
		} else {
			out = append(out, fmt.Sprintf("%sADD_ON_INSTRUCTION_DEFINITION %s ()", Indent, name))
		}

		if len(selParams) > 0 {
			out = append(out, strings.Repeat(Indent, 2)+"PARAMETERS")
			instr.Parameters.Each(func(pname string, param *InstructionParameter) {
				if selParams.Has(pname) {
					out = append(out, param.L5K(3, Indent)...)
				}
			})
			out = append(out, strings.Repeat(Indent, 2)+"END_PARAMETERS", "")
		}

		// The local tag section is always emitted; a downstream consumer
		// rejects instruction definitions without one, so an explicitly
		// selected instruction with no surviving local tags gets a
		// placeholder.
		out = append(out, strings.Repeat(Indent, 2)+"LOCAL_TAGS")
		emitted := 0
		instr.LocalTags.Each(func(lname string, local *InstructionLocalTag) {
			if selLocals.Has(lname) {
				out = append(out, local.L5K(3, Indent)...)
				emitted++
			}
		})
		if emitted == 0 && sel.Instructions.Has(name) {
			out = append(out, strings.Repeat(Indent, 3)+`__PlaceHolder : BOOL (Description := "Required for AVEVA Edge");`)
		}
		out = append(out, strings.Repeat(Indent, 2)+"END_LOCAL_TAGS", "")
		out = append(out, Indent+"END_ADD_ON_INSTRUCTION_DEFINITION", "")
	})

	// Controller tags, value-free, original order.
	if len(sel.Tags) > 0 {
		out = append(out, Indent+"TAG")
		p.Tags.Each(func(tname string, tag *Tag) {
			if sel.Tags.Has(tname) {
				out = append(out, tag.L5K(2, Indent)...)
			}
		})
		out = append(out, Indent+"END_TAG", "")
	}

	// One program block per program with any selected tags.
	p.Programs.Each(func(pname string, prog *Program) {
		selTags := sel.ProgramTags[pname]
		if len(selTags) == 0 {
			return
		}
		out = append(out, prog.headerLine(Indent))
		out = append(out, strings.Repeat(Indent, 2)+"TAG")
		prog.Tags.Each(func(tname string, tag *Tag) {
			if selTags.Has(tname) {
				out = append(out, tag.L5K(3, Indent)...)
			}
		})
		out = append(out, strings.Repeat(Indent, 2)+"END_TAG")
		out = append(out, Indent+"END_PROGRAM", "")
	})

	out = append(out, "END_CONTROLLER", "")
	return strings.Join(out, "\n")
}

// renderDataType renders a type definition. An empty member selection keeps
// every member; otherwise only selected members survive, plus any hidden word
// member one of whose bit aliases is selected.
func renderDataType(dt *DataType, members StringSet, indent string) []string {
	if len(members) == 0 {
		return dt.L5K(indent)
	}
	lines := []string{dt.headerLine(indent)}
	dt.Members.Each(func(name string, m *DataTypeMember) {
		if members.Has(name) || hiddenParentKept(m, members) {
			lines = append(lines, m.L5K(2, indent)...)
		}
	})
	lines = append(lines, indent+"END_DATATYPE")
	return lines
}

// hiddenParentKept reports whether a hidden word member must be retained
// because one of its bit-alias children is selected.
func hiddenParentKept(m *DataTypeMember, members StringSet) bool {
	if m.Children.Len() == 0 {
		return false
	}
	for _, c := range m.Children.Names() {
		if members.Has(c) {
			return true
		}
	}
	return false
}
