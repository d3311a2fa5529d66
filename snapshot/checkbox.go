package snapshot

import (
	"github.com/prochot/L5K-Tuner/l5k"
)

// Node types used in persisted checkbox entries.
const (
	NodeUDT         = "UDT"
	NodeUDTMember   = "UDT_MEMBER"
	NodeAOI         = "AOI"
	NodeAOIParam    = "AOI_PARAMETER"
	NodeAOILocalTag = "AOI_LOCAL_TAG"
	NodeTag         = "TAG"
	NodeProgramTag  = "PROGRAM_TAG"
)

// Tri-state checkbox values, matching the convention of the presentation
// layers that consume the file.
const (
	StateUnchecked = 0
	StatePartial   = 1
	StateChecked   = 2
)

// CheckboxState records the selection state of one tree node. Parent is the
// containing entity's name for member-level nodes and empty for top-level
// nodes.
type CheckboxState struct {
	NodeType string `json:"node_type"`
	Name     string `json:"name"`
	Parent   string `json:"parent"`
	State    int    `json:"state"`
}

// StatesFromSelection walks the project in model order and records one entry
// per selectable node. Containers whose members are only partially selected
// are marked partial.
func StatesFromSelection(p *l5k.Project, sel l5k.Selection) []CheckboxState {
	sel = sel.Normalize()
	var out []CheckboxState

	p.DataTypes.Each(func(name string, dt *l5k.DataType) {
		members := sel.DataTypeMembers[name]
		out = append(out, CheckboxState{
			NodeType: NodeUDT,
			Name:     name,
			State:    containerState(sel.DataTypes.Has(name), len(members), dt.Members.Len()),
		})
		dt.Members.Each(func(mname string, _ *l5k.DataTypeMember) {
			out = append(out, CheckboxState{
				NodeType: NodeUDTMember,
				Name:     mname,
				Parent:   name,
				State:    leafState(memberSelected(sel, name, mname, members)),
			})
		})
	})

	p.Instructions.Each(func(name string, instr *l5k.Instruction) {
		params := sel.Parameters[name]
		locals := sel.LocalTags[name]
		out = append(out, CheckboxState{
			NodeType: NodeAOI,
			Name:     name,
			State:    containerState(sel.Instructions.Has(name), len(params)+len(locals), instr.Parameters.Len()+instr.LocalTags.Len()),
		})
		instr.Parameters.Each(func(pname string, _ *l5k.InstructionParameter) {
			out = append(out, CheckboxState{
				NodeType: NodeAOIParam,
				Name:     pname,
				Parent:   name,
				State:    leafState(params.Has(pname)),
			})
		})
		instr.LocalTags.Each(func(lname string, _ *l5k.InstructionLocalTag) {
			out = append(out, CheckboxState{
				NodeType: NodeAOILocalTag,
				Name:     lname,
				Parent:   name,
				State:    leafState(locals.Has(lname)),
			})
		})
	})

	p.Tags.Each(func(name string, _ *l5k.Tag) {
		out = append(out, CheckboxState{
			NodeType: NodeTag,
			Name:     name,
			State:    leafState(sel.Tags.Has(name)),
		})
	})

	p.Programs.Each(func(pname string, prog *l5k.Program) {
		progTags := sel.ProgramTags[pname]
		prog.Tags.Each(func(tname string, _ *l5k.Tag) {
			out = append(out, CheckboxState{
				NodeType: NodeProgramTag,
				Name:     tname,
				Parent:   pname,
				State:    leafState(progTags.Has(tname)),
			})
		})
	})

	return out
}

// memberSelected mirrors the exporters' rule that a type selected with no
// member restriction keeps all members.
func memberSelected(sel l5k.Selection, udt, member string, members l5k.StringSet) bool {
	if sel.DataTypes.Has(udt) && len(members) == 0 {
		return true
	}
	return members.Has(member)
}

func leafState(selected bool) int {
	if selected {
		return StateChecked
	}
	return StateUnchecked
}

func containerState(selected bool, selectedMembers, totalMembers int) int {
	switch {
	case !selected:
		return StateUnchecked
	case selectedMembers == 0 || selectedMembers >= totalMembers:
		return StateChecked
	default:
		return StatePartial
	}
}

// ToSelection converts persisted checkbox states back into the selection the
// exporters consume. Partial container states contribute nothing themselves;
// their checked members do.
func ToSelection(states []CheckboxState) l5k.Selection {
	sel := l5k.Selection{
		DataTypes:       l5k.NewStringSet(),
		DataTypeMembers: make(map[string]l5k.StringSet),
		Instructions:    l5k.NewStringSet(),
		Parameters:      make(map[string]l5k.StringSet),
		LocalTags:       make(map[string]l5k.StringSet),
		Tags:            l5k.NewStringSet(),
		ProgramTags:     make(map[string]l5k.StringSet),
	}
	for _, cs := range states {
		if cs.State != StateChecked {
			continue
		}
		switch cs.NodeType {
		case NodeUDT:
			sel.DataTypes = sel.DataTypes.Add(cs.Name)
		case NodeUDTMember:
			sel.DataTypeMembers[cs.Parent] = sel.DataTypeMembers[cs.Parent].Add(cs.Name)
		case NodeAOI:
			sel.Instructions = sel.Instructions.Add(cs.Name)
		case NodeAOIParam:
			sel.Parameters[cs.Parent] = sel.Parameters[cs.Parent].Add(cs.Name)
		case NodeAOILocalTag:
			sel.LocalTags[cs.Parent] = sel.LocalTags[cs.Parent].Add(cs.Name)
		case NodeTag:
			sel.Tags = sel.Tags.Add(cs.Name)
		case NodeProgramTag:
			sel.ProgramTags[cs.Parent] = sel.ProgramTags[cs.Parent].Add(cs.Name)
		}
	}
	return sel.Normalize()
}
