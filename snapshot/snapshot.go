// Package snapshot persists a parsed project and its selection state as a
// JSON file, and rebuilds a working model from one. The JSON layout is the
// interchange contract with presentation layers, so field names are stable.
package snapshot

import (
	"github.com/prochot/L5K-Tuner/l5k"
)

// Member is one type-definition member. Bit aliases carry their backing word
// and bit index; hidden words carry their aliases in Children (the aliases
// also appear as members in their own right, mirroring the model).
type Member struct {
	Name           string   `json:"name"`
	DataType       string   `json:"data_type"`
	Description    string   `json:"description"`
	Definition     string   `json:"definition"`
	IsHiddenParent bool     `json:"is_hidden_parent"`
	IsBit          bool     `json:"is_bit"`
	ParentWord     string   `json:"parent_word"`
	BitIndex       *int     `json:"bit_index"`
	NameDims       string   `json:"name_dims"`
	Children       []Member `json:"children"`
}

// UDT is one persisted type definition.
type UDT struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	FamilyType  string   `json:"family_type"`
	Members     []Member `json:"members"`
}

// Parameter is one persisted instruction parameter.
type Parameter struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type"`
	Description string `json:"description"`
	Definition  string `json:"definition"`
	IsBitAlias  bool   `json:"is_bit_alias"`
}

// LocalTag is one persisted instruction local tag.
type LocalTag struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type"`
	Description string `json:"description"`
	Definition  string `json:"definition"`
}

// AOI is one persisted instruction definition.
type AOI struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	LocalTags   []LocalTag  `json:"localtags"`
}

// TagEntry is one persisted controller or program tag.
type TagEntry struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type"`
	Description string `json:"description"`
	Definition  string `json:"definition"`
}

// ProgramEntry is one persisted program with its own tag namespace.
type ProgramEntry struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Tags        []TagEntry `json:"tags"`
}

// ProjectData holds the model portion of a snapshot.
type ProjectData struct {
	Header   string         `json:"header"`
	UDTs     []UDT          `json:"udts"`
	AOIs     []AOI          `json:"aois"`
	Tags     []TagEntry     `json:"tags"`
	Programs []ProgramEntry `json:"programs"`
}

// Snapshot is the top-level persisted document.
type Snapshot struct {
	ControllerHeaderLines []string        `json:"controller_header_lines"`
	ControllerName        *string         `json:"controller_name"`
	HeaderText            string          `json:"header_text"`
	Project               ProjectData     `json:"project"`
	CheckboxStates        []CheckboxState `json:"checkbox_states"`
}

// FromResult captures a parse result and the current selection into a
// snapshot document.
func FromResult(res *l5k.Result, sel l5k.Selection) *Snapshot {
	s := &Snapshot{
		ControllerHeaderLines: append([]string(nil), res.ControllerHeaderLines...),
		HeaderText:            res.HeaderText,
		Project:               projectData(res.Project),
		CheckboxStates:        StatesFromSelection(res.Project, sel),
	}
	if res.ControllerName != "" {
		name := res.ControllerName
		s.ControllerName = &name
	}
	return s
}

func projectData(p *l5k.Project) ProjectData {
	var pd ProjectData
	if p.Header != nil {
		pd.Header = p.Header.Content
	}
	p.DataTypes.Each(func(_ string, dt *l5k.DataType) {
		u := UDT{Name: dt.Name, Description: dt.Description, FamilyType: dt.FamilyType}
		dt.Members.Each(func(_ string, m *l5k.DataTypeMember) {
			u.Members = append(u.Members, memberData(m))
		})
		pd.UDTs = append(pd.UDTs, u)
	})
	p.Instructions.Each(func(_ string, instr *l5k.Instruction) {
		a := AOI{Name: instr.Name, Description: instr.Description}
		instr.Parameters.Each(func(_ string, param *l5k.InstructionParameter) {
			a.Parameters = append(a.Parameters, Parameter{
				Name:        param.Name,
				DataType:    param.DataType,
				Description: param.Description,
				Definition:  param.Definition,
				IsBitAlias:  param.IsBitAlias,
			})
		})
		instr.LocalTags.Each(func(_ string, local *l5k.InstructionLocalTag) {
			a.LocalTags = append(a.LocalTags, LocalTag{
				Name:        local.Name,
				DataType:    local.DataType,
				Description: local.Description,
				Definition:  local.Definition,
			})
		})
		pd.AOIs = append(pd.AOIs, a)
	})
	p.Tags.Each(func(_ string, tag *l5k.Tag) {
		pd.Tags = append(pd.Tags, tagEntry(tag))
	})
	p.Programs.Each(func(_ string, prog *l5k.Program) {
		pe := ProgramEntry{Name: prog.Name, Description: prog.Description}
		prog.Tags.Each(func(_ string, tag *l5k.Tag) {
			pe.Tags = append(pe.Tags, tagEntry(tag))
		})
		pd.Programs = append(pd.Programs, pe)
	})
	return pd
}

func memberData(m *l5k.DataTypeMember) Member {
	out := Member{
		Name:           m.Name,
		DataType:       m.DataType,
		Description:    m.Description,
		Definition:     m.Definition,
		IsHiddenParent: m.IsHiddenParent,
		IsBit:          m.IsBit,
		ParentWord:     m.ParentWord,
		NameDims:       m.NameDims,
	}
	if m.IsBit {
		idx := m.BitIndex
		out.BitIndex = &idx
	}
	m.Children.Each(func(_ string, c *l5k.DataTypeMember) {
		out.Children = append(out.Children, memberData(c))
	})
	return out
}

func tagEntry(t *l5k.Tag) TagEntry {
	return TagEntry{Name: t.Name, DataType: t.DataType, Description: t.Description, Definition: t.Definition}
}

// Result rebuilds a working parse result from the snapshot. The original
// source lines are not persisted, so the restored result supports whitelist
// export only.
func (s *Snapshot) Result() *l5k.Result {
	p := l5k.NewProject()
	if s.Project.Header != "" {
		p.Header = &l5k.Header{Content: s.Project.Header}
	}

	for _, u := range s.Project.UDTs {
		dt := l5k.NewDataType(u.Name)
		dt.Description = u.Description
		if u.FamilyType != "" {
			dt.FamilyType = u.FamilyType
		}
		for _, m := range u.Members {
			dt.AddMember(restoreMember(m))
		}
		// Re-link bit aliases under their hidden words through the sibling
		// collection, so parent and member views share one object.
		for _, m := range u.Members {
			if len(m.Children) == 0 {
				continue
			}
			parent, ok := dt.Members.Get(m.Name)
			if !ok {
				continue
			}
			for _, c := range m.Children {
				child, ok := dt.Members.Get(c.Name)
				if !ok {
					child = restoreMember(c)
					dt.AddMember(child)
				}
				parent.AddChild(child)
			}
		}
		p.DataTypes.Set(dt.Name, dt)
	}

	for _, a := range s.Project.AOIs {
		instr := l5k.NewInstruction(a.Name)
		instr.Description = a.Description
		for _, param := range a.Parameters {
			instr.AddParameter(&l5k.InstructionParameter{
				Name:        param.Name,
				DataType:    param.DataType,
				Description: param.Description,
				Definition:  param.Definition,
				IsBitAlias:  param.IsBitAlias,
			})
		}
		for _, local := range a.LocalTags {
			instr.AddLocalTag(&l5k.InstructionLocalTag{
				Name:        local.Name,
				DataType:    local.DataType,
				Description: local.Description,
				Definition:  local.Definition,
			})
		}
		p.Instructions.Set(instr.Name, instr)
	}

	for _, te := range s.Project.Tags {
		p.Tags.Set(te.Name, restoreTag(te))
	}
	for _, pe := range s.Project.Programs {
		prog := l5k.NewProgram(pe.Name, pe.Description)
		for _, te := range pe.Tags {
			prog.Tags.Set(te.Name, restoreTag(te))
		}
		p.Programs.Set(prog.Name, prog)
	}

	name := ""
	if s.ControllerName != nil {
		name = *s.ControllerName
	}
	return l5k.Restore(p, s.HeaderText, append([]string(nil), s.ControllerHeaderLines...), name)
}

func restoreMember(m Member) *l5k.DataTypeMember {
	out := l5k.NewDataTypeMember(m.Name, m.DataType)
	out.Description = m.Description
	out.Definition = m.Definition
	out.IsHiddenParent = m.IsHiddenParent
	out.IsBit = m.IsBit
	out.ParentWord = m.ParentWord
	out.NameDims = m.NameDims
	if m.BitIndex != nil {
		out.BitIndex = *m.BitIndex
	}
	return out
}

func restoreTag(te TagEntry) *l5k.Tag {
	return &l5k.Tag{Name: te.Name, DataType: te.DataType, Description: te.Description, Definition: te.Definition}
}
