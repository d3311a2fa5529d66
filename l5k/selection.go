package l5k

import (
	"encoding/json"
	"sort"
)

// StringSet is a set of names that marshals to and from a JSON/YAML list.
type StringSet map[string]struct{}

// NewStringSet builds a set from names.
func NewStringSet(names ...string) StringSet {
	s := make(StringSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports membership. A nil set contains nothing.
func (s StringSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Add inserts name, allocating the set via the returned value if needed.
func (s StringSet) Add(name string) StringSet {
	if s == nil {
		s = make(StringSet)
	}
	s[name] = struct{}{}
	return s
}

// Names returns the members in sorted order.
func (s StringSet) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted list of strings.
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// UnmarshalJSON decodes a list of strings.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = NewStringSet(names...)
	return nil
}

// MarshalYAML encodes the set as a sorted list of strings.
func (s StringSet) MarshalYAML() (interface{}, error) {
	return s.Names(), nil
}

// UnmarshalYAML decodes a list of strings.
func (s *StringSet) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var names []string
	if err := unmarshal(&names); err != nil {
		return err
	}
	*s = NewStringSet(names...)
	return nil
}

// Selection names the entities an export should keep. All fields default to
// empty; empty means "nothing of that kind".
type Selection struct {
	DataTypes       StringSet            `json:"type_definitions,omitempty" yaml:"type_definitions,omitempty"`
	DataTypeMembers map[string]StringSet `json:"type_members,omitempty" yaml:"type_members,omitempty"`
	Instructions    StringSet            `json:"instruction_definitions,omitempty" yaml:"instruction_definitions,omitempty"`
	Parameters      map[string]StringSet `json:"instruction_parameters,omitempty" yaml:"instruction_parameters,omitempty"`
	LocalTags       map[string]StringSet `json:"instruction_local_tags,omitempty" yaml:"instruction_local_tags,omitempty"`
	Tags            StringSet            `json:"global_tags,omitempty" yaml:"global_tags,omitempty"`
	ProgramTags     map[string]StringSet `json:"program_tags,omitempty" yaml:"program_tags,omitempty"`
}

// Normalize returns a copy where membership in any selected-member map adds
// the parent container's name to the corresponding container set, so the two
// can never disagree about whether a container is included.
func (sel Selection) Normalize() Selection {
	out := sel
	out.DataTypes = copySet(sel.DataTypes)
	out.Instructions = copySet(sel.Instructions)
	for name, members := range sel.DataTypeMembers {
		if len(members) > 0 {
			out.DataTypes = out.DataTypes.Add(name)
		}
	}
	for name, params := range sel.Parameters {
		if len(params) > 0 {
			out.Instructions = out.Instructions.Add(name)
		}
	}
	for name, locals := range sel.LocalTags {
		if len(locals) > 0 {
			out.Instructions = out.Instructions.Add(name)
		}
	}
	return out
}

func copySet(s StringSet) StringSet {
	if s == nil {
		return nil
	}
	out := make(StringSet, len(s))
	for n := range s {
		out[n] = struct{}{}
	}
	return out
}

// SelectAll returns a selection covering every entity in the project.
func SelectAll(p *Project) Selection {
	sel := Selection{
		DataTypes:       NewStringSet(p.DataTypes.Names()...),
		DataTypeMembers: make(map[string]StringSet),
		Instructions:    NewStringSet(p.Instructions.Names()...),
		Parameters:      make(map[string]StringSet),
		LocalTags:       make(map[string]StringSet),
		Tags:            NewStringSet(p.Tags.Names()...),
		ProgramTags:     make(map[string]StringSet),
	}
	p.DataTypes.Each(func(name string, dt *DataType) {
		members := NewStringSet(dt.Members.Names()...)
		dt.Members.Each(func(_ string, m *DataTypeMember) {
			for _, c := range m.Children.Names() {
				members = members.Add(c)
			}
		})
		sel.DataTypeMembers[name] = members
	})
	p.Instructions.Each(func(name string, instr *Instruction) {
		sel.Parameters[name] = NewStringSet(instr.Parameters.Names()...)
		sel.LocalTags[name] = NewStringSet(instr.LocalTags.Names()...)
	})
	p.Programs.Each(func(name string, prog *Program) {
		sel.ProgramTags[name] = NewStringSet(prog.Tags.Names()...)
	})
	return sel
}

// IsEmpty reports whether nothing at all is selected.
func (sel Selection) IsEmpty() bool {
	if len(sel.DataTypes) > 0 || len(sel.Instructions) > 0 || len(sel.Tags) > 0 {
		return false
	}
	for _, m := range sel.DataTypeMembers {
		if len(m) > 0 {
			return false
		}
	}
	for _, m := range sel.Parameters {
		if len(m) > 0 {
			return false
		}
	}
	for _, m := range sel.LocalTags {
		if len(m) > 0 {
			return false
		}
	}
	for _, m := range sel.ProgramTags {
		if len(m) > 0 {
			return false
		}
	}
	return true
}
