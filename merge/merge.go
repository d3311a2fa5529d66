// Package merge reconciles two independently parsed projects at the entity
// level. Entities are identified by a logical key of kind, name, and parent;
// comparing two projects yields added and removed key sets, and an approved
// subset of those changes can be applied to a model through its public
// mutation surface. The parser and exporters are never involved.
package merge

import (
	"fmt"

	"github.com/prochot/L5K-Tuner/l5k"
)

// Kind classifies an entity for identity purposes.
type Kind string

const (
	KindUDT         Kind = "UDT"
	KindUDTMember   Kind = "UDT_MEMBER"
	KindAOI         Kind = "AOI"
	KindAOIParam    Kind = "AOI_PARAMETER"
	KindAOILocalTag Kind = "AOI_LOCAL_TAG"
	KindTag         Kind = "TAG"
	KindProgram     Kind = "PROGRAM"
	KindProgramTag  Kind = "PROGRAM_TAG"
)

// Key is the logical identity of one entity. Parent is the containing
// entity's name for member-level kinds and empty for top-level kinds.
type Key struct {
	Kind   Kind   `json:"kind"`
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

func (k Key) String() string {
	if k.Parent == "" {
		return fmt.Sprintf("%s %s", k.Kind, k.Name)
	}
	return fmt.Sprintf("%s %s.%s", k.Kind, k.Parent, k.Name)
}

// Keys enumerates every entity of the project in model order.
func Keys(p *l5k.Project) []Key {
	var out []Key
	p.DataTypes.Each(func(name string, dt *l5k.DataType) {
		out = append(out, Key{Kind: KindUDT, Name: name})
		dt.Members.Each(func(mname string, _ *l5k.DataTypeMember) {
			out = append(out, Key{Kind: KindUDTMember, Name: mname, Parent: name})
		})
	})
	p.Instructions.Each(func(name string, instr *l5k.Instruction) {
		out = append(out, Key{Kind: KindAOI, Name: name})
		instr.Parameters.Each(func(pname string, _ *l5k.InstructionParameter) {
			out = append(out, Key{Kind: KindAOIParam, Name: pname, Parent: name})
		})
		instr.LocalTags.Each(func(lname string, _ *l5k.InstructionLocalTag) {
			out = append(out, Key{Kind: KindAOILocalTag, Name: lname, Parent: name})
		})
	})
	p.Tags.Each(func(name string, _ *l5k.Tag) {
		out = append(out, Key{Kind: KindTag, Name: name})
	})
	p.Programs.Each(func(pname string, prog *l5k.Program) {
		out = append(out, Key{Kind: KindProgram, Name: pname})
		prog.Tags.Each(func(tname string, _ *l5k.Tag) {
			out = append(out, Key{Kind: KindProgramTag, Name: tname, Parent: pname})
		})
	})
	return out
}

// Diff is the outcome of comparing two projects: keys present only in the
// newer model and keys present only in the older one, both in model order.
type Diff struct {
	Added   []Key `json:"added"`
	Removed []Key `json:"removed"`
}

// IsEmpty reports whether the two models carry the same entity keys.
func (d Diff) IsEmpty() bool { return len(d.Added) == 0 && len(d.Removed) == 0 }

// Compare diffs the entity key sets of two projects.
func Compare(old, updated *l5k.Project) Diff {
	oldKeys := keySet(Keys(old))
	newKeys := keySet(Keys(updated))

	var d Diff
	for _, k := range Keys(updated) {
		if !oldKeys[k] {
			d.Added = append(d.Added, k)
		}
	}
	for _, k := range Keys(old) {
		if !newKeys[k] {
			d.Removed = append(d.Removed, k)
		}
	}
	return d
}

func keySet(keys []Key) map[Key]bool {
	set := make(map[Key]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// Apply mutates dst with the approved changes: additions are copied in from
// src, removals are deleted from dst. Container additions are applied before
// their members, so a diff that introduces both works in any input order.
// Removing a hidden word member removes its bit aliases too; removing a bit
// alias unlinks it from its backing word.
func Apply(dst, src *l5k.Project, d Diff) error {
	for _, k := range d.Added {
		if containerKind(k.Kind) {
			if err := addEntity(dst, src, k); err != nil {
				return err
			}
		}
	}
	for _, k := range d.Added {
		if !containerKind(k.Kind) {
			if err := addEntity(dst, src, k); err != nil {
				return err
			}
		}
	}
	for _, k := range d.Removed {
		removeEntity(dst, k)
	}
	return nil
}

func containerKind(k Kind) bool {
	return k == KindUDT || k == KindAOI || k == KindProgram
}

func addEntity(dst, src *l5k.Project, k Key) error {
	switch k.Kind {
	case KindUDT:
		dt, ok := src.DataTypes.Get(k.Name)
		if !ok {
			return fmt.Errorf("merge: source has no %s", k)
		}
		dst.DataTypes.Set(k.Name, copyDataType(dt))

	case KindUDTMember:
		srcDT, ok := src.DataTypes.Get(k.Parent)
		if !ok {
			return fmt.Errorf("merge: source has no %s %s", KindUDT, k.Parent)
		}
		m, ok := srcDT.Members.Get(k.Name)
		if !ok {
			return fmt.Errorf("merge: source has no %s", k)
		}
		dstDT, ok := dst.DataTypes.Get(k.Parent)
		if !ok {
			return fmt.Errorf("merge: target has no %s %s for %s", KindUDT, k.Parent, k)
		}
		copied := copyMember(m)
		dstDT.AddMember(copied)
		if copied.IsBit && copied.ParentWord != "" {
			if parent, ok := dstDT.Members.Get(copied.ParentWord); ok {
				parent.AddChild(copied)
			}
		}

	case KindAOI:
		instr, ok := src.Instructions.Get(k.Name)
		if !ok {
			return fmt.Errorf("merge: source has no %s", k)
		}
		dst.Instructions.Set(k.Name, copyInstruction(instr))

	case KindAOIParam:
		srcInstr, dstInstr, err := instructionPair(dst, src, k)
		if err != nil {
			return err
		}
		param, ok := srcInstr.Parameters.Get(k.Name)
		if !ok {
			return fmt.Errorf("merge: source has no %s", k)
		}
		dstInstr.AddParameter(copyParameter(param))

	case KindAOILocalTag:
		srcInstr, dstInstr, err := instructionPair(dst, src, k)
		if err != nil {
			return err
		}
		local, ok := srcInstr.LocalTags.Get(k.Name)
		if !ok {
			return fmt.Errorf("merge: source has no %s", k)
		}
		dstInstr.AddLocalTag(copyLocalTag(local))

	case KindTag:
		tag, ok := src.Tags.Get(k.Name)
		if !ok {
			return fmt.Errorf("merge: source has no %s", k)
		}
		dst.Tags.Set(k.Name, copyTag(tag))

	case KindProgram:
		prog, ok := src.Programs.Get(k.Name)
		if !ok {
			return fmt.Errorf("merge: source has no %s", k)
		}
		dst.Programs.Set(k.Name, copyProgram(prog))

	case KindProgramTag:
		srcProg, ok := src.Programs.Get(k.Parent)
		if !ok {
			return fmt.Errorf("merge: source has no %s %s", KindProgram, k.Parent)
		}
		tag, ok := srcProg.Tags.Get(k.Name)
		if !ok {
			return fmt.Errorf("merge: source has no %s", k)
		}
		dstProg, ok := dst.Programs.Get(k.Parent)
		if !ok {
			return fmt.Errorf("merge: target has no %s %s for %s", KindProgram, k.Parent, k)
		}
		dstProg.Tags.Set(k.Name, copyTag(tag))

	default:
		return fmt.Errorf("merge: unknown entity kind %q", k.Kind)
	}
	return nil
}

func instructionPair(dst, src *l5k.Project, k Key) (*l5k.Instruction, *l5k.Instruction, error) {
	srcInstr, ok := src.Instructions.Get(k.Parent)
	if !ok {
		return nil, nil, fmt.Errorf("merge: source has no %s %s", KindAOI, k.Parent)
	}
	dstInstr, ok := dst.Instructions.Get(k.Parent)
	if !ok {
		return nil, nil, fmt.Errorf("merge: target has no %s %s for %s", KindAOI, k.Parent, k)
	}
	return srcInstr, dstInstr, nil
}

func removeEntity(dst *l5k.Project, k Key) {
	switch k.Kind {
	case KindUDT:
		dst.DataTypes.Delete(k.Name)

	case KindUDTMember:
		dt, ok := dst.DataTypes.Get(k.Parent)
		if !ok {
			return
		}
		m, ok := dt.Members.Get(k.Name)
		if !ok {
			return
		}
		if m.IsBit && m.ParentWord != "" {
			if parent, ok := dt.Members.Get(m.ParentWord); ok {
				parent.Children.Delete(k.Name)
			}
		}
		// A hidden word takes its bit aliases with it.
		for _, child := range m.Children.Names() {
			dt.Members.Delete(child)
		}
		dt.Members.Delete(k.Name)

	case KindAOI:
		dst.Instructions.Delete(k.Name)

	case KindAOIParam:
		if instr, ok := dst.Instructions.Get(k.Parent); ok {
			instr.Parameters.Delete(k.Name)
		}

	case KindAOILocalTag:
		if instr, ok := dst.Instructions.Get(k.Parent); ok {
			instr.LocalTags.Delete(k.Name)
		}

	case KindTag:
		dst.Tags.Delete(k.Name)

	case KindProgram:
		dst.Programs.Delete(k.Name)

	case KindProgramTag:
		if prog, ok := dst.Programs.Get(k.Parent); ok {
			prog.Tags.Delete(k.Name)
		}
	}
}

func copyDataType(dt *l5k.DataType) *l5k.DataType {
	out := l5k.NewDataType(dt.Name)
	out.Description = dt.Description
	out.FamilyType = dt.FamilyType
	dt.Members.Each(func(_ string, m *l5k.DataTypeMember) {
		out.AddMember(copyMember(m))
	})
	dt.Members.Each(func(name string, m *l5k.DataTypeMember) {
		if m.Children.Len() == 0 {
			return
		}
		parent, _ := out.Members.Get(name)
		for _, cname := range m.Children.Names() {
			if child, ok := out.Members.Get(cname); ok {
				parent.AddChild(child)
			}
		}
	})
	return out
}

func copyMember(m *l5k.DataTypeMember) *l5k.DataTypeMember {
	out := l5k.NewDataTypeMember(m.Name, m.DataType)
	out.Description = m.Description
	out.Definition = m.Definition
	out.IsHiddenParent = m.IsHiddenParent
	out.IsBit = m.IsBit
	out.ParentWord = m.ParentWord
	out.BitIndex = m.BitIndex
	out.NameDims = m.NameDims
	return out
}

func copyInstruction(instr *l5k.Instruction) *l5k.Instruction {
	out := l5k.NewInstruction(instr.Name)
	out.Description = instr.Description
	instr.Parameters.Each(func(_ string, p *l5k.InstructionParameter) {
		out.AddParameter(copyParameter(p))
	})
	instr.LocalTags.Each(func(_ string, lt *l5k.InstructionLocalTag) {
		out.AddLocalTag(copyLocalTag(lt))
	})
	return out
}

func copyParameter(p *l5k.InstructionParameter) *l5k.InstructionParameter {
	cp := *p
	return &cp
}

func copyLocalTag(t *l5k.InstructionLocalTag) *l5k.InstructionLocalTag {
	cp := *t
	return &cp
}

func copyTag(t *l5k.Tag) *l5k.Tag {
	cp := *t
	return &cp
}

func copyProgram(prog *l5k.Program) *l5k.Program {
	out := l5k.NewProgram(prog.Name, prog.Description)
	prog.Tags.Each(func(_ string, t *l5k.Tag) {
		out.Tags.Set(t.Name, copyTag(t))
	})
	return out
}
