package l5k

import (
	"fmt"
	"strings"
)

// Indent is the per-level indentation used when rendering L5K text.
const Indent = "\t"

// OrderedMap is a name-keyed collection that preserves insertion order.
// Whitelist export relies on model iteration order matching the original
// declaration order, so every entity collection in the model uses one.
type OrderedMap[V any] struct {
	byName map[string]V
	order  []string
}

// NewOrderedMap returns an empty collection.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{byName: make(map[string]V)}
}

// Get returns the value for name and whether it exists.
func (m *OrderedMap[V]) Get(name string) (V, bool) {
	v, ok := m.byName[name]
	return v, ok
}

// Set inserts or replaces the value for name. A replacement keeps the
// original insertion position.
func (m *OrderedMap[V]) Set(name string, v V) {
	if _, ok := m.byName[name]; !ok {
		m.order = append(m.order, name)
	}
	m.byName[name] = v
}

// Delete removes name from the collection if present.
func (m *OrderedMap[V]) Delete(name string) {
	if _, ok := m.byName[name]; !ok {
		return
	}
	delete(m.byName, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int { return len(m.order) }

// Names returns the keys in insertion order.
func (m *OrderedMap[V]) Names() []string {
	return append([]string(nil), m.order...)
}

// Each calls fn for every entry in insertion order.
func (m *OrderedMap[V]) Each(fn func(name string, v V)) {
	for _, n := range m.order {
		fn(n, m.byName[n])
	}
}

// Header is the raw file header block, preserved verbatim and always emitted
// first on export.
type Header struct {
	Content string
}

// Project is the root aggregate built by one parse pass.
type Project struct {
	Header       *Header
	Tags         *OrderedMap[*Tag]
	DataTypes    *OrderedMap[*DataType]
	Instructions *OrderedMap[*Instruction]
	Programs     *OrderedMap[*Program]
}

// NewProject returns an empty project with initialized collections.
func NewProject() *Project {
	return &Project{
		Tags:         NewOrderedMap[*Tag](),
		DataTypes:    NewOrderedMap[*DataType](),
		Instructions: NewOrderedMap[*Instruction](),
		Programs:     NewOrderedMap[*Program](),
	}
}

// DataType is a user-defined aggregate type (DATATYPE block).
type DataType struct {
	Name        string
	Description string
	FamilyType  string // "NoFamily" unless the header says otherwise
	Members     *OrderedMap[*DataTypeMember]
}

// NewDataType returns a DataType with the default family type.
func NewDataType(name string) *DataType {
	return &DataType{
		Name:       name,
		FamilyType: "NoFamily",
		Members:    NewOrderedMap[*DataTypeMember](),
	}
}

// AddMember inserts a member keyed by its base name.
func (d *DataType) AddMember(m *DataTypeMember) {
	d.Members.Set(m.Name, m)
}

// headerLine renders the DATATYPE header with description and family type.
func (d *DataType) headerLine(indent string) string {
	attrs := ""
	if d.Description != "" {
		// Descriptions were captured between quotes, so any format escapes
		// they contain are kept as-is.
		attrs = fmt.Sprintf("Description := \"%s\", ", d.Description)
	}
	ft := d.FamilyType
	if ft == "" {
		ft = "NoFamily"
	}
	return fmt.Sprintf("%sDATATYPE %s (%sFamilyType := %s)", indent, d.Name, attrs, ft)
}

// L5K renders the full type definition, all members included.
func (d *DataType) L5K(indent string) []string {
	lines := []string{d.headerLine(indent)}
	d.Members.Each(func(_ string, m *DataTypeMember) {
		lines = append(lines, m.L5K(2, indent)...)
	})
	lines = append(lines, indent+"END_DATATYPE")
	return lines
}

// DataTypeMember is one member of a DataType. A hidden integer word member
// backs one or more BIT alias members; the aliases live in Children and carry
// ParentWord/BitIndex back-references.
type DataTypeMember struct {
	Name           string
	DataType       string
	Description    string
	Definition     string // verbatim captured multi-line text
	IsHiddenParent bool
	IsBit          bool
	ParentWord     string
	BitIndex       int // meaningful only when IsBit
	NameDims       string
	Children       *OrderedMap[*DataTypeMember]
}

// NewDataTypeMember returns a member with an initialized child collection.
func NewDataTypeMember(name, dataType string) *DataTypeMember {
	return &DataTypeMember{
		Name:     name,
		DataType: dataType,
		BitIndex: -1,
		Children: NewOrderedMap[*DataTypeMember](),
	}
}

// AddChild links a BIT alias under its hidden word parent.
func (m *DataTypeMember) AddChild(child *DataTypeMember) {
	m.Children.Set(child.Name, child)
}

// DisplayName is the base name plus any array declarator captured on it.
func (m *DataTypeMember) DisplayName() string {
	return m.Name + m.NameDims
}

// L5K renders the member from its captured definition, falling back to a
// minimal type-first line.
func (m *DataTypeMember) L5K(level int, indent string) []string {
	if m.Definition != "" {
		return indentLines(dedentLines(m.Definition), level, indent)
	}
	return indentLines([]string{fmt.Sprintf("%s %s;", m.DataType, m.Name)}, level, indent)
}

// Instruction is an add-on instruction definition (AOI): a reusable
// parameterized block with declared parameters and private local tags.
type Instruction struct {
	Name        string
	Description string
	Parameters  *OrderedMap[*InstructionParameter]
	LocalTags   *OrderedMap[*InstructionLocalTag]
}

// NewInstruction returns an Instruction with initialized collections.
func NewInstruction(name string) *Instruction {
	return &Instruction{
		Name:       name,
		Parameters: NewOrderedMap[*InstructionParameter](),
		LocalTags:  NewOrderedMap[*InstructionLocalTag](),
	}
}

// AddParameter inserts a parameter keyed by name.
func (a *Instruction) AddParameter(p *InstructionParameter) {
	a.Parameters.Set(p.Name, p)
}

// AddLocalTag inserts a local tag keyed by name.
func (a *Instruction) AddLocalTag(t *InstructionLocalTag) {
	a.LocalTags.Set(t.Name, t)
}

// InstructionParameter stores both the verbatim captured definition (for the
// source-line filter) and the parsed fields (for whitelist rendering and
// base-type resolution). DataType may start as a dotted reference path; the
// resolver rewrites it and sets IsCorrected.
type InstructionParameter struct {
	Name        string
	DataType    string
	Description string
	Definition  string
	IsBitAlias  bool
	IsCorrected bool
}

// L5K renders the parameter. Bit-of-word aliases are rewritten to a plain
// ": BOOL" declarator while the original attribute list is preserved.
func (p *InstructionParameter) L5K(level int, indent string) []string {
	if p.IsBitAlias {
		return p.plainBoolLines(level, indent)
	}
	if p.Definition != "" {
		return indentLines(dedentLines(p.Definition), level, indent)
	}
	return indentLines([]string{fmt.Sprintf("%s : %s ();", p.Name, p.DataType)}, level, indent)
}

func (p *InstructionParameter) plainBoolLines(level int, indent string) []string {
	attrs := ""
	if p.Definition != "" {
		if m := reParamDef.FindStringSubmatch(strings.TrimSpace(p.Definition)); m != nil {
			attrs = m[4]
		}
	}
	if attrs == "" {
		if p.Description != "" {
			return indentLines([]string{
				fmt.Sprintf("%s : BOOL (", p.Name),
				fmt.Sprintf("%sDescription := \"%s\"", indent, p.Description),
				");",
			}, level, indent)
		}
		return indentLines([]string{fmt.Sprintf("%s : BOOL ();", p.Name)}, level, indent)
	}
	out := []string{fmt.Sprintf("%s : BOOL (", p.Name)}
	for _, a := range dedentLines(attrs) {
		if a != "" {
			out = append(out, indent+a)
		}
	}
	out = append(out, ");")
	return indentLines(out, level, indent)
}

// InstructionLocalTag is a private tag inside an instruction definition.
type InstructionLocalTag struct {
	Name        string
	DataType    string
	Description string
	Definition  string
}

// L5K renders the local tag from its captured definition.
func (t *InstructionLocalTag) L5K(level int, indent string) []string {
	if t.Definition != "" {
		return indentLines(dedentLines(t.Definition), level, indent)
	}
	return indentLines([]string{fmt.Sprintf("%s : %s ();", t.Name, t.DataType)}, level, indent)
}

// Tag is a controller-level or program-level tag. Definition holds the
// cleaned statement with runtime values stripped.
type Tag struct {
	Name        string
	DataType    string
	Description string
	Definition  string
}

// L5K renders the tag as name and type, with the description when present
// and never with assigned values.
func (t *Tag) L5K(level int, indent string) []string {
	line := fmt.Sprintf("%s : %s;", t.Name, t.DataType)
	if t.Description != "" {
		line = fmt.Sprintf("%s : %s (Description := \"%s\");", t.Name, t.DataType, t.Description)
	}
	return indentLines([]string{line}, level, indent)
}

// Program is a named scope with its own tag namespace, disjoint from the
// controller's global tags.
type Program struct {
	Name        string
	Description string
	Tags        *OrderedMap[*Tag]
}

// NewProgram returns a Program with an initialized tag collection.
func NewProgram(name, description string) *Program {
	return &Program{
		Name:        name,
		Description: description,
		Tags:        NewOrderedMap[*Tag](),
	}
}

// headerLine renders the PROGRAM header, including the description when set.
func (p *Program) headerLine(indent string) string {
	if p.Description != "" {
		return fmt.Sprintf("%sPROGRAM %s (Description := \"%s\")", indent, p.Name, EncodeString(p.Description))
	}
	return fmt.Sprintf("%sPROGRAM %s", indent, p.Name)
}
