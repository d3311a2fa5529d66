package l5k

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilteredTagsOnly(t *testing.T) {
	res := parseSample(t)
	out := res.ExportFiltered(Selection{Tags: NewStringSet("MyTag")})

	assert.Contains(t, out, "IE_VER := 2.11;")
	assert.Contains(t, out, "CONTROLLER TestCtl")
	assert.Contains(t, out, `MyTag : DINT (Description := "plain tag");`)
	assert.NotContains(t, out, ":= 5")
	assert.NotContains(t, out, "Big")
	assert.NotContains(t, out, "DATATYPE")
	assert.NotContains(t, out, "ADD_ON_INSTRUCTION_DEFINITION")
	assert.NotContains(t, out, "ENCODED_DATA")
	assert.NotContains(t, out, "PROGRAM")
	assert.NotContains(t, out, "ROUTINE")
	assert.Contains(t, out, "END_CONTROLLER")

	// The kept tag line keeps the original source indentation.
	var tagLine string
	for _, ln := range strings.Split(out, "\n") {
		if strings.Contains(ln, "MyTag") {
			tagLine = ln
			break
		}
	}
	assert.True(t, strings.HasPrefix(tagLine, "\t\t"), "tag line: %q", tagLine)
}

// A selected parameter is emitted from its stored definition, already free of
// DefaultData; everything unselected in the block is suppressed, but the block
// skeleton survives because one line was kept.
func TestFilteredParameterSelection(t *testing.T) {
	res := parseSample(t)
	out := res.ExportFiltered(Selection{
		Parameters: map[string]StringSet{"MyAOI": NewStringSet("P1")},
	})

	assert.Contains(t, out, "ADD_ON_INSTRUCTION_DEFINITION MyAOI")
	assert.Contains(t, out, `P1 : DINT (Description := "keep me");`)
	assert.Contains(t, out, "END_PARAMETERS")
	assert.NotContains(t, out, "DefaultData")
	assert.NotContains(t, out, "P2")
	assert.NotContains(t, out, "P3")
	assert.NotContains(t, out, "Word :")
	assert.NotContains(t, out, "DATATYPE")
}

func TestFilteredProgramTagSelection(t *testing.T) {
	res := parseSample(t)
	out := res.ExportFiltered(Selection{
		ProgramTags: map[string]StringSet{"MainProgram": NewStringSet("PT2")},
	})

	assert.Contains(t, out, "PROGRAM MainProgram")
	assert.Contains(t, out, `PT2 : TimerType(2) (Description := "two");`)
	assert.NotContains(t, out, "PT1")
	assert.NotContains(t, out, "ROUTINE")
	assert.Contains(t, out, "END_PROGRAM")
}

// A program with nothing selected disappears entirely, header and footer
// included.
func TestFilteredEmptyProgramDropped(t *testing.T) {
	res := parseSample(t)
	out := res.ExportFiltered(Selection{Tags: NewStringSet("MyTag")})
	assert.NotContains(t, out, "PROGRAM MainProgram")
	assert.NotContains(t, out, "END_PROGRAM")
}

func TestFilteredWholeType(t *testing.T) {
	res := parseSample(t)
	out := res.ExportFiltered(Selection{DataTypes: NewStringSet("MyType")})

	// The header is re-rendered from the model.
	assert.Contains(t, out, `DATATYPE MyType (Description := "udt", FamilyType := NoFamily)`)
	for _, want := range []string{"ZZZZZZZZZZMyType0", "Alarm", "Fault", "Count", "Values[4]"} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, out, "END_DATATYPE")
}

// Selecting one bit alias keeps its hidden backing word line as well.
func TestFilteredHiddenWordRetention(t *testing.T) {
	res := parseSample(t)
	out := res.ExportFiltered(Selection{
		DataTypeMembers: map[string]StringSet{"MyType": NewStringSet("Fault")},
	})

	assert.Contains(t, out, "SINT ZZZZZZZZZZMyType0")
	assert.Contains(t, out, "BIT Fault")
	assert.NotContains(t, out, "BIT Alarm")
	assert.NotContains(t, out, "Count")
}

func TestFilteredSelectAll(t *testing.T) {
	res := parseSample(t)
	out := res.ExportFiltered(SelectAll(res.Project))

	assert.Contains(t, out, "DATATYPE MyType")
	assert.Contains(t, out, "ADD_ON_INSTRUCTION_DEFINITION MyAOI")
	assert.Contains(t, out, "PROGRAM MainProgram")
	assert.Contains(t, out, "MyTag : DINT")
	assert.NotContains(t, out, ":= 5")
	assert.NotContains(t, out, "DefaultData")
	assert.NotContains(t, out, "ROUTINE")
	assert.NotContains(t, out, "XIC")
}

// Lines outside any recognized block pass through verbatim unless they carry
// runtime default data.
func TestFilteredPassThrough(t *testing.T) {
	src := `CONTROLLER C ()
	MODULE Local (Parent := Local)
	CONFIG Stale (DefaultData := 1);
END_CONTROLLER
`
	res, err := Parse([]byte(src))
	require.NoError(t, err)
	out := res.ExportFiltered(Selection{})
	assert.Contains(t, out, "MODULE Local (Parent := Local)")
	assert.NotContains(t, out, "DefaultData")
	assert.Contains(t, out, "END_CONTROLLER")
}

// When a multi-line parameter statement is replaced by its stored definition,
// the remaining source lines of that statement are skipped without touching
// the statement after it.
func TestFilteredMultiLineParameter(t *testing.T) {
	src := `CONTROLLER C ()
	ADD_ON_INSTRUCTION_DEFINITION Multi ()
		PARAMETERS
			MP : DINT (Description := "em",
				DefaultData := 9);
			Next : BOOL (Description := "n");
		END_PARAMETERS
		LOCAL_TAGS
			L : DINT;
		END_LOCAL_TAGS
	END_ADD_ON_INSTRUCTION_DEFINITION
END_CONTROLLER
`
	res, err := Parse([]byte(src))
	require.NoError(t, err)

	out := res.ExportFiltered(Selection{
		Parameters: map[string]StringSet{"Multi": NewStringSet("MP", "Next")},
	})
	assert.Contains(t, out, `MP : DINT (Description := "em");`)
	assert.Contains(t, out, `Next : BOOL (Description := "n");`)
	assert.NotContains(t, out, "DefaultData")

	// Suppressing the multi-line statement must also consume its tail.
	out = res.ExportFiltered(Selection{
		Parameters: map[string]StringSet{"Multi": NewStringSet("Next")},
	})
	assert.NotContains(t, out, "MP")
	assert.NotContains(t, out, "DefaultData := 9")
	assert.Contains(t, out, `Next : BOOL (Description := "n");`)
}

// A restored result has no source lines left to filter.
func TestFilteredFromRestored(t *testing.T) {
	res := parseSample(t)
	restored := Restore(res.Project, "", nil, res.ControllerName)
	assert.Equal(t, "", restored.ExportFiltered(SelectAll(res.Project)))
}
