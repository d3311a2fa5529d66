package l5k

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A whitelist export of everything must parse back into the same model.
func TestWhitelistRoundTrip(t *testing.T) {
	res := parseSample(t)
	out := res.ExportWhitelist(SelectAll(res.Project))

	back, err := Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, res.Project.Tags.Names(), back.Project.Tags.Names())
	assert.Equal(t, res.Project.DataTypes.Names(), back.Project.DataTypes.Names())
	assert.Equal(t, res.Project.Instructions.Names(), back.Project.Instructions.Names())
	assert.Equal(t, res.Project.Programs.Names(), back.Project.Programs.Names())
	assert.Equal(t, res.ControllerName, back.ControllerName)
	assert.Equal(t, res.HeaderText, back.HeaderText)

	dt, _ := res.Project.DataTypes.Get("MyType")
	backDT, ok := back.Project.DataTypes.Get("MyType")
	require.True(t, ok)
	assert.Equal(t, dt.Members.Names(), backDT.Members.Names())

	// The corrected parameter re-parses as a plain BOOL, so a second pass has
	// nothing left to correct.
	assert.Empty(t, back.Corrections)
}

func TestWhitelistProgramTagsOnly(t *testing.T) {
	res := parseSample(t)
	out := res.ExportWhitelist(Selection{
		ProgramTags: map[string]StringSet{"MainProgram": NewStringSet("PT2")},
	})

	assert.Contains(t, out, "PROGRAM MainProgram")
	assert.Contains(t, out, "PT2")
	assert.NotContains(t, out, "PT1")
	assert.NotContains(t, out, "MyTag")
	assert.NotContains(t, out, "DATATYPE")
	assert.NotContains(t, out, "ADD_ON_INSTRUCTION_DEFINITION")
	assert.Contains(t, out, "END_PROGRAM")
	assert.Contains(t, out, "END_CONTROLLER")
}

// An instruction selected with no surviving local tags gets the placeholder
// local tag, and no parameter section at all when none are selected.
func TestWhitelistPlaceholderLocalTag(t *testing.T) {
	res := parseSample(t)
	out := res.ExportWhitelist(Selection{Instructions: NewStringSet("MyAOI")})

	assert.Contains(t, out, "ADD_ON_INSTRUCTION_DEFINITION MyAOI")
	assert.Contains(t, out, `__PlaceHolder : BOOL (Description := "Required for AVEVA Edge");`)
	assert.NotContains(t, out, "PARAMETERS")
	assert.Contains(t, out, "LOCAL_TAGS")
}

func TestWhitelistNoPlaceholderWhenLocalKept(t *testing.T) {
	res := parseSample(t)
	out := res.ExportWhitelist(Selection{
		Instructions: NewStringSet("MyAOI"),
		LocalTags:    map[string]StringSet{"MyAOI": NewStringSet("Word")},
	})
	assert.Contains(t, out, `Word : DINT (Description := "backing word");`)
	assert.NotContains(t, out, "__PlaceHolder")
}

// Selecting a bit alias keeps its hidden backing word even though the word
// itself was not selected.
func TestWhitelistHiddenWordRetention(t *testing.T) {
	res := parseSample(t)
	out := res.ExportWhitelist(Selection{
		DataTypeMembers: map[string]StringSet{"MyType": NewStringSet("Alarm")},
	})

	assert.Contains(t, out, "DATATYPE MyType")
	assert.Contains(t, out, "ZZZZZZZZZZMyType0")
	assert.Contains(t, out, "BIT Alarm")
	assert.NotContains(t, out, "Fault")
	assert.NotContains(t, out, "Count")
}

// A type selected as a whole, with no member restriction, keeps everything.
func TestWhitelistWholeType(t *testing.T) {
	res := parseSample(t)
	out := res.ExportWhitelist(Selection{DataTypes: NewStringSet("MyType")})
	for _, want := range []string{"ZZZZZZZZZZMyType0", "Alarm", "Fault", "Count", "Values[4]"} {
		assert.Contains(t, out, want)
	}
}

// A corrected bit-of-word parameter renders with a plain BOOL declarator and
// its original attributes.
func TestWhitelistCorrectedParameter(t *testing.T) {
	res := parseSample(t)
	out := res.ExportWhitelist(Selection{
		Instructions: NewStringSet("MyAOI"),
		Parameters:   map[string]StringSet{"MyAOI": NewStringSet("P2")},
	})
	assert.Contains(t, out, "P2 : BOOL (")
	assert.Contains(t, out, `Description := "alias"`)
	assert.NotContains(t, out, "Word.3")
	assert.NotContains(t, out, " OF ")
}

func TestWhitelistEmptySelection(t *testing.T) {
	res := parseSample(t)
	out := res.ExportWhitelist(Selection{})

	assert.Contains(t, out, "CONTROLLER TestCtl")
	assert.True(t, strings.Contains(out, "END_CONTROLLER"))
	assert.NotContains(t, out, "TAG")
	assert.NotContains(t, out, "DATATYPE")
	assert.NotContains(t, out, "PROGRAM")
}

// A restored result (no source lines) exports the same whitelist text as the
// result it was captured from.
func TestWhitelistFromRestored(t *testing.T) {
	res := parseSample(t)
	restored := Restore(res.Project, res.HeaderText, res.ControllerHeaderLines, res.ControllerName)

	sel := SelectAll(res.Project)
	assert.Equal(t, res.ExportWhitelist(sel), restored.ExportWhitelist(sel))
}

func TestWhitelistControllerFallback(t *testing.T) {
	out := Restore(NewProject(), "", nil, "").ExportWhitelist(Selection{})
	assert.Contains(t, out, "CONTROLLER Controller")

	out = Restore(NewProject(), "", nil, "Rig").ExportWhitelist(Selection{})
	assert.Contains(t, out, "CONTROLLER Rig")
}
