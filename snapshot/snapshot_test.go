package snapshot

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prochot/L5K-Tuner/l5k"
)

const sampleProject = `(*******
Export Notes
*******)
IE_VER := 2.11;
0.3
CONTROLLER SnapCtl (Description := "snap")
	DATATYPE MyType (Description := "udt", FamilyType := NoFamily)
		SINT ZZZZZZZZZZMyType0 (Hidden := 1);
		BIT Alarm ZZZZZZZZZZMyType0 : 0 (Description := "alarm bit");
		BIT Fault ZZZZZZZZZZMyType0 : 1;
		DINT Count (Description := "counter");
	END_DATATYPE
	ADD_ON_INSTRUCTION_DEFINITION MyAOI (Description := "aoi")
		PARAMETERS
			P1 : DINT (Description := "keep me");
			P2 OF Word.3 (Description := "alias");
		END_PARAMETERS
		LOCAL_TAGS
			Word : DINT (Description := "backing word");
		END_LOCAL_TAGS
	END_ADD_ON_INSTRUCTION_DEFINITION
	TAG
		MyTag : DINT (Description := "plain tag") := 5;
	END_TAG
	PROGRAM MainProgram (Description := "prog")
		TAG
			PT1 : DINT (Description := "one");
		END_TAG
	END_PROGRAM
END_CONTROLLER
`

func parseSample(t *testing.T) *l5k.Result {
	t.Helper()
	res, err := l5k.Parse([]byte(sampleProject))
	require.NoError(t, err)
	return res
}

func TestSaveLoadRoundTrip(t *testing.T) {
	res := parseSample(t)
	snap := FromResult(res, l5k.SelectAll(res.Project))

	path := filepath.Join(t.TempDir(), "nested", "project.json")
	require.NoError(t, Save(snap, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(snap, loaded); diff != "" {
		t.Errorf("snapshot mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
}

func TestSaveEmptyPath(t *testing.T) {
	assert.Error(t, Save(&Snapshot{}, ""))
}

// A rebuilt result must whitelist-export exactly the same text as the result
// the snapshot was captured from.
func TestResultRebuild(t *testing.T) {
	res := parseSample(t)
	sel := l5k.SelectAll(res.Project)
	snap := FromResult(res, sel)

	rebuilt := snap.Result()
	assert.Equal(t, res.ExportWhitelist(sel), rebuilt.ExportWhitelist(sel))
	assert.Equal(t, res.ControllerName, rebuilt.ControllerName)
	assert.Equal(t, res.HeaderText, rebuilt.HeaderText)

	// The hidden word's children are the same objects as the sibling members.
	dt, ok := rebuilt.Project.DataTypes.Get("MyType")
	require.True(t, ok)
	parent, ok := dt.Members.Get("ZZZZZZZZZZMyType0")
	require.True(t, ok)
	assert.Equal(t, []string{"Alarm", "Fault"}, parent.Children.Names())
	child, _ := parent.Children.Get("Alarm")
	sibling, _ := dt.Members.Get("Alarm")
	assert.Same(t, sibling, child)
}

func TestControllerNameNullable(t *testing.T) {
	res, err := l5k.Parse([]byte("TAG\nA : DINT;\nEND_TAG\n"))
	require.NoError(t, err)
	snap := FromResult(res, l5k.Selection{})
	require.Nil(t, snap.ControllerName)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"controller_name":null`)
}

func TestBitIndexNullable(t *testing.T) {
	res := parseSample(t)
	snap := FromResult(res, l5k.Selection{})

	require.Len(t, snap.Project.UDTs, 1)
	for _, m := range snap.Project.UDTs[0].Members {
		switch m.Name {
		case "Alarm":
			require.NotNil(t, m.BitIndex)
			assert.Equal(t, 0, *m.BitIndex)
		case "Count":
			assert.Nil(t, m.BitIndex)
		}
	}
}

func TestCheckboxStatesPartialContainer(t *testing.T) {
	res := parseSample(t)
	sel := l5k.Selection{
		DataTypeMembers: map[string]l5k.StringSet{"MyType": l5k.NewStringSet("Alarm")},
	}
	states := StatesFromSelection(res.Project, sel)

	byKey := make(map[string]CheckboxState)
	for _, cs := range states {
		byKey[cs.NodeType+"/"+cs.Parent+"/"+cs.Name] = cs
	}
	assert.Equal(t, StatePartial, byKey["UDT//MyType"].State)
	assert.Equal(t, StateChecked, byKey["UDT_MEMBER/MyType/Alarm"].State)
	assert.Equal(t, StateUnchecked, byKey["UDT_MEMBER/MyType/Fault"].State)
	assert.Equal(t, StateUnchecked, byKey["AOI//MyAOI"].State)
}

// selection -> checkbox states -> selection must drive the exporters to the
// same output.
func TestSelectionStateRoundTrip(t *testing.T) {
	res := parseSample(t)
	selections := []l5k.Selection{
		l5k.SelectAll(res.Project),
		{Tags: l5k.NewStringSet("MyTag")},
		{DataTypeMembers: map[string]l5k.StringSet{"MyType": l5k.NewStringSet("Fault")}},
		{Parameters: map[string]l5k.StringSet{"MyAOI": l5k.NewStringSet("P1")}},
		{ProgramTags: map[string]l5k.StringSet{"MainProgram": l5k.NewStringSet("PT1")}},
	}
	for _, sel := range selections {
		back := ToSelection(StatesFromSelection(res.Project, sel))
		assert.Equal(t, res.ExportWhitelist(sel), res.ExportWhitelist(back))
	}
}
