package appdata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteCounts(t *testing.T) {
	empty := NewComplete()
	assert.True(t, empty.HasNoTasks())

	oneCurrent := NewComplete()
	oneCurrent.Task = NewEntityState(TaskID, Task{ID: "t1"})
	assert.False(t, oneCurrent.HasNoTasks())
	assert.Equal(t, 1, oneCurrent.CurrentCount())
	assert.Equal(t, 0, oneCurrent.ArchivedCount())

	oneArchived := NewComplete()
	oneArchived.TaskArchive = NewEntityState(TaskID, Task{ID: "a1"})
	assert.False(t, oneArchived.HasNoTasks())

	var nilData *Complete
	assert.True(t, nilData.HasNoTasks())
	assert.Equal(t, Summary{}, nilData.Summarize())
}

func TestCompleteCloneIsDeep(t *testing.T) {
	orig := NewComplete()
	orig.Project = NewEntityState(ProjectID, Project{ID: "p1", TaskIDs: []string{"t1"}})
	orig.Task = NewEntityState(TaskID, Task{ID: "t1", ProjectID: "p1", TagIDs: []string{"x"}})
	orig.GlobalConfig.Misc = map[string]any{"theme": "dark"}

	cp := orig.Clone()
	cp.Task.IDs[0] = "changed"
	p := cp.Project.Entities["p1"]
	p.TaskIDs[0] = "changed"
	cp.GlobalConfig.Misc["theme"] = "light"

	assert.Equal(t, "t1", orig.Task.IDs[0])
	assert.Equal(t, "t1", orig.Project.Entities["p1"].TaskIDs[0])
	assert.Equal(t, "dark", orig.GlobalConfig.Misc["theme"])
}

func TestCompleteJSONShape(t *testing.T) {
	raw := `{"task":{"ids":[],"entities":{}},"taskArchive":{"ids":[],"entities":{}}}`
	var data Complete
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	assert.True(t, data.HasNoTasks())
	assert.Equal(t, Summary{}, data.Summarize())
}

func TestLegacyStateClone(t *testing.T) {
	s := &LegacyState{
		ModelVersion: 1,
		IDs:          []string{"p1"},
		Entities:     map[string]map[string]any{"p1": {"name": "Inbox"}},
	}
	cp := s.Clone()
	cp.Entities["p1"]["name"] = "Other"
	cp.IDs[0] = "p2"

	assert.Equal(t, "Inbox", s.Entities["p1"]["name"])
	assert.Equal(t, "p1", s.IDs[0])
}

func TestEntityStateOrdered(t *testing.T) {
	s := NewEntityState(NoteID, Note{ID: "b"}, Note{ID: "a"})
	s.IDs = append(s.IDs, "missing")
	ordered := s.Ordered()
	require.Len(t, ordered, 2)
	assert.Equal(t, "b", ordered[0].ID)
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("missing"))
}
