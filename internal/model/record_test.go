package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Blank(t *testing.T) {
	t.Parallel()

	assert.True(t, Record{}.Blank())
	assert.True(t, Record{FieldName: "  ", FieldEmail: ""}.Blank())
	assert.False(t, Record{FieldName: "", FieldEmail: "a@b.co"}.Blank())
}

func TestRecord_Values(t *testing.T) {
	t.Parallel()

	rec := Record{FieldName: "Ada", FieldEmail: "ada@example.com"}
	assert.Equal(t, []string{"ada@example.com", "", "Ada"}, rec.Values([]Field{FieldEmail, FieldPhone, FieldName}))
}

func TestSource_DisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Apollo.io", SourceContacts.DisplayName())
	assert.Equal(t, "Google Maps", SourcePlaces.DisplayName())
	assert.Equal(t, "other", Source("other").DisplayName())
}

func TestTaskStatus_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, TaskStatusPending.Terminal())
	assert.False(t, TaskStatusRunning.Terminal())
	assert.True(t, TaskStatusCompleted.Terminal())
	assert.True(t, TaskStatusFailed.Terminal())
}

func TestTask_MarshalJSONKeepsFieldOrder(t *testing.T) {
	t.Parallel()

	task := Task{
		ID:     "t-1",
		Status: TaskStatusCompleted,
		Fields: []Field{FieldPhone, FieldName, FieldEmail},
		Records: []Record{
			{FieldName: "Ada", FieldEmail: "ada@example.com", FieldPhone: "(555) 123-4567"},
			{FieldName: "Bob", FieldEmail: "", FieldPhone: "", Field("zeta"): "z", Field("alpha"): "a"},
		},
	}
	b, err := json.Marshal(task)
	require.NoError(t, err)

	body := string(b)
	assert.Contains(t, body, `"data":[{"phone":"(555) 123-4567","name":"Ada","email":"ada@example.com"},{"phone":"","name":"Bob","email":"","alpha":"a","zeta":"z"}]`)
	assert.Contains(t, body, `"task_id":"t-1"`)
	assert.Contains(t, body, `"fields":["phone","name","email"]`)

	var back Task
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, task.Records, back.Records)
}

func TestTask_MarshalJSONNilRecords(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(Task{ID: "t-2", Status: TaskStatusFailed})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"data":null`)
	assert.Equal(t, 1, strings.Count(string(b), `"data"`))

	b, err = json.Marshal(Task{ID: "t-3", Records: []Record{}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"data":[]`)
}
