package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Today")
	require.NoError(t, err)
	assert.Equal(t, ModeToday, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Mode(""), m)

	_, err = ParseMode("someday")
	require.Error(t, err)
}

func TestParseSort(t *testing.T) {
	specs, err := ParseSort("dueDate, name:desc")
	require.NoError(t, err)
	assert.Equal(t, []SortSpec{{Field: "dueDate", Direction: Asc}, {Field: "name", Direction: Desc}}, specs)

	_, err = ParseSort("name:sideways")
	require.Error(t, err)

	specs, err = ParseSort("  ")
	require.NoError(t, err)
	assert.Nil(t, specs)
}

func TestNormalize(t *testing.T) {
	q := &QueryRequest{EntityType: "task"}
	require.NoError(t, q.Normalize())
	assert.Equal(t, DefaultLimit, q.Limit)

	tests := []struct {
		name string
		req  QueryRequest
	}{
		{"limit too large", QueryRequest{Limit: 201}},
		{"negative limit", QueryRequest{Limit: -1}},
		{"negative offset", QueryRequest{Limit: 10, Offset: -1}},
		{"days ahead too large", QueryRequest{Limit: 10, ModeOptions: ModeOptions{DaysAhead: intPtr(400)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			assert.Error(t, req.Normalize())
		})
	}
}

func TestNormalizeWith(t *testing.T) {
	q := &QueryRequest{EntityType: "task"}
	require.NoError(t, q.NormalizeWith(Limits{Default: 20, Max: 500}))
	assert.Equal(t, 20, q.Limit)

	q = &QueryRequest{EntityType: "task", Limit: 400}
	require.NoError(t, q.NormalizeWith(Limits{Default: 20, Max: 500}))
	assert.Error(t, q.Normalize())
}

func TestMutationPayload(t *testing.T) {
	create := &MutationRequest{Operation: OpCreate, Data: map[string]any{"name": "x"}}
	assert.Equal(t, map[string]any{"name": "x"}, create.Payload())

	update := &MutationRequest{Operation: OpUpdate, Changes: map[string]any{"flagged": true}}
	assert.Equal(t, map[string]any{"flagged": true}, update.Payload())

	del := &MutationRequest{Operation: OpDelete, ID: "a"}
	assert.Nil(t, del.Payload())
	assert.True(t, del.Destructive())
	assert.False(t, create.Destructive())
}

func TestTaskOnly(t *testing.T) {
	assert.False(t, ModeAll.TaskOnly())
	assert.False(t, Mode("").TaskOnly())
	assert.True(t, ModeOverdue.TaskOnly())
}

func intPtr(n int) *int { return &n }
