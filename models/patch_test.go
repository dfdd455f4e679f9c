package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/custody-ledger-api/models"
)

func TestRecordPatch_UnmarshalJSON(t *testing.T) {
	t.Run("known fields", func(t *testing.T) {
		var p models.RecordPatch
		require.NoError(t, json.Unmarshal([]byte(`{"reason":"Theft","age":40,"status":"Released"}`), &p))
		require.NotNil(t, p.Reason)
		assert.Equal(t, "Theft", *p.Reason)
		require.NotNil(t, p.Age)
		assert.Equal(t, 40, *p.Age)
		require.NotNil(t, p.Status)
		assert.Equal(t, models.StatusReleased, *p.Status)
		assert.Nil(t, p.Location)
	})

	t.Run("empty object", func(t *testing.T) {
		var p models.RecordPatch
		require.NoError(t, json.Unmarshal([]byte(`{}`), &p))
		assert.True(t, p.IsEmpty())
	})

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "id", body: `{"id":"CASE-9999-Z"}`, want: "id is immutable"},
		{name: "isArchived", body: `{"reason":"x","isArchived":true}`, want: "isArchived is immutable"},
		{name: "logs", body: `{"logs":[]}`, want: "logs is immutable"},
		{name: "evidence", body: `{"evidenceUrls":["a.jpg"]}`, want: "evidenceUrls is immutable"},
		{name: "unknown", body: `{"colour":"red"}`, want: `unknown field "colour"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p models.RecordPatch
			err := json.Unmarshal([]byte(tt.body), &p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("nested in a request body", func(t *testing.T) {
		var req struct {
			Updates models.RecordPatch `json:"updates"`
		}
		err := json.Unmarshal([]byte(`{"updates":{"colour":"red"}}`), &req)
		assert.Error(t, err)
	})
}
