package b2chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain string", input: `"abc"`, want: "abc"},
		{name: "integer", input: `42`, want: "42"},
		{name: "large integer stays exact", input: `1234567890123456789`, want: "1234567890123456789"},
		{name: "float keeps literal form", input: `42.5`, want: "42.5"},
		{name: "null", input: `null`, want: ""},
		{name: "whitespace trimmed", input: `"  padded  "`, want: "padded"},
		{name: "boolean rejected", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s FlexString
			err := json.Unmarshal([]byte(tt.input), &s)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.String())
		})
	}
}

func TestFlexTime(t *testing.T) {
	want := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
	}{
		{name: "rfc3339", input: `"2025-03-10T14:30:00Z"`},
		{name: "rfc3339 with offset", input: `"2025-03-10T09:30:00-05:00"`},
		{name: "zoneless datetime", input: `"2025-03-10T14:30:00"`},
		{name: "space separated datetime", input: `"2025-03-10 14:30:00"`},
		{name: "epoch seconds", input: `1741617000`},
		{name: "epoch milliseconds", input: `1741617000000`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts FlexTime
			require.NoError(t, json.Unmarshal([]byte(tt.input), &ts))
			assert.True(t, ts.Time.Equal(want), "got %v", ts.Time)
		})
	}

	t.Run("date only", func(t *testing.T) {
		var ts FlexTime
		require.NoError(t, json.Unmarshal([]byte(`"2025-03-10"`), &ts))
		assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), ts.Time)
	})

	t.Run("null and empty give zero", func(t *testing.T) {
		var ts FlexTime
		require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
		assert.True(t, ts.IsZero())
		require.NoError(t, json.Unmarshal([]byte(`""`), &ts))
		assert.True(t, ts.IsZero())
		assert.Nil(t, ts.Ptr())
	})

	t.Run("garbage rejected", func(t *testing.T) {
		var ts FlexTime
		assert.Error(t, json.Unmarshal([]byte(`"three days ago"`), &ts))
	})

	t.Run("marshals to canonical UTC milliseconds", func(t *testing.T) {
		ts := FlexTime{Time: time.Date(2025, 3, 10, 9, 30, 0, 123456789, time.FixedZone("X", -5*3600))}
		out, err := json.Marshal(ts)
		require.NoError(t, err)
		assert.Equal(t, `"2025-03-10T14:30:00.123Z"`, string(out))
	})

	t.Run("zero marshals to null", func(t *testing.T) {
		out, err := json.Marshal(FlexTime{})
		require.NoError(t, err)
		assert.Equal(t, `null`, string(out))
	})
}

func TestFlexDuration(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      int64
		wantValid bool
	}{
		{name: "numeric seconds", input: `330`, want: 330, wantValid: true},
		{name: "float truncates", input: `12.7`, want: 12, wantValid: true},
		{name: "clock string", input: `"0:05:30"`, want: 330, wantValid: true},
		{name: "clock string with hours", input: `"1:02:03"`, want: 3723, wantValid: true},
		{name: "milliseconds round up", input: `"1:02:03:500"`, want: 3724, wantValid: true},
		{name: "milliseconds round down", input: `"1:02:03:499"`, want: 3723, wantValid: true},
		{name: "null", input: `null`, wantValid: false},
		{name: "empty string", input: `""`, wantValid: false},
		{name: "unparsable string ignored", input: `"soon"`, wantValid: false},
		{name: "two-part clock ignored", input: `"05:30"`, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d FlexDuration
			require.NoError(t, json.Unmarshal([]byte(tt.input), &d))
			assert.Equal(t, tt.wantValid, d.Valid)
			if tt.wantValid {
				assert.Equal(t, tt.want, d.Seconds)
				require.NotNil(t, d.Ptr())
				assert.Equal(t, tt.want, *d.Ptr())
			} else {
				assert.Nil(t, d.Ptr())
			}
		})
	}
}

func TestFlexStringList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "plain strings", input: `["a","b"]`, want: []string{"a", "b"}},
		{name: "objects with name", input: `[{"name":"x"},"y"]`, want: []string{"x", "y"}},
		{name: "bare string", input: `"solo"`, want: []string{"solo"}},
		{name: "null", input: `null`, want: nil},
		{name: "empties dropped", input: `[null,"",{"name":""}]`, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l FlexStringList
			require.NoError(t, json.Unmarshal([]byte(tt.input), &l))
			assert.Equal(t, FlexStringList(tt.want), l)
		})
	}
}

func TestContactTagList(t *testing.T) {
	var tags ContactTagList
	require.NoError(t, json.Unmarshal([]byte(`["vip",{"name":"gold","assigned_at":1}]`), &tags))
	require.Len(t, tags, 2)
	assert.Equal(t, "vip", tags[0].Name)
	assert.Nil(t, tags[0].AssignedAt)
	assert.Equal(t, "gold", tags[1].Name)
	assert.Equal(t, json.RawMessage(`1`), tags[1].AssignedAt)
}

func TestChatAgentUnmarshal(t *testing.T) {
	t.Run("string form", func(t *testing.T) {
		var a ChatAgent
		require.NoError(t, json.Unmarshal([]byte(`"María"`), &a))
		assert.Equal(t, "María", a.Name)
		assert.False(t, a.IsZero())
	})

	t.Run("object form", func(t *testing.T) {
		var a ChatAgent
		require.NoError(t, json.Unmarshal([]byte(`{"name":"María","username":"maria.r","email":"m@x.co"}`), &a))
		assert.Equal(t, "María", a.Name)
		assert.Equal(t, "maria.r", a.Username)
		assert.Equal(t, "m@x.co", a.Email)
	})

	t.Run("full_name fallback", func(t *testing.T) {
		var a ChatAgent
		require.NoError(t, json.Unmarshal([]byte(`{"full_name":"María Ruiz"}`), &a))
		assert.Equal(t, "María Ruiz", a.Name)
	})

	t.Run("null is zero", func(t *testing.T) {
		var a ChatAgent
		require.NoError(t, json.Unmarshal([]byte(`null`), &a))
		assert.True(t, a.IsZero())
	})
}

func TestChatContactUnmarshal(t *testing.T) {
	t.Run("string form", func(t *testing.T) {
		var c ChatContact
		require.NoError(t, json.Unmarshal([]byte(`"John"`), &c))
		assert.Equal(t, "John", c.Name)
	})

	t.Run("object with numeric id", func(t *testing.T) {
		var c ChatContact
		require.NoError(t, json.Unmarshal([]byte(`{"id":7,"mobile":"+1"}`), &c))
		assert.Equal(t, "7", c.ID.String())
		assert.Equal(t, "+1", c.Mobile)
	})

	t.Run("contact_id and phone fallbacks", func(t *testing.T) {
		var c ChatContact
		require.NoError(t, json.Unmarshal([]byte(`{"contact_id":"9","fullname":"Ana","phone":"+57"}`), &c))
		assert.Equal(t, "9", c.ID.String())
		assert.Equal(t, "Ana", c.Name)
		assert.Equal(t, "+57", c.Mobile)
	})
}

func TestChatDepartmentUnmarshal(t *testing.T) {
	t.Run("string form fills code and name", func(t *testing.T) {
		var d ChatDepartment
		require.NoError(t, json.Unmarshal([]byte(`"sales"`), &d))
		assert.Equal(t, "sales", d.Code.String())
		assert.Equal(t, "sales", d.Name)
	})

	t.Run("object form", func(t *testing.T) {
		var d ChatDepartment
		require.NoError(t, json.Unmarshal([]byte(`{"code":"SUP","name":"Support","is_leaf":false}`), &d))
		assert.Equal(t, "SUP", d.Code.String())
		assert.Equal(t, "Support", d.Name)
		require.NotNil(t, d.IsLeaf)
		assert.False(t, *d.IsLeaf)
		assert.Nil(t, d.IsActive)
	})

	t.Run("id fallback and name from code", func(t *testing.T) {
		var d ChatDepartment
		require.NoError(t, json.Unmarshal([]byte(`{"id":12}`), &d))
		assert.Equal(t, "12", d.Code.String())
		assert.Equal(t, "12", d.Name)
	})
}
