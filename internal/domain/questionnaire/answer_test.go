package questionnaire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswerValue(t *testing.T) {
	t.Run("string becomes scalar", func(t *testing.T) {
		v, err := ParseAnswerValue(json.RawMessage(`"是"`))
		require.NoError(t, err)
		s, ok := v.AsScalar()
		require.True(t, ok)
		assert.Equal(t, "是", s)
	})

	t.Run("number becomes scalar", func(t *testing.T) {
		v, err := ParseAnswerValue(json.RawMessage(`3500`))
		require.NoError(t, err)
		s, ok := v.AsScalar()
		require.True(t, ok)
		assert.Equal(t, "3500", s)
	})

	t.Run("array becomes list", func(t *testing.T) {
		v, err := ParseAnswerValue(json.RawMessage(`["现场照片","医疗记录"]`))
		require.NoError(t, err)
		items, ok := v.AsList()
		require.True(t, ok)
		assert.Equal(t, []string{"现场照片", "医疗记录"}, items)
	})

	t.Run("object becomes form", func(t *testing.T) {
		v, err := ParseAnswerValue(json.RawMessage(`{"Name":"张三","MedicalCost":1200.50}`))
		require.NoError(t, err)
		form, ok := v.AsForm()
		require.True(t, ok)
		assert.Equal(t, "张三", form["Name"])
		assert.Equal(t, "1200.5", form["MedicalCost"])
	})

	t.Run("mixed-type list is rejected", func(t *testing.T) {
		_, err := ParseAnswerValue(json.RawMessage(`["a", 1]`))
		assert.Error(t, err)
	})

	t.Run("nested object in form is rejected", func(t *testing.T) {
		_, err := ParseAnswerValue(json.RawMessage(`{"a":{"b":"c"}}`))
		assert.Error(t, err)
	})
}

func TestAnswerValueJSONRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		value AnswerValue
		wire  string
	}{
		{"scalar", NewScalarValue("是"), `"是"`},
		{"list", NewListValue([]string{"a", "b"}), `["a","b"]`},
		{"form", NewFormValue(map[string]string{"Name": "张三"}), `{"Name":"张三"}`},
		{"empty list", NewListValue(nil), `[]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.value)
			require.NoError(t, err)
			assert.JSONEq(t, tc.wire, string(data))

			var back AnswerValue
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tc.value.Kind, back.Kind)
			assert.Equal(t, tc.value.String(), back.String())
		})
	}
}

func TestAnswerValueExtraction(t *testing.T) {
	scalar := NewScalarValue("x")
	_, ok := scalar.AsList()
	assert.False(t, ok)
	_, ok = scalar.AsForm()
	assert.False(t, ok)

	list := NewListValue([]string{"x"})
	_, ok = list.AsScalar()
	assert.False(t, ok)

	assert.True(t, NewScalarValue("").IsEmpty())
	assert.True(t, NewListValue(nil).IsEmpty())
	assert.True(t, NewFormValue(nil).IsEmpty())
	assert.False(t, NewScalarValue("x").IsEmpty())
}

func TestAnswerValueString(t *testing.T) {
	assert.Equal(t, "是", NewScalarValue("是").String())
	assert.Equal(t, "a、b", NewListValue([]string{"a", "b"}).String())
	assert.Contains(t, NewFormValue(map[string]string{"Name": "张三"}).String(), "张三")
}
