package reasoning

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseJSON(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &parsed))
	return parsed
}

func TestEnforceNephrologyWellFormed(t *testing.T) {
	parsed := parseJSON(t, `{
		"concerns": [
			{"title": "Low eGFR", "reason": "Your filtration rate is below the typical range.", "questionsToAskDoctor": ["What could be causing this?", "Is this temporary?", "Do I need additional tests?"]},
			{"title": "Elevated Creatinine", "reason": "Creatinine is above the reference range.", "questionsToAskDoctor": ["a", "b", "c"]},
			{"title": "High ACR", "reason": "Protein leakage into urine is elevated.", "questionsToAskDoctor": ["a", "b", "c"]}
		]
	}`)

	result := EnforceNephrology(parsed)

	require.Len(t, result.Concerns, 3)
	assert.Equal(t, "Low eGFR", result.Concerns[0].Title)
	assert.Equal(t, []string{"What could be causing this?", "Is this temporary?", "Do I need additional tests?"}, result.Concerns[0].DoctorQuestions)
	assert.False(t, result.Error)
	assert.Empty(t, result.Message)
}

func TestEnforceNephrologyDropsMalformedConcerns(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "Null title and reason",
			body: `{"concerns":[{"title":null,"reason":null}]}`,
			want: 0,
		},
		{
			name: "Missing title and reason",
			body: `{"concerns":[{"questionsToAskDoctor":["a"]}]}`,
			want: 0,
		},
		{
			name: "Blank title and reason",
			body: `{"concerns":[{"title":"  ","reason":"\t"}]}`,
			want: 0,
		},
		{
			name: "Non-object entries",
			body: `{"concerns":["text", 42, null, ["x"]]}`,
			want: 0,
		},
		{
			name: "Empty object entry",
			body: `{"concerns":[{}]}`,
			want: 0,
		},
		{
			name: "Title alone survives",
			body: `{"concerns":[{"title":"Low eGFR"}]}`,
			want: 1,
		},
		{
			name: "Reason alone survives",
			body: `{"concerns":[{"reason":"explanation"}]}`,
			want: 1,
		},
		{
			name: "Concerns not a list",
			body: `{"concerns":{"title":"x"}}`,
			want: 0,
		},
		{
			name: "Concerns missing entirely",
			body: `{"other":1}`,
			want: 0,
		},
		{
			name: "Mixed valid and invalid",
			body: `{"concerns":[{"title":"A"},{"title":null,"reason":null},{"reason":"B"}]}`,
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EnforceNephrology(parseJSON(t, tt.body))
			require.NotNil(t, result.Concerns)
			assert.Len(t, result.Concerns, tt.want)
		})
	}
}

func TestEnforceNephrologyQuestionHandling(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "Primary key preferred",
			body: `{"concerns":[{"title":"T","questionsToAskDoctor":["a","b"],"doctorQuestions":["x"]}]}`,
			want: []string{"a", "b"},
		},
		{
			name: "Fallback when primary missing",
			body: `{"concerns":[{"title":"T","doctorQuestions":["x","y"]}]}`,
			want: []string{"x", "y"},
		},
		{
			name: "Fallback when primary empty",
			body: `{"concerns":[{"title":"T","questionsToAskDoctor":[],"doctorQuestions":["x"]}]}`,
			want: []string{"x"},
		},
		{
			name: "Truncated to three before filtering",
			body: `{"concerns":[{"title":"T","questionsToAskDoctor":["","q1","","q2"]}]}`,
			want: []string{"q1"},
		},
		{
			name: "Entries trimmed and stringified",
			body: `{"concerns":[{"title":"T","questionsToAskDoctor":["  spaced  ",7,null]}]}`,
			want: []string{"spaced", "7"},
		},
		{
			name: "Non-list questions discarded",
			body: `{"concerns":[{"title":"T","questionsToAskDoctor":"what"}]}`,
			want: []string{},
		},
		{
			name: "No questions at all",
			body: `{"concerns":[{"title":"T"}]}`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EnforceNephrology(parseJSON(t, tt.body))
			require.Len(t, result.Concerns, 1)
			assert.Equal(t, tt.want, result.Concerns[0].DoctorQuestions)
		})
	}
}

func TestEnforceNephrologyCoercesTitleAndReason(t *testing.T) {
	result := EnforceNephrology(parseJSON(t, `{"concerns":[{"title":42,"reason":"  padded  "}]}`))

	require.Len(t, result.Concerns, 1)
	assert.Equal(t, "42", result.Concerns[0].Title)
	assert.Equal(t, "padded", result.Concerns[0].Reason)
}

func TestEnforceAnyReport(t *testing.T) {
	parsed := parseJSON(t, `{
		"concerns": [{"title": "Low Hemoglobin", "reason": "Hemoglobin is below the reference range.", "questionsToAskDoctor": ["a", "b", "c"]}],
		"recommendedDepartment": "  Internal Medicine  ",
		"precautions": ["Stay hydrated", "", null, "Avoid strenuous exercise", "Get enough rest", "Extra"]
	}`)

	result := EnforceAnyReport(parsed)

	require.Len(t, result.Concerns, 1)
	assert.Equal(t, "Low Hemoglobin", result.Concerns[0].Title)
	assert.Equal(t, "Internal Medicine", result.RecommendedDepartment)
	assert.Equal(t, []string{"Stay hydrated", "Avoid strenuous exercise", "Get enough rest"}, result.Precautions)
}

func TestEnforceAnyReportDefaults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "Fields missing",
			body: `{"concerns":[]}`,
		},
		{
			name: "Fields wrong type",
			body: `{"concerns":[],"recommendedDepartment":42,"precautions":"none"}`,
		},
		{
			name: "Fields null",
			body: `{"concerns":[],"recommendedDepartment":null,"precautions":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EnforceAnyReport(parseJSON(t, tt.body))
			assert.Equal(t, "", result.RecommendedDepartment)
			require.NotNil(t, result.Precautions)
			assert.Empty(t, result.Precautions)
			require.NotNil(t, result.Concerns)
			assert.False(t, result.Error)
		})
	}
}

func TestEnforceCapsListLengths(t *testing.T) {
	body := `{
		"concerns": [{"title": "T", "questionsToAskDoctor": ["1", "2", "3", "4", "5"]}],
		"precautions": ["a", "b", "c", "d"]
	}`

	nephro := EnforceNephrology(parseJSON(t, body))
	require.Len(t, nephro.Concerns, 1)
	assert.Len(t, nephro.Concerns[0].DoctorQuestions, 3)

	anyReport := EnforceAnyReport(parseJSON(t, body))
	assert.Len(t, anyReport.Precautions, 3)
}
