package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Plain JSON untouched",
			input: `{"concerns":[]}`,
			want:  `{"concerns":[]}`,
		},
		{
			name:  "Fence with language tag",
			input: "```json\n{\"concerns\":[]}\n```",
			want:  `{"concerns":[]}`,
		},
		{
			name:  "Fence without language tag",
			input: "```\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "Fence without newline",
			input: "```{\"a\":1}```",
			want:  `{"a":1}`,
		},
		{
			name:  "Surrounding whitespace",
			input: "  \n {\"a\":1} \n ",
			want:  `{"a":1}`,
		},
		{
			name:  "Fenced with surrounding whitespace",
			input: "\n\n```json\n{}\n```  \n",
			want:  "{}",
		},
		{
			name:  "Opening fence only",
			input: "```json\n{}",
			want:  "{}",
		},
		{
			name:  "Closing fence only",
			input: "{}\n```",
			want:  "{}",
		},
		{
			name:  "Embedded backticks kept",
			input: "{\"note\":\"use ``` for code\"}",
			want:  "{\"note\":\"use ``` for code\"}",
		},
		{
			name:  "Empty input",
			input: "",
			want:  "",
		},
		{
			name:  "Whitespace only",
			input: "   \n\t ",
			want:  "",
		},
		{
			name:  "Fences only",
			input: "```json\n```",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripCodeFences(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, StripCodeFences(got), "sanitizing already-clean text must be a no-op")
		})
	}
}
