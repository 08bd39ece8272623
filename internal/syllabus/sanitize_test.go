package syllabus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStripsFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"plain fences", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json language tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"uppercase tag", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```  \n", `{"a":1}`},
		{"single line fence", "```json{\"a\":1}```", `{"a":1}`},
		{"tag glued to payload", "```json {\"a\":1}\n```", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}

func TestSanitizeStripsQuoteLayer(t *testing.T) {
	in := `"{\"syllabusDescription\": \"Algebra\", \"chapters\": []}"`
	assert.Equal(t, `{"syllabusDescription": "Algebra", "chapters": []}`, Sanitize(in))
}

func TestSanitizeKeepsQuotedNonObject(t *testing.T) {
	// A quoted plain string is not an object body; the quotes stay.
	in := `"just a sentence"`
	assert.Equal(t, in, Sanitize(in))
}

func TestSanitizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"```json\n{\"a\":1}\n```",
		`"{\"a\": 1}"`,
		`{"a":1}`,
		"```\n\"{\\\"a\\\": 1}\"\n```",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}
