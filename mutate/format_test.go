package mutate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMutators(t *testing.T) {
	tests := []struct {
		kind  FormatKind
		input string
		want  string
	}{
		{FormatUppercase, "hello world", "HELLO WORLD"},
		{FormatLowercase, "HELLO WORLD", "hello world"},
		{FormatTitleCase, "hello world", "Hello World"},
		{FormatWhitespaceDouble, "a b", "a  b"},
		{FormatTabInjection, "a b", "a\t b"},
		{FormatMultiNewline, "a b", "a\n\nb"},
		{FormatPunctuationStrip, "hello, world!", "hello world"},
		{FormatPunctuationDouble, "hello, world!", "hello,, world!!"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.input, tt.kind))
		})
	}
}

func TestFormatUnknownKindReturnsInputUnchanged(t *testing.T) {
	assert.Equal(t, "unchanged", Format("unchanged", FormatKind("not-a-real-kind")))
}

func TestAllFormatKindsAreHandled(t *testing.T) {
	for _, kind := range AllFormatKinds {
		out := Format("sample text.", kind)
		assert.NotEmpty(t, out, "kind %s should produce non-empty output for non-empty input", kind)
	}
}
