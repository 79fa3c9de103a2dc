package diary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTags(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    []string
	}{
		{"none", "no tags here", nil},
		{"basic", "slept badly #insomnia and worried #work", []string{"insomnia", "work"}},
		{"dedupe and lowercase", "#Work #work #WORK", []string{"work"}},
		{"underscore and digits", "#self_care2", []string{"self_care2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractTags(tc.content))
		})
	}
}

func TestExtractTags_Cap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("#tag")
		b.WriteByte(byte('a' + i%26))
		b.WriteString(strings.Repeat("x", i/26+1))
		b.WriteString(" ")
	}
	got := ExtractTags(b.String())
	assert.Len(t, got, 20)
}
