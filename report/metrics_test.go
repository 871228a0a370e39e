package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeMetrics(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantWords int
		wantChars int
	}{
		{name: "empty", text: "", wantWords: 0, wantChars: 0},
		{name: "mixed whitespace", text: "a  b\tc\n", wantWords: 3, wantChars: 7},
		{name: "single word", text: "hello", wantWords: 1, wantChars: 5},
		{name: "whitespace only", text: " \t\n", wantWords: 0, wantChars: 3},
		{name: "unicode runes", text: "über döcument", wantWords: 2, wantChars: 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ComputeMetrics(tt.text)
			assert.Equal(t, tt.wantWords, m.WordCount, "word count")
			assert.Equal(t, tt.wantChars, m.CharCount, "char count")
		})
	}
}
