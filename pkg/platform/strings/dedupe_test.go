package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "trims and drops blanks",
			input:    []string{"  broker-1:9092 ", "", "   "},
			expected: []string{"broker-1:9092"},
		},
		{
			name:     "keeps first occurrence order",
			input:    []string{"b:9092", "a:9092", " b:9092", "a:9092"},
			expected: []string{"b:9092", "a:9092"},
		},
		{
			name:     "case sensitive",
			input:    []string{"Broker:9092", "broker:9092"},
			expected: []string{"Broker:9092", "broker:9092"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
