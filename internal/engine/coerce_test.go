package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToFloat(t *testing.T) {
	tests := []struct {
		name string
		cell string
		def  float64
		want float64
	}{
		{"empty", "", 0, 0},
		{"whitespace", "   ", 1.5, 1.5},
		{"none sentinel", "None", 2.5, 2.5},
		{"none with padding", " None ", 2.5, 2.5},
		{"unparsable", "abc", 7, 7},
		{"integer", "42", 0, 42},
		{"float", "3.14", 0, 3.14},
		{"negative", "-12.5", 0, -12.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToFloat(tt.cell, tt.def))
		})
	}
}

func TestToInt(t *testing.T) {
	tests := []struct {
		name string
		cell string
		def  int
		want int
	}{
		{"empty", "", 0, 0},
		{"none sentinel", "None", 9, 9},
		{"unparsable", "1.2.3", 9, 9},
		{"integer", "42", 0, 42},
		{"float truncates", "3.14", 0, 3},
		{"float truncates toward zero", "-3.9", 0, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToInt(tt.cell, tt.def))
		})
	}
}
