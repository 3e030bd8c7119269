package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToRelative(t *testing.T) {
	tests := []struct {
		name     string
		absPath  string
		rootDir  string
		expected string
	}{
		{"nested path", "/proj/src/a.cpp", "/proj", "src/a.cpp"},
		{"root-level file", "/proj/a.cpp", "/proj", "a.cpp"},
		{"same directory", "/proj", "/proj", "."},
		{"outside root", "/other/a.h", "/proj", "/other/a.h"},
		{"already relative", "src/a.cpp", "/proj", "src/a.cpp"},
		{"empty path", "", "/proj", ""},
		{"empty root", "/proj/a.cpp", "", "/proj/a.cpp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToRelative(tt.absPath, tt.rootDir))
		})
	}
}
