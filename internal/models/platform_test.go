package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlatformString(t *testing.T) {
	assert.Equal(t, "modrinth", MODRINTH.String())
	assert.Equal(t, "curseforge", CURSEFORGE.String())
	assert.Equal(t, "custom", Platform("custom").String())
}

func TestPlatformOther(t *testing.T) {
	assert.Equal(t, CURSEFORGE, MODRINTH.Other())
	assert.Equal(t, MODRINTH, CURSEFORGE.Other())
}

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		input    string
		expected Platform
		ok       bool
	}{
		{"modrinth", MODRINTH, true},
		{"curseforge", CURSEFORGE, true},
		{"", "", false},
		{"github", "", false},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			actual, ok := ParsePlatform(test.input)
			assert.Equal(t, test.ok, ok)
			assert.Equal(t, test.expected, actual)
		})
	}
}
