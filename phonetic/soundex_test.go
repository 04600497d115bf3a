package phonetic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	tests := []struct {
		word string
		want string
	}{
		{"Robert", "R163"},
		{"Rupert", "R163"},
		{"Ashcraft", "A261"},
		{"Tymczak", "T522"},
		{"Pfister", "P236"},
		{"Honeyman", "H555"},
		{"Lee", "L000"},
		{"costco", "C232"},
		{"", ""},
		{"123", ""},
		{"סופר", ""},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.word))
		})
	}
}

func TestCode_CaseInsensitive(t *testing.T) {
	assert.Equal(t, Code("ROBERT"), Code("robert"))
}

func TestMatch(t *testing.T) {
	t.Run("equal codes score 0.8", func(t *testing.T) {
		assert.InDelta(t, 0.8, Match("Robert", "Rupert"), 1e-9)
	})

	t.Run("half the positions agree scores 0.4", func(t *testing.T) {
		// R163 vs R100: two positions agree
		assert.InDelta(t, 0.4, Match("Robert", "Rob"), 1e-9)
	})

	t.Run("unrelated words score 0", func(t *testing.T) {
		assert.Zero(t, Match("Walmart", "IKEA"))
	})

	t.Run("non-latin input scores 0", func(t *testing.T) {
		assert.Zero(t, Match("סופר", "Super"))
	})
}

func TestBestTokenMatch(t *testing.T) {
	t.Run("matches across multi-word vendors", func(t *testing.T) {
		assert.InDelta(t, 0.8, BestTokenMatch("Robert Hardware", "Rupert Supplies"), 1e-9)
	})

	t.Run("empty phrases", func(t *testing.T) {
		assert.Zero(t, BestTokenMatch("", "Costco"))
	})
}
