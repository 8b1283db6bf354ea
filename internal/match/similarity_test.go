package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Nintendo Switch OLED", "nintendo switch oled"},
		{"strips punctuation", "iPhone 13, Pro (128GB)!!", "iphone 13 pro 128gb"},
		{"collapses whitespace", "  sony   wh-1000xm4  ", "sony wh 1000xm4"},
		{"empty", "", ""},
		{"only punctuation", "!!! --- ???", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 100, Ratio("nintendo switch", "nintendo switch"))
	assert.Equal(t, 0, Ratio("abc", ""))
	assert.Equal(t, 0, Ratio("", ""))

	// One substitution in a 15-rune string.
	got := Ratio("nintendo switch", "nintendo svitch")
	assert.Greater(t, got, 90)
	assert.Less(t, got, 100)
}

func TestTokenSetRatioOrderInvariance(t *testing.T) {
	a := TokenSetRatio("nintendo switch oled", "oled switch nintendo")
	assert.Equal(t, 100, a)
}

func TestTokenSetRatioDuplicateInvariance(t *testing.T) {
	a := TokenSetRatio("switch switch nintendo", "nintendo switch")
	assert.Equal(t, 100, a)
}

func TestTokenSetRatioSubsetScoresFull(t *testing.T) {
	// One side's tokens being a subset of the other's scores 100: the
	// intersection equals the smaller set.
	assert.Equal(t, 100, TokenSetRatio("nintendo switch", "nintendo switch oled model 2021"))
}

func TestTokenSetRatioDisjoint(t *testing.T) {
	got := TokenSetRatio("nintendo switch", "dyson vacuum")
	assert.Less(t, got, 50)
}

func TestTokenSetRatioEmpty(t *testing.T) {
	assert.Equal(t, 0, TokenSetRatio("", "nintendo switch"))
	assert.Equal(t, 0, TokenSetRatio("", ""))
}
