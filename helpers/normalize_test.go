package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	// decomposed accent composes under NFKC
	assert.Equal(t, "Café", NormalizeText("Café"))
	// full-width characters fold to ASCII
	assert.Equal(t, "ABC", NormalizeText("ＡＢＣ"))
	assert.Equal(t, "", NormalizeText(""))
	assert.Equal(t, "plain", NormalizeText("plain"))
}

func TestNormalizeInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1,234", 1234, false},
		{"#5", 5, false},
		{"1.234", 1234, false},
		{" 42 ", 42, false},
		{"", 0, true},
		{"4.5 of 5", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := NormalizeInt(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
		} else {
			assert.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestNormalizeFloat(t *testing.T) {
	got, err := NormalizeFloat("4.5")
	assert.NoError(t, err)
	assert.Equal(t, 4.5, got)

	got, err = NormalizeFloat("1,234.5")
	assert.NoError(t, err)
	assert.Equal(t, 1234.5, got)

	got, err = NormalizeFloat("#3.0")
	assert.NoError(t, err)
	assert.Equal(t, 3.0, got)

	_, err = NormalizeFloat("4.5 of 5")
	assert.Error(t, err)

	_, err = NormalizeFloat("")
	assert.Error(t, err)
}

func TestGetSplitPart(t *testing.T) {
	part, err := GetSplitPart("a/b/c", "/", 1)
	assert.NoError(t, err)
	assert.Equal(t, "b", part)

	_, err = GetSplitPart("a/b", "/", 5)
	assert.Error(t, err)
}

func TestLastSplitPart(t *testing.T) {
	assert.Equal(t, "slug", LastSplitPart("/Profile/slug", "/"))
	assert.Equal(t, "plain", LastSplitPart("plain", "/"))
}

func TestFirstToken(t *testing.T) {
	assert.Equal(t, "4.5", FirstToken("4.5 of 5 bubbles"))
	assert.Equal(t, "", FirstToken("   "))
	assert.Equal(t, "", FirstToken(""))
}
