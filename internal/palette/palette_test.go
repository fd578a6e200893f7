package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"blue", "#0000ff"},
		{"Orange", "#ffa500"},
		{"#123abc", "#123abc"},
		{"00ff00", "#00ff00"},
	}
	for _, tt := range tests {
		c, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, c.Hex(), tt.in)
	}

	_, err := Parse("not-a-color")
	assert.Error(t, err)
}

func TestRampHex(t *testing.T) {
	r := MustRamp(-1, 1, "blue", "white", "green")
	assert.Equal(t, []string{"0000ff", "ffffff", "008000"}, r.Hex())
}

func TestRampAtEndpointsAndClamp(t *testing.T) {
	r := MustRamp(-1, 1, "blue", "green", "yellow", "orange", "red")

	assert.Equal(t, "#0000ff", r.At(-1).Hex())
	assert.Equal(t, "#0000ff", r.At(-5).Hex())
	assert.Equal(t, "#ff0000", r.At(1).Hex())
	assert.Equal(t, "#ff0000", r.At(3).Hex())
	// a stop sits exactly at the midpoint
	assert.Equal(t, "#ffff00", r.At(0).Hex())
}

func TestNewRampRejectsBadInput(t *testing.T) {
	_, err := NewRamp(-1, 1)
	assert.Error(t, err)

	_, err = NewRamp(1, 1, "red")
	assert.Error(t, err)

	_, err = NewRamp(-1, 1, "red", "mauve-ish")
	assert.Error(t, err)
}

func TestForLabelIsStable(t *testing.T) {
	assert.Equal(t, ForLabel("plastic").Hex(), ForLabel("plastic").Hex())
	assert.True(t, ForLabel("bottle").IsValid())
}
