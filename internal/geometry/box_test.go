package geometry

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxAccessors(t *testing.T) {
	b := NewBox(Point{X: 30, Y: 12}, Point{X: 90, Y: 10}, Point{X: 92, Y: 28}, Point{X: 28, Y: 30})
	require.True(t, b.Valid())
	assert.Equal(t, 10.0, b.Top())
	assert.Equal(t, 28.0, b.Left())
	assert.Equal(t, 20.0, b.Height())
}

func TestRectBox(t *testing.T) {
	b := RectBox(100, 40, 50, 12)
	assert.Equal(t, 40.0, b.Top())
	assert.Equal(t, 100.0, b.Left())
	assert.Equal(t, 12.0, b.Height())
	assert.Len(t, b.Points(), 4)
}

func TestAbsentBoxFallsBackToZero(t *testing.T) {
	tests := []struct {
		name string
		box  Box
	}{
		{"zero value", Box{}},
		{"no points", NewBox()},
		{"nan", NewBox(Point{X: math.NaN(), Y: 1})},
		{"inf", NewBox(Point{X: 1, Y: math.Inf(1)})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.box.Valid())
			assert.Zero(t, tt.box.Top())
			assert.Zero(t, tt.box.Left())
			assert.Zero(t, tt.box.Height())
		})
	}
}

func TestBoxUnmarshalTolerant(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		valid bool
		top   float64
	}{
		{"pairs", `[[1,5],[9,5],[9,15],[1,15]]`, true, 5},
		{"objects", `[{"x":1,"y":7},{"x":9,"y":17}]`, true, 7},
		{"null", `null`, false, 0},
		{"empty list", `[]`, false, 0},
		{"flat numbers", `[1,2,3,4]`, false, 0},
		{"short pair", `[[1,2],[3]]`, false, 0},
		{"string", `"1,2,3,4"`, false, 0},
		{"object", `{"x":1}`, false, 0},
		{"mixed garbage", `[[1,2],"x"]`, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Box
			require.NoError(t, json.Unmarshal([]byte(tt.in), &b))
			assert.Equal(t, tt.valid, b.Valid())
			assert.Equal(t, tt.top, b.Top())
		})
	}
}

func TestBoxInsideStructDecodes(t *testing.T) {
	var frag struct {
		Text string `json:"text"`
		Box  Box    `json:"box"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"text":"x","box":[[0,"a"]]}`), &frag))
	assert.Equal(t, "x", frag.Text)
	assert.False(t, frag.Box.Valid())

	out, err := json.Marshal(RectBox(1, 2, 3, 4))
	require.NoError(t, err)
	assert.JSONEq(t, `[[1,2],[4,2],[4,6],[1,6]]`, string(out))
}
