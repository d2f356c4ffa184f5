package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3.4028235e38}
	got, err := Decode(Encode(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestDecode_BadLength(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	s, err := Cosine([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s, 1e-9)

	s, err = Cosine([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, s, 1e-9)

	s, err = Cosine([]float32{1, 1}, []float32{-1, -1})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, s, 1e-9)

	s, err = Cosine([]float32{0, 0}, []float32{1, 1})
	require.NoError(t, err)
	assert.Zero(t, s)

	_, err = Cosine([]float32{1}, []float32{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestTopK(t *testing.T) {
	items := []Scored{
		{ID: 4, Score: 0.5},
		{ID: 1, Score: 0.9},
		{ID: 3, Score: 0.5},
		{ID: 2, Score: 0.1},
	}

	got := TopK(items, 3, 0.2)
	assert.Equal(t, []Scored{{ID: 1, Score: 0.9}, {ID: 3, Score: 0.5}, {ID: 4, Score: 0.5}}, got)

	assert.Len(t, TopK(items, 10, 0), 4)
	assert.Empty(t, TopK(items, 2, 0.95))
}
