package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert := assert.New(t)

	v, err := Normalize([]float32{3, 4})
	assert.NoError(err)
	assert.InDelta(0.6, v[0], 1e-6)
	assert.InDelta(0.8, v[1], 1e-6)

	_, err = Normalize([]float32{0, 0, 0})
	assert.ErrorIs(err, ErrZeroVector)

	_, err = Normalize(nil)
	assert.ErrorIs(err, ErrZeroVector)
}
