package govern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionLimiterRejectsOverCapacity(t *testing.T) {
	l := NewConnectionLimiter(2)

	g1, err := l.Acquire()
	require.NoError(t, err)
	g2, err := l.Acquire()
	require.NoError(t, err)

	_, err = l.Acquire()
	assert.Error(t, err)

	g1.Release()
	g3, err := l.Acquire()
	require.NoError(t, err)
	g3.Release()
	g2.Release()
}

func TestConnectionLimiterDefaultCapacity(t *testing.T) {
	l := NewConnectionLimiter(0)
	assert.Equal(t, 100, l.Max())
}
