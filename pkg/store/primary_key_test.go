package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimaryKeyEqual(t *testing.T) {
	assert.True(t, PK(1, "a").Equal(PK(1, "a")))
	assert.False(t, PK(1, "a").Equal(PK(1, "b")))
	assert.False(t, PK(1).Equal(PK(1, "a")))
	assert.False(t, PK(1).Equal(PK("1")))
}

func TestPrimaryKeyHashStable(t *testing.T) {
	require.Equal(t, PK(5, "x").Hash(), PK(5, "x").Hash())
	// same rendering, different part types
	assert.NotEqual(t, PK(1).Hash(), PK("1").Hash())
}

func TestPrimaryKeyString(t *testing.T) {
	assert.Equal(t, "(1,a)", PK(1, "a").String())
}
