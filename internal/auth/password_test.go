package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("Passw0rd!")
	require.NoError(t, err)
	assert.NotEqual(t, "Passw0rd!", hash)

	assert.True(t, h.Compare(hash, "Passw0rd!"))
	for _, other := range []string{"", "passw0rd!", "Passw0rd", "Passw0rd!!"} {
		assert.False(t, h.Compare(hash, other), other)
	}
	assert.False(t, h.Compare("", "Passw0rd!"))
}

func TestBcryptHasher_SaltsEachHash(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}

	a, err := h.Hash("Passw0rd!")
	require.NoError(t, err)
	b, err := h.Hash("Passw0rd!")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBcryptHasher_CompareDummy(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}
	assert.NotPanics(t, func() { h.CompareDummy("anything") })
	assert.NotEmpty(t, h.dummy)
}
