package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("portal-secret")
	require.NoError(t, err)
	assert.NotEqual(t, "portal-secret", hash)

	assert.NoError(t, h.Compare(hash, "portal-secret"))
	assert.ErrorIs(t, h.Compare(hash, "wrong"), ErrMismatch)
	assert.ErrorIs(t, h.Compare("", "portal-secret"), ErrMismatch)

	_, err = h.Hash("abc")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}
