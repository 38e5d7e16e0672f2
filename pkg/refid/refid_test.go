package refid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_PrefixAndLength(t *testing.T) {
	ref := New(PrefixPayment)
	assert.True(t, strings.HasPrefix(ref, PrefixPayment))
	assert.Len(t, ref, len(PrefixPayment)+standardLength)
}

func TestNew_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref := New(PrefixTransaction)
		assert.False(t, seen[ref], "collision detected")
		seen[ref] = true
	}
}

func TestNewSecret_Length(t *testing.T) {
	secret := NewSecret(SecretKeyPrefix("live"))
	assert.True(t, strings.HasPrefix(secret, "sk_live_"))
	assert.Len(t, secret, len("sk_live_")+secretLength)
}

func TestPublicKeyPrefix(t *testing.T) {
	assert.Equal(t, "pk_live_", PublicKeyPrefix("live"))
	assert.Equal(t, "pk_test_", PublicKeyPrefix("test"))
}

func TestSecretKeyPrefix(t *testing.T) {
	assert.Equal(t, "sk_live_", SecretKeyPrefix("live"))
}

func TestRandomString_OnlyAlphabetChars(t *testing.T) {
	s := randomString(100)
	for _, c := range s {
		assert.Contains(t, alphabet, string(c))
	}
}
