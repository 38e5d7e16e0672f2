// Package refid generates opaque, URL-safe public reference identifiers.
package refid

import (
	"crypto/rand"
	"fmt"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Standard payload length in characters (>=120 bits of entropy at 62 symbols).
const standardLength = 21

// Secret payload length, used for API key material.
const secretLength = 32

// Known prefixes for each reference kind (spec §4.A).
const (
	PrefixPayment     = "pay_"
	PrefixTransaction = "txn_"
	PrefixPayout      = "po_"
	PrefixInvoice     = "inv_"
	PrefixWebhook     = "wh_"
)

// New draws a CSPRNG payload of the standard length and returns prefix+payload.
func New(prefix string) string {
	return prefix + randomString(standardLength)
}

// NewSecret draws a longer CSPRNG payload, for API key material
// (e.g. "pk_live_", "sk_test_").
func NewSecret(prefix string) string {
	return prefix + randomString(secretLength)
}

// PublicKeyPrefix builds the `pk_{env}_` prefix for a given environment.
func PublicKeyPrefix(env string) string {
	return fmt.Sprintf("pk_%s_", env)
}

// SecretKeyPrefix builds the `sk_{env}_` prefix for a given environment.
func SecretKeyPrefix(env string) string {
	return fmt.Sprintf("sk_%s_", env)
}

func randomString(n int) string {
	b := make([]byte, n)
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("refid: reading random bytes: %v", err))
	}
	for i, v := range buf {
		b[i] = alphabet[int(v)%len(alphabet)]
	}
	return string(b)
}
