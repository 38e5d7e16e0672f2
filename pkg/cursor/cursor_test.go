package cursor

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePayment_RoundTrip(t *testing.T) {
	id := uuid.New()
	createdAt := time.Now().Round(time.Microsecond)

	token := EncodePayment(createdAt, id)
	decoded, err := DecodePayment(token)

	require.NoError(t, err)
	assert.True(t, createdAt.Equal(decoded.CreatedAt))
	assert.Equal(t, id, decoded.ID)
}

func TestDecodePayment_InvalidEncoding(t *testing.T) {
	_, err := DecodePayment("not-base64!!")
	assert.Error(t, err)
}

func TestDecodePayment_MalformedToken(t *testing.T) {
	token := encodeRaw("missing-separator")
	_, err := DecodePayment(token)
	assert.Error(t, err)
}

func TestDecodePayment_InvalidTimestamp(t *testing.T) {
	token := encodeRaw("not-a-time|" + uuid.New().String())
	_, err := DecodePayment(token)
	assert.Error(t, err)
}

func TestDecodePayment_InvalidID(t *testing.T) {
	token := encodeRaw(time.Now().Format(time.RFC3339Nano) + "|not-a-uuid")
	_, err := DecodePayment(token)
	assert.Error(t, err)
}

func encodeRaw(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}
