// Package cursor encodes and decodes opaque pagination cursors.
//
// A payment's primary id (google/uuid v4) carries no creation-order
// information, so the cursor is keyed on (created_at, id) instead: the
// timestamp gives chronological ordering and the id breaks ties between
// rows created in the same instant, keeping the page boundary stable.
package cursor

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Payment cursor fields, decoded from an opaque base64 token.
type Payment struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// EncodePayment produces the opaque cursor for the given row.
func EncodePayment(createdAt time.Time, id uuid.UUID) string {
	raw := fmt.Sprintf("%s|%s", createdAt.UTC().Format(time.RFC3339Nano), id.String())
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodePayment parses an opaque cursor produced by EncodePayment.
func DecodePayment(token string) (Payment, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Payment{}, fmt.Errorf("cursor: invalid encoding: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return Payment{}, fmt.Errorf("cursor: malformed token")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Payment{}, fmt.Errorf("cursor: invalid timestamp: %w", err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return Payment{}, fmt.Errorf("cursor: invalid id: %w", err)
	}
	return Payment{CreatedAt: createdAt, ID: id}, nil
}
