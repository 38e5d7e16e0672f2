package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	email := "buyer@example.com"
	name := "  Alice Buyer  "
	req := CreatePaymentRequest{
		Amount:        1000,
		Currency:      " HTG ",
		Channel:       "moncash",
		CustomerEmail: &email,
		CustomerName:  &name,
	}
	SanitizeStruct(&req)

	assert.Equal(t, "HTG", req.Currency)
	assert.Equal(t, "Alice Buyer", *req.CustomerName)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	reason := "customer <script>alert('x')</script> request"
	req := RefundRequest{Amount: 100, Reason: reason}
	SanitizeStruct(&req)

	assert.Contains(t, req.Reason, "&lt;script&gt;")
	assert.NotContains(t, req.Reason, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	orderID := "  order-123  "
	req := CreatePaymentRequest{Amount: 1000, Currency: "HTG", Channel: "moncash", OrderID: &orderID}
	SanitizeStruct(&req)

	assert.Equal(t, "order-123", *req.OrderID)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := CreatePaymentRequest{Amount: 1000, Currency: "HTG", Channel: "moncash"}
	SanitizeStruct(&req)
	assert.Nil(t, req.OrderID)
}

func TestSanitizeStruct_SanitizesMetadataStringValues(t *testing.T) {
	req := CreatePaymentRequest{
		Amount:   1000,
		Currency: "HTG",
		Channel:  "moncash",
		Metadata: map[string]interface{}{
			"note":  "  <b>vip</b> customer  ",
			"count": 3,
		},
	}
	SanitizeStruct(&req)

	assert.Equal(t, "&lt;b&gt;vip&lt;/b&gt; customer", req.Metadata["note"])
	assert.Equal(t, 3, req.Metadata["count"])
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

func TestSafeReference_Valid(t *testing.T) {
	cases := []string{"pay_abc123", "REF-002", "simple123"}
	for _, tc := range cases {
		assert.True(t, safeReferenceRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeReference_Invalid(t *testing.T) {
	cases := []string{"ref 001", "ref<001>", "ref;DROP", "", "ref\n001"}
	for _, tc := range cases {
		assert.False(t, safeReferenceRe.MatchString(tc), "expected invalid: %s", tc)
	}
}
