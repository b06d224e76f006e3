package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifySignature recomputes the HMAC-SHA256 over "orderID|paymentID" with
// the shared key secret and compares it against the provided hex signature.
// The comparison is constant-time; string equality would leak how many
// leading bytes of a guessed signature are correct.
func (c *Client) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) (bool, error) {
	return VerifySignature(c.keySecret, gatewayOrderID, gatewayPaymentID, signature)
}

// VerifySignature is the underlying check, exposed for use without a client.
func VerifySignature(secret, gatewayOrderID, gatewayPaymentID, signature string) (bool, error) {
	if gatewayOrderID == "" || gatewayPaymentID == "" {
		return false, fmt.Errorf("gateway order id and payment id are required")
	}
	if signature == "" {
		return false, fmt.Errorf("signature is empty")
	}

	expected := Sign(secret, gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)), nil
}

// Sign computes the hex HMAC-SHA256 the provider sends on its callback.
// Shared with tests so fixtures do not hand-roll the scheme.
func Sign(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
