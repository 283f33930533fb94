package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Delivery request headers. The signature covers the raw request body.
const (
	HeaderSignature = "X-Stocklane-Signature"
	HeaderEvent     = "X-Stocklane-Event"
	HeaderEventID   = "X-Stocklane-Event-Id"
	HeaderDelivery  = "X-Stocklane-Delivery"
)

// Sign computes the hex HMAC-SHA256 of payload under the subscription secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature in constant time.
func VerifySignature(secret string, payload []byte, signature string) bool {
	expected := Sign(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
