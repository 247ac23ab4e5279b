// Package webhook verifies provider-signed change events and maps them to
// registry actions.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the raw request
// body.
const SignatureHeader = "X-Signature-256"

// Sign computes the hex-encoded HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the HMAC of the raw payload.
// The comparison is constant-time.
func Verify(payload []byte, signature, secret string) bool {
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
