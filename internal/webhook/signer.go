// Package webhook implements the signing scheme for outbound event
// notifications. The signed message is "{timestamp}.{payload}" keyed with the
// subscription's shared secret; the wire format is "sha256=<hex>".
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const SignaturePrefix = "sha256="

// Sign computes the lowercase hex HMAC-SHA256 digest of
// "{timestamp}.{payload}" using secret as the key.
func Sign(payload, secret []byte, timestamp int64) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// WireSignature returns the header value sent to subscribers.
func WireSignature(payload, secret []byte, timestamp int64) string {
	return SignaturePrefix + Sign(payload, secret, timestamp)
}

// Verify recomputes the expected signature and compares it to provided in
// constant time. provided may carry the "sha256=" prefix.
func Verify(payload []byte, provided string, secret []byte, timestamp int64) bool {
	provided = strings.TrimPrefix(provided, SignaturePrefix)
	expected := Sign(payload, secret, timestamp)
	if len(provided) != len(expected) {
		return false
	}
	return hmac.Equal([]byte(provided), []byte(expected))
}
