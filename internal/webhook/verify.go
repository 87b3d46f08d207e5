// Package webhook implements C8: inbound bank-callback signature
// verification and outbound delivery of transaction-event notifications.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Sign computes the lowercase-hex HMAC-SHA256 of body under secret. Used by
// tests (and by anything needing to construct a valid signature) as the
// inverse of Verify.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signatureHex is the correct HMAC-SHA256 of the
// exact bytes in body under secret, using a constant-time comparison.
// Callers must pass the raw bytes as received on the wire — reserializing
// the body before verifying would silently break valid signatures.
func Verify(secret string, body []byte, signatureHex string) bool {
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signatureHex))
}

// TimestampFresh reports whether a callback's embedded UNIX-seconds
// timestamp falls within window of now, rejecting both stale and
// clock-skewed-future callbacks.
func TimestampFresh(timestamp int64, now time.Time, window time.Duration) bool {
	delta := now.Unix() - timestamp
	if delta < 0 {
		delta = -delta
	}
	return time.Duration(delta)*time.Second <= window
}
