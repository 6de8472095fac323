package dispatcher

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignaturePrefix is prepended to the hex HMAC in the signature header.
const SignaturePrefix = "sha256="

// Sign computes the hex HMAC-SHA256 of body keyed by secret. Signing happens
// over the exact transmitted bytes so receivers can verify against the raw
// request body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader returns the header value, e.g. "sha256=8f4b...".
func SignatureHeader(secret string, body []byte) string {
	return SignaturePrefix + Sign(secret, body)
}

// VerifySignature is for receivers to check incoming deliveries. The
// "sha256=" prefix is optional.
func VerifySignature(secret string, body []byte, signature string) bool {
	signature = strings.TrimPrefix(signature, SignaturePrefix)
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
