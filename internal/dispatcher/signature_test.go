package dispatcher

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestSign_MatchesIndependentHMAC(t *testing.T) {
	secret := "webhook-secret"
	body := []byte(`{"event":"scan.completed","data":{"score":95}}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	if got := Sign(secret, body); got != want {
		t.Errorf("Sign = %q, want %q", got, want)
	}
}

func TestSignatureHeader_Prefix(t *testing.T) {
	header := SignatureHeader("s", []byte("body"))
	if !strings.HasPrefix(header, "sha256=") {
		t.Errorf("header %q should start with sha256=", header)
	}
	if header != "sha256="+Sign("s", []byte("body")) {
		t.Errorf("header %q should carry the hex HMAC", header)
	}
}

func TestVerifySignature(t *testing.T) {
	secret := "s3cret"
	body := []byte(`{"event":"scan.failed"}`)

	if !VerifySignature(secret, body, Sign(secret, body)) {
		t.Error("bare hex signature should verify")
	}
	if !VerifySignature(secret, body, SignatureHeader(secret, body)) {
		t.Error("prefixed signature should verify")
	}
	if VerifySignature(secret, body, "sha256=deadbeef") {
		t.Error("wrong signature should not verify")
	}
	if VerifySignature("other", body, Sign(secret, body)) {
		t.Error("wrong secret should not verify")
	}
	if VerifySignature(secret, []byte("tampered"), Sign(secret, body)) {
		t.Error("tampered body should not verify")
	}
}
