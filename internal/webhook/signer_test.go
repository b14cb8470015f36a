package webhook

import (
	"strings"
	"testing"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	cases := []struct {
		name      string
		payload   string
		secret    string
		timestamp int64
	}{
		{"simple", `{"event":"content.published"}`, "whsec_abc123", 1735689600000},
		{"empty payload", "", "secret", 1},
		{"binary-ish secret", `{"a":1}`, "\x00\x01\x02secret", 1700000000123},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig := Sign([]byte(tc.payload), []byte(tc.secret), tc.timestamp)
			if !Verify([]byte(tc.payload), sig, []byte(tc.secret), tc.timestamp) {
				t.Fatal("expected signature to verify")
			}
		})
	}
}

func TestWireSignatureFormat(t *testing.T) {
	sig := WireSignature([]byte("payload"), []byte("secret"), 42)
	if !strings.HasPrefix(sig, "sha256=") {
		t.Fatalf("expected sha256= prefix, got %q", sig)
	}
	hexPart := strings.TrimPrefix(sig, "sha256=")
	if len(hexPart) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(hexPart))
	}
	if hexPart != strings.ToLower(hexPart) {
		t.Fatal("expected lowercase hex digest")
	}
	// Verify accepts the prefixed wire form too.
	if !Verify([]byte("payload"), sig, []byte("secret"), 42) {
		t.Fatal("expected wire signature to verify")
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	payload := []byte(`{"event_id":"abc"}`)
	secret := []byte("topsecret")
	var ts int64 = 1735689600000
	sig := Sign(payload, secret, ts)

	if Verify([]byte(`{"event_id":"abd"}`), sig, secret, ts) {
		t.Fatal("verify passed with modified payload")
	}
	if Verify(payload, sig, []byte("topsecrex"), ts) {
		t.Fatal("verify passed with modified secret")
	}
	if Verify(payload, sig, secret, ts+1) {
		t.Fatal("verify passed with modified timestamp")
	}
	if Verify(payload, sig[:len(sig)-2], secret, ts) {
		t.Fatal("verify passed with truncated signature")
	}
}
