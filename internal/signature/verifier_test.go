package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return Prefix + hex.EncodeToString(mac.Sum(nil))
}

func TestVerify_Valid(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account"}`)
	v := NewVerifier("top-secret", nil)

	if !v.Verify(body, sign("top-secret", body)) {
		t.Fatal("valid signature should verify")
	}
}

func TestVerify_MutatedBody(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account"}`)
	v := NewVerifier("top-secret", nil)
	header := sign("top-secret", body)

	mutated := append([]byte(nil), body...)
	mutated[0] ^= 0x01
	if v.Verify(mutated, header) {
		t.Fatal("mutated body should not verify")
	}
}

func TestVerify_MutatedHash(t *testing.T) {
	body := []byte(`payload`)
	v := NewVerifier("top-secret", nil)
	header := sign("top-secret", body)

	// Flip one hex digit of the digest.
	b := []byte(header)
	if b[len(b)-1] == 'a' {
		b[len(b)-1] = 'b'
	} else {
		b[len(b)-1] = 'a'
	}
	if v.Verify(body, string(b)) {
		t.Fatal("mutated hash should not verify")
	}
}

func TestVerify_Rejections(t *testing.T) {
	body := []byte(`payload`)
	valid := sign("top-secret", body)

	cases := []struct {
		name   string
		secret string
		header string
	}{
		{"missing header", "top-secret", ""},
		{"missing secret", "", valid},
		{"malformed prefix", "top-secret", "md5=abcdef"},
		{"empty hash", "top-secret", "sha256="},
		{"non-hex hash", "top-secret", "sha256=zzzz"},
		{"truncated hash", "top-secret", valid[:len(valid)-2]},
		{"wrong secret", "other-secret", valid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewVerifier(tc.secret, nil)
			if v.Verify(body, tc.header) {
				t.Fatalf("expected rejection for %s", tc.name)
			}
		})
	}
}
