package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
)

// Prefix is the scheme marker Meta puts in front of the hex digest in
// the X-Hub-Signature-256 header.
const Prefix = "sha256="

// Verifier checks X-Hub-Signature-256 headers against a shared app secret.
type Verifier struct {
	secret []byte
	logger *slog.Logger
}

func NewVerifier(secret string, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{secret: []byte(secret), logger: logger}
}

// Verify reports whether header is a valid HMAC-SHA256 of body under the
// configured secret. It must receive the raw request bytes as they came
// off the wire; a re-serialized body hashes differently. It never
// returns true on any malformed input.
func (v *Verifier) Verify(body []byte, header string) bool {
	if len(v.secret) == 0 {
		v.logger.Warn("signature rejected: app secret not configured")
		return false
	}
	if header == "" {
		v.logger.Warn("signature rejected: missing header")
		return false
	}
	if !strings.HasPrefix(header, Prefix) {
		v.logger.Warn("signature rejected: malformed prefix")
		return false
	}
	received, err := hex.DecodeString(header[len(Prefix):])
	if err != nil || len(received) == 0 {
		v.logger.Warn("signature rejected: undecodable hash")
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(received, mac.Sum(nil)) {
		v.logger.Warn("signature rejected: digest mismatch")
		return false
	}
	return true
}
