// Package signature verifies GitHub webhook HMAC signatures.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Policy controls how a missing X-Hub-Signature-256 header is treated.
type Policy int

const (
	// PolicyStrict rejects requests without a signature header.
	PolicyStrict Policy = iota
	// PolicyPermissive accepts requests without a signature header.
	// Used in standalone mode, where unauthenticated senders are
	// allowed to exercise the receiver.
	PolicyPermissive
)

// Verifier checks webhook payloads against a shared secret.
type Verifier struct {
	Secret string
	Policy Policy
}

// Verify reports whether header is a valid "sha256=<hex>" HMAC-SHA256
// of body under the configured secret. The comparison is constant
// time. An empty header is accepted only under PolicyPermissive.
func (v Verifier) Verify(body []byte, header string) bool {
	if header == "" {
		return v.Policy == PolicyPermissive
	}

	mac := hmac.New(sha256.New, []byte(v.Secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(header))
}
