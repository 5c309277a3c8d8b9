// Package canon computes canonical serializations and content hashes of
// JSON document values. Two structurally equal values always produce the
// same bytes and therefore the same digest, regardless of map iteration
// order or how the value was constructed.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Marshal serializes v into canonical JSON: object keys sorted, no
// insignificant whitespace, no HTML escaping of <, > or &.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, eris.Wrap(err, "canon: marshal")
	}
	// Encoder terminates every value with a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Hash returns the hex-encoded SHA-256 digest of the canonical form of v.
// Scalars are hashed through their JSON form too, so the string "1" and the
// number 1 never collide.
func Hash(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
