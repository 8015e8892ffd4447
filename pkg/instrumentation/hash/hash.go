// Package hash computes the content digests used to name stored artifacts.
//
// Structured values are canonicalized with RFC 8785 (JSON Canonicalization
// Scheme): object keys sorted at every level, arrays kept in order, no
// insignificant whitespace and ECMAScript number formatting. The digest is
// the first Length hex characters of the SHA-256 of the canonical bytes.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/gowebpki/jcs"
)

// Length is the number of hex characters kept from the SHA-256 digest.
const Length = 12

var validDigest = regexp.MustCompile(`^[0-9a-f]{12}$`)

// Canonicalize returns the RFC 8785 canonical JSON form of v.
func Canonicalize(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize value: %w", err)
	}
	return canonical, nil
}

// Digest returns the content digest of v's canonical form.
func Digest(v interface{}) (string, error) {
	canonical, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return sum(canonical), nil
}

// DigestText digests raw text without canonicalization. It is used for
// long-form documents whose bytes are the content.
func DigestText(content string) string {
	return sum([]byte(content))
}

// IsValid reports whether s is a well-formed digest: exactly Length
// lowercase hex characters.
func IsValid(s string) bool {
	return validDigest.MatchString(s)
}

func sum(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])[:Length]
}
