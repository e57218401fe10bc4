package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// FileSHA256 streams a file through sha256 and returns the hex digest. Used
// to fingerprint received files before processing.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for checksum: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Matcher verifies data against a previously recorded checksum.
type Matcher struct {
	expected string
}

func NewMatcher(expected string) *Matcher {
	return &Matcher{expected: expected}
}

// Match reports whether the data hashes to the expected checksum.
func (m *Matcher) Match(data []byte) (bool, error) {
	if m.expected == "" {
		return false, errors.New("expected checksum is not set")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) == m.expected, nil
}
