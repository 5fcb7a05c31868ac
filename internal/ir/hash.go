package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainLayout = "structlayout/layout/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// LayoutHash computes the content hash of a layout.
// Two layouts hash equal exactly when their canonical JSON is equal, so a
// struct whose layout did not change between builds keeps its hash.
func LayoutHash(l *StructLayout) (string, error) {
	canonical, err := MarshalCanonical(l)
	if err != nil {
		return "", fmt.Errorf("LayoutHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainLayout, canonical), nil
}

// MustLayoutHash is like LayoutHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustLayoutHash(l *StructLayout) string {
	h, err := LayoutHash(l)
	if err != nil {
		panic(err)
	}
	return h
}
