package mir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainSurface is the domain prefix for surface content hashes.
// The version suffix enables future algorithm migration.
const DomainSurface = "maxim/surface/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SurfaceHash computes the content hash of a surface's structure.
//
// The surface's own numeric id is excluded; procedure names carry it. Ids of
// referenced blocks and nested surfaces are included because emitted calls
// name them. The hash covers this surface's own structure, not its
// children's.
func SurfaceHash(s *Surface) (string, error) {
	canonical, err := MarshalCanonical(canonicalSurface(s))
	if err != nil {
		return "", fmt.Errorf("SurfaceHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSurface, canonical), nil
}

// MustSurfaceHash is like SurfaceHash but panics on error.
// Use only in tests or when the surface is known to be well formed.
func MustSurfaceHash(s *Surface) string {
	h, err := SurfaceHash(s)
	if err != nil {
		panic(err)
	}
	return h
}
