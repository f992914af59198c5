package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainCache      = "pipetree/cache/v1"
	DomainDefinition = "pipetree/definition/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CacheKey fingerprints one invocation of a node: its qualified type name,
// its structural definition (the dump of its configured slots) and the
// call input. Two invocations share a key only when all three agree.
func CacheKey(typeName string, definition, input any) (string, error) {
	def, err := FromGo(definition)
	if err != nil {
		return "", fmt.Errorf("CacheKey: definition: %w", err)
	}
	in, err := FromGo(input)
	if err != nil {
		return "", fmt.Errorf("CacheKey: input: %w", err)
	}
	canonical, err := MarshalCanonical(Object{
		"type":       String(typeName),
		"definition": def,
		"input":      in,
	})
	if err != nil {
		return "", fmt.Errorf("CacheKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCache, canonical), nil
}

// DefinitionHash fingerprints a structural dump on its own. Used to detect
// whether a stored trace was produced by the same configuration.
func DefinitionHash(definition any) (string, error) {
	canonical, err := MarshalCanonical(definition)
	if err != nil {
		return "", fmt.Errorf("DefinitionHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDefinition, canonical), nil
}

// MustCacheKey is like CacheKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCacheKey(typeName string, definition, input any) string {
	key, err := CacheKey(typeName, definition, input)
	if err != nil {
		panic(err)
	}
	return key
}
