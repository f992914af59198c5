// Package ir provides the constrained value representation used to compute
// cache fingerprints and definition hashes.
//
// Arbitrary Go values (invocation inputs, dumped parameter trees) are lowered
// into the sealed Value types by FromGo, serialized with MarshalCanonical
// (RFC 8785 key ordering, NFC strings, no HTML escaping) and hashed with
// domain separation. ir imports nothing internal.
//
// Key design constraints:
//   - Floats are tagged, never emitted as bare JSON numbers, so 1 and 1.0
//     fingerprint differently and formatting is stable across platforms
//   - Map keys are always strings; other key kinds are rejected
//   - Values that cannot be lowered return an error instead of a lossy
//     fingerprint
package ir
