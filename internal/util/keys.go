package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// SnapshotKey returns "<prefix>:<ns>:<hash>" where hash is the first 16 hex
// chars of sha256(identity). Identities can be long; the full identity is kept
// inside the stored record and checked on read.
func SnapshotKey(prefix, ns, identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return prefix + ":" + ns + ":" + hex.EncodeToString(sum[:8])
}

// GenKey is the generation key of a namespace.
func GenKey(ns string) string { return "ns:" + ns }
