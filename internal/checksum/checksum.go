package checksum

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// Sum is a SHA-256 digest.
type Sum [sha256.Size]byte

// Base64 is the encoding S3 expects in x-amz-checksum-sha256.
func (s Sum) Base64() string {
	return base64.StdEncoding.EncodeToString(s[:])
}

// Hex is the encoding recorded in object metadata.
func (s Sum) Hex() string {
	return hex.EncodeToString(s[:])
}

// Bytes hashes an in-memory body.
func Bytes(b []byte) Sum {
	return sha256.Sum256(b)
}
