// Package common provides shared utilities for the red packet registry.
package common

import (
	"encoding/binary"
	"encoding/hex"
	"time"
)

// HexToBytes converts a hex string to bytes
func HexToBytes(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return hex.DecodeString(s)
}

// BytesToHex converts bytes to a hex string with 0x prefix
func BytesToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// Now returns the current Unix timestamp
func Now() uint64 {
	return uint64(time.Now().Unix())
}

// Uint64ToBytes converts uint64 to bytes (big endian)
func Uint64ToBytes(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}
