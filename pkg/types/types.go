// Package types defines core data structures for the red packet registry.
// This includes packets, claim records, encrypted-value handles, and events.
package types

import "time"

// Constants for the red packet protocol
const (
	// HashSize is the size of a hash in bytes (SHA3-256)
	HashSize = 32

	// AddressSize is the size of an address in bytes
	AddressSize = 20

	// HandleSize is the size of an encrypted-value handle identifier in bytes
	HandleSize = 32

	// MaxClaimCount is the maximum number of claim slots a packet may carry
	MaxClaimCount = 100

	// MaxPacketLifetime is the longest a packet may stay claimable, in seconds (30 days)
	MaxPacketLifetime = 30 * 24 * 60 * 60
)

// Hash represents a 32-byte hash (SHA3-256)
type Hash [HashSize]byte

// Address represents a 20-byte identity on the host ledger
type Address [AddressSize]byte

// Handle is an opaque reference to a confidentially stored amount. The
// plaintext is never reachable through it; the confidential ledger is the
// only component that can resolve it.
type Handle [HandleSize]byte

// EmptyHash is the zero hash
var EmptyHash = Hash{}

// EmptyAddress is the zero address
var EmptyAddress = Address{}

// EmptyHandle is the zero handle, returned where no amount was ever stored
var EmptyHandle = Handle{}

// IsEmpty returns true if the hash is empty (all zeros)
func (h Hash) IsEmpty() bool {
	return h == EmptyHash
}

// Bytes returns the hash as a byte slice
func (h Hash) Bytes() []byte {
	return h[:]
}

// String returns the hex string representation of the hash
func (h Hash) String() string {
	return bytesToHex(h[:])
}

// IsEmpty returns true if the address is empty (all zeros)
func (a Address) IsEmpty() bool {
	return a == EmptyAddress
}

// String returns the hex string representation of the address
func (a Address) String() string {
	return bytesToHex(a[:])
}

// IsEmpty returns true if the handle is empty (all zeros)
func (h Handle) IsEmpty() bool {
	return h == EmptyHandle
}

// Bytes returns the handle as a byte slice
func (h Handle) Bytes() []byte {
	return h[:]
}

// String returns the hex string representation of the handle
func (h Handle) String() string {
	return bytesToHex(h[:])
}

// HashFromBytes creates a Hash from a byte slice
func HashFromBytes(b []byte) Hash {
	var h Hash
	if len(b) >= HashSize {
		copy(h[:], b[:HashSize])
	}
	return h
}

// HandleFromBytes creates a Handle from a byte slice
func HandleFromBytes(b []byte) Handle {
	var h Handle
	if len(b) >= HandleSize {
		copy(h[:], b[:HandleSize])
	}
	return h
}

// TimestampToTime converts a Unix timestamp to time.Time
func TimestampToTime(ts uint64) time.Time {
	return time.Unix(int64(ts), 0)
}

// bytesToHex converts bytes to hex string
func bytesToHex(b []byte) string {
	const hexChars = "0123456789abcdef"
	result := make([]byte, len(b)*2)
	for i, v := range b {
		result[i*2] = hexChars[v>>4]
		result[i*2+1] = hexChars[v&0x0f]
	}
	return string(result)
}
