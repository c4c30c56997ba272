// Package types defines packet and claim structures for the red packet registry.
package types

// PacketType selects the distribution policy of a packet
type PacketType uint8

const (
	// PacketNormal distributes an even share per claim
	PacketNormal PacketType = 0

	// PacketRandom distributes an uneven, randomized share per claim.
	// Currently a stored tag only: no distinct split algorithm is wired in,
	// and claims behave exactly like PacketNormal.
	PacketRandom PacketType = 1
)

// PacketStatus represents the lifecycle status of a packet
type PacketStatus uint8

const (
	// PacketActive indicates the packet can still be claimed
	PacketActive PacketStatus = 0

	// PacketExpired indicates the claim window has closed. Expiry is derived
	// from ExpireTime at read time; the stored status is never written back
	// to this value.
	PacketExpired PacketStatus = 1

	// PacketEmpty indicates every claim slot has been consumed (terminal)
	PacketEmpty PacketStatus = 2
)

// Packet represents a funded, time-bounded, count-bounded distribution record
type Packet struct {
	// ID is the unique sequential identifier, assigned at creation, never reused
	ID uint64

	// Creator is the identity that funded the packet
	Creator Address

	// Type selects the distribution policy
	Type PacketType

	// Status is the stored lifecycle status. It only ever transitions from
	// PacketActive to PacketEmpty; time expiry is checked dynamically.
	Status PacketStatus

	// TotalAmount is the encrypted handle for the funded amount, owned by
	// the registry once pulled from the creator
	TotalAmount Handle

	// TotalCount is the original number of claim slots, fixed at creation
	TotalCount uint32

	// RemainingCount is the number of claim slots not yet consumed
	RemainingCount uint32

	// ExpireTime is the Unix timestamp after which claims are rejected
	ExpireTime uint64

	// Message is creator-supplied text, opaque to the registry logic
	Message string

	// CreatedAt is the Unix timestamp of creation
	CreatedAt uint64

	// Exists distinguishes a created packet from a zero-valued default record
	Exists bool
}

// ClaimRecord represents one successful claim of a packet by an identity
type ClaimRecord struct {
	// User is the claimant identity (redundant with the table key, kept for
	// convenience)
	User Address

	// Amount is the encrypted handle for the amount this claimant received
	Amount Handle

	// Timestamp is the Unix timestamp of the claim
	Timestamp uint64

	// Exists distinguishes a recorded claim from a zero-valued default record
	Exists bool
}

// PacketCreatedEvent is emitted once per successful packet creation
type PacketCreatedEvent struct {
	ID         uint64     `json:"id"`
	Creator    Address    `json:"creator"`
	Type       PacketType `json:"type"`
	TotalCount uint32     `json:"total_count"`
	ExpireTime uint64     `json:"expire_time"`
	Message    string     `json:"message"`
}

// PacketClaimedEvent is emitted once per successful claim
type PacketClaimedEvent struct {
	ID             uint64  `json:"id"`
	Claimant       Address `json:"claimant"`
	RemainingCount uint32  `json:"remaining_count"`
}
