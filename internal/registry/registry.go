// Package registry implements the red packet lifecycle state machine:
// packet creation with encrypted funding, per-recipient claim admission,
// and the ACTIVE to EMPTY status transition. Transferred amounts stay
// encrypted end to end; the registry only moves opaque handles through the
// confidential ledger.
package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/redpacket/core/internal/ledger"
	"github.com/redpacket/core/pkg/common"
	"github.com/redpacket/core/pkg/types"
)

// Registry errors
var (
	ErrMissingLedger     = errors.New("ledger reference missing")
	ErrInvalidCount      = errors.New("claim count outside [1, 100]")
	ErrInvalidExpireTime = errors.New("expire time not within (now, now+30d]")
	ErrPacketNotFound    = errors.New("packet not found")
	ErrPacketExpired     = errors.New("packet not claimable")
	ErrPacketEmpty       = errors.New("packet has no remaining claims")
	ErrAlreadyClaimed    = errors.New("packet already claimed by this identity")
)

// Clock supplies the current Unix timestamp. Expiry is a timestamp
// comparison at call time; there is no background timer.
type Clock interface {
	Now() uint64
}

type systemClock struct{}

func (systemClock) Now() uint64 { return common.Now() }

// SystemClock returns a clock backed by the wall clock
func SystemClock() Clock { return systemClock{} }

// EventSink receives the observable registry events
type EventSink interface {
	PacketCreated(ev types.PacketCreatedEvent)
	PacketClaimed(ev types.PacketClaimedEvent)
}

// Store defines persistence for the registry
type Store interface {
	SavePacket(ctx context.Context, packet *types.Packet) error
	SaveClaim(ctx context.Context, packetID uint64, record *types.ClaimRecord, claimIndex uint32) error
	LoadPackets(ctx context.Context) ([]*types.Packet, error)
	LoadClaims(ctx context.Context, packetID uint64) ([]*types.ClaimRecord, error)
}

// Config holds registry parameters
type Config struct {
	// Address is the identity the registry holds pulled funds under
	Address types.Address

	// Clock supplies timestamps; defaults to the system clock
	Clock Clock

	// Sink receives packet events; may be nil
	Sink EventSink
}

// DefaultConfig returns default registry configuration
func DefaultConfig() *Config {
	return &Config{
		Clock: SystemClock(),
	}
}

// Registry owns the packet table, claim records, and claimer lists. The
// host executes calls fully serialized; the mutex guards in-process readers.
type Registry struct {
	mu sync.RWMutex

	ledger ledger.Ledger
	store  Store
	clock  Clock
	sink   EventSink
	addr   types.Address

	// packetCount is the source of truth for the next packet id and the
	// total number of packets ever created
	packetCount uint64

	// Packet table
	packets map[uint64]*types.Packet

	// Claim records per (packet, identity)
	claims map[uint64]map[types.Address]*types.ClaimRecord

	// Claimer lists per packet, append-only, in claim order
	claimers map[uint64][]types.Address
}

// NewRegistry creates a registry bound to a confidential ledger. The store
// may be nil for in-memory operation.
func NewRegistry(l ledger.Ledger, store Store, cfg *Config) (*Registry, error) {
	if l == nil {
		return nil, ErrMissingLedger
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}

	return &Registry{
		ledger:   l,
		store:    store,
		clock:    clock,
		sink:     cfg.Sink,
		addr:     cfg.Address,
		packets:  make(map[uint64]*types.Packet),
		claims:   make(map[uint64]map[types.Address]*types.ClaimRecord),
		claimers: make(map[uint64][]types.Address),
	}, nil
}

// Initialize reloads packets and claims from the store after a restart.
// No-op without a store.
func (r *Registry) Initialize(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	packets, err := r.store.LoadPackets(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range packets {
		r.packets[p.ID] = p
		if p.ID >= r.packetCount {
			r.packetCount = p.ID + 1
		}

		records, err := r.store.LoadClaims(ctx, p.ID)
		if err != nil {
			return err
		}

		byUser := make(map[types.Address]*types.ClaimRecord, len(records))
		order := make([]types.Address, 0, len(records))
		for _, rec := range records {
			byUser[rec.User] = rec
			order = append(order, rec.User)
		}
		r.claims[p.ID] = byUser
		r.claimers[p.ID] = order
	}

	return nil
}

// CreatePacket validates the parameters, pulls the encrypted funding amount
// from the creator into the registry, and appends a new ACTIVE packet. The
// returned id equals the number of packets created before this one.
func (r *Registry) CreatePacket(
	ctx context.Context,
	creator types.Address,
	packetType types.PacketType,
	amount ledger.EncryptedAmount,
	proof []byte,
	totalCount uint32,
	expireTime uint64,
	message string,
) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()

	if totalCount < 1 || totalCount > types.MaxClaimCount {
		return 0, ErrInvalidCount
	}
	if expireTime <= now {
		return 0, ErrInvalidExpireTime
	}
	if expireTime > now+types.MaxPacketLifetime {
		return 0, ErrInvalidExpireTime
	}

	handle, err := r.ledger.Pull(ctx, creator, r.addr, amount, proof)
	if err != nil {
		return 0, err
	}

	// The pull leaves the registry with access; the creator keeps read
	// access for auditing.
	if err := r.ledger.GrantAccess(ctx, handle, creator); err != nil {
		return 0, err
	}

	id := r.packetCount
	packet := &types.Packet{
		ID:             id,
		Creator:        creator,
		Type:           packetType,
		Status:         types.PacketActive,
		TotalAmount:    handle,
		TotalCount:     totalCount,
		RemainingCount: totalCount,
		ExpireTime:     expireTime,
		Message:        message,
		CreatedAt:      now,
		Exists:         true,
	}

	r.packets[id] = packet
	r.claims[id] = make(map[types.Address]*types.ClaimRecord)
	r.claimers[id] = make([]types.Address, 0, totalCount)
	r.packetCount++

	if r.store != nil {
		if err := r.store.SavePacket(ctx, packet); err != nil {
			return 0, err
		}
	}

	if r.sink != nil {
		r.sink.PacketCreated(types.PacketCreatedEvent{
			ID:         id,
			Creator:    creator,
			Type:       packetType,
			TotalCount: totalCount,
			ExpireTime: expireTime,
			Message:    message,
		})
	}

	return id, nil
}

// Claim admits one claim of a packet by an identity. Validation is fully
// ordered and happens before any mutation; the encrypted push precedes the
// bookkeeping so a ledger failure leaves no claim state behind.
func (r *Registry) Claim(ctx context.Context, packetID uint64, claimant types.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	packet, ok := r.packets[packetID]
	if !ok {
		return ErrPacketNotFound
	}

	// A depleted packet surfaces the same error as a time-expired one: the
	// stored status is EMPTY, not ACTIVE.
	if packet.Status != types.PacketActive {
		return ErrPacketExpired
	}

	now := r.clock.Now()
	if now > packet.ExpireTime {
		return ErrPacketExpired
	}

	// Unreachable while status flips to EMPTY atomically with the count
	// hitting zero; kept as a guard on the bookkeeping invariant.
	if packet.RemainingCount == 0 {
		return ErrPacketEmpty
	}

	if _, claimed := r.claims[packetID][claimant]; claimed {
		return ErrAlreadyClaimed
	}

	// Every claim currently pays out the packet's full total handle; a
	// per-claim split is not implemented for either packet type.
	amount := packet.TotalAmount

	if err := r.ledger.GrantAccess(ctx, amount, claimant); err != nil {
		return err
	}
	if err := r.ledger.Push(ctx, claimant, amount); err != nil {
		return err
	}

	record := &types.ClaimRecord{
		User:      claimant,
		Amount:    amount,
		Timestamp: now,
		Exists:    true,
	}

	r.claims[packetID][claimant] = record
	r.claimers[packetID] = append(r.claimers[packetID], claimant)

	packet.RemainingCount--
	if packet.RemainingCount == 0 {
		packet.Status = types.PacketEmpty
	}

	if r.store != nil {
		claimIndex := uint32(len(r.claimers[packetID]) - 1)
		if err := r.store.SaveClaim(ctx, packetID, record, claimIndex); err != nil {
			return err
		}
		if err := r.store.SavePacket(ctx, packet); err != nil {
			return err
		}
	}

	if r.sink != nil {
		r.sink.PacketClaimed(types.PacketClaimedEvent{
			ID:             packetID,
			Claimant:       claimant,
			RemainingCount: packet.RemainingCount,
		})
	}

	return nil
}

// GetPacket returns the packet record for an id. A never-created id yields
// a zero record with Exists=false; this accessor never fails.
func (r *Registry) GetPacket(packetID uint64) types.Packet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	packet, ok := r.packets[packetID]
	if !ok {
		return types.Packet{}
	}
	return *packet
}

// GetClaimRecord returns the claim record for a (packet, identity) pair,
// or a zero record with Exists=false
func (r *Registry) GetClaimRecord(packetID uint64, user types.Address) types.ClaimRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.claims[packetID][user]
	if !ok {
		return types.ClaimRecord{}
	}
	return *record
}

// GetClaimers returns the identities that claimed a packet, in claim order.
// Empty for a packet with no claims or an absent id.
func (r *Registry) GetClaimers(packetID uint64) []types.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order := r.claimers[packetID]
	out := make([]types.Address, len(order))
	copy(out, order)
	return out
}

// IsActive is the authoritative claimability predicate: the packet exists,
// its stored status is ACTIVE, its claim window is open, and slots remain
func (r *Registry) IsActive(packetID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	packet, ok := r.packets[packetID]
	if !ok {
		return false
	}

	return packet.Status == types.PacketActive &&
		r.clock.Now() <= packet.ExpireTime &&
		packet.RemainingCount > 0
}

// GetClaimAmountHandle returns the encrypted amount handle stored for a
// claim, or the empty handle if the identity never claimed the packet
func (r *Registry) GetClaimAmountHandle(packetID uint64, user types.Address) types.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.claims[packetID][user]
	if !ok {
		return types.EmptyHandle
	}
	return record.Amount
}

// PacketCount returns the number of packets ever created
func (r *Registry) PacketCount() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.packetCount
}
