// Package storage implements the PostgreSQL storage layer for the red
// packet registry.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redpacket/core/pkg/types"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDBConnection = errors.New("database connection error")
)

// PostgresStore implements persistent storage using PostgreSQL. It backs
// both the registry tables and the funding-proof nullifier set.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DefaultConfig returns default database configuration
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "redpacket",
		Password: "",
		Database: "redpacket",
		SSLMode:  "disable",
		MaxConns: 20,
	}
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(ctx context.Context, cfg *Config) (*PostgresStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxConns,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// InitSchema creates the registry tables if they do not exist
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS packets (
			id              BIGINT PRIMARY KEY,
			creator         BYTEA NOT NULL,
			packet_type     SMALLINT NOT NULL,
			status          SMALLINT NOT NULL,
			total_amount    BYTEA NOT NULL,
			total_count     INTEGER NOT NULL,
			remaining_count INTEGER NOT NULL,
			expire_time     BIGINT NOT NULL,
			message         TEXT NOT NULL DEFAULT '',
			created_at      BIGINT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS claims (
			packet_id   BIGINT NOT NULL,
			claimant    BYTEA NOT NULL,
			amount      BYTEA NOT NULL,
			claimed_at  BIGINT NOT NULL,
			claim_index INTEGER NOT NULL,
			PRIMARY KEY (packet_id, claimant)
		);

		CREATE TABLE IF NOT EXISTS nullifiers (
			nullifier BYTEA PRIMARY KEY,
			spent_at  BIGINT NOT NULL
		);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// ============================================
// Packet Operations
// ============================================

// SavePacket inserts a packet or updates its mutable fields
func (s *PostgresStore) SavePacket(ctx context.Context, packet *types.Packet) error {
	query := `
		INSERT INTO packets (
			id, creator, packet_type, status, total_amount,
			total_count, remaining_count, expire_time, message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			remaining_count = EXCLUDED.remaining_count
	`

	_, err := s.pool.Exec(ctx, query,
		int64(packet.ID),
		packet.Creator[:],
		int16(packet.Type),
		int16(packet.Status),
		packet.TotalAmount[:],
		int32(packet.TotalCount),
		int32(packet.RemainingCount),
		int64(packet.ExpireTime),
		packet.Message,
		int64(packet.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save packet: %w", err)
	}

	return nil
}

// GetPacket retrieves a packet by id
func (s *PostgresStore) GetPacket(ctx context.Context, id uint64) (*types.Packet, error) {
	query := `
		SELECT id, creator, packet_type, status, total_amount,
			   total_count, remaining_count, expire_time, message, created_at
		FROM packets WHERE id = $1
	`

	packet, err := scanPacket(s.pool.QueryRow(ctx, query, int64(id)))
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get packet: %w", err)
	}

	return packet, nil
}

// LoadPackets returns all packets in id order
func (s *PostgresStore) LoadPackets(ctx context.Context) ([]*types.Packet, error) {
	query := `
		SELECT id, creator, packet_type, status, total_amount,
			   total_count, remaining_count, expire_time, message, created_at
		FROM packets ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var packets []*types.Packet
	for rows.Next() {
		packet, err := scanPacket(rows)
		if err != nil {
			return nil, err
		}
		packets = append(packets, packet)
	}

	return packets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPacket(row rowScanner) (*types.Packet, error) {
	var packet types.Packet
	var id, expireTime, createdAt int64
	var packetType, status int16
	var totalCount, remainingCount int32
	var creator, totalAmount []byte

	if err := row.Scan(
		&id,
		&creator,
		&packetType,
		&status,
		&totalAmount,
		&totalCount,
		&remainingCount,
		&expireTime,
		&packet.Message,
		&createdAt,
	); err != nil {
		return nil, err
	}

	packet.ID = uint64(id)
	copy(packet.Creator[:], creator)
	packet.Type = types.PacketType(packetType)
	packet.Status = types.PacketStatus(status)
	packet.TotalAmount = types.HandleFromBytes(totalAmount)
	packet.TotalCount = uint32(totalCount)
	packet.RemainingCount = uint32(remainingCount)
	packet.ExpireTime = uint64(expireTime)
	packet.CreatedAt = uint64(createdAt)
	packet.Exists = true

	return &packet, nil
}

// ============================================
// Claim Operations
// ============================================

// SaveClaim records a successful claim. Claims are immutable once written.
func (s *PostgresStore) SaveClaim(ctx context.Context, packetID uint64, record *types.ClaimRecord, claimIndex uint32) error {
	query := `
		INSERT INTO claims (packet_id, claimant, amount, claimed_at, claim_index)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (packet_id, claimant) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query,
		int64(packetID),
		record.User[:],
		record.Amount[:],
		int64(record.Timestamp),
		int32(claimIndex),
	)
	if err != nil {
		return fmt.Errorf("failed to save claim: %w", err)
	}

	return nil
}

// LoadClaims returns a packet's claim records in claim order
func (s *PostgresStore) LoadClaims(ctx context.Context, packetID uint64) ([]*types.ClaimRecord, error) {
	query := `
		SELECT claimant, amount, claimed_at
		FROM claims WHERE packet_id = $1
		ORDER BY claim_index ASC
	`

	rows, err := s.pool.Query(ctx, query, int64(packetID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*types.ClaimRecord
	for rows.Next() {
		var record types.ClaimRecord
		var claimant, amount []byte
		var claimedAt int64

		if err := rows.Scan(&claimant, &amount, &claimedAt); err != nil {
			return nil, err
		}

		copy(record.User[:], claimant)
		record.Amount = types.HandleFromBytes(amount)
		record.Timestamp = uint64(claimedAt)
		record.Exists = true
		records = append(records, &record)
	}

	return records, rows.Err()
}

// ============================================
// Nullifier Operations
// ============================================

// HasNullifier checks if a funding-proof nullifier has been spent
func (s *PostgresStore) HasNullifier(ctx context.Context, nullifier types.Hash) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM nullifiers WHERE nullifier = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, nullifier[:]).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// AddNullifier marks a funding-proof nullifier as spent
func (s *PostgresStore) AddNullifier(ctx context.Context, nullifier types.Hash, spentAt uint64) error {
	query := `
		INSERT INTO nullifiers (nullifier, spent_at)
		VALUES ($1, $2)
		ON CONFLICT (nullifier) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query, nullifier[:], int64(spentAt))
	return err
}
