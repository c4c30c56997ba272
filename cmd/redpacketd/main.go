// Red Packet Daemon - Main entry point for the red packet registry node
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	pubsub "github.com/libp2p/go-libp2p-pubsub"

	"github.com/redpacket/core/internal/gateway"
	"github.com/redpacket/core/internal/ledger"
	"github.com/redpacket/core/internal/proof"
	"github.com/redpacket/core/internal/registry"
	"github.com/redpacket/core/internal/storage"
	"github.com/redpacket/core/pkg/common"
	"github.com/redpacket/core/pkg/types"
)

const (
	version = "0.1.0"
	banner  = `
  _____          _ _____           _        _
 |  __ \        | |  __ \         | |      | |
 | |__) |___  __| | |__) |_ _  ___| | _____| |_
 |  _  // _ \/ _` + "`" + ` |  ___/ _` + "`" + ` |/ __| |/ / _ \ __|
 | | \ \  __/ (_| | |  | (_| | (__|   <  __/ |_
 |_|  \_\___|\__,_|_|   \__,_|\___|_|\_\___|\__|

  Red Packet Daemon v%s
  Confidential Gift Distribution
`
)

// Config holds node configuration
type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	NoDB       bool

	// Network
	ListenAddr string
	NoNetwork  bool

	// Registry
	RegistryAddress string

	// Logging
	LogLevel string

	// Data
	DataDir string
}

func main() {
	// Parse flags
	cfg := parseFlags()

	// Print banner
	fmt.Printf(banner, version)

	// Initialize context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	// Initialize components
	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	// Database flags
	flag.StringVar(&cfg.DBHost, "db-host", "localhost", "PostgreSQL host")
	flag.IntVar(&cfg.DBPort, "db-port", 5432, "PostgreSQL port")
	flag.StringVar(&cfg.DBUser, "db-user", "redpacket", "PostgreSQL user")
	flag.StringVar(&cfg.DBPassword, "db-password", "", "PostgreSQL password")
	flag.StringVar(&cfg.DBName, "db-name", "redpacket", "PostgreSQL database name")
	flag.BoolVar(&cfg.NoDB, "no-db", false, "Run with in-memory state only")

	// Network flags
	flag.StringVar(&cfg.ListenAddr, "listen", "/ip4/0.0.0.0/tcp/9300", "P2P listen address")
	flag.BoolVar(&cfg.NoNetwork, "no-network", false, "Disable the event gateway")

	// Registry flags
	flag.StringVar(&cfg.RegistryAddress, "registry-address", "", "Registry custody address (hex, 20 bytes)")

	// Logging flags
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// Data flags
	flag.StringVar(&cfg.DataDir, "data-dir", "./data", "Data directory")

	flag.Parse()

	return cfg
}

func run(ctx context.Context, cfg *Config) error {
	fmt.Println("Initializing red packet node...")

	// Create data directory
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// Initialize database
	var store *storage.PostgresStore
	if !cfg.NoDB {
		fmt.Println("Connecting to database...")
		dbConfig := &storage.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Database: cfg.DBName,
			SSLMode:  "disable",
			MaxConns: 20,
		}

		var err error
		store, err = storage.NewPostgresStore(ctx, dbConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer store.Close()

		if err := store.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		fmt.Println("Database connected.")
	}

	// Compile the funding circuit. This is the slow part of startup.
	fmt.Println("Compiling funding circuit...")
	proofManager := proof.NewManager()
	if err := proofManager.CompileFundingCircuit(); err != nil {
		return fmt.Errorf("failed to compile funding circuit: %w", err)
	}
	fmt.Println("Funding circuit ready.")

	// Initialize the confidential ledger
	var nullifiers *ledger.NullifierSet
	if store != nil {
		nullifiers = ledger.NewNullifierSet(store, ledger.DefaultNullifierConfig())
	}
	confLedger, err := ledger.NewConfidentialLedger(proofManager, nullifiers)
	if err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}

	// Initialize the event gateway
	regConfig := registry.DefaultConfig()
	if cfg.RegistryAddress != "" {
		addrBytes, err := common.HexToBytes(cfg.RegistryAddress)
		if err != nil || len(addrBytes) != types.AddressSize {
			return fmt.Errorf("invalid registry address: %s", cfg.RegistryAddress)
		}
		copy(regConfig.Address[:], addrBytes)
	}

	var node *gateway.Node
	if !cfg.NoNetwork {
		fmt.Println("Starting event gateway...")
		gwConfig := gateway.DefaultConfig()
		gwConfig.ListenAddrs = []string{cfg.ListenAddr}
		node, err = gateway.NewNode(ctx, gwConfig)
		if err != nil {
			return fmt.Errorf("failed to start gateway: %w", err)
		}
		defer node.Close()

		// Log packet lifecycles observed from other registry nodes
		node.SetPacketHandler(func(ctx context.Context, msg *pubsub.Message) error {
			var ev types.PacketCreatedEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				return err
			}
			fmt.Printf("Observed packet %d created by %s (%d shares)\n", ev.ID, ev.Creator, ev.TotalCount)
			return nil
		})
		node.SetClaimHandler(func(ctx context.Context, msg *pubsub.Message) error {
			var ev types.PacketClaimedEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				return err
			}
			fmt.Printf("Observed claim on packet %d (%d remaining)\n", ev.ID, ev.RemainingCount)
			return nil
		})

		node.Start()
		regConfig.Sink = node
		fmt.Printf("Gateway listening. Peer ID: %s\n", node.ID())
	}

	// Initialize the registry
	fmt.Println("Initializing packet registry...")
	var regStore registry.Store
	if store != nil {
		regStore = store
	}
	reg, err := registry.NewRegistry(confLedger, regStore, regConfig)
	if err != nil {
		return fmt.Errorf("failed to create registry: %w", err)
	}
	if err := reg.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize registry: %w", err)
	}
	fmt.Printf("Registry initialized. Packets: %d\n", reg.PacketCount())

	fmt.Println("Red packet node started successfully!")
	fmt.Println("Press Ctrl+C to stop.")

	// Wait for shutdown
	<-ctx.Done()

	fmt.Println("Node stopped.")
	return nil
}
