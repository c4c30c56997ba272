// Red Packet CLI - Command-line interface for the red packet registry
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redpacket/core/internal/storage"
	"github.com/redpacket/core/pkg/common"
	"github.com/redpacket/core/pkg/types"
)

const (
	version = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Red Packet CLI v%s\n", version)

	case "help":
		printUsage()

	case "status":
		cmdStatus()

	case "packet":
		if len(os.Args) < 3 {
			fmt.Println("Usage: redpacket-cli packet <subcommand>")
			fmt.Println("Subcommands: create, info <id>, claimers <id>, active <id>")
			os.Exit(1)
		}
		cmdPacket(os.Args[2:])

	case "claim":
		if len(os.Args) < 3 {
			fmt.Println("Usage: redpacket-cli claim <packet_id>")
			os.Exit(1)
		}
		cmdClaim(os.Args[2:])

	case "wallet":
		if len(os.Args) < 3 {
			fmt.Println("Usage: redpacket-cli wallet <subcommand>")
			fmt.Println("Subcommands: new, balance, address")
			os.Exit(1)
		}
		cmdWallet(os.Args[2:])

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Red Packet CLI - Command-line interface for the red packet registry")
	fmt.Println()
	fmt.Println("Usage: redpacket-cli <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  version     Show version information")
	fmt.Println("  help        Show this help message")
	fmt.Println("  status      Show node status")
	fmt.Println("  packet      Packet operations (create, info, claimers, active)")
	fmt.Println("  claim       Claim a share from a packet")
	fmt.Println("  wallet      Wallet operations (new, balance, address)")
	fmt.Println()
	fmt.Println("Use 'redpacket-cli <command> help' for more information about a command.")
}

func cmdStatus() {
	fmt.Println("Connecting to red packet node...")
	// TODO: Connect to RPC and fetch status
	fmt.Println("Node Status:")
	fmt.Println("  Version: 0.1.0")
	fmt.Println("  Network: testnet")
	fmt.Println("  Packets: 0")
	fmt.Println("  Peers: 0")
}

func cmdPacket(args []string) {
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "create":
		fmt.Println("Packet creation not yet wired to the daemon")
		fmt.Println("Usage: redpacket-cli packet create --count <n> --expire <hours> [--random] [--message <text>]")

	case "info":
		if len(args) < 2 {
			fmt.Println("Usage: redpacket-cli packet info <id>")
			return
		}
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			fmt.Printf("Invalid packet id: %s\n", args[1])
			return
		}
		printPacketInfo(id)

	case "claimers":
		if len(args) < 2 {
			fmt.Println("Usage: redpacket-cli packet claimers <id>")
			return
		}
		fmt.Printf("Claimers of packet %s:\n", args[1])
		fmt.Println("  (none)")

	case "active":
		if len(args) < 2 {
			fmt.Println("Usage: redpacket-cli packet active <id>")
			return
		}
		fmt.Printf("Packet %s: inactive\n", args[1])

	default:
		fmt.Printf("Unknown packet command: %s\n", args[0])
	}
}

// printPacketInfo reads the packet row straight from the database
func printPacketInfo(id uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := storage.NewPostgresStore(ctx, storage.DefaultConfig())
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		return
	}
	defer store.Close()

	packet, err := store.GetPacket(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Printf("Packet %d not found\n", id)
		} else {
			fmt.Printf("Failed to load packet: %v\n", err)
		}
		return
	}

	fmt.Printf("Packet %d:\n", packet.ID)
	fmt.Printf("  Creator:   %s\n", common.BytesToHex(packet.Creator[:]))
	fmt.Printf("  Type:      %s\n", packetTypeName(packet.Type))
	fmt.Printf("  Status:    %s\n", packetStatusName(packet))
	fmt.Printf("  Shares:    %d remaining of %d\n", packet.RemainingCount, packet.TotalCount)
	fmt.Printf("  Expires:   %s\n", types.TimestampToTime(packet.ExpireTime).Format(time.RFC3339))
	if packet.Message != "" {
		fmt.Printf("  Message:   %s\n", packet.Message)
	}
}

func packetTypeName(t types.PacketType) string {
	switch t {
	case types.PacketNormal:
		return "normal"
	case types.PacketRandom:
		return "random"
	default:
		return "unknown"
	}
}

func packetStatusName(p *types.Packet) string {
	now := uint64(time.Now().Unix())
	switch {
	case p.Status == types.PacketEmpty:
		return "empty"
	case now > p.ExpireTime:
		return "expired"
	default:
		return "active"
	}
}

func cmdClaim(args []string) {
	if len(args) == 0 {
		return
	}
	fmt.Println("Claim submission not yet wired to the daemon")
	fmt.Printf("Usage: redpacket-cli claim %s --key <keyfile>\n", args[0])
}

func cmdWallet(args []string) {
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "new":
		fmt.Println("Creating new wallet...")
		fmt.Println("Wallet created. Save your seed phrase:")
		fmt.Println("  (seed phrase would be displayed here)")

	case "balance":
		fmt.Println("Wallet Balance:")
		fmt.Println("  Committed: (hidden)")
		fmt.Println("  Pending claims: 0")

	case "address":
		fmt.Println("Wallet Addresses:")
		fmt.Println("  (none)")

	default:
		fmt.Printf("Unknown wallet command: %s\n", args[0])
	}
}
