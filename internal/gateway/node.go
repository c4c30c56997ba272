// Package gateway implements the libp2p-based event gateway. Packet
// lifecycle events are published on gossip topics so wallets and indexers
// can follow creations and claims without polling the registry.
package gateway

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	drouting "github.com/libp2p/go-libp2p/p2p/discovery/routing"
	dutil "github.com/libp2p/go-libp2p/p2p/discovery/util"
	"github.com/multiformats/go-multiaddr"

	"github.com/redpacket/core/pkg/types"
)

// Protocol identifiers
const (
	ProtocolID  = "/redpacket/1.0.0"
	PacketTopic = "redpacket/packets"
	ClaimTopic  = "redpacket/claims"

	discoveryTag = "redpacket-network"
	mdnsTag      = "redpacket-local"
)

// Node is the gateway's network presence. It satisfies registry.EventSink.
type Node struct {
	host      host.Host
	dht       *dht.IpfsDHT
	pubsub    *pubsub.PubSub
	discovery *drouting.RoutingDiscovery

	// Topics
	packetTopic *pubsub.Topic
	claimTopic  *pubsub.Topic

	// Subscriptions
	packetSub *pubsub.Subscription
	claimSub  *pubsub.Subscription

	// Inbound handlers, fixed before Start
	packetHandler MessageHandler
	claimHandler  MessageHandler

	maxPeers int

	ctx    context.Context
	cancel context.CancelFunc
}

// MessageHandler handles an inbound gossip message
type MessageHandler func(ctx context.Context, msg *pubsub.Message) error

// Config holds gateway configuration
type Config struct {
	ListenAddrs    []string
	BootstrapPeers []string
	PrivateKey     crypto.PrivKey
	MaxPeers       int
	EnableMDNS     bool
}

// DefaultConfig returns default gateway configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddrs: []string{"/ip4/0.0.0.0/tcp/9300"},
		MaxPeers:    50,
		EnableMDNS:  true,
	}
}

// NewNode creates a new gateway node
func NewNode(ctx context.Context, cfg *Config) (*Node, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	nodeCtx, cancel := context.WithCancel(ctx)

	privKey := cfg.PrivateKey
	if privKey == nil {
		var err error
		privKey, _, err = crypto.GenerateKeyPairWithReader(crypto.Ed25519, -1, rand.Reader)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
	}

	listenAddrs := make([]multiaddr.Multiaddr, len(cfg.ListenAddrs))
	for i, addr := range cfg.ListenAddrs {
		ma, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("invalid listen address: %w", err)
		}
		listenAddrs[i] = ma
	}

	h, err := libp2p.New(
		libp2p.Identity(privKey),
		libp2p.ListenAddrs(listenAddrs...),
		libp2p.EnableNATService(),
		libp2p.EnableRelay(),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create host: %w", err)
	}

	kadDHT, err := dht.New(nodeCtx, h, dht.Mode(dht.ModeAuto))
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("failed to create DHT: %w", err)
	}

	ps, err := pubsub.NewGossipSub(nodeCtx, h)
	if err != nil {
		kadDHT.Close()
		h.Close()
		cancel()
		return nil, fmt.Errorf("failed to create pubsub: %w", err)
	}

	node := &Node{
		host:     h,
		dht:      kadDHT,
		pubsub:   ps,
		maxPeers: cfg.MaxPeers,
		ctx:      nodeCtx,
		cancel:   cancel,
	}

	if err := kadDHT.Bootstrap(nodeCtx); err != nil {
		node.Close()
		return nil, fmt.Errorf("failed to bootstrap DHT: %w", err)
	}

	for _, peerAddr := range cfg.BootstrapPeers {
		if err := node.connectToPeer(peerAddr); err != nil {
			fmt.Printf("Warning: failed to connect to bootstrap peer %s: %v\n", peerAddr, err)
		}
	}

	if cfg.EnableMDNS {
		if err := node.setupMDNS(); err != nil {
			fmt.Printf("Warning: mDNS setup failed: %v\n", err)
		}
	}

	node.discovery = drouting.NewRoutingDiscovery(kadDHT)
	dutil.Advertise(nodeCtx, node.discovery, discoveryTag)

	if err := node.joinTopics(); err != nil {
		node.Close()
		return nil, fmt.Errorf("failed to join topics: %w", err)
	}

	return node, nil
}

// joinTopics subscribes to both gossip topics
func (n *Node) joinTopics() error {
	var err error

	n.packetTopic, err = n.pubsub.Join(PacketTopic)
	if err != nil {
		return fmt.Errorf("failed to join packet topic: %w", err)
	}
	n.packetSub, err = n.packetTopic.Subscribe()
	if err != nil {
		return fmt.Errorf("failed to subscribe to packets: %w", err)
	}

	n.claimTopic, err = n.pubsub.Join(ClaimTopic)
	if err != nil {
		return fmt.Errorf("failed to join claim topic: %w", err)
	}
	n.claimSub, err = n.claimTopic.Subscribe()
	if err != nil {
		return fmt.Errorf("failed to subscribe to claims: %w", err)
	}

	return nil
}

// Start begins processing inbound messages and peer discovery. Inbound
// handlers must be set before calling Start.
func (n *Node) Start() {
	go n.processMessages(n.packetSub, n.packetHandler)
	go n.processMessages(n.claimSub, n.claimHandler)
	go n.discoveryLoop()
}

// PacketCreated publishes a creation event to the packet topic
func (n *Node) PacketCreated(ev types.PacketCreatedEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		fmt.Printf("Failed to encode packet event: %v\n", err)
		return
	}
	if err := n.packetTopic.Publish(n.ctx, data); err != nil {
		fmt.Printf("Failed to publish packet event: %v\n", err)
	}
}

// PacketClaimed publishes a claim event to the claim topic
func (n *Node) PacketClaimed(ev types.PacketClaimedEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		fmt.Printf("Failed to encode claim event: %v\n", err)
		return
	}
	if err := n.claimTopic.Publish(n.ctx, data); err != nil {
		fmt.Printf("Failed to publish claim event: %v\n", err)
	}
}

// SetPacketHandler sets the handler for inbound packet events. Only
// effective before Start.
func (n *Node) SetPacketHandler(handler MessageHandler) {
	n.packetHandler = handler
}

// SetClaimHandler sets the handler for inbound claim events. Only
// effective before Start.
func (n *Node) SetClaimHandler(handler MessageHandler) {
	n.claimHandler = handler
}

// processMessages handles incoming messages on a subscription
func (n *Node) processMessages(sub *pubsub.Subscription, handler MessageHandler) {
	for {
		msg, err := sub.Next(n.ctx)
		if err != nil {
			if n.ctx.Err() != nil {
				return // Context cancelled, shutting down
			}
			continue
		}

		// Skip messages from self
		if msg.ReceivedFrom == n.host.ID() {
			continue
		}

		if handler != nil {
			if err := handler(n.ctx, msg); err != nil {
				fmt.Printf("Message handler error: %v\n", err)
			}
		}
	}
}

// discoveryLoop periodically fills the peer set from the DHT. Connection
// state itself lives in the libp2p host; the gateway only tops it up.
func (n *Node) discoveryLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.discoverPeers()
		}
	}
}

// discoverPeers finds new peers advertising the discovery tag
func (n *Node) discoverPeers() {
	if n.PeerCount() >= n.maxPeers {
		return
	}

	ctx, cancel := context.WithTimeout(n.ctx, 10*time.Second)
	defer cancel()

	peerChan, err := n.discovery.FindPeers(ctx, discoveryTag)
	if err != nil {
		return
	}

	for p := range peerChan {
		if p.ID == n.host.ID() || len(p.Addrs) == 0 {
			continue
		}
		if n.PeerCount() >= n.maxPeers {
			return
		}
		n.host.Connect(ctx, p)
	}
}

// connectToPeer dials a peer given its multiaddress
func (n *Node) connectToPeer(addr string) error {
	ma, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		return err
	}

	peerInfo, err := peer.AddrInfoFromP2pAddr(ma)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(n.ctx, 10*time.Second)
	defer cancel()

	return n.host.Connect(ctx, *peerInfo)
}

// setupMDNS sets up mDNS for local network peer discovery
func (n *Node) setupMDNS() error {
	service := mdns.NewMdnsService(n.host, mdnsTag, &mdnsNotifee{node: n})
	return service.Start()
}

type mdnsNotifee struct {
	node *Node
}

func (m *mdnsNotifee) HandlePeerFound(pi peer.AddrInfo) {
	if pi.ID == m.node.host.ID() {
		return
	}
	ctx, cancel := context.WithTimeout(m.node.ctx, 5*time.Second)
	defer cancel()
	m.node.host.Connect(ctx, pi)
}

// ID returns the node's peer ID
func (n *Node) ID() peer.ID {
	return n.host.ID()
}

// Addrs returns the node's listen addresses
func (n *Node) Addrs() []multiaddr.Multiaddr {
	return n.host.Addrs()
}

// PeerCount returns the number of connected peers
func (n *Node) PeerCount() int {
	return len(n.host.Network().Peers())
}

// Close shuts down the node
func (n *Node) Close() error {
	n.cancel()

	if n.packetSub != nil {
		n.packetSub.Cancel()
	}
	if n.claimSub != nil {
		n.claimSub.Cancel()
	}

	if n.dht != nil {
		n.dht.Close()
	}

	return n.host.Close()
}
