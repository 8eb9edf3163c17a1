package nodes

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/chaininsights/validator/internal/config"
	"github.com/chaininsights/validator/internal/protocol"
)

type Registry struct {
	mu    sync.RWMutex
	nodes map[string]Node
}

func NewRegistry(nodes ...Node) *Registry {
	r := &Registry{nodes: make(map[string]Node, len(nodes))}
	for _, n := range nodes {
		r.Register(n)
	}
	return r
}

func (r *Registry) Register(n Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[n.Network()] = n
}

// Node resolves the adapter for network.
func (r *Registry) Node(network string) (Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[network]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNetwork, network)
	}
	return n, nil
}

func (r *Registry) Networks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.nodes))
	for _, network := range protocol.Networks {
		if _, ok := r.nodes[network]; ok {
			out = append(out, network)
		}
	}
	return out
}

// NewRegistryFromConfig connects every node that has an RPC url configured.
func NewRegistryFromConfig(ctx context.Context, cfg *config.NodeEnvConfig) (*Registry, error) {
	r := NewRegistry()
	if cfg.BitcoinNodeRPCURL != "" {
		r.Register(NewBitcoinNode(cfg.BitcoinNodeRPCURL))
	} else {
		log.Warn().Str("network", protocol.NetworkBitcoin).Msg("no node rpc url configured")
	}
	if cfg.EthereumNodeRPCURL != "" {
		eth, err := DialEthereumNode(ctx, cfg.EthereumNodeRPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial ethereum node: %w", err)
		}
		r.Register(eth)
	} else {
		log.Warn().Str("network", protocol.NetworkEthereum).Msg("no node rpc url configured")
	}
	return r, nil
}
