package rpc

import (
	"fmt"
	"net/url"
	"sort"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

// Network names a Solana cluster.
type Network string

const (
	MainnetBeta Network = "mainnet-beta"
	Devnet      Network = "devnet"
	Testnet     Network = "testnet"
	Localnet    Network = "localnet"
)

// DefaultNetwork is used when nothing is configured.
const DefaultNetwork = Devnet

var endpoints = map[Network]string{
	MainnetBeta: solanarpc.MainNetBeta_RPC,
	Devnet:      solanarpc.DevNet_RPC,
	Testnet:     solanarpc.TestNet_RPC,
	Localnet:    solanarpc.LocalNet_RPC,
}

// Networks lists the known cluster names.
func Networks() []Network {
	out := make([]Network, 0, len(endpoints))
	for n := range endpoints {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Endpoint resolves a cluster name or a custom http(s) URL to an RPC endpoint.
func Endpoint(network string) (string, error) {
	if network == "" {
		return endpoints[DefaultNetwork], nil
	}
	if ep, ok := endpoints[Network(network)]; ok {
		return ep, nil
	}

	u, err := url.Parse(network)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("unknown network %q: expected one of %v or an http(s) URL", network, Networks())
	}
	return network, nil
}
