package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrChainNotFound is returned when a network is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// Chain IDs of the supported networks.
const (
	BaseMainnetID int64 = 8453
	BaseSepoliaID int64 = 84532
)

// NativeCurrency describes a network's gas token.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Network holds all metadata for a single supported network.
type Network struct {
	Name           string         `json:"name"`
	DisplayName    string         `json:"display_name"`
	ChainID        int64          `json:"chain_id"`
	Testnet        bool           `json:"testnet"`
	NativeCurrency NativeCurrency `json:"native_currency"`
	RPCs           []string       `json:"rpcs"`
	Explorer       string         `json:"explorer"`
}

// Registry is the network registry.
type Registry struct {
	networks []Network
	byName   map[string]*Network
	byID     map[int64]*Network
}

// NewRegistry returns the registry of supported networks.
func NewRegistry() *Registry {
	networks := allNetworks()
	r := &Registry{
		networks: networks,
		byName:   make(map[string]*Network, len(networks)),
		byID:     make(map[int64]*Network, len(networks)),
	}
	for i := range r.networks {
		n := &r.networks[i]
		r.byName[n.Name] = n
		r.byID[n.ChainID] = n
	}
	return r
}

// All returns every network in the registry.
func (r *Registry) All() []Network {
	return r.networks
}

// GetByName finds a network by its slug (e.g. "base", "base-sepolia").
func (r *Registry) GetByName(name string) (*Network, error) {
	n, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrChainNotFound
	}
	return n, nil
}

// GetByChainID finds a network by its numeric chain ID.
func (r *Registry) GetByChainID(id int64) (*Network, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, ErrChainNotFound
	}
	return n, nil
}

// ForMode maps "mainnet"/"testnet" to a network.
func (r *Registry) ForMode(mode string) *Network {
	if mode == "testnet" {
		return r.byID[BaseSepoliaID]
	}
	return r.byID[BaseMainnetID]
}

// IsSupported reports whether id is a supported chain ID.
func (r *Registry) IsSupported(id int64) bool {
	_, ok := r.byID[id]
	return ok
}

// SupportedIDs returns the supported chain IDs in registry order.
func (r *Registry) SupportedIDs() []int64 {
	ids := make([]int64, len(r.networks))
	for i, n := range r.networks {
		ids[i] = n.ChainID
	}
	return ids
}

// Mode returns "testnet" or "mainnet".
func (n *Network) Mode() string {
	if n.Testnet {
		return "testnet"
	}
	return "mainnet"
}

// RPC returns the primary RPC URL.
func (n *Network) RPC() string {
	if len(n.RPCs) == 0 {
		return ""
	}
	return n.RPCs[0]
}

// HexChainID returns the chain ID in the 0x-prefixed form wallets expect.
func (n *Network) HexChainID() string {
	return hexutil.EncodeUint64(uint64(n.ChainID))
}

// Label is the human name of the network, e.g. "Base Mainnet".
func (n *Network) Label() string {
	if n.Testnet {
		return n.DisplayName
	}
	return n.DisplayName + " Mainnet"
}

// TxURL returns the explorer link for a transaction hash.
func (n *Network) TxURL(hash string) string {
	return fmt.Sprintf("%s/tx/%s", n.Explorer, hash)
}

// AddressURL returns the explorer link for an address.
func (n *Network) AddressURL(addr string) string {
	return fmt.Sprintf("%s/address/%s", n.Explorer, addr)
}

// AddChainParams is the wallet_addEthereumChain parameter object.
type AddChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
}

// AddChainParams builds the parameters for registering n with a wallet.
func (n *Network) AddChainParams() AddChainParams {
	return AddChainParams{
		ChainID:           n.HexChainID(),
		ChainName:         n.DisplayName,
		NativeCurrency:    n.NativeCurrency,
		RPCURLs:           []string{n.RPC()},
		BlockExplorerURLs: []string{n.Explorer},
	}
}

// --- network data ---

func allNetworks() []Network {
	eth := NativeCurrency{Name: "Ethereum", Symbol: "ETH", Decimals: 18}
	return []Network{
		{
			Name: "base", DisplayName: "Base", ChainID: BaseMainnetID,
			NativeCurrency: eth,
			RPCs:           []string{"https://mainnet.base.org", "https://base.llamarpc.com"},
			Explorer:       "https://basescan.org",
		},
		{
			Name: "base-sepolia", DisplayName: "Base Sepolia", ChainID: BaseSepoliaID, Testnet: true,
			NativeCurrency: eth,
			RPCs:           []string{"https://sepolia.base.org"},
			Explorer:       "https://sepolia.basescan.org",
		},
	}
}
