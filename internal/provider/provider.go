// Package provider talks to an EIP-1193 style wallet provider exposed as a
// JSON-RPC endpoint (HTTP, WebSocket or IPC).
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
)

// Wallet-specific JSON-RPC error codes.
const (
	CodeUserRejected      = 4001
	CodeUnrecognizedChain = 4902
)

// Provider is a connected wallet provider.
type Provider struct {
	name   string
	url    string
	client *rpc.Client
}

// Dial connects to the provider endpoint at url.
func Dial(ctx context.Context, name, url string) (*Provider, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing provider %s: %w", name, err)
	}
	return &Provider{name: name, url: url, client: c}, nil
}

// New wraps an existing client. url may be empty for in-process clients.
func New(name, url string, c *rpc.Client) *Provider {
	return &Provider{name: name, url: url, client: c}
}

// Name returns the configured provider name.
func (p *Provider) Name() string { return p.name }

// URL returns the provider endpoint, which also serves chain reads.
func (p *Provider) URL() string { return p.url }

// Close releases the underlying connection.
func (p *Provider) Close() { p.client.Close() }

// RequestAccounts asks the wallet to expose its accounts (eth_requestAccounts).
func (p *Provider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Accounts returns the currently exposed accounts without prompting.
func (p *Provider) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

// ChainID returns the wallet's active chain.
func (p *Provider) ChainID(ctx context.Context) (int64, error) {
	var id hexutil.Uint64
	if err := p.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	return int64(id), nil
}

type switchParams struct {
	ChainID string `json:"chainId"`
}

// SwitchChain asks the wallet to activate n. When the wallet does not know
// the chain (4902) it is added first and the switch is retried once.
func (p *Provider) SwitchChain(ctx context.Context, n *chain.Network) error {
	err := p.client.CallContext(ctx, nil, "wallet_switchEthereumChain", switchParams{ChainID: n.HexChainID()})
	if err == nil {
		return nil
	}
	if ErrorCode(err) != CodeUnrecognizedChain {
		return err
	}
	if err := p.client.CallContext(ctx, nil, "wallet_addEthereumChain", n.AddChainParams()); err != nil {
		return fmt.Errorf("adding %s: %w", n.DisplayName, err)
	}
	return p.client.CallContext(ctx, nil, "wallet_switchEthereumChain", switchParams{ChainID: n.HexChainID()})
}

type sendParams struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data,omitempty"`
	Gas  hexutil.Uint64 `json:"gas,omitempty"`
}

// EstimateGas estimates req through the wallet.
func (p *Provider) EstimateGas(ctx context.Context, req chain.TxRequest) (uint64, error) {
	var gas hexutil.Uint64
	if err := p.client.CallContext(ctx, &gas, "eth_estimateGas", sendParams{From: req.From, To: req.To, Data: req.Data}); err != nil {
		return 0, err
	}
	return uint64(gas), nil
}

// SendTransaction asks the wallet to sign and broadcast req.
func (p *Provider) SendTransaction(ctx context.Context, req chain.TxRequest) (common.Hash, error) {
	var hash common.Hash
	args := sendParams{From: req.From, To: req.To, Data: req.Data, Gas: hexutil.Uint64(req.Gas)}
	if err := p.client.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// ErrorCode extracts the JSON-RPC error code from err, or 0.
func ErrorCode(err error) int {
	var coded interface{ ErrorCode() int }
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return 0
}

// IsUserRejected reports whether the user declined the wallet prompt.
func IsUserRejected(err error) bool {
	return ErrorCode(err) == CodeUserRejected
}
