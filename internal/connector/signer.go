package connector

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/provider"
	"github.com/Mohsinsiddi/w3burn/internal/wallet"
)

// Signer estimates and submits transactions for the connected account.
type Signer interface {
	Address() common.Address
	EstimateGas(ctx context.Context, req chain.TxRequest) (uint64, error)
	SendTransaction(ctx context.Context, req chain.TxRequest) (common.Hash, error)
	Close() error
}

// providerSigner delegates signing to a wallet provider.
type providerSigner struct {
	p       *provider.Provider
	account common.Address
	extra   []io.Closer
}

func (s *providerSigner) Address() common.Address { return s.account }

func (s *providerSigner) EstimateGas(ctx context.Context, req chain.TxRequest) (uint64, error) {
	req.From = s.account
	return s.p.EstimateGas(ctx, req)
}

func (s *providerSigner) SendTransaction(ctx context.Context, req chain.TxRequest) (common.Hash, error) {
	req.From = s.account
	return s.p.SendTransaction(ctx, req)
}

func (s *providerSigner) Close() error {
	s.p.Close()
	for _, c := range s.extra {
		c.Close() //nolint:errcheck
	}
	return nil
}

// defaultTip is used when the node cannot suggest a priority fee.
var defaultTip = big.NewInt(1_000_000)

// localSigner signs with a keyring wallet and broadcasts through the
// network RPC.
type localSigner struct {
	s       *wallet.Signer
	client  *chain.EVMClient
	chainID int64
}

func (l *localSigner) Address() common.Address { return l.s.Address() }

func (l *localSigner) EstimateGas(ctx context.Context, req chain.TxRequest) (uint64, error) {
	req.From = l.s.Address()
	return l.client.EstimateGas(ctx, req)
}

func (l *localSigner) SendTransaction(ctx context.Context, req chain.TxRequest) (common.Hash, error) {
	from := l.s.Address()
	nonce, err := l.client.PendingNonce(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetching nonce: %w", err)
	}
	tip, feeCap, err := l.fees(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	to := req.To
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(l.chainID),
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       req.Gas,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	})
	raw, err := l.s.SignTx(tx, big.NewInt(l.chainID))
	if err != nil {
		return common.Hash{}, err
	}
	return l.client.SendRawTransaction(ctx, raw)
}

// fees returns the priority fee and a fee cap of twice the base fee plus
// the tip. Chains without a base fee fall back to the legacy gas price.
func (l *localSigner) fees(ctx context.Context) (*big.Int, *big.Int, error) {
	tip, err := l.client.MaxPriorityFee(ctx)
	if err != nil {
		tip = defaultTip
	}
	base, err := l.client.BaseFee(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching base fee: %w", err)
	}
	if base == nil {
		gp, err := l.client.GasPrice(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("fetching gas price: %w", err)
		}
		return gp, gp, nil
	}
	feeCap := new(big.Int).Mul(base, big.NewInt(2))
	feeCap.Add(feeCap, tip)
	return tip, feeCap, nil
}

func (l *localSigner) Close() error { return l.s.Close() }
