package provider_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/provider"
	"github.com/Mohsinsiddi/w3burn/internal/provider/providertest"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	token = common.HexToAddress("0x000000000000000000000000000000000000beef")
)

func baseSepolia(t *testing.T) *chain.Network {
	t.Helper()
	n, err := chain.NewRegistry().GetByChainID(chain.BaseSepoliaID)
	require.NoError(t, err)
	return n
}

func TestRequestAccounts(t *testing.T) {
	w := providertest.NewWallet(8453, alice)
	p := w.Provider("test")
	defer p.Close()

	accounts, err := p.RequestAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{alice}, accounts)
}

func TestRequestAccountsRejected(t *testing.T) {
	w := providertest.NewWallet(8453, alice)
	w.RejectAccounts = true
	p := w.Provider("test")
	defer p.Close()

	_, err := p.RequestAccounts(context.Background())
	require.Error(t, err)
	assert.True(t, provider.IsUserRejected(err))
	assert.Equal(t, provider.CodeUserRejected, provider.ErrorCode(err))
}

func TestChainID(t *testing.T) {
	p := providertest.NewWallet(84532).Provider("test")
	defer p.Close()

	id, err := p.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(84532), id)
}

func TestSwitchChainKnown(t *testing.T) {
	w := providertest.NewWallet(1, alice)
	w.Known[84532] = true
	p := w.Provider("test")
	defer p.Close()

	require.NoError(t, p.SwitchChain(context.Background(), baseSepolia(t)))
	assert.Equal(t, int64(84532), w.Chain)
	assert.Equal(t, 0, w.CallCount("wallet_addEthereumChain"))
}

func TestSwitchChainAddsUnknownChain(t *testing.T) {
	w := providertest.NewWallet(1, alice)
	p := w.Provider("test")
	defer p.Close()

	require.NoError(t, p.SwitchChain(context.Background(), baseSepolia(t)))
	assert.Equal(t, int64(84532), w.Chain)
	assert.Equal(t, 2, w.CallCount("wallet_switchEthereumChain"))
	require.Len(t, w.Added, 1)
	assert.Equal(t, "0x14a34", w.Added[0].ChainID)
	assert.Equal(t, "Base Sepolia", w.Added[0].ChainName)
}

func TestSwitchChainRejected(t *testing.T) {
	w := providertest.NewWallet(1, alice)
	w.RejectSwitch = true
	p := w.Provider("test")
	defer p.Close()

	err := p.SwitchChain(context.Background(), baseSepolia(t))
	require.Error(t, err)
	assert.True(t, provider.IsUserRejected(err))
	assert.Equal(t, int64(1), w.Chain)
	assert.Equal(t, 0, w.CallCount("wallet_addEthereumChain"))
}

func TestSendTransaction(t *testing.T) {
	w := providertest.NewWallet(8453, alice)
	p := w.Provider("test")
	defer p.Close()

	hash, err := p.SendTransaction(context.Background(), chain.TxRequest{From: alice, To: token, Data: []byte{1, 2, 3, 4}, Gas: 60000})
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)
	require.Len(t, w.Sent, 1)
	assert.Equal(t, alice, w.Sent[0].From)
	assert.Equal(t, token, w.Sent[0].To)
	assert.Equal(t, uint64(60000), uint64(w.Sent[0].Gas))
}

func TestEstimateGas(t *testing.T) {
	w := providertest.NewWallet(8453, alice)
	w.Gas = 42000
	p := w.Provider("test")
	defer p.Close()

	gas, err := p.EstimateGas(context.Background(), chain.TxRequest{From: alice, To: token, Data: []byte{9, 9, 9, 9}})
	require.NoError(t, err)
	assert.Equal(t, uint64(42000), gas)
}

func TestErrorCodePlainError(t *testing.T) {
	assert.Equal(t, 0, provider.ErrorCode(errors.New("boom")))
	assert.Equal(t, 0, provider.ErrorCode(nil))
	assert.Equal(t, 3, provider.ErrorCode(&chain.RPCError{Code: 3}))
}

func TestWatcherEmitsAccountAndChainChanges(t *testing.T) {
	w := providertest.NewWallet(8453, alice)
	p := w.Provider("test")
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := provider.NewWatcher(p, 5*time.Millisecond).Run(ctx)

	// Let the baseline poll happen.
	require.Eventually(t, func() bool { return w.CallCount("eth_chainId") > 0 }, time.Second, time.Millisecond)

	w.Lock()
	w.Accounts = []common.Address{bob}
	w.Unlock()

	select {
	case ev := <-events:
		assert.Equal(t, provider.AccountsChanged, ev.Kind)
		assert.Equal(t, []common.Address{bob}, ev.Accounts)
	case <-time.After(time.Second):
		t.Fatal("no accounts event")
	}

	w.Lock()
	w.Chain = 1
	w.Unlock()

	select {
	case ev := <-events:
		assert.Equal(t, provider.ChainChanged, ev.Kind)
		assert.Equal(t, int64(1), ev.ChainID)
	case <-time.After(time.Second):
		t.Fatal("no chain event")
	}

	cancel()
	for range events {
	}
}
