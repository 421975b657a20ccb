// Package token reads ERC20 metadata and builds burn transactions.
package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/units"
)

// Caller executes read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, req chain.TxRequest) ([]byte, error)
}

// Info describes a loaded token for the connected account.
type Info struct {
	Address    common.Address `json:"address"`
	Name       string         `json:"name"`
	Symbol     string         `json:"symbol"`
	Decimals   uint8          `json:"decimals"`
	Balance    string         `json:"balance"`
	RawBalance *big.Int       `json:"raw_balance"`
}

// Session holds the token loaded for one account. Info is only published
// once every read succeeded.
type Session struct {
	caller  Caller
	account common.Address

	mu   sync.RWMutex
	gen  uint64
	info *Info
}

// NewSession creates a session reading through caller for account.
func NewSession(caller Caller, account common.Address) *Session {
	return &Session{caller: caller, account: account}
}

// Account returns the account balances are read for.
func (s *Session) Account() common.Address { return s.account }

// Load validates address and reads name, symbol, decimals and the
// account balance concurrently. Any previously loaded token is discarded
// first, so a failed load leaves the session empty.
func (s *Session) Load(ctx context.Context, address string) (Info, error) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.info = nil
	s.mu.Unlock()

	addr, err := units.ParseAddress(address)
	if err != nil {
		return Info{}, &Error{Kind: InvalidAddress, Err: err}
	}

	var (
		name, symbol string
		decimals     uint8
		balance      *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.read(gctx, addr, "name", &name) })
	g.Go(func() error { return s.read(gctx, addr, "symbol", &symbol) })
	g.Go(func() error { return s.read(gctx, addr, "decimals", &decimals) })
	g.Go(func() error { return s.read(gctx, addr, "balanceOf", &balance, s.account) })
	if err := g.Wait(); err != nil {
		return Info{}, classifyRead(err)
	}

	info := Info{
		Address:    addr,
		Name:       name,
		Symbol:     symbol,
		Decimals:   decimals,
		Balance:    units.FromBaseUnits(balance, decimals),
		RawBalance: balance,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return Info{}, context.Canceled
	}
	s.info = &info
	return info, nil
}

// RefreshBalance re-reads the account balance of the loaded token.
func (s *Session) RefreshBalance(ctx context.Context) (Info, error) {
	s.mu.RLock()
	if s.info == nil {
		s.mu.RUnlock()
		return Info{}, fmt.Errorf("no token loaded")
	}
	gen, info := s.gen, *s.info
	s.mu.RUnlock()

	var balance *big.Int
	if err := s.read(ctx, info.Address, "balanceOf", &balance, s.account); err != nil {
		return Info{}, classifyRead(err)
	}
	info.RawBalance = balance
	info.Balance = units.FromBaseUnits(balance, info.Decimals)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return Info{}, context.Canceled
	}
	s.info = &info
	return info, nil
}

// Info returns the loaded token, if any.
func (s *Session) Info() (Info, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.info == nil {
		return Info{}, false
	}
	return *s.info, true
}

// Reset discards the loaded token.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.info = nil
}

func (s *Session) read(ctx context.Context, addr common.Address, method string, out interface{}, args ...interface{}) error {
	data, err := ABI.Pack(method, args...)
	if err != nil {
		return err
	}
	ret, err := s.caller.CallContract(ctx, chain.TxRequest{To: addr, Data: data})
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if err := ABI.UnpackIntoInterface(out, method, ret); err != nil {
		return fmt.Errorf("decoding %s: %w", method, err)
	}
	return nil
}
