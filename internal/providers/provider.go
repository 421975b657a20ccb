// Package providers lists the ERC20 tokens an address holds, using
// third-party indexing APIs tried in priority order.
package providers

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/units"
)

var (
	// ErrAllFailed is returned when every provider in the registry fails.
	ErrAllFailed = errors.New("Unable to load token list. Check API key and network.")
	// ErrUnsupportedChain is returned for chains other than Base and Base Sepolia.
	ErrUnsupportedChain = errors.New("Token list is supported on Base and Base Sepolia only.")
	// ErrNoProviders is returned when no indexer is configured for the chain.
	ErrNoProviders = errors.New("Set a Covalent or Moralis API key to load wallet tokens.")
)

const requestTimeout = 12 * time.Second

// Holding is a token balance held by an address.
type Holding struct {
	Address          common.Address `json:"address"`
	Name             string         `json:"name"`
	Symbol           string         `json:"symbol"`
	Decimals         uint8          `json:"decimals"`
	Balance          *big.Int       `json:"balance"`
	FormattedBalance string         `json:"formatted_balance"`
}

// Provider lists token holdings.
type Provider interface {
	Name() string
	Holdings(ctx context.Context, chainID int64, owner common.Address) ([]Holding, error)
}

// Registry tries providers in order and returns the first successful result.
type Registry struct {
	providers []Provider
}

// New creates a Registry from an ordered list of providers.
func New(ps ...Provider) *Registry {
	return &Registry{providers: ps}
}

// Result carries the holdings and the provider that supplied them.
type Result struct {
	Holdings []Holding `json:"holdings"`
	Source   string    `json:"source"`
	Warnings []string  `json:"warnings,omitempty"` // non-fatal provider errors
}

// Holdings tries each provider in order and returns on the first that
// answers. Failures of earlier providers are kept as warnings.
func (r *Registry) Holdings(ctx context.Context, chainID int64, owner common.Address) (*Result, error) {
	if chainID != chain.BaseMainnetID && chainID != chain.BaseSepoliaID {
		return nil, ErrUnsupportedChain
	}
	if len(r.providers) == 0 {
		return nil, ErrNoProviders
	}
	res := &Result{}
	for _, p := range r.providers {
		hs, err := p.Holdings(ctx, chainID, owner)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}
		res.Holdings = hs
		res.Source = p.Name()
		return res, nil
	}
	return res, fmt.Errorf("%w (%s)", ErrAllFailed, strings.Join(res.Warnings, "; "))
}

// Names returns the names of all registered providers (for display).
func (r *Registry) Names() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// newHolding builds a Holding, dropping entries without a contract, with
// unknown decimals, or with a zero balance.
func newHolding(addr, name, symbol string, decimals *int, raw string) (Holding, bool) {
	if addr == "" || !common.IsHexAddress(addr) || decimals == nil || *decimals < 0 || *decimals > 255 {
		return Holding{}, false
	}
	bal, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || bal.Sign() <= 0 {
		return Holding{}, false
	}
	if name == "" {
		name = "Unknown"
	}
	d := uint8(*decimals)
	return Holding{
		Address:          common.HexToAddress(addr),
		Name:             name,
		Symbol:           symbol,
		Decimals:         d,
		Balance:          bal,
		FormattedBalance: units.FromBaseUnits(bal, d),
	}, true
}

func getJSON(ctx context.Context, client *http.Client, url string, header http.Header, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	return doJSON(client, req, out)
}
