package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
)

// moralisChainID maps chain ids to Moralis hex chain identifiers.
var moralisChainID = map[int64]string{
	chain.BaseMainnetID: "0x2105",
	chain.BaseSepoliaID: "0x14a34",
}

const moralisBaseURL = "https://deep-index.moralis.io/api/v2.2"

// Moralis is a provider backed by the Moralis Deep Index API.
// NewMoralis returns nil if no key is set.
type Moralis struct {
	apiKey  string
	baseURL string // defaults to moralisBaseURL; overridable in tests
	client  *http.Client
}

// NewMoralis creates a Moralis provider.
func NewMoralis(apiKey string) *Moralis {
	if apiKey == "" {
		return nil
	}
	return &Moralis{apiKey: apiKey, baseURL: moralisBaseURL}
}

func (m *Moralis) Name() string { return "moralis" }

// flexInt decodes decimals sent either as a number or as a string.
type flexInt struct{ v *int }

func (f *flexInt) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		f.v = &n
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	f.v = &n
	return nil
}

type moralisToken struct {
	TokenAddress string  `json:"token_address"`
	Name         string  `json:"name"`
	Symbol       string  `json:"symbol"`
	Decimals     flexInt `json:"decimals"`
	Balance      string  `json:"balance"` // decimal base units
	PossibleSpam bool    `json:"possible_spam"`
}

func (m *Moralis) Holdings(ctx context.Context, chainID int64, owner common.Address) ([]Holding, error) {
	hex, ok := moralisChainID[chainID]
	if !ok {
		return nil, ErrUnsupportedChain
	}
	url := fmt.Sprintf("%s/%s/erc20?chain=%s", m.baseURL, owner.Hex(), hex)

	var tokens []moralisToken
	if err := getJSON(ctx, httpClient(m.client), url, http.Header{"X-API-Key": {m.apiKey}}, &tokens); err != nil {
		return nil, err
	}

	out := make([]Holding, 0, len(tokens))
	for _, t := range tokens {
		if h, ok := newHolding(t.TokenAddress, t.Name, t.Symbol, t.Decimals.v, t.Balance); ok {
			out = append(out, h)
		}
	}
	return out, nil
}
