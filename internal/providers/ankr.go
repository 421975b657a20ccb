package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
)

// ankrError handles both string and object error formats from Ankr.
type ankrError struct{ msg string }

func (e *ankrError) UnmarshalJSON(b []byte) error {
	var obj struct{ Message string }
	if json.Unmarshal(b, &obj) == nil && obj.Message != "" {
		e.msg = obj.Message
		return nil
	}
	var s string
	if json.Unmarshal(b, &s) == nil {
		e.msg = s
		return nil
	}
	e.msg = string(b)
	return nil
}

const ankrEndpoint = "https://rpc.ankr.com/multichain"

// ankrChain maps chain ids to Ankr's blockchain identifiers. The Advanced
// API does not index Base Sepolia.
var ankrChain = map[int64]string{
	chain.BaseMainnetID: "base",
}

// Ankr uses Ankr's free Advanced API (no key required for basic use).
// With an API key the rate limit and credit allowance are higher.
type Ankr struct {
	apiKey   string // empty = free public endpoint
	endpoint string
	client   *http.Client
}

// NewAnkr creates an Ankr provider. Returns nil if chainID is not indexed
// by Ankr.
func NewAnkr(chainID int64, apiKey string) *Ankr {
	if _, ok := ankrChain[chainID]; !ok {
		return nil
	}
	return &Ankr{apiKey: apiKey, endpoint: ankrEndpoint}
}

func (a *Ankr) Name() string { return "ankr" }

type ankrReq struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  ankrParam `json:"params"`
	ID      int       `json:"id"`
}

type ankrParam struct {
	Blockchain      []string `json:"blockchain"`
	WalletAddress   string   `json:"walletAddress"`
	OnlyWhitelisted bool     `json:"onlyWhitelisted"`
}

type ankrResp struct {
	Result *struct {
		Assets []ankrAsset `json:"assets"`
	} `json:"result"`
	Error *ankrError `json:"error"`
}

type ankrAsset struct {
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimals   *int   `json:"tokenDecimals"`
	TokenType       string `json:"tokenType"` // "NATIVE" or "ERC20"
	ContractAddress string `json:"contractAddress"`
	BalanceRaw      string `json:"balanceRawInteger"`
}

func (a *Ankr) Holdings(ctx context.Context, chainID int64, owner common.Address) ([]Holding, error) {
	blockchain, ok := ankrChain[chainID]
	if !ok {
		return nil, ErrUnsupportedChain
	}
	url := a.endpoint
	if a.apiKey != "" {
		url += "/" + a.apiKey
	}

	body, err := json.Marshal(ankrReq{
		JSONRPC: "2.0",
		Method:  "ankr_getAccountBalance",
		Params: ankrParam{
			Blockchain:    []string{blockchain},
			WalletAddress: owner.Hex(),
		},
		ID: 1,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result ankrResp
	if err := doJSON(httpClient(a.client), req, &result); err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, fmt.Errorf("%s", result.Error.msg)
	}
	if result.Result == nil {
		return nil, fmt.Errorf("empty result")
	}

	var out []Holding
	for _, as := range result.Result.Assets {
		if !strings.EqualFold(as.TokenType, "ERC20") {
			continue
		}
		if h, ok := newHolding(as.ContractAddress, as.TokenName, as.TokenSymbol, as.TokenDecimals, as.BalanceRaw); ok {
			out = append(out, h)
		}
	}
	return out, nil
}
