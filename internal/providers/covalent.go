package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
)

const covalentBaseURL = "https://api.covalenthq.com/v1"

// Covalent reads balances from the Covalent balances_v2 endpoint.
type Covalent struct {
	apiKey  string
	baseURL string // overridable in tests
	client  *http.Client
}

// NewCovalent returns nil if apiKey is empty.
func NewCovalent(apiKey string) *Covalent {
	if apiKey == "" {
		return nil
	}
	return &Covalent{apiKey: apiKey, baseURL: covalentBaseURL}
}

func (c *Covalent) Name() string { return "covalent" }

type covalentItem struct {
	ContractAddress string `json:"contract_address"`
	ContractName    string `json:"contract_name"`
	ContractSymbol  string `json:"contract_ticker_symbol"`
	ContractDecimal *int   `json:"contract_decimals"`
	Balance         string `json:"balance"`
}

type covalentResp struct {
	Data struct {
		Items []covalentItem `json:"items"`
	} `json:"data"`
	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message"`
}

func (c *Covalent) Holdings(ctx context.Context, chainID int64, owner common.Address) ([]Holding, error) {
	u := fmt.Sprintf("%s/%d/address/%s/balances_v2/?key=%s", c.baseURL, chainID, owner.Hex(), url.QueryEscape(c.apiKey))

	var resp covalentResp
	if err := getJSON(ctx, httpClient(c.client), u, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error {
		return nil, fmt.Errorf("%s", resp.ErrorMessage)
	}

	out := make([]Holding, 0, len(resp.Data.Items))
	for _, it := range resp.Data.Items {
		if h, ok := newHolding(it.ContractAddress, it.ContractName, it.ContractSymbol, it.ContractDecimal, it.Balance); ok {
			out = append(out, h)
		}
	}
	return out, nil
}
