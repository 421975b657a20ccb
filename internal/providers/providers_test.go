package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
)

var (
	owner = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	usdc  = "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913"
	burnT = "0x4200000000000000000000000000000000000042"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func testServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func covalentPayload() map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"items": []interface{}{
				map[string]interface{}{
					"contract_address":       usdc,
					"contract_name":          "USD Coin",
					"contract_ticker_symbol": "USDC",
					"contract_decimals":      6,
					"balance":                "2500000",
				},
				map[string]interface{}{ // zero balance
					"contract_address":       burnT,
					"contract_name":          "Zero",
					"contract_ticker_symbol": "ZERO",
					"contract_decimals":      18,
					"balance":                "0",
				},
				map[string]interface{}{ // unknown decimals
					"contract_address":       burnT,
					"contract_name":          "NoDec",
					"contract_ticker_symbol": "ND",
					"contract_decimals":      nil,
					"balance":                "5",
				},
				map[string]interface{}{ // no contract
					"contract_address":       "",
					"contract_ticker_symbol": "ETH",
					"contract_decimals":      18,
					"balance":                "1000",
				},
				map[string]interface{}{ // unnamed
					"contract_address":       burnT,
					"contract_name":          "",
					"contract_ticker_symbol": "",
					"contract_decimals":      18,
					"balance":                "10000000000000000000",
				},
			},
		},
	}
}

type stubProvider struct {
	name  string
	hs    []Holding
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Holdings(context.Context, int64, common.Address) ([]Holding, error) {
	s.calls++
	return s.hs, s.err
}

// ---------------------------------------------------------------------------
// Covalent
// ---------------------------------------------------------------------------

func TestNewCovalentNilWhenNoKey(t *testing.T) {
	assert.Nil(t, NewCovalent(""))
}

func TestCovalentHoldings(t *testing.T) {
	var gotPath, gotKey string
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		writeJSON(w, covalentPayload())
	})
	c := NewCovalent("ckey")
	c.baseURL = srv.URL

	hs, err := c.Holdings(context.Background(), chain.BaseMainnetID, owner)
	require.NoError(t, err)
	assert.Equal(t, "/8453/address/"+owner.Hex()+"/balances_v2/", gotPath)
	assert.Equal(t, "ckey", gotKey)

	require.Len(t, hs, 2)
	assert.Equal(t, common.HexToAddress(usdc), hs[0].Address)
	assert.Equal(t, "USD Coin", hs[0].Name)
	assert.Equal(t, "USDC", hs[0].Symbol)
	assert.Equal(t, uint8(6), hs[0].Decimals)
	assert.Equal(t, "2.5", hs[0].FormattedBalance)
	assert.Equal(t, "Unknown", hs[1].Name)
	assert.Equal(t, "10.0", hs[1].FormattedBalance)
}

func TestCovalentHTTPError(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	c := NewCovalent("bad")
	c.baseURL = srv.URL
	_, err := c.Holdings(context.Background(), chain.BaseMainnetID, owner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestCovalentAPIError(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]interface{}{"error": true, "error_message": "Invalid API key"})
	})
	c := NewCovalent("bad")
	c.baseURL = srv.URL
	_, err := c.Holdings(context.Background(), chain.BaseMainnetID, owner)
	assert.EqualError(t, err, "Invalid API key")
}

// ---------------------------------------------------------------------------
// Moralis
// ---------------------------------------------------------------------------

func TestNewMoralisNilWhenNoKey(t *testing.T) {
	assert.Nil(t, NewMoralis(""))
}

func TestMoralisHoldings(t *testing.T) {
	var gotKey, gotChain, gotPath string
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotChain = r.URL.Query().Get("chain")
		gotPath = r.URL.Path
		writeJSON(w, []interface{}{
			map[string]interface{}{"token_address": usdc, "name": "USD Coin", "symbol": "USDC", "decimals": 6, "balance": "1000000"},
			map[string]interface{}{"token_address": burnT, "name": "Str", "symbol": "STR", "decimals": "18", "balance": "500000000000000000"},
			map[string]interface{}{"token_address": burnT, "name": "Empty", "symbol": "E", "decimals": 18, "balance": "0"},
		})
	})
	m := NewMoralis("mkey")
	m.baseURL = srv.URL

	hs, err := m.Holdings(context.Background(), chain.BaseSepoliaID, owner)
	require.NoError(t, err)
	assert.Equal(t, "mkey", gotKey)
	assert.Equal(t, "0x14a34", gotChain)
	assert.Equal(t, "/"+owner.Hex()+"/erc20", gotPath)
	require.Len(t, hs, 2)
	assert.Equal(t, "1.0", hs[0].FormattedBalance)
	assert.Equal(t, uint8(18), hs[1].Decimals)
	assert.Equal(t, "0.5", hs[1].FormattedBalance)
}

func TestMoralisInvalidJSON(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{not json`)) //nolint:errcheck
	})
	m := NewMoralis("k")
	m.baseURL = srv.URL
	_, err := m.Holdings(context.Background(), chain.BaseMainnetID, owner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode failed")
}

func TestMoralisUnsupportedChain(t *testing.T) {
	_, err := NewMoralis("k").Holdings(context.Background(), 1, owner)
	assert.ErrorIs(t, err, ErrUnsupportedChain)
}

// ---------------------------------------------------------------------------
// Ankr
// ---------------------------------------------------------------------------

func TestNewAnkrOnlyBaseMainnet(t *testing.T) {
	assert.NotNil(t, NewAnkr(chain.BaseMainnetID, ""))
	assert.Nil(t, NewAnkr(chain.BaseSepoliaID, ""))
}

func TestAnkrHoldingsSkipsNative(t *testing.T) {
	var req ankrReq
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		writeJSON(w, map[string]interface{}{
			"jsonrpc": "2.0", "id": 1,
			"result": map[string]interface{}{
				"assets": []interface{}{
					map[string]interface{}{"tokenName": "Ether", "tokenSymbol": "ETH", "tokenDecimals": 18, "tokenType": "NATIVE", "balanceRawInteger": "1000"},
					map[string]interface{}{"tokenName": "USD Coin", "tokenSymbol": "USDC", "tokenDecimals": 6, "tokenType": "ERC20", "contractAddress": usdc, "balanceRawInteger": "3000000"},
				},
			},
		})
	})
	a := NewAnkr(chain.BaseMainnetID, "")
	a.endpoint = srv.URL

	hs, err := a.Holdings(context.Background(), chain.BaseMainnetID, owner)
	require.NoError(t, err)
	assert.Equal(t, "ankr_getAccountBalance", req.Method)
	assert.Equal(t, []string{"base"}, req.Params.Blockchain)
	assert.Equal(t, owner.Hex(), req.Params.WalletAddress)
	require.Len(t, hs, 1)
	assert.Equal(t, "USDC", hs[0].Symbol)
	assert.Equal(t, "3.0", hs[0].FormattedBalance)
}

func TestAnkrErrorFormats(t *testing.T) {
	for _, payload := range []string{
		`{"error":{"code":-32000,"message":"rate limited"}}`,
		`{"error":"rate limited"}`,
	} {
		srv := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(payload)) //nolint:errcheck
		})
		a := NewAnkr(chain.BaseMainnetID, "")
		a.endpoint = srv.URL
		_, err := a.Holdings(context.Background(), chain.BaseMainnetID, owner)
		assert.EqualError(t, err, "rate limited")
	}
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestRegistryReturnsFirstSuccessfulProvider(t *testing.T) {
	first := &stubProvider{name: "a", err: errors.New("down")}
	second := &stubProvider{name: "b", hs: []Holding{{Symbol: "X"}}}
	third := &stubProvider{name: "c"}

	res, err := New(first, second, third).Holdings(context.Background(), chain.BaseMainnetID, owner)
	require.NoError(t, err)
	assert.Equal(t, "b", res.Source)
	assert.Len(t, res.Holdings, 1)
	assert.Equal(t, []string{"a: down"}, res.Warnings)
	assert.Equal(t, 0, third.calls)
}

func TestRegistryEmptyResultIsAnAnswer(t *testing.T) {
	first := &stubProvider{name: "a", hs: []Holding{}}
	second := &stubProvider{name: "b", hs: []Holding{{Symbol: "X"}}}
	res, err := New(first, second).Holdings(context.Background(), chain.BaseMainnetID, owner)
	require.NoError(t, err)
	assert.Equal(t, "a", res.Source)
	assert.Empty(t, res.Holdings)
	assert.Equal(t, 0, second.calls)
}

func TestRegistryAllFail(t *testing.T) {
	r := New(&stubProvider{name: "a", err: errors.New("x")}, &stubProvider{name: "b", err: errors.New("y")})
	res, err := r.Holdings(context.Background(), chain.BaseMainnetID, owner)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllFailed)
	assert.Len(t, res.Warnings, 2)
	assert.True(t, strings.HasPrefix(err.Error(), "Unable to load token list."))
}

func TestRegistryRejectsOtherChains(t *testing.T) {
	p := &stubProvider{name: "a"}
	_, err := New(p).Holdings(context.Background(), 1, owner)
	assert.ErrorIs(t, err, ErrUnsupportedChain)
	assert.Equal(t, 0, p.calls)
}

func TestRegistryEmpty(t *testing.T) {
	_, err := New().Holdings(context.Background(), chain.BaseSepoliaID, owner)
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestBuildRegistryOrder(t *testing.T) {
	assert.Equal(t, []string{"covalent", "moralis", "ankr"},
		BuildRegistry(chain.BaseMainnetID, Keys{Covalent: "c", Moralis: "m"}).Names())
	assert.Equal(t, []string{"ankr"}, BuildRegistry(chain.BaseMainnetID, Keys{}).Names())
	assert.Equal(t, []string{"moralis"}, BuildRegistry(chain.BaseSepoliaID, Keys{Moralis: "m"}).Names())
	assert.Empty(t, BuildRegistry(chain.BaseSepoliaID, Keys{}).Names())
}
