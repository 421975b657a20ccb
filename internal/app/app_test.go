package app

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3burn/internal/connector"
	"github.com/Mohsinsiddi/w3burn/internal/env"
	"github.com/Mohsinsiddi/w3burn/internal/provider"
	"github.com/Mohsinsiddi/w3burn/internal/provider/providertest"
	"github.com/Mohsinsiddi/w3burn/internal/providers"
	"github.com/Mohsinsiddi/w3burn/internal/token"
	"github.com/Mohsinsiddi/w3burn/internal/workflow"
)

var (
	alice     = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob       = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	tokenAddr = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	ten       = new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18))
)

// fakeChain serves the reads the app makes against the network RPC: ERC20
// calls and receipts. Once a receipt is served the balance moves to
// afterBurn, if set.
type fakeChain struct {
	mu            sync.Mutex
	balance       *big.Int
	afterBurn     *big.Int
	receiptStatus uint64
	// gate, when set, stalls the next eth_call until it is closed.
	gate    chan struct{}
	stalled chan struct{}
}

// stall holds the next eth_call. stalled closes once it arrives.
func (c *fakeChain) stall() (stalled <-chan struct{}, release func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate = make(chan struct{})
	c.stalled = make(chan struct{})
	gate := c.gate
	return c.stalled, func() { close(gate) }
}

func (c *fakeChain) takeGate(method string) (gate, stalled chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if method != "eth_call" || c.gate == nil {
		return nil, nil
	}
	gate, stalled = c.gate, c.stalled
	c.gate, c.stalled = nil, nil
	return gate, stalled
}

func (c *fakeChain) serve(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int               `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if gate, stalled := c.takeGate(req.Method); gate != nil {
			close(stalled)
			<-gate
		}
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		result, err := c.handle(req.Method, req.Params)
		if err != nil {
			resp["error"] = map[string]interface{}{"code": 3, "message": err.Error()}
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func (c *fakeChain) handle(method string, params []json.RawMessage) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch method {
	case "eth_getTransactionReceipt":
		if c.afterBurn != nil {
			c.balance, c.afterBurn = c.afterBurn, nil
		}
		return map[string]string{
			"status":      hexutil.EncodeUint64(c.receiptStatus),
			"blockNumber": "0x10",
			"gasUsed":     "0x9c40",
		}, nil
	case "eth_call":
		var arg struct {
			Data hexutil.Bytes `json:"data"`
		}
		if err := json.Unmarshal(params[0], &arg); err != nil || len(arg.Data) < 4 {
			return nil, errors.New("bad call")
		}
		m, err := token.ABI.MethodById(arg.Data[:4])
		if err != nil {
			return nil, errors.New("execution reverted")
		}
		var out []byte
		switch m.Name {
		case "name":
			out, err = m.Outputs.Pack("Burn Me")
		case "symbol":
			out, err = m.Outputs.Pack("BURN")
		case "decimals":
			out, err = m.Outputs.Pack(uint8(18))
		case "balanceOf":
			out, err = m.Outputs.Pack(new(big.Int).Set(c.balance))
		default:
			return nil, errors.New("execution reverted")
		}
		if err != nil {
			return nil, err
		}
		return hexutil.Encode(out), nil
	}
	return nil, errors.New("method not found")
}

type fixture struct {
	app    *App
	wallet *providertest.Wallet
	chain  *fakeChain
}

func newFixture(t *testing.T, chainID int64, opts ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		wallet: providertest.NewWallet(chainID, alice),
		chain:  &fakeChain{balance: new(big.Int).Set(ten), receiptStatus: 1},
	}
	rpcURL := f.chain.serve(t)
	conn := connector.New(connector.Config{
		Providers: []connector.Candidate{{
			Flags: env.ProviderFlags{Name: "frame"},
			Dial: func(context.Context) (*provider.Provider, error) {
				return f.wallet.Provider("frame"), nil
			},
		}},
		RPCURL: rpcURL,
	})
	o := Options{
		Connector:     conn,
		WatchInterval: time.Hour,
		PollInterval:  5 * time.Millisecond,
	}
	for _, fn := range opts {
		fn(&o)
	}
	f.app = New(o)
	t.Cleanup(func() { f.app.Disconnect() })
	return f
}

func yes(string) bool { return true }
func no(string) bool  { return false }

var confirmYes = workflow.ConfirmFunc(yes)

func (f *fixture) connectAndLoad(t *testing.T) {
	t.Helper()
	_, err := f.app.Connect(context.Background(), yes)
	require.NoError(t, err)
	_, err = f.app.LoadToken(context.Background(), tokenAddr.Hex())
	require.NoError(t, err)
}

// ---------------------------------------------------------------------------
// connect
// ---------------------------------------------------------------------------

func TestConnectPublishesState(t *testing.T) {
	f := newFixture(t, 8453)
	st, err := f.app.Connect(context.Background(), yes)
	require.NoError(t, err)
	assert.True(t, st.Conn.Connected())
	assert.Equal(t, alice, st.Conn.Account)
	assert.Equal(t, int64(8453), st.Conn.ChainID)
	assert.Equal(t, connector.StandardProvider, st.Conn.Variant)
	assert.Equal(t, env.None, st.Env)
	assert.Empty(t, st.Warning)
}

func TestConnectNoProviderShowsError(t *testing.T) {
	a := New(Options{Connector: connector.New(connector.Config{})})
	st, err := a.Connect(context.Background(), yes)
	require.ErrorIs(t, err, connector.ErrNoProviderFound)
	assert.False(t, st.Conn.Connected())
	assert.Equal(t, workflow.StatusError, st.Status.Kind)
	assert.Contains(t, st.Status.Message, "No wallet found")
}

func TestConnectWrongChainDeclineKeepsState(t *testing.T) {
	f := newFixture(t, 1)
	var prompts []string
	st, err := f.app.Connect(context.Background(), func(p string) bool {
		prompts = append(prompts, p)
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"You are not on Base network. Would you like to switch to Base Mainnet?"}, prompts)
	assert.Equal(t, int64(1), st.Conn.ChainID)
	assert.True(t, st.Conn.Connected())
	assert.Empty(t, st.Warning)
	assert.Equal(t, 0, f.wallet.CallCount("wallet_switchEthereumChain"))
}

func TestConnectWrongChainSwitches(t *testing.T) {
	f := newFixture(t, 1)
	f.wallet.Known[8453] = true
	st, err := f.app.Connect(context.Background(), yes)
	require.NoError(t, err)
	assert.Equal(t, int64(8453), st.Conn.ChainID)
}

func TestConnectSwitchFailureIsWarning(t *testing.T) {
	f := newFixture(t, 1)
	f.wallet.RejectSwitch = true
	st, err := f.app.Connect(context.Background(), yes)
	require.NoError(t, err)
	assert.True(t, st.Conn.Connected())
	assert.NotEmpty(t, st.Warning)
	assert.Equal(t, int64(1), st.Conn.ChainID)
}

func TestConnectWithoutCallerUsesDefaultConfirmer(t *testing.T) {
	var asked int
	f := newFixture(t, 1, func(o *Options) {
		o.Confirm = workflow.ConfirmFunc(func(string) bool { asked++; return false })
	})
	_, err := f.app.Connect(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, asked)
}

// ---------------------------------------------------------------------------
// token
// ---------------------------------------------------------------------------

func TestLoadTokenRequiresConnection(t *testing.T) {
	f := newFixture(t, 8453)
	_, err := f.app.LoadToken(context.Background(), tokenAddr.Hex())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Nil(t, f.app.State().Token)
	assert.Equal(t, "Please connect your wallet first.", f.app.State().Status.Message)
}

func TestLoadTokenPublishes(t *testing.T) {
	f := newFixture(t, 8453)
	f.connectAndLoad(t)
	st := f.app.State()
	require.NotNil(t, st.Token)
	assert.Equal(t, "BURN", st.Token.Symbol)
	assert.Equal(t, "10.0", st.Token.Balance)
	assert.Equal(t, tokenAddr.Hex(), st.Contract)
}

func TestLoadInvalidAddressClearsToken(t *testing.T) {
	f := newFixture(t, 8453)
	f.connectAndLoad(t)

	_, err := f.app.LoadToken(context.Background(), "0xnope")
	assert.ErrorIs(t, err, token.ErrInvalidAddress)
	st := f.app.State()
	assert.Nil(t, st.Token)
	assert.Equal(t, "Please enter a valid contract address", st.Status.Message)
}

func TestShortcuts(t *testing.T) {
	f := newFixture(t, 8453)
	_, err := f.app.UseHalf()
	assert.ErrorIs(t, err, ErrNoToken)

	f.connectAndLoad(t)
	half, err := f.app.UseHalf()
	require.NoError(t, err)
	assert.Equal(t, "5.000000", half)
	assert.Equal(t, "5.000000", f.app.State().Amount)

	full, err := f.app.UseMax()
	require.NoError(t, err)
	assert.Equal(t, "10.0", full)
}

// ---------------------------------------------------------------------------
// burn / revoke
// ---------------------------------------------------------------------------

func TestBurnEndToEnd(t *testing.T) {
	f := newFixture(t, 8453)
	f.connectAndLoad(t)
	f.chain.afterBurn = new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18))
	f.app.SetAmount("5")

	var kinds []workflow.StatusKind
	var busySeen bool
	cancel := f.app.Subscribe(func(s State) {
		kinds = append(kinds, s.Status.Kind)
		busySeen = busySeen || s.Busy
	})
	defer cancel()

	res, err := f.app.Burn(context.Background(), confirmYes)
	require.NoError(t, err)
	assert.Equal(t, workflow.Succeeded, res.Stage)
	assert.Equal(t, "burn", res.Method)

	st := f.app.State()
	assert.Equal(t, "5.0", st.Token.Balance)
	assert.Empty(t, st.Amount)
	assert.False(t, st.Busy)
	assert.Equal(t, workflow.StatusSuccess, st.Status.Kind)
	assert.Equal(t, "https://basescan.org/tx/"+res.Hash.Hex(), st.Status.ExplorerURL)

	require.Len(t, f.wallet.Sent, 1)
	assert.Equal(t, hexutil.Uint64(60000), f.wallet.Sent[0].Gas)
	assert.Equal(t, alice, f.wallet.Sent[0].From)
	assert.Equal(t, tokenAddr, f.wallet.Sent[0].To)
	assert.Contains(t, kinds, workflow.StatusPending)
	assert.True(t, busySeen)
}

func TestBurnFallsBackToBurnFrom(t *testing.T) {
	f := newFixture(t, 8453)
	f.connectAndLoad(t)
	var sel [4]byte
	copy(sel[:], token.ABI.Methods["burn"].ID)
	f.wallet.EstimateErr[sel] = &providertest.CodedError{Code: 3, Msg: "execution reverted"}
	f.app.SetAmount("1")

	res, err := f.app.Burn(context.Background(), confirmYes)
	require.NoError(t, err)
	assert.Equal(t, "burnFrom", res.Method)
	require.Len(t, f.wallet.Sent, 1)
	assert.Equal(t, token.ABI.Methods["burnFrom"].ID, []byte(f.wallet.Sent[0].Data[:4]))
}

func TestBurnRevertKeepsAmount(t *testing.T) {
	f := newFixture(t, 8453)
	f.connectAndLoad(t)
	f.chain.receiptStatus = 0
	f.app.SetAmount("1")

	res, err := f.app.Burn(context.Background(), confirmYes)
	require.Error(t, err)
	assert.Equal(t, workflow.Failed, res.Stage)
	st := f.app.State()
	assert.Equal(t, "1", st.Amount)
	assert.Equal(t, workflow.StatusError, st.Status.Kind)
	assert.False(t, st.Busy)
}

func TestBurnDeclined(t *testing.T) {
	f := newFixture(t, 8453)
	f.connectAndLoad(t)
	f.app.SetAmount("1")
	res, err := f.app.Burn(context.Background(), workflow.ConfirmFunc(no))
	require.NoError(t, err)
	assert.Equal(t, workflow.Idle, res.Stage)
	assert.Empty(t, f.wallet.Sent)
	assert.Equal(t, "1", f.app.State().Amount)
}

func TestBurnWhileDisconnected(t *testing.T) {
	f := newFixture(t, 8453)
	_, err := f.app.Burn(context.Background(), confirmYes)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestRevoke(t *testing.T) {
	f := newFixture(t, 84532)
	f.connectAndLoad(t)
	res, err := f.app.Revoke(context.Background(), confirmYes)
	require.NoError(t, err)
	assert.Equal(t, "revokeOwnership", res.Method)
	assert.Equal(t, "https://sepolia.basescan.org/tx/"+res.Hash.Hex(), f.app.State().Status.ExplorerURL)
}

// ---------------------------------------------------------------------------
// lifecycle
// ---------------------------------------------------------------------------

func TestDisconnectClearsEverything(t *testing.T) {
	f := newFixture(t, 8453)
	f.connectAndLoad(t)
	st := f.app.Disconnect()
	assert.False(t, st.Conn.Connected())
	assert.Nil(t, st.Token)
	_, err := f.app.LoadToken(context.Background(), tokenAddr.Hex())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestAccountChangeReconnects(t *testing.T) {
	f := newFixture(t, 8453)
	f.connectAndLoad(t)

	f.wallet.Lock()
	f.wallet.Accounts = []common.Address{bob}
	f.wallet.Unlock()
	gone := f.app.handleEvent(provider.Event{Kind: provider.AccountsChanged, Accounts: []common.Address{bob}}, alice)
	assert.True(t, gone)

	st := f.app.State()
	assert.True(t, st.Conn.Connected())
	assert.Equal(t, bob, st.Conn.Account)
	assert.Nil(t, st.Token, "token of the previous account must not survive")
}

func TestAccountChangeDuringLoadDiscardsRead(t *testing.T) {
	f := newFixture(t, 8453)
	_, err := f.app.Connect(context.Background(), yes)
	require.NoError(t, err)

	stalled, release := f.chain.stall()

	done := make(chan error, 1)
	go func() {
		_, err := f.app.LoadToken(context.Background(), tokenAddr.Hex())
		done <- err
	}()
	<-stalled

	f.wallet.Lock()
	f.wallet.Accounts = []common.Address{bob}
	f.wallet.Unlock()
	f.app.handleEvent(provider.Event{Kind: provider.AccountsChanged, Accounts: []common.Address{bob}}, alice)
	release()

	assert.ErrorIs(t, <-done, ErrStale)
	st := f.app.State()
	assert.Equal(t, bob, st.Conn.Account)
	assert.Nil(t, st.Token, "token read for the previous account must not be published")

	_, err = f.app.UseMax()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestAccountsEmptyDisconnects(t *testing.T) {
	f := newFixture(t, 8453)
	f.connectAndLoad(t)
	gone := f.app.handleEvent(provider.Event{Kind: provider.AccountsChanged}, alice)
	assert.True(t, gone)
	st := f.app.State()
	assert.False(t, st.Conn.Connected())
	assert.Nil(t, st.Token)
}

func TestSameAccountEventIgnored(t *testing.T) {
	f := newFixture(t, 8453)
	f.connectAndLoad(t)
	gone := f.app.handleEvent(provider.Event{Kind: provider.AccountsChanged, Accounts: []common.Address{alice}}, alice)
	assert.False(t, gone)
	assert.NotNil(t, f.app.State().Token)
}

func TestChainChangeResets(t *testing.T) {
	f := newFixture(t, 8453)
	f.connectAndLoad(t)
	gone := f.app.handleEvent(provider.Event{Kind: provider.ChainChanged, ChainID: 1}, alice)
	assert.True(t, gone)
	st := f.app.State()
	assert.False(t, st.Conn.Connected())
	assert.Nil(t, st.Token)
	assert.Empty(t, st.Contract)
}

// ---------------------------------------------------------------------------
// holdings
// ---------------------------------------------------------------------------

type stubHoldings struct{ hs []providers.Holding }

func (s stubHoldings) Name() string { return "stub" }

func (s stubHoldings) Holdings(context.Context, int64, common.Address) ([]providers.Holding, error) {
	return s.hs, nil
}

func TestHoldingsAndUseToken(t *testing.T) {
	held := providers.Holding{Address: tokenAddr, Name: "Burn Me", Symbol: "BURN", Decimals: 18, Balance: ten, FormattedBalance: "10.0"}
	f := newFixture(t, 8453, func(o *Options) {
		o.Holdings = func(int64) *providers.Registry { return providers.New(stubHoldings{hs: []providers.Holding{held}}) }
	})

	_, err := f.app.Holdings(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = f.app.Connect(context.Background(), yes)
	require.NoError(t, err)
	res, err := f.app.Holdings(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Holdings, 1)

	info, err := f.app.UseToken(context.Background(), res.Holdings[0])
	require.NoError(t, err)
	assert.Equal(t, "BURN", info.Symbol)
	st := f.app.State()
	assert.Equal(t, "10.0", st.Amount)
	assert.NotNil(t, st.Token)
}

func TestHoldingsDisabled(t *testing.T) {
	f := newFixture(t, 8453)
	_, err := f.app.Connect(context.Background(), yes)
	require.NoError(t, err)
	_, err = f.app.Holdings(context.Background())
	assert.ErrorIs(t, err, providers.ErrNoProviders)
}
