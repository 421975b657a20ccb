package workflow

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/token"
	"github.com/Mohsinsiddi/w3burn/internal/units"
)

var (
	account   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	tokenAddr = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type sendCall struct {
	method string
	req    chain.TxRequest
}

type fakeSender struct {
	mu          sync.Mutex
	estimate    uint64
	estimateErr map[string]error
	sendErr     map[string]error
	estimates   []string
	sent        []sendCall
	onEstimate  func()
}

func newSender() *fakeSender {
	return &fakeSender{estimate: 50000, estimateErr: map[string]error{}, sendErr: map[string]error{}}
}

func methodOf(data []byte) string {
	m, err := token.ABI.MethodById(data[:4])
	if err != nil {
		return ""
	}
	return m.Name
}

func (f *fakeSender) EstimateGas(_ context.Context, req chain.TxRequest) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := methodOf(req.Data)
	f.estimates = append(f.estimates, m)
	if f.onEstimate != nil {
		f.onEstimate()
	}
	if err := f.estimateErr[m]; err != nil {
		return 0, err
	}
	return f.estimate, nil
}

func (f *fakeSender) SendTransaction(_ context.Context, req chain.TxRequest) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := methodOf(req.Data)
	if err := f.sendErr[m]; err != nil {
		return common.Hash{}, err
	}
	f.sent = append(f.sent, sendCall{method: m, req: req})
	return common.BigToHash(big.NewInt(int64(len(f.sent)))), nil
}

type fakeReceipts struct {
	status uint64
	err    error
	waited []common.Hash
}

func (f *fakeReceipts) WaitForReceipt(_ context.Context, hash common.Hash) (*chain.TxReceipt, error) {
	f.waited = append(f.waited, hash)
	if f.err != nil {
		return nil, f.err
	}
	return &chain.TxReceipt{Hash: hash, Status: f.status, BlockNumber: 10, GasUsed: 40000}, nil
}

type fakeBalances struct {
	info      *token.Info
	after     *big.Int
	refreshed int
}

func loaded(balance string) *fakeBalances {
	raw, err := units.ToBaseUnits(balance, 18)
	if err != nil {
		panic(err)
	}
	return &fakeBalances{info: &token.Info{
		Address: tokenAddr, Name: "Burn Me", Symbol: "BURN", Decimals: 18,
		Balance: balance, RawBalance: raw,
	}}
}

func (f *fakeBalances) Info() (token.Info, bool) {
	if f.info == nil {
		return token.Info{}, false
	}
	return *f.info, true
}

func (f *fakeBalances) RefreshBalance(context.Context) (token.Info, error) {
	f.refreshed++
	if f.after != nil {
		f.info.RawBalance = f.after
		f.info.Balance = units.FromBaseUnits(f.after, f.info.Decimals)
	}
	return *f.info, nil
}

type recorder struct {
	events []Event
}

func (r *recorder) Observe(e Event) { r.events = append(r.events, e) }

func (r *recorder) stages() []Stage {
	out := make([]Stage, len(r.events))
	for i, e := range r.events {
		out[i] = e.Stage
	}
	return out
}

type fixture struct {
	sender   *fakeSender
	receipts *fakeReceipts
	balances *fakeBalances
	rec      *recorder
	prompts  []string
	runner   *Runner
}

func newFixture(t *testing.T, balance string) *fixture {
	t.Helper()
	net, err := chain.NewRegistry().GetByChainID(chain.BaseMainnetID)
	require.NoError(t, err)
	f := &fixture{
		sender:   newSender(),
		receipts: &fakeReceipts{status: 1},
		balances: loaded(balance),
		rec:      &recorder{},
	}
	f.runner = &Runner{
		Account:  account,
		Sender:   f.sender,
		Receipts: f.receipts,
		Token:    f.balances,
		Network:  net,
		Confirm: ConfirmFunc(func(p string) bool {
			f.prompts = append(f.prompts, p)
			return true
		}),
		Observer: f.rec,
		Control:  &Control{},
	}
	return f
}

// ---------------------------------------------------------------------------
// Burn
// ---------------------------------------------------------------------------

func TestBurnSucceedsWithPrimary(t *testing.T) {
	f := newFixture(t, "10.0")
	f.balances.after = mustRaw(t, "5")

	res, err := f.runner.Burn(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, Succeeded, res.Stage)
	assert.Equal(t, "burn", res.Method)
	assert.Equal(t, StatusSuccess, res.Status.Kind)
	assert.Equal(t, "✅ Successfully burned 5 BURN!", res.Status.Message)
	assert.Equal(t, "5.0", res.Token.Balance)
	assert.Equal(t, 1, f.balances.refreshed)

	require.Len(t, f.sender.sent, 1)
	sent := f.sender.sent[0]
	assert.Equal(t, "burn", sent.method)
	assert.Equal(t, tokenAddr, sent.req.To)
	assert.Equal(t, uint64(60000), sent.req.Gas)

	assert.Equal(t, []Stage{Validating, Estimating, AwaitingSignature, Submitted, Confirming, Succeeded}, f.rec.stages())
	assert.Equal(t, []string{"Are you sure you want to burn 5 BURN? This action is irreversible!"}, f.prompts)
}

func TestBurnPassesExactBaseUnits(t *testing.T) {
	f := newFixture(t, "10.0")
	_, err := f.runner.Burn(context.Background(), "5")
	require.NoError(t, err)

	call, err := token.BurnCall(tokenAddr, mustRaw(t, "5"))
	require.NoError(t, err)
	assert.Equal(t, call.Data, f.sender.sent[0].req.Data)
	assert.Equal(t, "5000000000000000000", mustRaw(t, "5").String())
}

func TestBurnFallsBackToBurnFromOnEstimateFailure(t *testing.T) {
	f := newFixture(t, "10.0")
	f.sender.estimateErr["burn"] = errors.New("execution reverted")

	res, err := f.runner.Burn(context.Background(), "1.5")
	require.NoError(t, err)
	assert.Equal(t, Succeeded, res.Stage)
	assert.Equal(t, "burnFrom", res.Method)
	assert.Equal(t, []string{"burn", "burnFrom"}, f.sender.estimates)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "burnFrom", f.sender.sent[0].method)
	assert.Equal(t, 1, f.balances.refreshed)
}

func TestBurnFallsBackOnSendFailure(t *testing.T) {
	f := newFixture(t, "10.0")
	f.sender.sendErr["burn"] = errors.New("nope")

	res, err := f.runner.Burn(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "burnFrom", res.Method)
	assert.Equal(t, []string{"burn", "burnFrom"}, f.sender.estimates, "each strategy estimated once")
}

func TestBurnNoFallbackWhenPrimarySucceeds(t *testing.T) {
	f := newFixture(t, "10.0")
	_, err := f.runner.Burn(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"burn"}, f.sender.estimates)
}

func TestBurnBothStrategiesFail(t *testing.T) {
	f := newFixture(t, "10.0")
	f.sender.estimateErr["burn"] = errors.New("no burn")
	f.sender.estimateErr["burnFrom"] = errors.New("no burnFrom")

	res, err := f.runner.Burn(context.Background(), "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, token.ErrBurnUnsupported)
	assert.Contains(t, err.Error(), "no burnFrom")
	assert.Equal(t, Failed, res.Stage)
	assert.Equal(t, StatusError, res.Status.Kind)
	assert.Empty(t, f.sender.sent)
	assert.Empty(t, f.receipts.waited)
	assert.False(t, f.runner.Control.Busy())
}

func TestBurnRevertedReceipt(t *testing.T) {
	f := newFixture(t, "10.0")
	f.receipts.status = 0

	res, err := f.runner.Burn(context.Background(), "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, chain.ErrTxReverted)
	assert.Equal(t, Failed, res.Stage)
	assert.Equal(t, "Transaction failed", res.Status.Message)
	assert.NotEmpty(t, res.Status.TxHash, "hash stays visible after a revert")
	assert.Equal(t, 0, f.balances.refreshed)
}

func TestBurnReceiptErrorWithoutReceipt(t *testing.T) {
	f := newFixture(t, "10.0")
	f.receipts.err = context.DeadlineExceeded

	res, err := f.runner.Burn(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, Failed, res.Stage)
	assert.Contains(t, res.Status.Message, "Failed to burn tokens")
}

func TestBurnPublishesHashAndExplorerOnSubmit(t *testing.T) {
	f := newFixture(t, "10.0")
	_, err := f.runner.Burn(context.Background(), "1")
	require.NoError(t, err)

	var submitted *Event
	for i := range f.rec.events {
		if f.rec.events[i].Stage == Submitted {
			submitted = &f.rec.events[i]
		}
	}
	require.NotNil(t, submitted)
	hash := common.BigToHash(big.NewInt(1)).Hex()
	assert.Equal(t, hash, submitted.Status.TxHash)
	assert.Equal(t, "https://basescan.org/tx/"+hash, submitted.Status.ExplorerURL)
	assert.Equal(t, msgSent, submitted.Status.Message)
}

func TestBurnValidation(t *testing.T) {
	cases := []struct {
		amount string
		msg    string
	}{
		{"", "Please enter a valid amount to burn"},
		{"0", "Please enter a valid amount to burn"},
		{"-1", "Please enter a valid amount to burn"},
		{"abc", "Please enter a valid amount to burn"},
		{"10.000000000000000001", "Insufficient balance"},
	}
	for _, tc := range cases {
		t.Run(tc.amount, func(t *testing.T) {
			f := newFixture(t, "10.0")
			res, err := f.runner.Burn(context.Background(), tc.amount)
			require.Error(t, err)
			assert.Equal(t, Failed, res.Stage)
			assert.Equal(t, tc.msg, res.Status.Message)
			assert.Empty(t, f.prompts, "no confirmation for invalid input")
			assert.Empty(t, f.sender.estimates)
		})
	}
}

func TestBurnWholeBalanceAllowed(t *testing.T) {
	f := newFixture(t, "10.0")
	_, err := f.runner.Burn(context.Background(), "10")
	require.NoError(t, err)
}

func TestBurnWithoutToken(t *testing.T) {
	f := newFixture(t, "10.0")
	f.balances.info = nil
	res, err := f.runner.Burn(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, Failed, res.Stage)
}

func TestValidatingIsPendingWhileControlHeld(t *testing.T) {
	f := newFixture(t, "10.0")
	var busy []bool
	f.runner.Observer = Observers{f.rec, ObserverFunc(func(Event) { busy = append(busy, f.runner.Control.Busy()) })}

	_, err := f.runner.Burn(context.Background(), "1")
	require.NoError(t, err)
	require.NotEmpty(t, f.rec.events)
	first := f.rec.events[0]
	assert.Equal(t, Validating, first.Stage)
	assert.Equal(t, StatusPending, first.Status.Kind)
	assert.Equal(t, "Validating...", first.Status.Message)
	assert.True(t, busy[0])

	f.rec.events = nil
	_, err = f.runner.Revoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, f.rec.events[0].Status.Kind)
}

func TestBurnDeclinedReturnsToIdle(t *testing.T) {
	f := newFixture(t, "10.0")
	f.runner.Confirm = ConfirmFunc(func(string) bool { return false })

	res, err := f.runner.Burn(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, Idle, res.Stage)
	assert.Equal(t, StatusIdle, res.Status.Kind)
	assert.Empty(t, f.sender.estimates)
	assert.Equal(t, []Stage{Validating, Idle}, f.rec.stages())
}

func TestBurnWithoutConfirmerDeclines(t *testing.T) {
	f := newFixture(t, "10.0")
	f.runner.Confirm = nil
	res, err := f.runner.Burn(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, Idle, res.Stage)
	assert.Empty(t, f.sender.sent)
}

func TestControlHeldForWholeRun(t *testing.T) {
	f := newFixture(t, "10.0")
	var busyAt []bool
	f.runner.Observer = ObserverFunc(func(e Event) {
		busyAt = append(busyAt, f.runner.Control.Busy())
	})

	_, err := f.runner.Burn(context.Background(), "1")
	require.NoError(t, err)
	require.NotEmpty(t, busyAt)
	for i, b := range busyAt {
		assert.True(t, b, "control released early at event %d", i)
	}
	assert.False(t, f.runner.Control.Busy())
}

func TestSecondRunWhileInFlightIsBusy(t *testing.T) {
	f := newFixture(t, "10.0")
	entered := make(chan struct{})
	release := make(chan struct{})
	f.sender.onEstimate = func() {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.runner.Burn(context.Background(), "1")
		done <- err
	}()
	<-entered

	_, err := f.runner.Burn(context.Background(), "1")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = f.runner.Revoke(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	f.sender.onEstimate = nil
	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not finish")
	}
	assert.False(t, f.runner.Control.Busy())
}

// ---------------------------------------------------------------------------
// Revoke
// ---------------------------------------------------------------------------

func TestRevokeSucceeds(t *testing.T) {
	f := newFixture(t, "10.0")
	res, err := f.runner.Revoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Succeeded, res.Stage)
	assert.Equal(t, "revokeOwnership", res.Method)
	assert.Equal(t, "✅ Ownership revoked successfully.", res.Status.Message)
	assert.Equal(t, []string{"Revoking ownership is irreversible. Are you sure you want to proceed?"}, f.prompts)
	assert.Equal(t, 0, f.balances.refreshed)
}

func TestRevokeHasNoFallback(t *testing.T) {
	f := newFixture(t, "10.0")
	f.sender.estimateErr["revokeOwnership"] = errors.New("Ownable: caller is not the owner")

	res, err := f.runner.Revoke(context.Background())
	require.Error(t, err)
	assert.Equal(t, Failed, res.Stage)
	assert.Equal(t, "Failed to revoke ownership. Make sure you are the owner.", res.Status.Message)
	assert.Equal(t, []string{"revokeOwnership"}, f.sender.estimates)
}

func TestRevokeDeclined(t *testing.T) {
	f := newFixture(t, "10.0")
	f.runner.Confirm = ConfirmFunc(func(string) bool { return false })
	res, err := f.runner.Revoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Idle, res.Stage)
	assert.Empty(t, f.sender.estimates)
}

// ---------------------------------------------------------------------------
// helpers under test
// ---------------------------------------------------------------------------

func TestWithBuffer(t *testing.T) {
	assert.Equal(t, uint64(60000), WithBuffer(50000))
	assert.Equal(t, uint64(25200), WithBuffer(21000))
	assert.Equal(t, uint64(1), WithBuffer(1))
	assert.Equal(t, uint64(0), WithBuffer(0))
}

func TestStageStrings(t *testing.T) {
	assert.Equal(t, "awaiting_signature", AwaitingSignature.String())
	assert.Equal(t, "stage(42)", Stage(42).String())
	assert.True(t, Failed.Terminal())
	assert.False(t, Confirming.Terminal())
}

func TestObserversFanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Observers{a, nil, b}.Observe(Event{Stage: Estimating})
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func mustRaw(t *testing.T, amount string) *big.Int {
	t.Helper()
	raw, err := units.ToBaseUnits(amount, 18)
	require.NoError(t, err)
	return raw
}
