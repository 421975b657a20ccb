// Package workflow drives burn and revoke transactions from validation to
// receipt, reporting every stage to an Observer.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/log"
	"github.com/Mohsinsiddi/w3burn/internal/token"
	"github.com/Mohsinsiddi/w3burn/internal/units"
)

// Operation names used in events and metrics.
const (
	OpBurn   = "burn"
	OpRevoke = "revoke"
)

// ErrNotReady is returned when no token is loaded for the connected account.
var ErrNotReady = errors.New("Please connect wallet and load contract first")

// Sender estimates and submits transactions for the connected account.
type Sender interface {
	EstimateGas(ctx context.Context, req chain.TxRequest) (uint64, error)
	SendTransaction(ctx context.Context, req chain.TxRequest) (common.Hash, error)
}

// ReceiptWaiter blocks until a transaction is mined.
type ReceiptWaiter interface {
	WaitForReceipt(ctx context.Context, hash common.Hash) (*chain.TxReceipt, error)
}

// Balances is the loaded token the workflow burns.
type Balances interface {
	Info() (token.Info, bool)
	RefreshBalance(ctx context.Context) (token.Info, error)
}

// Confirmer gates every state-changing call on the user's consent.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Event is a stage transition.
type Event struct {
	Op      string
	Stage   Stage
	Status  Status
	Method  string
	Hash    common.Hash
	Elapsed time.Duration
	Err     error
}

// Observer receives stage transitions in order.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Observers fans events out to several observers.
type Observers []Observer

func (o Observers) Observe(e Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(e)
		}
	}
}

// Result is the outcome of a run.
type Result struct {
	Stage   Stage
	Status  Status
	Method  string
	Hash    common.Hash
	Receipt *chain.TxReceipt
	// Token is the refreshed token after a successful burn.
	Token token.Info
}

// Runner executes workflows for one connected account.
type Runner struct {
	Account  common.Address
	Sender   Sender
	Receipts ReceiptWaiter
	Token    Balances
	Network  *chain.Network
	Confirm  Confirmer
	Observer Observer
	Control  *Control
	Logger   *log.Logger
}

type submission struct {
	hash   common.Hash
	method string
}

// run carries the per-invocation bookkeeping.
type run struct {
	r      *Runner
	op     string
	start  time.Time
	status Status
	result Result
}

func (r *Runner) begin(op string) (*run, error) {
	if r.Control != nil {
		if err := r.Control.Acquire(); err != nil {
			return nil, err
		}
	}
	return &run{r: r, op: op, start: time.Now()}, nil
}

func (x *run) end() {
	if x.r.Control != nil {
		x.r.Control.Release()
	}
}

func (x *run) emit(stage Stage, status Status, err error) {
	x.status = status
	x.result.Stage = stage
	x.result.Status = status
	if x.r.Observer == nil {
		return
	}
	x.r.Observer.Observe(Event{
		Op:      x.op,
		Stage:   stage,
		Status:  status,
		Method:  x.result.Method,
		Hash:    x.result.Hash,
		Elapsed: time.Since(x.start),
		Err:     err,
	})
}

func (x *run) fail(msg string, err error) (Result, error) {
	x.r.Logger.Warn("transaction failed", "op", x.op, "err", err)
	st := Failure(msg)
	st.TxHash = x.status.TxHash
	st.ExplorerURL = x.status.ExplorerURL
	x.emit(Failed, st, err)
	return x.result, err
}

// decline returns the run to Idle without touching the chain.
func (x *run) decline() (Result, error) {
	x.r.Logger.Info("transaction declined", "op", x.op)
	x.emit(Idle, IdleStatus(), nil)
	return x.result, nil
}

// Burn burns amount (a decimal string) of the loaded token. burn(amount)
// is tried first and burnFrom(account, amount) is the single fallback.
// A declined confirmation returns a Result in the Idle stage and no error.
func (r *Runner) Burn(ctx context.Context, amount string) (Result, error) {
	x, err := r.begin(OpBurn)
	if err != nil {
		return Result{}, err
	}
	defer x.end()

	x.emit(Validating, Pending(msgValidating), nil)
	info, ok := r.Token.Info()
	if !ok {
		return x.fail(ErrNotReady.Error(), ErrNotReady)
	}
	raw, err := units.ValidateAmount(amount, info.RawBalance, info.Decimals)
	if err != nil {
		return x.fail(validationMessage(err), err)
	}

	if !r.confirm(fmt.Sprintf("Are you sure you want to burn %s %s? This action is irreversible!", amount, info.Symbol)) {
		return x.decline()
	}

	burn, err := token.BurnCall(info.Address, raw)
	if err != nil {
		return x.fail("Failed to burn tokens: "+err.Error(), err)
	}
	burnFrom, err := token.BurnFromCall(info.Address, r.Account, raw)
	if err != nil {
		return x.fail("Failed to burn tokens: "+err.Error(), err)
	}

	sub, err := x.submit(ctx, burn, burnFrom)
	if err != nil {
		err = &token.Error{Kind: token.BurnUnsupported, Err: err}
		return x.fail("Failed to burn tokens: "+err.Error(), err)
	}

	receipt, err := x.confirming(ctx, sub)
	if err != nil {
		if receipt != nil {
			return x.fail("Transaction failed", err)
		}
		return x.fail("Failed to burn tokens: "+err.Error(), err)
	}

	refreshed, err := r.Token.RefreshBalance(ctx)
	if err != nil {
		r.Logger.Warn("refreshing balance after burn", "err", err)
		refreshed = info
	}
	x.result.Token = refreshed

	st := Success(fmt.Sprintf("✅ Successfully burned %s %s!", amount, info.Symbol))
	st.TxHash, st.ExplorerURL = x.status.TxHash, x.status.ExplorerURL
	x.emit(Succeeded, st, nil)
	r.Logger.Info("burn confirmed", "token", info.Address.Hex(), "amount", amount, "method", sub.method, "tx", sub.hash.Hex())
	return x.result, nil
}

// Revoke calls revokeOwnership() on the loaded token.
func (r *Runner) Revoke(ctx context.Context) (Result, error) {
	x, err := r.begin(OpRevoke)
	if err != nil {
		return Result{}, err
	}
	defer x.end()

	const failMsg = "Failed to revoke ownership. Make sure you are the owner."

	x.emit(Validating, Pending(msgValidating), nil)
	info, ok := r.Token.Info()
	if !ok {
		return x.fail(ErrNotReady.Error(), ErrNotReady)
	}
	if !r.confirm("Revoking ownership is irreversible. Are you sure you want to proceed?") {
		return x.decline()
	}

	call, err := token.RevokeCall(info.Address)
	if err != nil {
		return x.fail(failMsg, err)
	}
	sub, err := x.submit(ctx, call)
	if err != nil {
		return x.fail(failMsg, err)
	}
	if _, err := x.confirming(ctx, sub); err != nil {
		return x.fail(failMsg, err)
	}

	st := Success("✅ Ownership revoked successfully.")
	st.TxHash, st.ExplorerURL = x.status.TxHash, x.status.ExplorerURL
	x.emit(Succeeded, st, nil)
	r.Logger.Info("ownership revoked", "token", info.Address.Hex(), "tx", sub.hash.Hex())
	return x.result, nil
}

func (r *Runner) confirm(prompt string) bool {
	if r.Confirm == nil {
		return false
	}
	return r.Confirm.Confirm(prompt)
}

// submit estimates and sends calls in order until one is accepted.
func (x *run) submit(ctx context.Context, calls ...token.Call) (submission, error) {
	attempts := make([]Attempt[submission], 0, len(calls))
	for _, c := range calls {
		c := c
		attempts = append(attempts, Attempt[submission]{
			Name: c.Method,
			Run:  func(ctx context.Context) (submission, error) { return x.send(ctx, c) },
		})
	}
	sub, _, err := FirstSuccess(ctx, attempts, func(name string, err error) {
		x.r.Logger.Debug("strategy failed", "op", x.op, "method", name, "err", err)
	})
	return sub, err
}

func (x *run) send(ctx context.Context, c token.Call) (submission, error) {
	x.result.Method = c.Method
	x.emit(Estimating, Pending(msgPreparing), nil)
	req := c.Request(0)
	req.From = x.r.Account
	est, err := x.r.Sender.EstimateGas(ctx, req)
	if err != nil {
		return submission{}, fmt.Errorf("estimating %s: %w", c.Method, err)
	}

	x.emit(AwaitingSignature, Pending(msgSign), nil)
	req.Gas = WithBuffer(est)
	hash, err := x.r.Sender.SendTransaction(ctx, req)
	if err != nil {
		return submission{}, fmt.Errorf("sending %s: %w", c.Method, err)
	}
	return submission{hash: hash, method: c.Method}, nil
}

// confirming publishes the hash and waits for the receipt. A reverted
// transaction returns its receipt together with the error.
func (x *run) confirming(ctx context.Context, sub submission) (*chain.TxReceipt, error) {
	x.result.Hash = sub.hash
	x.result.Method = sub.method
	st := Pending(msgSent)
	st.TxHash = sub.hash.Hex()
	if x.r.Network != nil {
		st.ExplorerURL = x.r.Network.TxURL(st.TxHash)
	}
	x.emit(Submitted, st, nil)
	x.emit(Confirming, st, nil)

	receipt, err := x.r.Receipts.WaitForReceipt(ctx, sub.hash)
	x.result.Receipt = receipt
	if err != nil {
		return receipt, err
	}
	if !receipt.Succeeded() {
		return receipt, fmt.Errorf("transaction %s: %w", sub.hash.Hex(), chain.ErrTxReverted)
	}
	return receipt, nil
}

// WithBuffer adds 20% headroom to a gas estimate.
func WithBuffer(gas uint64) uint64 {
	return new(big.Int).Div(new(big.Int).Mul(new(big.Int).SetUint64(gas), big.NewInt(12)), big.NewInt(10)).Uint64()
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, units.ErrInsufficientBalance):
		return "Insufficient balance"
	case errors.Is(err, units.ErrInvalidAmount):
		return "Please enter a valid amount to burn"
	default:
		return err.Error()
	}
}
