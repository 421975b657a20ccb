// Package app is the burner's controller. It owns the session state and
// exposes the operations both the CLI and the HTTP API drive.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/connector"
	"github.com/Mohsinsiddi/w3burn/internal/env"
	"github.com/Mohsinsiddi/w3burn/internal/log"
	"github.com/Mohsinsiddi/w3burn/internal/provider"
	"github.com/Mohsinsiddi/w3burn/internal/providers"
	"github.com/Mohsinsiddi/w3burn/internal/token"
	"github.com/Mohsinsiddi/w3burn/internal/units"
	"github.com/Mohsinsiddi/w3burn/internal/workflow"
)

const (
	defaultWatchInterval  = 4 * time.Second
	defaultReceiptTimeout = 2 * time.Minute
)

var (
	ErrNotConnected = errors.New("Please connect your wallet first.")
	ErrNoToken      = errors.New("Please load a token contract first.")
	// ErrStale is returned when the connection changed while a read was
	// in flight. The result is discarded.
	ErrStale = errors.New("The wallet connection changed. Please try again.")
)

// Options wires an App.
type Options struct {
	Connector *connector.Connector
	Registry  *chain.Registry
	// Holdings returns the indexer registry for a chain. Nil disables the
	// token list.
	Holdings func(chainID int64) *providers.Registry
	// Observer also receives workflow transitions, e.g. metrics.
	Observer workflow.Observer
	// Confirm answers prompts raised without a caller, such as the network
	// check after an account change. Nil declines.
	Confirm        workflow.Confirmer
	WatchInterval  time.Duration
	ReceiptTimeout time.Duration
	// PollInterval overrides the receipt polling interval.
	PollInterval time.Duration
	Logger       *log.Logger
}

// App is a single user session.
type App struct {
	opts    Options
	store   *Store
	control workflow.Control
	logger  *log.Logger

	mu        sync.Mutex
	conn      connector.State
	session   *token.Session
	client    *chain.EVMClient
	stopWatch context.CancelFunc
}

// New creates an App.
func New(opts Options) *App {
	if opts.Registry == nil {
		opts.Registry = chain.NewRegistry()
	}
	if opts.WatchInterval <= 0 {
		opts.WatchInterval = defaultWatchInterval
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = defaultReceiptTimeout
	}
	return &App{
		opts:   opts,
		store:  NewStore(State{}),
		logger: opts.Logger.WithModule("app"),
	}
}

// State returns the current session snapshot.
func (a *App) State() State { return a.store.State() }

// Subscribe registers fn for state changes.
func (a *App) Subscribe(fn func(State)) (cancel func()) { return a.store.Subscribe(fn) }

// Busy reports whether a transaction is in flight.
func (a *App) Busy() bool { return a.control.Busy() }

// Environment classifies and records the runtime environment.
func (a *App) Environment() env.Variant {
	v := a.opts.Connector.Environment()
	a.store.Dispatch(EnvDetected{Variant: v})
	return v
}

// Connect establishes a wallet connection and checks its network. confirm
// is asked before switching networks. A failed switch is not an error; it
// is reported in State.Warning.
func (a *App) Connect(ctx context.Context, confirm func(prompt string) bool) (State, error) {
	a.Environment()
	st, err := a.opts.Connector.Connect(ctx)
	if err != nil {
		a.logger.Warn("connect failed", "err", err)
		return a.store.Dispatch(Failed{Err: err}), err
	}
	if confirm == nil {
		confirm = a.confirmDefault
	}

	var warning string
	st, err = a.opts.Connector.EnsureNetwork(ctx, st, confirm)
	var mismatch *connector.NetworkMismatch
	switch {
	case errors.As(err, &mismatch):
		warning = mismatch.Error()
		a.logger.Warn("network switch failed", "chain_id", mismatch.ChainID, "err", mismatch.Err)
	case err != nil:
		warning = err.Error()
	}

	a.replace(st)
	a.logger.Info("wallet connected", "account", st.Account.Hex(), "chain_id", st.ChainID, "variant", st.Variant, "label", st.Label)
	next := a.store.Dispatch(Connected{State: st, Warning: warning})
	a.watch(st)
	return next, nil
}

// Disconnect drops the connection and every token derived from it.
func (a *App) Disconnect() State {
	a.teardown()
	return a.store.Dispatch(Disconnected{})
}

// replace installs st as the live connection, closing the previous one.
func (a *App) replace(st connector.State) {
	a.teardown()
	client := chain.NewEVMClient(st.RPCURL)
	if a.opts.PollInterval > 0 {
		client.PollInterval = a.opts.PollInterval
	}
	a.mu.Lock()
	a.conn = st
	a.client = client
	a.session = token.NewSession(client, st.Account)
	a.mu.Unlock()
}

func (a *App) teardown() {
	a.mu.Lock()
	stop, old := a.stopWatch, a.conn
	a.stopWatch = nil
	a.conn = connector.State{}
	a.session = nil
	a.client = nil
	a.mu.Unlock()

	if stop != nil {
		stop()
	}
	if old.Connected() {
		if err := a.opts.Connector.Disconnect(old); err != nil {
			a.logger.Debug("closing connection", "err", err)
		}
	}
}

func (a *App) watch(st connector.State) {
	ctx, cancel := context.WithCancel(context.Background())
	events := a.opts.Connector.Events(ctx, st, a.opts.WatchInterval)
	if events == nil {
		cancel()
		return
	}
	a.mu.Lock()
	a.stopWatch = cancel
	a.mu.Unlock()

	go func() {
		for ev := range events {
			if a.handleEvent(ev, st.Account) {
				return
			}
		}
	}()
}

// handleEvent applies a provider notification and reports whether the
// watched connection is gone.
func (a *App) handleEvent(ev provider.Event, account common.Address) bool {
	switch ev.Kind {
	case provider.ChainChanged:
		a.logger.Info("chain changed", "chain_id", ev.ChainID)
		a.teardown()
		a.store.Dispatch(ChainChanged{ChainID: ev.ChainID})
		return true
	case provider.AccountsChanged:
		a.store.Dispatch(AccountsChanged{Accounts: ev.Accounts})
		if len(ev.Accounts) == 0 {
			a.logger.Info("wallet disconnected by provider")
			a.teardown()
			return true
		}
		if ev.Accounts[0] == account {
			return false
		}
		a.logger.Info("account changed", "account", ev.Accounts[0].Hex())
		a.teardown()
		if _, err := a.Connect(context.Background(), nil); err != nil {
			a.logger.Warn("reconnect after account change", "err", err)
		}
		return true
	}
	return false
}

func (a *App) confirmDefault(prompt string) bool {
	if a.opts.Confirm == nil {
		return false
	}
	return a.opts.Confirm.Confirm(prompt)
}

func (a *App) live() (connector.State, *token.Session, *chain.EVMClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.conn.Connected() {
		return connector.State{}, nil, nil, ErrNotConnected
	}
	return a.conn, a.session, a.client, nil
}

// LoadToken reads the token at address for the connected account.
func (a *App) LoadToken(ctx context.Context, address string) (token.Info, error) {
	_, session, _, err := a.live()
	if err != nil {
		a.store.Dispatch(Failed{Err: err})
		return token.Info{}, err
	}
	a.store.Dispatch(ContractSet{Address: address})
	info, err := session.Load(ctx, address)
	if err != nil {
		a.logger.Warn("loading token", "address", address, "err", err)
		if !a.current(session) {
			return token.Info{}, ErrStale
		}
		a.store.Dispatch(Failed{Err: err})
		return token.Info{}, err
	}
	if !a.current(session) {
		a.logger.Info("discarding token read for a replaced connection", "account", session.Account().Hex())
		return token.Info{}, ErrStale
	}
	a.store.Dispatch(TokenLoaded{Account: session.Account(), Info: info})
	a.logger.Info("token loaded", "address", info.Address.Hex(), "symbol", info.Symbol, "balance", info.Balance)
	return info, nil
}

// current reports whether session still belongs to the live connection.
func (a *App) current(session *token.Session) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session == session
}

// SetAmount records the burn amount.
func (a *App) SetAmount(amount string) State {
	return a.store.Dispatch(AmountSet{Amount: amount})
}

// UseMax sets the amount to the whole balance.
func (a *App) UseMax() (string, error) {
	return a.shortcut(units.Max)
}

// UseHalf sets the amount to half the balance, truncated to six decimals.
func (a *App) UseHalf() (string, error) {
	return a.shortcut(units.Half)
}

func (a *App) shortcut(fn func(string) (string, error)) (string, error) {
	st := a.store.State()
	if st.Token == nil {
		return "", ErrNoToken
	}
	amount, err := fn(st.Token.Balance)
	if err != nil {
		return "", err
	}
	a.SetAmount(amount)
	return amount, nil
}

// Holdings lists the tokens the connected account holds.
func (a *App) Holdings(ctx context.Context) (*providers.Result, error) {
	conn, _, _, err := a.live()
	if err != nil {
		return nil, err
	}
	if a.opts.Holdings == nil {
		return nil, providers.ErrNoProviders
	}
	return a.opts.Holdings(conn.ChainID).Holdings(ctx, conn.ChainID, conn.Account)
}

// UseToken selects a held token: its contract is loaded and the amount is
// prefilled with the whole balance.
func (a *App) UseToken(ctx context.Context, h providers.Holding) (token.Info, error) {
	info, err := a.LoadToken(ctx, h.Address.Hex())
	if err != nil {
		return token.Info{}, err
	}
	a.SetAmount(info.Balance)
	return info, nil
}

// Burn burns the current amount of the loaded token.
func (a *App) Burn(ctx context.Context, confirm workflow.Confirmer) (workflow.Result, error) {
	return a.run(ctx, workflow.OpBurn, confirm)
}

// Revoke renounces ownership of the loaded token.
func (a *App) Revoke(ctx context.Context, confirm workflow.Confirmer) (workflow.Result, error) {
	return a.run(ctx, workflow.OpRevoke, confirm)
}

func (a *App) run(ctx context.Context, op string, confirm workflow.Confirmer) (workflow.Result, error) {
	conn, session, client, err := a.live()
	if err != nil {
		a.store.Dispatch(Failed{Err: err})
		return workflow.Result{}, err
	}
	network, err := a.opts.Registry.GetByChainID(conn.ChainID)
	if err != nil {
		network = a.opts.Connector.Network()
	}
	runner := &workflow.Runner{
		Account:  conn.Account,
		Sender:   conn.Signer,
		Receipts: receiptWaiter{client: client, timeout: a.opts.ReceiptTimeout},
		Token:    session,
		Network:  network,
		Confirm:  confirm,
		Observer: workflow.Observers{workflow.ObserverFunc(a.observe), a.opts.Observer},
		Control:  &a.control,
		Logger:   a.logger,
	}

	var res workflow.Result
	if op == workflow.OpRevoke {
		res, err = runner.Revoke(ctx)
	} else {
		res, err = runner.Burn(ctx, a.store.State().Amount)
	}
	if errors.Is(err, workflow.ErrBusy) {
		return res, err
	}
	a.store.Dispatch(RunFinished{Op: op, Account: conn.Account, Result: res})
	return res, err
}

func (a *App) observe(e workflow.Event) {
	a.store.Dispatch(StageChanged{Event: e})
}

// receiptWaiter bounds how long a run waits for its receipt.
type receiptWaiter struct {
	client  *chain.EVMClient
	timeout time.Duration
}

func (w receiptWaiter) WaitForReceipt(ctx context.Context, hash common.Hash) (*chain.TxReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.client.WaitForReceipt(ctx, hash)
}
