// Package connector establishes a wallet connection using whichever
// method the runtime environment supports.
package connector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3burn/internal/bridge"
	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/env"
	"github.com/Mohsinsiddi/w3burn/internal/log"
	"github.com/Mohsinsiddi/w3burn/internal/provider"
	"github.com/Mohsinsiddi/w3burn/internal/units"
	"github.com/Mohsinsiddi/w3burn/internal/wallet"
)

var errNoSmartWallet = errors.New("no smart wallet configured")

// Candidate is a configured wallet provider, dialed on demand.
type Candidate struct {
	Flags env.ProviderFlags
	Dial  func(ctx context.Context) (*provider.Provider, error)
}

// Config wires a Connector.
type Config struct {
	// Probe is evaluated on every Connect.
	Probe func() env.Probe
	// Providers in the same order as Probe().Injected.All().
	Providers []Candidate
	// SmartWallet resolves the keyring wallet used in hosted mode. Nil
	// disables the smart-wallet path.
	SmartWallet func(ctx context.Context) (*wallet.Signer, error)
	// Bridge dials the embedding host. Nil disables the bridge.
	Bridge func(ctx context.Context) (*bridge.Bridge, error)
	// Network is the network the app targets.
	Network *chain.Network
	// RPCURL overrides the network's primary RPC for reads and broadcasts.
	RPCURL   string
	Registry *chain.Registry
	Logger   *log.Logger
}

// Connector implements the connection strategies.
type Connector struct {
	cfg    Config
	logger *log.Logger
}

// New creates a Connector.
func New(cfg Config) *Connector {
	if cfg.Registry == nil {
		cfg.Registry = chain.NewRegistry()
	}
	if cfg.Network == nil {
		cfg.Network = cfg.Registry.ForMode("mainnet")
	}
	if cfg.RPCURL == "" {
		cfg.RPCURL = cfg.Network.RPC()
	}
	if cfg.Probe == nil {
		cfg.Probe = func() env.Probe { return env.Probe{} }
	}
	return &Connector{cfg: cfg, logger: cfg.Logger.WithModule("connector")}
}

// Network returns the target network.
func (c *Connector) Network() *chain.Network { return c.cfg.Network }

// Environment classifies the current runtime environment.
func (c *Connector) Environment() env.Variant {
	return env.Classify(c.cfg.Probe())
}

// Connect establishes a connection. On failure the returned State is the
// zero value.
func (c *Connector) Connect(ctx context.Context) (State, error) {
	probe := c.cfg.Probe()
	variant := env.Classify(probe)
	c.logger.Debug("connecting", "environment", variant)

	switch variant {
	case env.HostedSmartWallet:
		return c.connectHosted(ctx)
	case env.BrowserExtensionWallet:
		idx := env.CoinbaseProvider(probe.Injected)
		if idx < 0 || idx >= len(c.cfg.Providers) {
			return c.connectStandard(ctx)
		}
		return c.connectProvider(ctx, c.cfg.Providers[idx], StandardProvider, "Coinbase Wallet")
	case env.EmbeddedHostWallet:
		return c.connectEmbedded(ctx)
	default:
		return c.connectStandard(ctx)
	}
}

// connectStandard uses the primary configured provider.
func (c *Connector) connectStandard(ctx context.Context) (State, error) {
	if len(c.cfg.Providers) == 0 {
		return State{}, &Error{Kind: NoProviderFound}
	}
	cand := c.cfg.Providers[0]
	label := cand.Flags.Name
	if label == "" {
		label = "Web3"
	}
	return c.connectProvider(ctx, cand, StandardProvider, label)
}

func (c *Connector) hasStandard() bool { return len(c.cfg.Providers) > 0 }

func (c *Connector) connectProvider(ctx context.Context, cand Candidate, variant Variant, label string) (State, error) {
	p, err := cand.Dial(ctx)
	if err != nil {
		return State{}, &Error{Kind: NoProviderFound, Err: err}
	}

	accounts, err := p.RequestAccounts(ctx)
	if err != nil {
		p.Close()
		if provider.IsUserRejected(err) {
			return State{}, &Error{Kind: UserRejected, Err: err}
		}
		return State{}, fmt.Errorf("requesting accounts: %w", err)
	}
	if len(accounts) == 0 {
		p.Close()
		return State{}, &Error{Kind: NoAccountsFound}
	}

	id, err := p.ChainID(ctx)
	if err != nil {
		p.Close()
		return State{}, fmt.Errorf("reading chain id: %w", err)
	}

	return State{
		Account: accounts[0],
		ChainID: id,
		Variant: variant,
		Signer:  &providerSigner{p: p, account: accounts[0]},
		RPCURL:  c.readURL(p.URL()),
		Label:   label,
	}, nil
}

// connectHosted tries the keyring smart wallet, then a provider from the
// host, then the standard provider.
func (c *Connector) connectHosted(ctx context.Context) (State, error) {
	err := errNoSmartWallet
	if c.cfg.SmartWallet != nil {
		var s *wallet.Signer
		if s, err = c.cfg.SmartWallet(ctx); err == nil {
			if err = s.Ready(); err == nil {
				return c.localState(s), nil
			}
		}
		c.logger.Warn("smart wallet unavailable", "err", err)
	}

	if c.cfg.Bridge != nil {
		st, berr := c.hostProvider(ctx)
		if berr == nil {
			return st, nil
		}
		c.logger.Warn("host provider request failed", "err", berr)
		err = berr
	}

	if c.hasStandard() {
		return c.connectStandard(ctx)
	}
	var connErr *Error
	if errors.As(err, &connErr) {
		return State{}, err
	}
	return State{}, &Error{Kind: NoProviderFound, Err: err}
}

func (c *Connector) localState(s *wallet.Signer) State {
	return State{
		Account: s.Address(),
		ChainID: c.cfg.Network.ChainID,
		Variant: SmartWalletSDK,
		Signer:  &localSigner{s: s, client: chain.NewEVMClient(c.cfg.RPCURL), chainID: c.cfg.Network.ChainID},
		RPCURL:  c.cfg.RPCURL,
		Label:   "Base Smart Wallet",
	}
}

func (c *Connector) hostProvider(ctx context.Context) (State, error) {
	b, err := c.cfg.Bridge(ctx)
	if err != nil {
		return State{}, &Error{Kind: HostBridgeError, Err: err}
	}
	info, err := b.RequestProvider(ctx)
	if err != nil {
		b.Close() //nolint:errcheck
		return State{}, fromBridge(err)
	}
	// The connection owns the provider; the bridge is no longer needed.
	b.Close() //nolint:errcheck
	if info.URL == "" {
		return State{}, &Error{Kind: HostBridgeError, Err: errors.New("host provider has no endpoint")}
	}
	name := info.Name
	if name == "" {
		name = "host"
	}
	cand := Candidate{
		Flags: env.ProviderFlags{Name: name},
		Dial: func(ctx context.Context) (*provider.Provider, error) {
			return provider.Dial(ctx, name, info.URL)
		},
	}
	return c.connectProvider(ctx, cand, SmartWalletSDK, "Base Smart Wallet")
}

// connectEmbedded asks the embedding host for its wallet.
func (c *Connector) connectEmbedded(ctx context.Context) (State, error) {
	if c.cfg.Bridge == nil {
		return c.connectStandard(ctx)
	}
	b, err := c.cfg.Bridge(ctx)
	if err != nil {
		if c.hasStandard() {
			return c.connectStandard(ctx)
		}
		return State{}, &Error{Kind: HostBridgeError, Err: err}
	}

	st, err := c.embeddedState(ctx, b)
	if err == nil {
		return st, nil
	}
	b.Close() //nolint:errcheck
	c.logger.Warn("host wallet connection failed", "err", err)
	if c.hasStandard() {
		return c.connectStandard(ctx)
	}
	return State{}, err
}

func (c *Connector) embeddedState(ctx context.Context, b *bridge.Bridge) (State, error) {
	addr, info, err := b.Connect(ctx)
	if err != nil {
		return State{}, fromBridge(err)
	}
	if !units.IsAddress(addr) {
		return State{}, &Error{Kind: HostBridgeError, Err: fmt.Errorf("invalid address %q from host", addr)}
	}

	url := c.cfg.RPCURL
	name := "host"
	if info != nil && info.URL != "" {
		url = info.URL
		if info.Name != "" {
			name = info.Name
		}
	}
	p, err := provider.Dial(ctx, name, url)
	if err != nil {
		return State{}, &Error{Kind: HostBridgeError, Err: err}
	}
	id, err := p.ChainID(ctx)
	if err != nil {
		p.Close()
		return State{}, &Error{Kind: HostBridgeError, Err: err}
	}

	account := common.HexToAddress(addr)
	return State{
		Account: account,
		ChainID: id,
		Variant: EmbeddedHostBridge,
		Signer:  &providerSigner{p: p, account: account, extra: []io.Closer{b}},
		RPCURL:  c.readURL(p.URL()),
		Label:   "Host Wallet",
	}, nil
}

// readURL uses the provider endpoint for reads when it speaks HTTP.
func (c *Connector) readURL(providerURL string) string {
	if strings.HasPrefix(providerURL, "http://") || strings.HasPrefix(providerURL, "https://") {
		return providerURL
	}
	return c.cfg.RPCURL
}

// SwitchPrompt is the question asked before switching networks.
func (c *Connector) SwitchPrompt() string {
	return fmt.Sprintf("You are not on Base network. Would you like to switch to %s?", c.cfg.Network.Label())
}

// EnsureNetwork checks st's chain. For standard-provider connections on an
// unsupported chain, confirm is asked whether to switch. Declining returns
// st unchanged. A failed switch returns st with a *NetworkMismatch warning.
func (c *Connector) EnsureNetwork(ctx context.Context, st State, confirm func(prompt string) bool) (State, error) {
	if st.Variant != StandardProvider || c.cfg.Registry.IsSupported(st.ChainID) {
		return st, nil
	}
	ps, ok := st.Signer.(*providerSigner)
	if !ok {
		return st, nil
	}
	if !confirm(c.SwitchPrompt()) {
		return st, nil
	}
	if err := ps.p.SwitchChain(ctx, c.cfg.Network); err != nil {
		return st, &NetworkMismatch{ChainID: st.ChainID, Err: err}
	}
	id, err := ps.p.ChainID(ctx)
	if err != nil {
		return st, &NetworkMismatch{ChainID: st.ChainID, Err: err}
	}
	st.ChainID = id
	return st, nil
}

// Events streams provider notifications for st, or returns nil when the
// connection has no provider to watch.
func (c *Connector) Events(ctx context.Context, st State, interval time.Duration) <-chan provider.Event {
	ps, ok := st.Signer.(*providerSigner)
	if !ok {
		return nil
	}
	return provider.NewWatcher(ps.p, interval).Run(ctx)
}

// Disconnect releases the resources held by st.
func (c *Connector) Disconnect(st State) error {
	if st.Signer == nil {
		return nil
	}
	return st.Signer.Close()
}
