package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/Mohsinsiddi/w3burn/internal/app"
	"github.com/Mohsinsiddi/w3burn/internal/bridge"
	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/connector"
	"github.com/Mohsinsiddi/w3burn/internal/env"
	"github.com/Mohsinsiddi/w3burn/internal/provider"
	"github.com/Mohsinsiddi/w3burn/internal/providers"
	"github.com/Mohsinsiddi/w3burn/internal/rpc"
	"github.com/Mohsinsiddi/w3burn/internal/token"
	"github.com/Mohsinsiddi/w3burn/internal/ui"
	"github.com/Mohsinsiddi/w3burn/internal/wallet"
	"github.com/Mohsinsiddi/w3burn/internal/workflow"
)

// sessionOptions are per-command additions to the shared wiring.
type sessionOptions struct {
	observer workflow.Observer
	confirm  workflow.Confirmer
}

// network is the network selected by config and flags.
func network() *chain.Network {
	return chain.NewRegistry().ForMode(cfg.NetworkMode)
}

// pickRPC returns --rpc, or the best of the configured and built-in RPCs.
func pickRPC(ctx context.Context, n *chain.Network) string {
	if rpcURL != "" {
		return rpcURL
	}
	urls := append(append([]string{}, cfg.GetRPCs(n.Name)...), n.RPCs...)
	algo, _ := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
	best, err := rpc.Best(ctx, urls, algo)
	if err != nil {
		logger.Warn("no healthy rpc, using default", "network", n.Name, "err", err)
		return n.RPC()
	}
	return best
}

// newConnector wires the environment probe and every connection path from
// config.
func newConnector(ctx context.Context) *connector.Connector {
	n := network()

	flags := make([]env.ProviderFlags, len(cfg.WalletProviders))
	cands := make([]connector.Candidate, len(cfg.WalletProviders))
	for i, wp := range cfg.WalletProviders {
		flags[i] = env.ProviderFlags{Name: wp.Name, IsCoinbaseWallet: wp.IsCoinbaseWallet, IsCoinbaseBrowser: wp.IsCoinbaseBrowser}
		cands[i] = connector.Candidate{
			Flags: flags[i],
			Dial: func(ctx context.Context) (*provider.Provider, error) {
				return provider.Dial(ctx, wp.Name, wp.URL)
			},
		}
	}
	probeOpts := env.Options{
		UserAgent:  cfg.UserAgent,
		Origin:     cfg.AppOrigin,
		HostSocket: cfg.Host.Socket,
		Providers:  flags,
	}

	ccfg := connector.Config{
		Probe:     func() env.Probe { return env.FromEnvironment(os.LookupEnv, probeOpts) },
		Providers: cands,
		Network:   n,
		RPCURL:    pickRPC(ctx, n),
		Logger:    logger,
		SmartWallet: func(context.Context) (*wallet.Signer, error) {
			mgr, err := newWalletManager()
			if err != nil {
				return nil, err
			}
			w, err := mgr.Resolve(walletName)
			if err != nil {
				return nil, err
			}
			return mgr.Signer(w, n.ChainID)
		},
	}
	if cfg.Host.Socket != "" {
		ccfg.Bridge = func(ctx context.Context) (*bridge.Bridge, error) {
			return bridge.Dial(ctx, cfg.Host.Socket, bridge.Options{
				Origin:        cfg.AppOrigin,
				TrustedOrigin: cfg.Host.TrustedOrigin,
				Logger:        logger,
			})
		}
	}
	return connector.New(ccfg)
}

// newApp builds a session from config.
func newApp(ctx context.Context, o sessionOptions) *app.App {
	keys := providers.Keys{
		Covalent: cfg.Indexer.CovalentKey,
		Moralis:  cfg.Indexer.MoralisKey,
		Ankr:     cfg.Indexer.AnkrKey,
	}
	return app.New(app.Options{
		Connector:      newConnector(ctx),
		Holdings:       func(id int64) *providers.Registry { return providers.BuildRegistry(id, keys) },
		Observer:       o.observer,
		Confirm:        o.confirm,
		WatchInterval:  cfg.WatchIntervalDuration(),
		ReceiptTimeout: cfg.ReceiptTimeoutDuration(),
		Logger:         logger,
	})
}

// connect opens a session and connects it, asking before a network switch.
func connect(ctx context.Context, o sessionOptions) (*app.App, error) {
	if o.confirm == nil {
		o.confirm = prompter()
	}
	a := newApp(ctx, o)
	st, err := a.Connect(ctx, o.confirm.Confirm)
	if err != nil {
		return nil, err
	}
	if st.Warning != "" {
		fmt.Println(ui.Warn(st.Warning))
	}
	return a, nil
}

func prompter() *ui.Prompter {
	p := ui.StdPrompter()
	p.AssumeYes = assumeYes
	return p
}

// newWalletManager opens the wallet store with the configured keyring.
func newWalletManager() (*wallet.Manager, error) {
	var keys wallet.KeyStore
	switch cfg.Keyring.Backend {
	case "", "os":
		keys = wallet.DefaultKeystore()
	case "file":
		ks, err := wallet.NewFileKeystore(cfg.KeyringDir(), cfg.Keyring.Password)
		if err != nil {
			return nil, err
		}
		keys = ks
	default:
		return nil, fmt.Errorf("unknown keyring backend %q", cfg.Keyring.Backend)
	}
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeyStore(keys),
		wallet.WithSession(wallet.DefaultSession()),
	), nil
}

// errReported marks a failure already shown to the user.
var errReported = errors.New("reported")

// errLine renders err the way the status line does.
func errLine(err error) string {
	return ui.Err(app.ErrorMessage(err))
}

func tokenBlock(info token.Info) string {
	return ui.KeyValueBlock("Token", [][2]string{
		{"Name", info.Name},
		{"Symbol", info.Symbol},
		{"Decimals", strconv.Itoa(int(info.Decimals))},
		{"Balance", info.Balance + " " + info.Symbol},
		{"Contract", info.Address.Hex()},
		{"Burn via", token.BurnMethods()},
	})
}
