package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3burn/internal/config"
	"github.com/Mohsinsiddi/w3burn/internal/log"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/w3burn/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir     string
	cfg        *config.Config
	logger     *log.Logger
	testnet    bool
	mainnet    bool
	walletName string
	rpcURL     string
	assumeYes  bool
	logFormat  = log.FmtLogfmt
	logLevel   = log.LevelInfo
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "w3burn",
	Short: "Burn ERC20 tokens on Base",
	Long: `w3burn connects to a wallet, loads an ERC20 token and burns an amount
of it or renounces the contract's ownership.

The wallet is picked from the environment: a Base App host uses the
keyring smart wallet (see "w3burn wallet"), an embedding host is reached
over its socket, otherwise the configured wallet providers are used.

Global flags --testnet and --mainnet override the configured network mode
for a single invocation (default: mainnet, i.e. Base; testnet is Base
Sepolia). Persist with: w3burn config set network_mode testnet`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if testnet {
			cfg.NetworkMode = "testnet"
		}
		if mainnet {
			cfg.NetworkMode = "mainnet"
		}

		// Flags win over config.
		if !cmd.Flags().Changed("log-format") {
			if err := logFormat.Set(cfg.Log.Format); err != nil {
				return err
			}
		}
		if !cmd.Flags().Changed("log-level") {
			if err := logLevel.Set(cfg.Log.Level); err != nil {
				return err
			}
		}
		logger, err = log.NewLogger("w3burn", os.Stderr, logFormat, logLevel)
		return err
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, errLine(err))
		}
		os.Exit(1)
	}
}

func init() {
	// W3BURN_CONFIG_DIR overrides the default; --config overrides both.
	if envDir := os.Getenv("W3BURN_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.w3burn)")
	pf.BoolVar(&testnet, "testnet", false, "use Base Sepolia")
	pf.BoolVar(&mainnet, "mainnet", false, "use Base mainnet")
	pf.StringVar(&walletName, "wallet", "", "smart wallet to use in hosted mode (default: the default wallet)")
	pf.StringVar(&rpcURL, "rpc", "", "RPC URL for reads and broadcasts (default: fastest configured)")
	pf.BoolVarP(&assumeYes, "yes", "y", false, "answer yes to every prompt")
	pf.Var(&logFormat, "log-format", "log format")
	pf.Var(&logLevel, "log-level", "log level")
	rootCmd.MarkFlagsMutuallyExclusive("testnet", "mainnet")

	rootCmd.AddCommand(
		envCmd,
		connectCmd,
		loadCmd,
		burnCmd,
		revokeCmd,
		tokensCmd,
		walletCmd,
		configCmd,
		serveCmd,
	)
}
