package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/ui"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Show the detected wallet environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cmd.Context(), sessionOptions{})
		v := a.Environment()
		n := network()
		fmt.Println(ui.KeyValueBlock("Environment", [][2]string{
			{"Environment", v.String()},
			{"Network", n.Label()},
			{"Providers", fmt.Sprintf("%d configured", len(cfg.WalletProviders))},
			{"Host socket", orNone(cfg.Host.Socket)},
		}))
		return nil
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect a wallet and show the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		a, err := connect(ctx, sessionOptions{})
		if err != nil {
			return err
		}
		defer a.Disconnect()
		fmt.Println(ui.StateView(a.State(), chain.NewRegistry()))
		return nil
	},
}

var loadCmd = &cobra.Command{
	Use:   "load <contract>",
	Short: "Load an ERC20 token and show its balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		a, err := connect(ctx, sessionOptions{})
		if err != nil {
			return err
		}
		defer a.Disconnect()

		info, err := a.LoadToken(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(tokenBlock(info))
		fmt.Println(ui.Hint(fmt.Sprintf("Burn with: w3burn burn %s --amount <n>", info.Address.Hex())))
		return nil
	},
}

// signalContext cancels on interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
