package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3burn/internal/ui"
)

var tokensPick bool

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List the ERC20 tokens the connected wallet holds",
	Long: `List token balances from the configured indexers (Covalent, then
Moralis, then Ankr). Only Base and Base Sepolia are supported.

With --pick, choose a token interactively; it is loaded and its whole
balance becomes the burn amount.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		a, err := connect(ctx, sessionOptions{})
		if err != nil {
			return err
		}
		defer a.Disconnect()

		res, err := a.Holdings(ctx)
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			logger.Warn("indexer failed", "detail", w)
		}
		if len(res.Holdings) == 0 {
			fmt.Println(ui.Info("No tokens found for this wallet."))
			return nil
		}

		if !tokensPick {
			fmt.Println(ui.HoldingsTable(res.Holdings))
			fmt.Println(ui.Meta(fmt.Sprintf("%d token(s) via %s", len(res.Holdings), res.Source)))
			return nil
		}

		addr, err := ui.PickToken(res.Holdings)
		if err != nil || addr == "" {
			return err
		}
		for _, h := range res.Holdings {
			if h.Address.Hex() != addr {
				continue
			}
			info, err := a.UseToken(ctx, h)
			if err != nil {
				return err
			}
			fmt.Println(tokenBlock(info))
			fmt.Println(ui.Hint(fmt.Sprintf("Burn it with: w3burn burn %s --amount %s", addr, a.State().Amount)))
		}
		return nil
	},
}

func init() {
	tokensCmd.Flags().BoolVar(&tokensPick, "pick", false, "choose a token interactively")
}
