package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3burn/internal/app"
	"github.com/Mohsinsiddi/w3burn/internal/ui"
	"github.com/Mohsinsiddi/w3burn/internal/workflow"
)

var (
	burnAmount string
	burnMax    bool
	burnHalf   bool
)

var burnCmd = &cobra.Command{
	Use:   "burn <contract>",
	Short: "Burn tokens from the connected wallet",
	Long: `Burn an amount of an ERC20 token. burn(amount) is tried first and
burnFrom(account, amount) if the token rejects it.

  w3burn burn 0xToken --amount 12.5
  w3burn burn 0xToken --max
  w3burn burn 0xToken --half --testnet`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd.Context(), args[0], workflow.OpBurn, func(a *app.App) error {
			var err error
			switch {
			case burnMax:
				_, err = a.UseMax()
			case burnHalf:
				_, err = a.UseHalf()
			default:
				a.SetAmount(burnAmount)
			}
			return err
		})
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <contract>",
	Short: "Renounce ownership of a token contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd.Context(), args[0], workflow.OpRevoke, nil)
	},
}

// runOp connects, loads contract, applies prepare and runs op with
// progress on stdout.
func runOp(parent context.Context, contract, op string, prepare func(*app.App) error) error {
	ctx, stop := signalContext(parent)
	defer stop()

	progress := ui.NewProgress(os.Stdout)
	defer progress.Close()

	a, err := connect(ctx, sessionOptions{observer: progress})
	if err != nil {
		return err
	}
	defer a.Disconnect()

	info, err := a.LoadToken(ctx, contract)
	if err != nil {
		return err
	}
	fmt.Println(tokenBlock(info))

	if prepare != nil {
		if err := prepare(a); err != nil {
			return err
		}
	}

	run := a.Burn
	if op == workflow.OpRevoke {
		run = a.Revoke
	}
	res, err := run(ctx, prompter())
	progress.Close()
	switch {
	case err != nil && res.Stage == workflow.Failed:
		return errReported
	case err != nil:
		return err
	case res.Stage == workflow.Idle:
		fmt.Println(ui.Meta("Cancelled."))
	case op == workflow.OpBurn:
		fmt.Println(ui.Info(fmt.Sprintf("Remaining balance: %s %s", res.Token.Balance, res.Token.Symbol)))
	}
	return nil
}

func init() {
	burnCmd.Flags().StringVar(&burnAmount, "amount", "", "amount to burn in token units")
	burnCmd.Flags().BoolVar(&burnMax, "max", false, "burn the whole balance")
	burnCmd.Flags().BoolVar(&burnHalf, "half", false, "burn half the balance")
	burnCmd.MarkFlagsMutuallyExclusive("amount", "max", "half")
	burnCmd.MarkFlagsOneRequired("amount", "max", "half")
}
