package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3burn/internal/ui"
	"github.com/Mohsinsiddi/w3burn/internal/wallet"
)

var (
	walletKeyFlag      string
	walletGenerate     bool
	walletMnemonicFlag string
	walletPassphrase   string
	walletIndex        uint32
	walletUnlockAll    bool
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage smart wallets used in hosted mode",
}

var walletAddCmd = &cobra.Command{
	Use:   "add <name> [address]",
	Short: "Add a signing wallet from a private key, or a watch-only address",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}

		if walletKeyFlag == "" {
			if len(args) < 2 {
				return fmt.Errorf("address required for watch-only wallet\n  Usage: w3burn wallet add <name> <address>\n  Or for signing: w3burn wallet add <name> --key <private-key>")
			}
			if err := mgr.Add(name, args[1]); err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(args[1]))))
			fmt.Println(ui.Hint("Watch-only wallets cannot burn; add one with --key to sign."))
			return nil
		}

		w, err := mgr.AddWithKey(name, walletKeyFlag)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address))))
		fmt.Println(ui.Hint(fmt.Sprintf("Set as default with: w3burn wallet use %s", name)))
		return nil
	},
}

var walletImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Import a signing wallet from a BIP-39 mnemonic",
	Long: `Derive m/44'/60'/0'/0/<index> from a mnemonic and store the key in the
keyring. The mnemonic is read from --mnemonic, or from stdin when omitted.
With --generate a fresh 12-word mnemonic is created and shown once.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}

		mnemonic := walletMnemonicFlag
		switch {
		case walletGenerate:
			if mnemonic, err = wallet.NewMnemonic(); err != nil {
				return err
			}
		case mnemonic == "":
			fmt.Print("Mnemonic: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading mnemonic: %w", err)
			}
			mnemonic = line
		}
		mnemonic = strings.Join(strings.Fields(mnemonic), " ")

		w, err := mgr.AddWithMnemonic(name, mnemonic, walletPassphrase, walletIndex)
		if err != nil {
			return err
		}
		if walletGenerate {
			fmt.Println(ui.StyleBorder.BorderForeground(ui.ColorError).Render(
				ui.Warn("SAVE YOUR MNEMONIC. It is shown only once.") + "\n\n" + ui.Val(mnemonic)))
		}
		fmt.Println(ui.Success(fmt.Sprintf("Signing wallet %q imported: %s", name, ui.Addr(w.Address))))
		fmt.Println(ui.Meta("Derivation path: " + w.DerivationPath))
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		wallets, err := mgr.List()
		if err != nil {
			return err
		}
		if len(wallets) == 0 {
			fmt.Println(ui.Info("No wallets configured yet."))
			fmt.Println(ui.Hint("Add one with: w3burn wallet add burner --key <private-key>"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 42},
			{Title: "Type", Width: 10},
			{Title: "Default", Width: 7},
		})
		for _, w := range wallets {
			def := ""
			if w.IsDefault {
				def = "✓"
			}
			t.AddRow(ui.Row{w.Name, w.Address, w.Type, def})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d wallet(s) configured", len(wallets))))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the default wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		if err := mgr.SetDefault(name); err != nil {
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !prompter().Confirm(fmt.Sprintf("Remove wallet %q? Its key is deleted from the keyring.", name)) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		if err := mgr.Remove(name); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletUnlockCmd = &cobra.Command{
	Use:   "unlock [name]",
	Short: "Cache wallet key(s) for the session (skips future keychain prompts)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		wallets, err := mgr.List()
		if err != nil {
			return err
		}
		var signing []*wallet.Wallet
		for _, w := range wallets {
			if w.CanSign() {
				signing = append(signing, w)
			}
		}
		if len(signing) == 0 {
			fmt.Println(ui.Info("No signing wallets found."))
			return nil
		}

		var names []string
		switch {
		case walletUnlockAll:
			for _, w := range signing {
				names = append(names, w.Name)
			}
		case len(args) > 0:
			names = args
		default:
			items := make([]ui.PickerItem, len(signing))
			for i, w := range signing {
				items[i] = ui.PickerItem{Label: w.Name, SubLabel: ui.TruncateAddr(w.Address), Value: w.Name}
			}
			picked, err := ui.PickItem("Unlock wallet", items)
			if err != nil {
				return err
			}
			if picked == "" {
				fmt.Println(ui.Meta("Cancelled."))
				return nil
			}
			names = []string{picked}
		}

		fmt.Println(ui.Info("Your OS keychain may prompt once per wallet being unlocked."))
		var failed error
		for _, name := range names {
			if err := mgr.Unlock(name); err != nil {
				fmt.Println(ui.Err(fmt.Sprintf("%-20s %v", name, err)))
				failed = errors.Join(failed, err)
				continue
			}
			fmt.Println(ui.Success(fmt.Sprintf("%-20s unlocked", name)))
		}
		if failed != nil {
			return errReported
		}
		return nil
	},
}

var walletLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Clear the session key cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		if err := mgr.Lock(); err != nil {
			return err
		}
		fmt.Println(ui.Success("Session cleared. The keychain will be asked again on the next burn."))
		return nil
	},
}

func init() {
	walletAddCmd.Flags().StringVar(&walletKeyFlag, "key", "", "hex private key of a signing wallet")

	walletImportCmd.Flags().StringVar(&walletMnemonicFlag, "mnemonic", "", "BIP-39 mnemonic (read from stdin when omitted)")
	walletImportCmd.Flags().StringVar(&walletPassphrase, "passphrase", "", "optional BIP-39 passphrase")
	walletImportCmd.Flags().Uint32Var(&walletIndex, "index", 0, "address index in m/44'/60'/0'/0")
	walletImportCmd.Flags().BoolVar(&walletGenerate, "generate", false, "generate a new mnemonic")
	walletImportCmd.MarkFlagsMutuallyExclusive("mnemonic", "generate")

	walletUnlockCmd.Flags().BoolVar(&walletUnlockAll, "all", false, "unlock every signing wallet")

	walletCmd.AddCommand(walletAddCmd, walletImportCmd, walletListCmd, walletUseCmd, walletRemoveCmd, walletUnlockCmd, walletLockCmd)
}
