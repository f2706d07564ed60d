package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWalletCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the wallet connection",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "connect",
			Short: "Connect the mnemonic wallet and remember the connection",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, _, err := loadApp(opts)
				if err != nil {
					return err
				}
				defer a.Close()

				if err := a.Wallet.Connect(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "connected %s\n", a.Wallet.Address())
				return nil
			},
		},
		&cobra.Command{
			Use:   "disconnect",
			Short: "Forget the remembered wallet connection",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, _, err := loadApp(opts)
				if err != nil {
					return err
				}
				defer a.Close()

				if err := a.Wallet.Disconnect(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "disconnected")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the wallet connection status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, _, err := loadApp(opts)
				if err != nil {
					return err
				}
				defer a.Close()

				a.Start(cmd.Context())
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "status: %s\n", a.Wallet.Status())
				if addr := a.Wallet.Address(); addr != "" {
					fmt.Fprintf(out, "address: %s\n", addr)
				}
				if err := a.Wallet.Error(); err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
				}
				return nil
			},
		},
	)
	return cmd
}
