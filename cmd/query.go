package cmd

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/michaelpento.lv/cwflash/cmd/app"
	"github.com/michaelpento.lv/cwflash/form"
	"github.com/michaelpento.lv/cwflash/ui"
	cwmath "github.com/michaelpento.lv/cwflash/utils/math"
)

// runQuery loads the app, runs fn and closes the chain client.
func runQuery(opts *rootOptions, fn func(a *app.App) error) error {
	a, _, err := loadApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printAmount(cmd *cobra.Command, a *app.App, micro *big.Int) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.FormatMicro(micro, a.Config.Chain.DenomExponent), a.Config.Chain.DenomName)
}

func newTVLCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tvl",
		Short: "Show the total value locked in the contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, func(a *app.App) error {
				tvl, err := a.Store.TVL(cmd.Context())
				if err != nil {
					return err
				}
				printAmount(cmd, a, tvl)
				return nil
			})
		},
	}
}

func newFeeCmd(opts *rootOptions) *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:   "fee",
		Short: "Show the contract's loan fee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, func(a *app.App) error {
				fee, err := a.Store.Fee(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, ui.PlainDecimal(fee))
				if amount == "" {
					return nil
				}

				display, err := cwmath.ParseDecimal(amount)
				if err != nil {
					return fmt.Errorf("invalid amount %q", amount)
				}
				micro := ui.ConvertDenomToMicroDenom(display, a.Config.Chain.DenomExponent)
				if micro.Sign() <= 0 {
					return fmt.Errorf("invalid amount %q", amount)
				}
				fmt.Fprint(out, "due: ")
				printAmount(cmd, a, cwmath.LoanFee(micro, fee))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "also show the fee due on a loan of this amount")
	return cmd
}

func addressArg(a *app.App, address string) error {
	if !form.IsValidAddress(address, a.Config.Chain.AddressPrefix) {
		return fmt.Errorf("invalid %s address: %q", a.Config.Chain.AddressPrefix, address)
	}
	return nil
}

func newProvidedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "provided <address>",
		Short: "Show how much an address has provided to the contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, func(a *app.App) error {
				if err := addressArg(a, args[0]); err != nil {
					return err
				}
				provided, err := a.Store.Provided(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printAmount(cmd, a, provided)
				return nil
			})
		},
	}
}

func newBalanceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <address>",
		Short: "Show the native balance of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, func(a *app.App) error {
				if err := addressArg(a, args[0]); err != nil {
					return err
				}
				balance, err := a.Store.NativeBalance(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printAmount(cmd, a, balance)
				return nil
			})
		},
	}
}

func newHeightCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "height",
		Short: "Show the latest block height",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, func(a *app.App) error {
				height, err := a.Store.BlockHeight(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), height)
				return nil
			})
		},
	}
}
