package cmd

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/michaelpento.lv/cwflash/contract"
	"github.com/michaelpento.lv/cwflash/flashloan"
	"github.com/michaelpento.lv/cwflash/form"
	"github.com/michaelpento.lv/cwflash/ui"
	"github.com/michaelpento.lv/cwflash/wallet"
)

func newLoanCmd(opts *rootOptions) *cobra.Command {
	var (
		amount   string
		receiver string
		connect  bool
	)

	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Take a flash loan from the contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			a.Start(ctx)
			if connect && a.Wallet.Status() != wallet.Connected {
				if err := a.Wallet.Connect(ctx); err != nil {
					return err
				}
			}

			chainCfg := a.Config.Chain
			f := form.New(chainCfg.AddressPrefix, chainCfg.DenomExponent)
			f.SetAmount(form.ParseAmount(amount))
			f.SetReceiver(receiver)

			tvl, err := a.Store.TVL(ctx)
			if err != nil {
				f.SetTVL(contract.Failed[*big.Int](err))
			} else {
				f.SetTVL(contract.Value(tvl))
			}

			out := cmd.OutOrStdout()
			if client := a.Wallet.SigningClient(); client != nil && !f.Invalid() {
				gas, fee := client.EstimateFee(0)
				fmt.Fprintf(out, "network fee: %s (gas %d)\n", fee, gas)
			}

			toasts := ui.NewQueue(chainCfg.ExplorerTxPrefix, 0)
			res, err := a.Loans.Submit(ctx, f, a.Wallet, toasts)

			for _, t := range toasts.Drain() {
				if t.URL != "" {
					fmt.Fprintf(out, "%s: %s (%s)\n", t.Level, t.Message, t.URL)
					continue
				}
				fmt.Fprintf(out, "%s: %s\n", t.Level, t.Message)
			}

			if errors.Is(err, flashloan.ErrValidation) {
				view := f.View()
				if view.AmountError != "" {
					fmt.Fprintf(out, "amount: %s\n", view.AmountError)
				}
				if view.ReceiverError != "" {
					fmt.Fprintf(out, "receiver: %s\n", view.ReceiverError)
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "submitted %s\n", res.TxHash)
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "amount to borrow in display units")
	cmd.Flags().StringVar(&receiver, "receiver", "", "contract that receives the loan")
	cmd.Flags().BoolVar(&connect, "connect", false, "connect the wallet first if it is not connected")
	return cmd
}
