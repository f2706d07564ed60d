package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/cwflash/cmd/app"
	"github.com/michaelpento.lv/cwflash/config"
	"github.com/michaelpento.lv/cwflash/utils"
)

type rootOptions struct {
	cfgFile string
	debug   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "cwflash",
		Short: "Front-end for a CosmWasm flash loan contract",
		Long: `cwflash shows the state of a CosmWasm flash loan contract (TVL, fee and
provided amounts), connects a wallet and submits loans, either from the
command line or through the web dashboard started by "cwflash serve".`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			utils.InitLogger(opts.debug)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "YAML settings file")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newTVLCmd(opts),
		newFeeCmd(opts),
		newProvidedCmd(opts),
		newBalanceCmd(opts),
		newHeightCmd(opts),
		newLoanCmd(opts),
		newWalletCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

func ExecuteContext(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// loadApp loads the configuration and builds the application.
func loadApp(opts *rootOptions) (*app.App, *zap.Logger, error) {
	log := utils.GetLogger()
	cfg, err := config.LoadConfig(opts.cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	a, err := app.New(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}
