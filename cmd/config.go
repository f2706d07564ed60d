package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/michaelpento.lv/cwflash/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Check and print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.cfgFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asYAML {
				raw, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("failed to encode config: %w", err)
				}
				_, err = out.Write(raw)
				return err
			}

			mnemonic := "not set"
			if cfg.Wallet.Mnemonic != "" {
				mnemonic = "set"
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			rows := [][2]string{
				{config.EnvChainID, cfg.Chain.ChainID},
				{config.EnvChainName, cfg.Chain.ChainName},
				{config.EnvChainRPCEndpoint, cfg.Chain.RPCEndpoint},
				{config.EnvFeeDenom, cfg.Chain.FeeDenom},
				{config.EnvDenomName, cfg.Chain.DenomName},
				{config.EnvContractAddr, cfg.Chain.ContractAddr},
				{config.EnvUSDCSwapAddr, cfg.Chain.USDCSwapAddr},
				{config.EnvAddressPrefix, cfg.Chain.AddressPrefix},
				{config.EnvDenomExponent, fmt.Sprint(cfg.Chain.DenomExponent)},
				{config.EnvExplorerTxPrefix, cfg.Chain.ExplorerTxPrefix},
				{config.EnvGasPrice, cfg.Chain.GasPrice},
				{config.EnvWalletMnemonic, mnemonic},
				{config.EnvWalletStatePath, cfg.Wallet.StatePath},
				{config.EnvHTTPAddr, cfg.Server.Addr},
			}
			for _, row := range rows {
				fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the file-configurable settings as YAML")
	return cmd
}
