package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the flash loan dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, log, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr != "" {
				a.Config.Server.Addr = addr
			}

			ctx := cmd.Context()
			a.Start(ctx)
			go a.Runtime.Run(ctx)

			srv, err := a.Server()
			if err != nil {
				return err
			}
			log.Info("Starting dashboard",
				zap.String("chain_id", a.Config.Chain.ChainID),
				zap.String("contract", a.Config.Chain.ContractAddr),
				zap.String("addr", a.Config.Server.Addr))
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}
