package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linesmerrill/custody-ledger-api/config"
	"github.com/linesmerrill/custody-ledger-api/custody"
	"github.com/linesmerrill/custody-ledger-api/databases"
)

func verifyCommand(conf *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "List active records that have no audit entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			backend, err := databases.Open(ctx, conf)
			if err != nil {
				return err
			}
			defer backend.Close(context.Background())

			orphans, err := custody.NewRepository(backend).VerifyIntegrity(ctx)
			if err != nil {
				return err
			}
			for _, id := range orphans {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			if len(orphans) > 0 {
				return fmt.Errorf("%d active records have no audit entries", len(orphans))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all active records have audit entries")
			return nil
		},
	}
}
