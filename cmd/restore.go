package cmd

import (
	"fmt"

	"github.com/bnema/macaron-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newRestoreCmd(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Refill the pool if its recovery window has passed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := app.poolManager(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			restored, err := manager.RestoreIfNeeded(cmd.Context(), force)
			if err != nil {
				return err
			}

			status := domain.StatusLine(manager.CurrentCount(), manager.Policy())
			if restored {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Pool restored. %s\n", status)
				return nil
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No recovery due. %s\n", status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Refill the pool even if the recovery window has not passed")

	return cmd
}
