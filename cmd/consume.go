package cmd

import (
	"errors"
	"fmt"

	"github.com/bnema/macaron-cli/internal/domain"
	"github.com/spf13/cobra"
)

var errNoMacaronsLeft = errors.New("no macarons left")

func newConsumeCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Spend one macaron",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := app.poolManager(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			consumed, err := manager.Consume(cmd.Context())
			if err != nil {
				return err
			}

			if !consumed {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), manager.RecoveryMessage())
				return errNoMacaronsLeft
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), domain.StatusLine(manager.CurrentCount(), manager.Policy()))
			return nil
		},
	}
}
