package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMessageCmd(app *app) *cobra.Command {
	var ack bool

	cmd := &cobra.Command{
		Use:   "message",
		Short: "Show the recovery message, and the recovery alert when one is due",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := app.poolManager(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, manager.RecoveryMessage())

			if manager.ShouldShowRecoveryMessage() {
				if alert, ok := manager.RecoveryAlert(); ok {
					_, _ = fmt.Fprintf(out, "%s\n%s\n", alert.Title, alert.Body)
				}
			}

			if !ack {
				return nil
			}

			return manager.MarkRecoveryMessageShown(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&ack, "ack", false, "Record that the recovery message was shown")

	return cmd
}
