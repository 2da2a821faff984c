package cmd

import (
	"encoding/json"
	"fmt"

	poolrender "github.com/bnema/macaron-cli/internal/adapters/render/pool"
	"github.com/bnema/macaron-cli/internal/application"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the macaron pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := app.poolManager(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			snapshot, err := manager.Refresh(cmd.Context())
			if err != nil {
				return err
			}

			notice := ""
			if manager.ShouldShowRecoveryMessage() {
				notice = manager.RecoveryMessage()
			}

			return writeSnapshotOutput(cmd, app, snapshot, notice, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the pool snapshot as JSON")

	return cmd
}

func writeSnapshotOutput(cmd *cobra.Command, app *app, snapshot application.PoolSnapshot, notice string, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	}

	rendered, err := app.renderer(snapshot, poolrender.RenderOptions{
		Now:            app.now(),
		RecoveryWindow: app.cfg.Policy.RecoveryWindow,
		Notice:         notice,
	})
	if err != nil {
		return fmt.Errorf("render pool: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
