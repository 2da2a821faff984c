package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func Execute() error {
	rootCmd, app := newRootCmd()
	return runRoot(rootCmd, app)
}

// runRoot executes rootCmd and always releases the stores the command opened,
// including when the command fails.
func runRoot(rootCmd *cobra.Command, app *app) error {
	err := rootCmd.Execute()
	if app == nil {
		return err
	}

	if closeErr := app.close(); closeErr != nil && err == nil {
		return fmt.Errorf("close store: %w", closeErr)
	}

	return err
}

func newRootCmd() (*cobra.Command, *app) {
	rootCmd := &cobra.Command{
		Use:           "macaron",
		Short:         "Macaron pool manager: spend and recover lesson macarons",
		Long:          "macaron keeps the pool of lesson macarons: it spends one per lesson, refills the pool once the recovery window has passed, and reports how long until the next refill.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd, nil
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", app.verbose, "Log pool activity to stderr")

	rootCmd.AddCommand(
		newVersionCmd(),
		newStatusCmd(app),
		newConsumeCmd(app),
		newRestoreCmd(app),
		newMessageCmd(app),
		newWatchCmd(app),
		newServeCmd(app),
	)

	return rootCmd, app
}
