package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTestConnectionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Verify collector credentials and reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, logger, err := buildClient()
			if err != nil {
				return err
			}
			defer shutdown(cmd.Context(), client, logger)

			if err := client.TestConnection(cmd.Context()); err != nil {
				return fmt.Errorf("connection test failed: %w", err)
			}
			fmt.Println("Connection OK")
			return nil
		},
	}
}
