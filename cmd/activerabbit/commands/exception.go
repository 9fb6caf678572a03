package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/activerabbit-ai/activerabbit-ai/pkg/activerabbit"
)

func newExceptionCommand() *cobra.Command {
	var (
		tags      []string
		userID    string
		unhandled bool
	)

	cmd := &cobra.Command{
		Use:   "exception MESSAGE",
		Short: "Send one exception record",
		Example: `  # Send a handled test exception
  activerabbit --api-key ar_... exception "payment gateway unreachable"

  # Tag it and mark it unhandled
  activerabbit -c activerabbit.yaml exception "worker crashed" --tag queue=billing --unhandled`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parsePairs(tags)
			if err != nil {
				return err
			}

			client, logger, err := buildClient()
			if err != nil {
				return err
			}

			// Force past ignore rules: an operator sending a test
			// exception always wants it delivered.
			opts := []activerabbit.TrackOption{activerabbit.WithForce()}
			if len(pairs) > 0 {
				opts = append(opts, activerabbit.WithTags(pairs))
			}
			if userID != "" {
				opts = append(opts, activerabbit.WithUserID(userID))
			}
			if unhandled {
				opts = append(opts, activerabbit.WithHandled(false))
			}
			client.TrackException(cmd.Context(), errors.New(args[0]), opts...)

			if err := shutdown(cmd.Context(), client, logger); err != nil {
				return fmt.Errorf("delivery failed: %w", err)
			}
			fmt.Printf("Exception %q sent\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag as key=value (repeatable)")
	cmd.Flags().StringVar(&userID, "user", "", "user identifier to attach")
	cmd.Flags().BoolVar(&unhandled, "unhandled", false, "mark the exception unhandled")
	return cmd
}
