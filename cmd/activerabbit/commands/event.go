package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/activerabbit-ai/activerabbit-ai/pkg/activerabbit"
)

func newEventCommand() *cobra.Command {
	var (
		props  []string
		userID string
	)

	cmd := &cobra.Command{
		Use:   "event NAME",
		Short: "Send one custom event",
		Example: `  # Send a bare event
  activerabbit --api-key ar_... event deploy.finished

  # Attach properties and a user
  activerabbit -c activerabbit.yaml event deploy.finished --prop release=1.4.2 --prop region=eu --user ops-bot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parsePairs(props)
			if err != nil {
				return err
			}
			var properties map[string]any
			if len(pairs) > 0 {
				properties = make(map[string]any, len(pairs))
				for k, v := range pairs {
					properties[k] = v
				}
			}

			client, logger, err := buildClient()
			if err != nil {
				return err
			}

			var opts []activerabbit.TrackOption
			if userID != "" {
				opts = append(opts, activerabbit.WithUserID(userID))
			}
			client.TrackEvent(cmd.Context(), args[0], properties, opts...)

			if err := shutdown(cmd.Context(), client, logger); err != nil {
				return fmt.Errorf("delivery failed: %w", err)
			}
			fmt.Printf("Event %q sent\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&props, "prop", nil, "event property as key=value (repeatable)")
	cmd.Flags().StringVar(&userID, "user", "", "user identifier to attach")
	return cmd
}
