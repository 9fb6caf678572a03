package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPerfCommand() *cobra.Command {
	var meta []string

	cmd := &cobra.Command{
		Use:   "perf NAME DURATION",
		Short: "Send one performance sample",
		Example: `  # Report a 250ms checkout request
  activerabbit --api-key ar_... perf "GET /checkout" 250ms --meta status=200`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			duration, err := time.ParseDuration(args[1])
			if err != nil {
				return fmt.Errorf("bad duration %q: %w", args[1], err)
			}
			pairs, err := parsePairs(meta)
			if err != nil {
				return err
			}
			var metadata map[string]any
			if len(pairs) > 0 {
				metadata = make(map[string]any, len(pairs))
				for k, v := range pairs {
					metadata[k] = v
				}
			}

			client, logger, err := buildClient()
			if err != nil {
				return err
			}

			client.TrackPerformance(cmd.Context(), args[0], duration, metadata)

			if err := shutdown(cmd.Context(), client, logger); err != nil {
				return fmt.Errorf("delivery failed: %w", err)
			}
			fmt.Printf("Performance sample %q (%s) sent\n", args[0], duration)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&meta, "meta", nil, "metadata as key=value (repeatable)")
	return cmd
}
