package main

import (
	"fmt"
	"starkeys-go/internal/pipeline"

	"github.com/spf13/cobra"
)

var resetCheckpointCmd = &cobra.Command{
	Use:       "reset-checkpoint <annotate|publish>",
	Short:     "Forget the saved cursor so the next run starts from the first paper",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{pipeline.StageAnnotate, pipeline.StagePublish},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Redis.Addr == "" {
			return fmt.Errorf("no redis configured, there is no checkpoint to reset")
		}
		checkpoints, closeCheckpoints, err := openCheckpoints(cmd.Context())
		if err != nil {
			return err
		}
		defer closeCheckpoints()

		if err := checkpoints.Reset(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "checkpoint for %s reset\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCheckpointCmd)
}
