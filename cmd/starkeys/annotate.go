package main

import (
	"fmt"
	"starkeys-go/internal/pipeline"
	"starkeys-go/pkg/database"
	"starkeys-go/pkg/ner"

	"github.com/spf13/cobra"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Tag stored papers with the NER taggers and persist the top entities",
	Long: `Annotate streams every stored paper in id order. Papers that already have
entity records are skipped. For the rest, all configured taggers run on every
passage, overlapping spans are merged (longer span wins) and the ten most
frequent (text, type) pairs are written in one insert per paper.`,
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	taggers, err := ner.NewTaggers(cfg.Taggers)
	if err != nil {
		return err
	}
	connect, err := docStoreConnector()
	if err != nil {
		return err
	}
	categories, db, err := openCategories()
	if err != nil {
		return err
	}
	defer database.Close(db)
	checkpoints, closeCheckpoints, err := openCheckpoints(ctx)
	if err != nil {
		return err
	}
	defer closeCheckpoints()
	events := openEvents()
	defer closeEvents(events)

	run, err := pipeline.NewRun(ctx, pipeline.StageAnnotate, connect, events)
	if err != nil {
		return err
	}
	defer run.Close()

	aggregator := pipeline.NewAggregator(taggers, cfg.Pipeline.TopK, cfg.Pipeline.MaxFieldLength)
	annotator := pipeline.NewAnnotator(categories, aggregator, pipeline.AnnotateOptions{
		PageSize:    cfg.Pipeline.ScanPageSize,
		Checkpoints: checkpoints,
	})
	result, err := annotator.Run(ctx, run)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "processed=%d annotated=%d empty=%d skipped=%d failed=%d last=%s\n",
		result.Processed, result.Annotated, result.Empty, result.Skipped, len(result.Failures), result.LastID)
	return nil
}
