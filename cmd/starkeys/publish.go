package main

import (
	"fmt"
	"starkeys-go/internal/pipeline"
	"starkeys-go/pkg/database"
	"starkeys-go/pkg/es"

	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Project stored papers and authors into the search index",
	Long: `Publish reads stored papers in fixed-size batches, builds the paper and
author documents and sends each batch as one bulk request per index. Papers
are upserted by paper id; authors are always inserted as new documents.
A failed bulk request stops the run and is reported.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().Int("batch-size", 0, "papers per bulk request (default from config)")

	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	client, err := es.NewClient(cfg.Elasticsearch)
	if err != nil {
		return fmt.Errorf("create elasticsearch client: %w", err)
	}
	if err := es.EnsureIndex(client, cfg.Elasticsearch.PaperIndex, es.PaperMapping); err != nil {
		return err
	}
	if err := es.EnsureIndex(client, cfg.Elasticsearch.AuthorIndex, es.AuthorMapping); err != nil {
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

	run, err := pipeline.NewRun(ctx, pipeline.StagePublish, connect, events)
	if err != nil {
		return err
	}
	defer run.Close()

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	if batchSize <= 0 {
		batchSize = cfg.Pipeline.PublishBatchSize
	}
	publisher := pipeline.NewPublisher(categories, es.NewSink(client), pipeline.PublishOptions{
		BatchSize:   batchSize,
		PaperIndex:  cfg.Elasticsearch.PaperIndex,
		AuthorIndex: cfg.Elasticsearch.AuthorIndex,
		Checkpoints: checkpoints,
	})
	result, err := publisher.Run(ctx, run)
	fmt.Fprintf(cmd.OutOrStdout(), "total=%d batches=%d papers=%d authors=%d skipped=%d item_failures=%d last=%s\n",
		result.Total, result.Batches, result.Papers, result.Authors, result.Skipped, result.ItemFailures, result.LastID)
	return err
}
