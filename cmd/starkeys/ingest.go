package main

import (
	"fmt"
	"os"
	"starkeys-go/internal/pipeline"
	"starkeys-go/pkg/bioc"
	"starkeys-go/pkg/log"
	"starkeys-go/pkg/retry"
	"starkeys-go/pkg/storage"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [pmc-ids...]",
	Short: "Fetch BioC JSON by PMC id and upsert it into the document store",
	Long: `Ingest fetches each PMC id from the BioC API and upserts the payload keyed by
the document id found inside it. Ids come from the arguments or from a CSV
column (--csv). Failed ids are written to the failure report for a manual
re-run; they never stop the batch.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("csv", "", "CSV file with PMC links")
	ingestCmd.Flags().String("column", "", "CSV column holding the PMC link (default from config)")
	ingestCmd.Flags().String("report", "", "failure report path (default from config)")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ids, err := ingestIDs(cmd, args)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("provide PMC ids as arguments or with --csv")
	}
	log.Infof("待采集 ID 数量: %d", len(ids))

	connect, err := docStoreConnector()
	if err != nil {
		return err
	}
	uploader, err := storage.NewReportUploader(ctx, cfg.MinIO)
	if err != nil {
		// 报告仍会写到本地，上传只是附加的
		log.Error("初始化失败报告上传失败", err)
		uploader = nil
	}
	events := openEvents()
	defer closeEvents(events)

	run, err := pipeline.NewRun(ctx, pipeline.StageIngest, connect, events)
	if err != nil {
		return err
	}
	defer run.Close()

	reportPath, _ := cmd.Flags().GetString("report")
	if reportPath == "" {
		reportPath = cfg.Pipeline.FailureReportPath
	}
	ingestor := pipeline.NewIngestor(bioc.NewClient(cfg.BioC), pipeline.IngestOptions{
		RefreshEvery: cfg.Pipeline.RefreshEvery,
		WritePolicy:  retry.Policy{MaxAttempts: cfg.Pipeline.WriteAttempts, BaseDelay: cfg.Pipeline.WriteBackoff},
		ReportPath:   reportPath,
		Uploader:     uploader,
	})
	result, err := ingestor.Run(ctx, run, ids)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "processed=%d stored=%d failed=%d report=%s\n",
		result.Processed, result.Stored, len(result.Failures), reportPath)
	return ctx.Err()
}

// ingestIDs 优先使用命令行参数，其次读取 --csv 文件。
func ingestIDs(cmd *cobra.Command, args []string) ([]string, error) {
	if len(args) > 0 {
		return pipeline.DedupeIDs(args), nil
	}
	path, _ := cmd.Flags().GetString("csv")
	if path == "" {
		return nil, nil
	}
	column, _ := cmd.Flags().GetString("column")
	if column == "" {
		column = cfg.Pipeline.IDColumn
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open id csv: %w", err)
	}
	defer f.Close()
	return pipeline.ReadIDs(f, column)
}
