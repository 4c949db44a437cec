// Package main 是批处理命令行的入口点。
// 三个阶段各对应一个子命令：ingest、annotate、publish。
package main

import (
	"context"
	"os"
	"os/signal"
	"starkeys-go/internal/config"
	"starkeys-go/pkg/log"
	"syscall"

	"github.com/spf13/cobra"
)

// cfg 在 PersistentPreRunE 中加载，供各子命令使用。
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "starkeys",
	Short: "Scientific paper ingestion, NER annotation and search publishing",
	Long: `starkeys runs the three restartable batch stages of the paper pipeline:

  ingest    fetch BioC JSON by PMC id and upsert it into the document store
  annotate  tag stored papers with two NER taggers and persist the top entities
  publish   project papers and authors into the search index

Stages share no state; each one can be re-run independently.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("config")
		conf, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = conf

		if err := log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
			return err
		}
		log.Info("日志记录器初始化成功")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "./configs/config.yaml", "config file (YAML); STARKEYS_* env vars override it")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	log.Sync()
	if err != nil {
		os.Exit(1)
	}
}
