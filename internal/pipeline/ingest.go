package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"starkeys-go/internal/model"
	"starkeys-go/pkg/log"
	"starkeys-go/pkg/retry"
	"starkeys-go/pkg/storage"
	"starkeys-go/pkg/tasks"
	"time"
)

const (
	StageIngest = "ingest"

	// DefaultRefreshEvery 是主动回收文档库连接的间隔（按已处理条数计）。
	DefaultRefreshEvery = 200
)

// Fetcher 按外部 ID 拉取原始 payload。*bioc.Client 实现了该接口。
type Fetcher interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// IngestOptions 配置采集阶段。
type IngestOptions struct {
	RefreshEvery int
	// WritePolicy 的 Reconnect 由运行上下文注入，这里只需设置次数与退避
	WritePolicy retry.Policy
	ReportPath  string
	Uploader    storage.ReportUploader
}

// IngestResult 汇总一次采集运行。
type IngestResult struct {
	Processed int
	Stored    int
	Failures  []model.Failure
}

// Ingestor 从外部接口拉取论文并写入文档库。
type Ingestor struct {
	fetcher Fetcher
	opts    IngestOptions
	now     func() time.Time
}

// NewIngestor 创建一个新的 Ingestor。
func NewIngestor(fetcher Fetcher, opts IngestOptions) *Ingestor {
	if opts.RefreshEvery <= 0 {
		opts.RefreshEvery = DefaultRefreshEvery
	}
	if opts.WritePolicy.MaxAttempts <= 0 {
		opts.WritePolicy.MaxAttempts = 1
	}
	return &Ingestor{fetcher: fetcher, opts: opts, now: time.Now}
}

// Run 依次处理 ids。单条失败只记录不中断；每处理 RefreshEvery 条主动回收一次连接。
// 结束时写出失败报告。只有 ctx 被取消时才提前结束。
func (in *Ingestor) Run(ctx context.Context, run *Run, ids []string) (IngestResult, error) {
	log.Infof("----------------- %d 条 开始采集 -----------------", len(ids))
	var result IngestResult

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			break
		}
		if result.Processed > 0 && result.Processed%in.opts.RefreshEvery == 0 {
			log.Infof("[Ingestor] 已处理 %d 条，回收文档库连接", result.Processed)
			if err := run.Reconnect(ctx); err != nil {
				log.Error("[Ingestor] 回收文档库连接失败", err)
			}
		}

		key, err := in.ingestOne(ctx, run, id)
		result.Processed++
		run.Processed++
		if err != nil {
			reason := failureReason(err)
			log.Warnw("[Ingestor] 处理失败", "pmc_id", id, "reason", reason, "error", err)
			result.Failures = append(result.Failures, model.Failure{ID: id, Reason: reason})
			run.Failed++
			continue
		}
		result.Stored++
		if key != id {
			log.Warnf("[Ingestor] %s 的 payload 文档 ID 为 %s，以后者为存储键", id, key)
		}
		log.Infof("--------------%s : %d 条处理完成--------------", id, result.Processed)
	}

	log.Infof("失败 id 总数: %d", len(result.Failures))
	err := in.writeReport(ctx, result.Failures)
	run.Emit(ctx, tasks.KindFinished, "", err)
	return result, err
}

// ingestOne 拉取、校验并写入一条，返回实际使用的存储键。
func (in *Ingestor) ingestOne(ctx context.Context, run *Run, id string) (string, error) {
	body, err := in.fetcher.Fetch(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}

	doc, _, err := model.DecodeBioC(body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	key := doc.ID
	if key == "" {
		key = model.UnknownPaperID
	}
	raw := &model.RawDocument{ID: key, BiocJSON: compact.String(), FetchedAt: in.now()}

	policy := in.opts.WritePolicy
	policy.Reconnect = run.Reconnect
	err = policy.Do(ctx, func(ctx context.Context) error {
		store, err := run.Store(ctx)
		if err != nil {
			return err
		}
		return store.Upsert(ctx, raw)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	return key, nil
}

func (in *Ingestor) writeReport(ctx context.Context, failures []model.Failure) error {
	if in.opts.ReportPath == "" {
		return nil
	}
	if err := WriteFailureReport(in.opts.ReportPath, failures); err != nil {
		return err
	}
	log.Infof("失败 id 列表已保存到 %s", in.opts.ReportPath)

	if in.opts.Uploader == nil {
		return nil
	}
	object := fmt.Sprintf("failures/%s-%s", in.now().Format("20060102-150405"), filepath.Base(in.opts.ReportPath))
	if err := in.opts.Uploader.Upload(ctx, in.opts.ReportPath, object); err != nil {
		// 本地文件已经写好，上传失败不影响重跑
		log.Error("[Ingestor] 上传失败报告失败", err)
	}
	return nil
}
