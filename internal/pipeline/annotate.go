package pipeline

import (
	"context"
	"fmt"
	"starkeys-go/internal/model"
	"starkeys-go/internal/repository"
	"starkeys-go/pkg/log"
	"starkeys-go/pkg/retry"
	"starkeys-go/pkg/tasks"
)

const (
	StageAnnotate = "annotate"

	DefaultScanPageSize = 100
)

// AnnotateOptions 配置标注阶段。
type AnnotateOptions struct {
	PageSize    int
	Checkpoints repository.CheckpointStore
}

// AnnotateResult 汇总一次标注运行。
type AnnotateResult struct {
	Processed int
	Annotated int
	// Skipped 是幂等门跳过的论文数
	Skipped int
	// Empty 是没有识别出任何实体的论文数，下次运行会再次处理
	Empty    int
	Failures []model.Failure
	LastID   string
}

// Annotator 遍历文档库，为尚未标注的论文写入实体记录。
type Annotator struct {
	categories repository.CategoryRepository
	aggregator *Aggregator
	opts       AnnotateOptions
}

// NewAnnotator 创建一个新的 Annotator。
func NewAnnotator(categories repository.CategoryRepository, aggregator *Aggregator, opts AnnotateOptions) *Annotator {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultScanPageSize
	}
	if opts.Checkpoints == nil {
		opts.Checkpoints = repository.NoopCheckpointStore{}
	}
	return &Annotator{categories: categories, aggregator: aggregator, opts: opts}
}

// Run 按 ID 升序流式读取全部论文。单篇失败只记录不中断；每篇论文单独提交，
// 崩溃最多丢失一篇的进度。读取文档库失败时重连一次，仍失败则返回错误。
// 断点在每篇之后保存，扫描完成后清除。
func (a *Annotator) Run(ctx context.Context, run *Run) (AnnotateResult, error) {
	var result AnnotateResult

	after, err := a.opts.Checkpoints.Get(ctx, StageAnnotate)
	if err != nil {
		return result, err
	}
	if after != "" {
		log.Infof("[Annotator] 从断点 %s 之后继续", after)
	}
	result.LastID = after
	log.Info("文档库中的论文开始 NER 标注...")

	scanPolicy := retry.Policy{MaxAttempts: 2, Reconnect: run.Reconnect}
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var page []model.RawDocument
		err := scanPolicy.Do(ctx, func(ctx context.Context) error {
			store, err := run.Store(ctx)
			if err != nil {
				return err
			}
			page, err = store.Scan(ctx, after, a.opts.PageSize)
			return err
		})
		if err != nil {
			run.Emit(ctx, tasks.KindFinished, after, err)
			return result, fmt.Errorf("scan document store after %q: %w", after, err)
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			doc := &page[i]
			a.annotateOne(ctx, run, doc, &result)
			after = doc.ID
			result.LastID = after
			if err := a.opts.Checkpoints.Set(ctx, StageAnnotate, after); err != nil {
				log.Warnf("[Annotator] 保存断点失败 (id=%s): %v", after, err)
			}
		}
		run.Emit(ctx, tasks.KindBatch, after, nil)
	}

	// 断点只用于续跑被中断的运行，完整扫描结束后清除，下一次运行从头开始
	if err := a.opts.Checkpoints.Reset(ctx, StageAnnotate); err != nil {
		run.Emit(ctx, tasks.KindFinished, after, err)
		return result, fmt.Errorf("clear annotate checkpoint: %w", err)
	}
	log.Infof("category 表写入完成: 处理 %d 篇, 写入 %d 篇, 跳过 %d 篇, 失败 %d 篇",
		result.Processed, result.Annotated, result.Skipped, len(result.Failures))
	run.Emit(ctx, tasks.KindFinished, after, nil)
	return result, nil
}

func (a *Annotator) annotateOne(ctx context.Context, run *Run, doc *model.RawDocument, result *AnnotateResult) {
	fail := func(err error) {
		reason := failureReason(err)
		log.Warnw("[Annotator] 处理失败", "pmc_id", doc.ID, "reason", reason, "error", err)
		result.Failures = append(result.Failures, model.Failure{ID: doc.ID, Reason: reason})
		run.Failed++
	}

	entry, _, err := model.DecodeBioC([]byte(doc.BiocJSON))
	if err != nil {
		fail(fmt.Errorf("%w: %w", ErrMalformedPayload, err))
		return
	}

	exists, err := a.categories.Exists(ctx, doc.ID)
	if err != nil {
		fail(fmt.Errorf("%w: idempotency check: %w", ErrAnnotate, err))
		return
	}
	if exists {
		log.Infof("SKIP: %s - 已存在于 category 表", doc.ID)
		result.Skipped++
		run.Skipped++
		return
	}

	records, err := a.aggregator.Aggregate(ctx, doc.ID, entry.Passages)
	if err != nil {
		fail(fmt.Errorf("%w: %w", ErrAnnotate, err))
		return
	}
	if err := a.categories.InsertBatch(ctx, records); err != nil {
		fail(fmt.Errorf("%w: insert: %w", ErrAnnotate, err))
		return
	}

	result.Processed++
	run.Processed++
	if len(records) == 0 {
		result.Empty++
	} else {
		result.Annotated++
	}
	log.Infof("--------------%s : %d 篇处理完成--------------", doc.ID, result.Processed)
}
