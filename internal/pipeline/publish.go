package pipeline

import (
	"context"
	"fmt"
	"starkeys-go/internal/model"
	"starkeys-go/internal/repository"
	"starkeys-go/pkg/es"
	"starkeys-go/pkg/log"
	"starkeys-go/pkg/tasks"
)

const (
	StagePublish = "publish"

	DefaultPublishBatchSize = 50
	DefaultPaperIndex       = "papers"
	DefaultAuthorIndex      = "authors"
)

// PublishOptions 配置发布阶段。
type PublishOptions struct {
	BatchSize   int
	PaperIndex  string
	AuthorIndex string
	Checkpoints repository.CheckpointStore
}

// PublishResult 汇总一次发布运行。
type PublishResult struct {
	Total   int64
	Batches int
	Papers  int
	Authors int
	// Skipped 是 payload 无法解析或读取实体类型失败而跳过的论文数
	Skipped int
	// ItemFailures 是 bulk 响应中单条失败的数量，不做单独重试
	ItemFailures int
	LastID       string
}

// Publisher 将文档库中的论文投影为 PaperDocument 与 AuthorRecord 并批量写入搜索引擎。
type Publisher struct {
	categories repository.CategoryRepository
	sink       es.Sink
	opts       PublishOptions
}

// NewPublisher 创建一个新的 Publisher。
func NewPublisher(categories repository.CategoryRepository, sink es.Sink, opts PublishOptions) *Publisher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultPublishBatchSize
	}
	if opts.PaperIndex == "" {
		opts.PaperIndex = DefaultPaperIndex
	}
	if opts.AuthorIndex == "" {
		opts.AuthorIndex = DefaultAuthorIndex
	}
	if opts.Checkpoints == nil {
		opts.Checkpoints = repository.NoopCheckpointStore{}
	}
	return &Publisher{categories: categories, sink: sink, opts: opts}
}

// Run 按 ID 升序分批处理论文，每批论文与作者各发一次 bulk 请求。
// 整批写入失败时返回包装了 ErrBulkSink 的错误并停止，断点停在上一批；
// 全部批次完成后断点被清除。
func (p *Publisher) Run(ctx context.Context, run *Run) (PublishResult, error) {
	var result PublishResult

	store, err := run.Store(ctx)
	if err != nil {
		return result, err
	}
	total, err := store.Count(ctx)
	if err != nil {
		return result, fmt.Errorf("count document store: %w", err)
	}
	result.Total = total

	after, err := p.opts.Checkpoints.Get(ctx, StagePublish)
	if err != nil {
		return result, err
	}
	result.LastID = after
	log.Infof("----------------- 共 %d 篇, 每批 %d 篇, 开始发布 -----------------", total, p.opts.BatchSize)

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		// 每批重新获取连接，与按批回收连接的节奏一致
		if err := run.Reconnect(ctx); err != nil {
			return result, err
		}
		store, err := run.Store(ctx)
		if err != nil {
			return result, err
		}
		page, err := store.Scan(ctx, after, p.opts.BatchSize)
		if err != nil {
			return result, fmt.Errorf("scan document store after %q: %w", after, err)
		}
		if len(page) == 0 {
			break
		}

		papers, authors := p.project(ctx, run, page, &result)
		if err := p.write(ctx, papers, authors, &result); err != nil {
			log.Errorf("[Publisher] 批次写入失败 (after=%s): %v", after, err)
			run.Emit(ctx, tasks.KindFinished, after, err)
			return result, err
		}

		log.Infof("batch after=%q ~ %s 完成 (papers=%d authors=%d)", after, page[len(page)-1].ID, len(papers), len(authors))
		after = page[len(page)-1].ID
		result.LastID = after
		result.Batches++
		if err := p.opts.Checkpoints.Set(ctx, StagePublish, after); err != nil {
			log.Warnf("[Publisher] 保存断点失败 (id=%s): %v", after, err)
		}
		run.Emit(ctx, tasks.KindBatch, after, nil)
	}

	// 投影每次都要完整重建，断点只保留给被中断的运行
	if err := p.opts.Checkpoints.Reset(ctx, StagePublish); err != nil {
		run.Emit(ctx, tasks.KindFinished, after, err)
		return result, fmt.Errorf("clear publish checkpoint: %w", err)
	}
	log.Infof("全部发布完成: papers=%d authors=%d skipped=%d item_failures=%d",
		result.Papers, result.Authors, result.Skipped, result.ItemFailures)
	run.Emit(ctx, tasks.KindFinished, after, nil)
	return result, nil
}

// project 将一批原始文档转换为 bulk 条目。论文以 paperId 为 _id，作者不带 _id。
func (p *Publisher) project(ctx context.Context, run *Run, page []model.RawDocument, result *PublishResult) (papers, authors []es.BulkItem) {
	for i := range page {
		doc := &page[i]
		run.Processed++

		entry, _, err := model.DecodeBioC([]byte(doc.BiocJSON))
		if err != nil {
			log.Warnf("[Publisher] 错误的 json 结构 (id=%s): %v", doc.ID, err)
			result.Skipped++
			run.Skipped++
			continue
		}

		paper := ParseEntry(entry, doc.ID)
		fields, err := p.categories.DistinctTypes(ctx, doc.ID)
		if err != nil {
			log.Warnf("[Publisher] 读取实体类型失败 (id=%s): %v", doc.ID, err)
			result.Skipped++
			run.Failed++
			continue
		}
		if fields == nil {
			fields = []string{}
		}
		paper.Fields = fields

		for _, name := range paper.Authors {
			authors = append(authors, es.BulkItem{Doc: model.AuthorRecord{Name: name, PaperID: paper.PaperID}})
		}
		paper.Authors = nil
		papers = append(papers, es.BulkItem{ID: paper.PaperID, Doc: paper})
	}
	return papers, authors
}

func (p *Publisher) write(ctx context.Context, papers, authors []es.BulkItem, result *PublishResult) error {
	if len(papers) > 0 {
		res, err := p.sink.BulkIndex(ctx, p.opts.PaperIndex, papers)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBulkSink, p.opts.PaperIndex, err)
		}
		result.Papers += res.Succeeded
		result.ItemFailures += len(res.Failed)
		log.Infof("ES bulk 写入完成: %d 篇论文", res.Succeeded)
	}
	if len(authors) > 0 {
		res, err := p.sink.BulkIndex(ctx, p.opts.AuthorIndex, authors)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrBulkSink, p.opts.AuthorIndex, err)
		}
		result.Authors += res.Succeeded
		result.ItemFailures += len(res.Failed)
		log.Infof("ES 作者 bulk 写入完成: %d 条", res.Succeeded)
	}
	return nil
}
