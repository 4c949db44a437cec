package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starkeys-go/internal/model"
	"starkeys-go/internal/repository"
	"starkeys-go/pkg/ner"
)

func newTestAggregator() *Aggregator {
	return NewAggregator([]ner.Tagger{
		ner.NewDictionaryTagger("bc5cdr", map[string]string{"glucose": "CHEMICAL", "diabetes": "DISEASE"}),
		ner.NewDictionaryTagger("bionlp13cg", map[string]string{"insulin": "GENE_OR_GENE_PRODUCT"}),
	}, DefaultTopK, DefaultMaxFieldLength)
}

func entityTypes(t *testing.T, categories repository.CategoryRepository, paperID string) []string {
	t.Helper()
	types, err := categories.DistinctTypes(context.Background(), paperID)
	require.NoError(t, err)
	return types
}

func TestAnnotator_IdempotentAcrossRuns(t *testing.T) {
	b := newMemBacking()
	b.put("PMC1", biocPayload(t, "PMC1", passage("TITLE", "Glucose and insulin"), passage("RESULTS", "glucose")))
	b.put("PMC2", biocPayload(t, "PMC2", passage("ABSTRACT", "diabetes")))
	categories := newTestCategories(t)

	first, err := NewAnnotator(categories, newTestAggregator(), AnnotateOptions{PageSize: 1}).
		Run(context.Background(), newTestRun(t, StageAnnotate, b))
	require.NoError(t, err)
	assert.Equal(t, 2, first.Processed)
	assert.Equal(t, 2, first.Annotated)
	assert.Equal(t, 0, first.Skipped)
	assert.Equal(t, "PMC2", first.LastID)

	second, err := NewAnnotator(categories, newTestAggregator(), AnnotateOptions{}).
		Run(context.Background(), newTestRun(t, StageAnnotate, b))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, 2, second.Skipped)

	assert.Equal(t, []string{"CHEMICAL", "GENE_OR_GENE_PRODUCT"}, entityTypes(t, categories, "PMC1"))
	assert.Equal(t, []string{"DISEASE"}, entityTypes(t, categories, "PMC2"))
}

func TestAnnotator_PersistsTopRecords(t *testing.T) {
	b := newMemBacking()
	b.put("PMC1", biocPayload(t, "PMC1",
		passage("TITLE", "Glucose"),
		passage("RESULTS", "glucose and insulin"),
	))
	categories := &recordingCategories{CategoryRepository: newTestCategories(t)}

	_, err := NewAnnotator(categories, newTestAggregator(), AnnotateOptions{}).
		Run(context.Background(), newTestRun(t, StageAnnotate, b))
	require.NoError(t, err)

	require.Len(t, categories.batches, 1)
	assert.Equal(t, []model.EntityRecord{
		{PaperID: "PMC1", EntityText: "glucose", EntityType: "CHEMICAL", Count: 2},
		{PaperID: "PMC1", EntityText: "insulin", EntityType: "GENE_OR_GENE_PRODUCT", Count: 1},
	}, stripIDs(categories.batches[0]))
}

func TestAnnotator_MalformedPayloadSkipped(t *testing.T) {
	b := newMemBacking()
	b.put("PMC1", `{"not":"an array"}`)
	b.put("PMC2", `[{"documents":[]}]`)
	b.put("PMC3", biocPayload(t, "PMC3", passage("TITLE", "glucose")))
	categories := newTestCategories(t)

	res, err := NewAnnotator(categories, newTestAggregator(), AnnotateOptions{}).
		Run(context.Background(), newTestRun(t, StageAnnotate, b))
	require.NoError(t, err)

	assert.Equal(t, []model.Failure{
		{ID: "PMC1", Reason: "malformed_payload"},
		{ID: "PMC2", Reason: "malformed_payload"},
	}, res.Failures)
	assert.Equal(t, 1, res.Annotated)
	assert.Equal(t, []string{"CHEMICAL"}, entityTypes(t, categories, "PMC3"))
}

func TestAnnotator_StringEncodedPayload(t *testing.T) {
	b := newMemBacking()
	inner := biocPayload(t, "PMC1", passage("TITLE", "glucose"))
	encoded, err := jsonString(inner)
	require.NoError(t, err)
	b.put("PMC1", encoded)
	categories := newTestCategories(t)

	res, err := NewAnnotator(categories, newTestAggregator(), AnnotateOptions{}).
		Run(context.Background(), newTestRun(t, StageAnnotate, b))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Annotated)
}

func TestAnnotator_NoEntitiesIsNotPersisted(t *testing.T) {
	b := newMemBacking()
	b.put("PMC1", biocPayload(t, "PMC1", passage("TITLE", "nothing relevant")))
	categories := newTestCategories(t)
	ann := NewAnnotator(categories, newTestAggregator(), AnnotateOptions{})

	res, err := ann.Run(context.Background(), newTestRun(t, StageAnnotate, b))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Empty)

	// 没有记录就没有幂等信号，下一次运行会再次处理
	res, err = ann.Run(context.Background(), newTestRun(t, StageAnnotate, b))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, res.Skipped)
}

func TestAnnotator_ResumesFromCheckpoint(t *testing.T) {
	checkpoints := newTestCheckpoints(t)
	ctx := context.Background()

	b := newMemBacking()
	for _, id := range []string{"PMC1", "PMC2", "PMC3"} {
		b.put(id, biocPayload(t, id, passage("TITLE", "glucose")))
	}
	// 上一次运行在 PMC1 之后中断
	require.NoError(t, checkpoints.Set(ctx, StageAnnotate, "PMC1"))
	categories := newTestCategories(t)

	res, err := NewAnnotator(categories, newTestAggregator(), AnnotateOptions{Checkpoints: checkpoints}).
		Run(ctx, newTestRun(t, StageAnnotate, b))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, "PMC3", res.LastID)
	assert.Empty(t, entityTypes(t, categories, "PMC1"))

	last, err := checkpoints.Get(ctx, StageAnnotate)
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestAnnotator_CompletedRunStartsOver(t *testing.T) {
	checkpoints := newTestCheckpoints(t)
	ctx := context.Background()
	categories := newTestCategories(t)

	b := newMemBacking()
	b.put("PMC999", biocPayload(t, "PMC999", passage("TITLE", "glucose")))

	res, err := NewAnnotator(categories, newTestAggregator(), AnnotateOptions{Checkpoints: checkpoints}).
		Run(ctx, newTestRun(t, StageAnnotate, b))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Annotated)

	last, err := checkpoints.Get(ctx, StageAnnotate)
	require.NoError(t, err)
	assert.Empty(t, last)

	// PMC1000 按字符串排在 PMC999 之前，下一次运行仍需处理到它
	b.put("PMC1000", biocPayload(t, "PMC1000", passage("TITLE", "diabetes")))
	res, err = NewAnnotator(categories, newTestAggregator(), AnnotateOptions{Checkpoints: checkpoints}).
		Run(ctx, newTestRun(t, StageAnnotate, b))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"DISEASE"}, entityTypes(t, categories, "PMC1000"))
}

func TestAnnotator_CancelledRunKeepsCheckpoint(t *testing.T) {
	checkpoints := memCheckpoints{StageAnnotate: "PMC2"}
	categories := newTestCategories(t)

	b := newMemBacking()
	for _, id := range []string{"PMC1", "PMC2", "PMC3"} {
		b.put(id, biocPayload(t, id, passage("TITLE", "glucose")))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAnnotator(categories, newTestAggregator(), AnnotateOptions{Checkpoints: checkpoints}).
		Run(ctx, newTestRun(t, StageAnnotate, b))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "PMC2", checkpoints[StageAnnotate])

	res, err := NewAnnotator(categories, newTestAggregator(), AnnotateOptions{Checkpoints: checkpoints}).
		Run(context.Background(), newTestRun(t, StageAnnotate, b))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, []string{"CHEMICAL"}, entityTypes(t, categories, "PMC3"))
	assert.Empty(t, entityTypes(t, categories, "PMC1"))
	assert.NotContains(t, checkpoints, StageAnnotate)
}

// recordingCategories 记录每次 InsertBatch 的参数，用于检查一篇论文只产生一次写入。
type recordingCategories struct {
	repository.CategoryRepository
	batches [][]model.EntityRecord
}

func (r *recordingCategories) InsertBatch(ctx context.Context, records []model.EntityRecord) error {
	r.batches = append(r.batches, append([]model.EntityRecord(nil), records...))
	return r.CategoryRepository.InsertBatch(ctx, records)
}

func stripIDs(records []model.EntityRecord) []model.EntityRecord {
	out := make([]model.EntityRecord, len(records))
	for i, r := range records {
		r.ID = 0
		out[i] = r
	}
	return out
}
