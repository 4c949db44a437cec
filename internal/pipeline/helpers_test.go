package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"starkeys-go/internal/model"
	"starkeys-go/internal/repository"
	"starkeys-go/pkg/database"
	"starkeys-go/pkg/es"
)

// memBacking 是多个 memStore 连接共享的底层数据，用来观察重连前后的状态。
type memBacking struct {
	mu         sync.Mutex
	docs       map[string]model.RawDocument
	failUpsert map[string]int // 键为存储 ID，值为剩余的失败次数
	opens      int
	closes     int
	upserts    int
}

func newMemBacking() *memBacking {
	return &memBacking{docs: map[string]model.RawDocument{}, failUpsert: map[string]int{}}
}

func (b *memBacking) connector() repository.Connector {
	return func(context.Context) (repository.DocumentStore, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.opens++
		return &memStore{b: b}, nil
	}
}

func (b *memBacking) put(id, payload string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[id] = model.RawDocument{ID: id, BiocJSON: payload}
}

type memStore struct {
	b      *memBacking
	closed bool
}

func (s *memStore) Upsert(_ context.Context, doc *model.RawDocument) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.closed {
		return errors.New("store closed")
	}
	if n := s.b.failUpsert[doc.ID]; n > 0 {
		s.b.failUpsert[doc.ID] = n - 1
		return errors.New("connection reset")
	}
	s.b.upserts++
	s.b.docs[doc.ID] = *doc
	return nil
}

func (s *memStore) Scan(_ context.Context, after string, limit int) ([]model.RawDocument, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	ids := make([]string, 0, len(s.b.docs))
	for id := range s.b.docs {
		if id > after {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	docs := make([]model.RawDocument, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, s.b.docs[id])
	}
	return docs, nil
}

func (s *memStore) Count(context.Context) (int64, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	return int64(len(s.b.docs)), nil
}

func (s *memStore) Close() error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.closed = true
	s.b.closes++
	return nil
}

func newTestRun(t *testing.T, stage string, b *memBacking) *Run {
	t.Helper()
	run, err := NewRun(context.Background(), stage, b.connector(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = run.Close() })
	return run
}

// newTestCheckpoints 返回基于 miniredis 的断点存储。
func newTestCheckpoints(t *testing.T) repository.CheckpointStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return repository.NewCheckpointStore(rdb, "starkeys")
}

// memCheckpoints 是不依赖 context 的断点存储，用于已取消 ctx 的场景。
type memCheckpoints map[string]string

func (m memCheckpoints) Get(_ context.Context, stage string) (string, error) { return m[stage], nil }
func (m memCheckpoints) Set(_ context.Context, stage, lastID string) error {
	m[stage] = lastID
	return nil
}
func (m memCheckpoints) Reset(_ context.Context, stage string) error {
	delete(m, stage)
	return nil
}

func newTestCategories(t *testing.T) repository.CategoryRepository {
	t.Helper()
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "category.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	repo, err := repository.NewCategoryRepository(db)
	require.NoError(t, err)
	return repo
}

func passage(sectionType, text string, infons ...string) model.BioCPassage {
	in := model.Infons{"section_type": sectionType}
	for i := 0; i+1 < len(infons); i += 2 {
		in[infons[i]] = infons[i+1]
	}
	return model.BioCPassage{Infons: in, Text: text}
}

func biocPayload(t *testing.T, id string, passages ...model.BioCPassage) string {
	t.Helper()
	body, err := json.Marshal([]model.BioCCollection{{
		Source:    "PMC",
		Documents: []model.BioCDocument{{ID: id, Passages: passages}},
	}})
	require.NoError(t, err)
	return string(body)
}

// fakeFetcher 按 ID 返回预置的 payload 或错误，并记录调用顺序。
type fakeFetcher struct {
	bodies map[string]string
	errs   map[string]error
	calls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, id string) ([]byte, error) {
	f.calls = append(f.calls, id)
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	body, ok := f.bodies[id]
	if !ok {
		return nil, errors.New("no such id")
	}
	return []byte(body), nil
}

type sinkCall struct {
	index string
	items []es.BulkItem
}

// fakeSink 记录每次 bulk 调用；fail 返回非 nil 时整批失败。
type fakeSink struct {
	calls []sinkCall
	fail  func(index string, call int) error
}

func (s *fakeSink) BulkIndex(_ context.Context, index string, items []es.BulkItem) (es.BulkResult, error) {
	if s.fail != nil {
		if err := s.fail(index, len(s.calls)); err != nil {
			return es.BulkResult{}, err
		}
	}
	s.calls = append(s.calls, sinkCall{index: index, items: items})
	return es.BulkResult{Succeeded: len(items)}, nil
}

func (s *fakeSink) itemsFor(index string) []es.BulkItem {
	var out []es.BulkItem
	for _, c := range s.calls {
		if c.index == index {
			out = append(out, c.items...)
		}
	}
	return out
}

// jsonString 把 payload 再编码成 JSON 字符串，模拟以字符串形式存储的文档。
func jsonString(s string) (string, error) {
	b, err := json.Marshal(s)
	return string(b), err
}
