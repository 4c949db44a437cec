package pipeline

import (
	"context"
	"fmt"
	"sort"
	"starkeys-go/internal/model"
	"starkeys-go/pkg/ner"
	"strings"
)

const (
	DefaultTopK           = 10
	DefaultMaxFieldLength = 100
)

// Aggregator 对一篇论文的全部段落运行标注器，合并区间并统计出现次数最多的实体。
type Aggregator struct {
	taggers   []ner.Tagger
	topK      int
	maxLength int
}

// NewAggregator 创建一个新的 Aggregator。topK 或 maxLength 非正时使用默认值。
func NewAggregator(taggers []ner.Tagger, topK, maxLength int) *Aggregator {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxFieldLength
	}
	return &Aggregator{taggers: taggers, topK: topK, maxLength: maxLength}
}

type entityKey struct {
	text  string
	label string
}

// Aggregate 返回按出现次数降序排列的前 topK 条实体记录，次数相同时保持首次出现的顺序。
// 任一标注器出错时整篇失败，不返回部分结果。
func (a *Aggregator) Aggregate(ctx context.Context, paperID string, passages []model.BioCPassage) ([]model.EntityRecord, error) {
	counts := make(map[entityKey]int)
	var order []entityKey

	for i, passage := range passages {
		if passage.Text == "" {
			continue
		}
		var spans []ner.Span
		for _, tagger := range a.taggers {
			tagged, err := tagger.Tag(ctx, passage.Text)
			if err != nil {
				return nil, fmt.Errorf("tagger %s on passage %d: %w", tagger.Name(), i, err)
			}
			spans = append(spans, tagged...)
		}

		for _, ent := range MergeSpans(passage.Text, spans) {
			key := entityKey{
				text:  truncateRunes(strings.ToLower(ent.Text), a.maxLength),
				label: truncateRunes(ent.Label, a.maxLength),
			}
			if _, seen := counts[key]; !seen {
				order = append(order, key)
			}
			counts[key]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > a.topK {
		order = order[:a.topK]
	}

	id := truncateRunes(paperID, a.maxLength)
	records := make([]model.EntityRecord, 0, len(order))
	for _, key := range order {
		records = append(records, model.EntityRecord{
			PaperID:    id,
			EntityText: key.text,
			EntityType: key.label,
			Count:      counts[key],
		})
	}
	return records, nil
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
