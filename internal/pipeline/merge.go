package pipeline

import (
	"sort"
	"starkeys-go/pkg/ner"
)

// MergedEntity 是合并后的一个实体，区间之间互不重叠。
type MergedEntity struct {
	Text  string
	Label string
	Start int
	End   int
}

// MergeSpans 合并多个标注器在同一段文本上给出的区间。
//
// 先按起点升序、长度降序排序，再从左到右扫描：新区间与上一个保留区间重叠
// （new.Start < last.End）时保留较长者，等长时保留已保留的那个；不重叠则追加。
// 这是贪心的最长区间选择，不追求实体数量最多，倾向于更少、更长的实体。
// 越界或空区间在排序前丢弃。输出按起点有序且两两不重叠。
func MergeSpans(text string, spans []ner.Span) []MergedEntity {
	runes := []rune(text)

	valid := make([]ner.Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 || s.End > len(runes) || s.End <= s.Start {
			continue
		}
		valid = append(valid, s)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].Len() > valid[j].Len()
	})

	merged := make([]ner.Span, 0, len(valid))
	for _, s := range valid {
		if len(merged) == 0 {
			merged = append(merged, s)
			continue
		}
		last := merged[len(merged)-1]
		if s.Start < last.End {
			if s.Len() > last.Len() {
				merged[len(merged)-1] = s
			}
			continue
		}
		merged = append(merged, s)
	}

	out := make([]MergedEntity, 0, len(merged))
	for _, s := range merged {
		out = append(out, MergedEntity{
			Text:  string(runes[s.Start:s.End]),
			Label: s.Label,
			Start: s.Start,
			End:   s.End,
		})
	}
	return out
}
