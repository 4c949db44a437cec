package ner

import (
	"context"
	"sort"
	"unicode"
)

// DictionaryTagger 按词表做大小写不敏感的整词匹配，用于离线运行或没有模型服务的环境。
type DictionaryTagger struct {
	name  string
	terms []dictTerm
}

type dictTerm struct {
	runes []rune
	label string
}

// NewDictionaryTagger 创建词表标注器，terms 的键为词条，值为实体类型。
func NewDictionaryTagger(name string, terms map[string]string) *DictionaryTagger {
	dt := &DictionaryTagger{name: name}
	for term, label := range terms {
		if term == "" {
			continue
		}
		dt.terms = append(dt.terms, dictTerm{runes: lowerRunes(term), label: label})
	}
	// map 遍历无序，排序后输出才稳定
	sort.Slice(dt.terms, func(i, j int) bool {
		return string(dt.terms[i].runes) < string(dt.terms[j].runes)
	})
	return dt
}

func (d *DictionaryTagger) Name() string {
	return d.name
}

// Tag 返回所有词条在文本中的出现位置，区间之间可能重叠。
func (d *DictionaryTagger) Tag(ctx context.Context, text string) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lower := lowerRunes(text)
	var spans []Span
	for _, term := range d.terms {
		n := len(term.runes)
		for i := 0; i+n <= len(lower); i++ {
			if !runesEqual(lower[i:i+n], term.runes) {
				continue
			}
			if !isBoundary(lower, i-1) || !isBoundary(lower, i+n) {
				continue
			}
			spans = append(spans, Span{Start: i, End: i + n, Label: term.label, Source: d.name})
		}
	}
	return spans, nil
}

// lowerRunes 逐个 rune 转小写，保证偏移量与原文一致。
func lowerRunes(s string) []rune {
	runes := []rune(s)
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return runes
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isBoundary(text []rune, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	r := text[i]
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
