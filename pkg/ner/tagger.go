// Package ner 定义了命名实体标注器的接口及其实现。
// 标注器被视为黑盒：输入一段文本，输出带标签的字符区间。
package ner

import (
	"context"
	"fmt"
	"starkeys-go/internal/config"
)

// Span 是文本中的半开区间 [Start, End)，以 rune 计数。
type Span struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Label  string `json:"label"`
	Source string `json:"-"`
}

// Len 返回区间长度。
func (s Span) Len() int {
	return s.End - s.Start
}

// Tagger 定义了标注器接口。
type Tagger interface {
	Name() string
	Tag(ctx context.Context, text string) ([]Span, error)
}

// NewTaggers 根据配置创建标注器列表。
func NewTaggers(cfgs []config.TaggerConfig) ([]Tagger, error) {
	taggers := make([]Tagger, 0, len(cfgs))
	for _, c := range cfgs {
		switch c.Type {
		case "", "http":
			if c.Endpoint == "" {
				return nil, fmt.Errorf("tagger %q: endpoint is required", c.Name)
			}
			taggers = append(taggers, NewHTTPTagger(c))
		case "dictionary":
			taggers = append(taggers, NewDictionaryTagger(c.Name, c.Terms))
		default:
			return nil, fmt.Errorf("tagger %q: unknown type %q", c.Name, c.Type)
		}
	}
	if len(taggers) == 0 {
		return nil, fmt.Errorf("no taggers configured")
	}
	return taggers, nil
}
