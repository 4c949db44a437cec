// Package model 包含了各阶段共享的数据模型定义。
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BioCCollection 对应 BioC JSON 顶层数组中的一个元素。
type BioCCollection struct {
	Source    string         `json:"source,omitempty"`
	Date      string         `json:"date,omitempty"`
	Key       string         `json:"key,omitempty"`
	Documents []BioCDocument `json:"documents"`
}

// BioCDocument 是一篇论文，包含按顺序排列的段落。
type BioCDocument struct {
	ID       string        `json:"id"`
	Infons   Infons        `json:"infons,omitempty"`
	Passages []BioCPassage `json:"passages"`
}

// BioCPassage 是带 section_type 标签的有序文本单元。
type BioCPassage struct {
	Infons Infons `json:"infons"`
	Offset int    `json:"offset"`
	Text   string `json:"text"`
}

// Infons 是段落的元数据。BioC 规定值为字符串，但部分生产方会输出数字，读取时统一转成字符串。
type Infons map[string]any

// Get 返回 key 对应的字符串值，不存在时返回空串。
func (in Infons) Get(key string) string {
	v, ok := in[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// SectionType 返回大写后的 section_type。
func (p BioCPassage) SectionType() string {
	return strings.ToUpper(p.Infons.Get("section_type"))
}

// DecodeBioC 解析存储的 payload 并返回第一个 collection 的第一个 document。
// payload 可能是 JSON 数组本身，也可能是被再次编码成 JSON 字符串的数组。
func DecodeBioC(payload []byte) (*BioCDocument, []BioCCollection, error) {
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(trimmed), &inner); err != nil {
			return nil, nil, fmt.Errorf("decode encoded payload: %w", err)
		}
		trimmed = inner
	}

	var collections []BioCCollection
	if err := json.Unmarshal([]byte(trimmed), &collections); err != nil {
		return nil, nil, fmt.Errorf("decode bioc json: %w", err)
	}
	// 没有 passages 的文档照常返回：入库保留原文，标注和发布阶段只是得不到内容
	if len(collections) == 0 || len(collections[0].Documents) == 0 {
		return nil, nil, fmt.Errorf("bioc json has no documents")
	}
	return &collections[0].Documents[0], collections, nil
}
