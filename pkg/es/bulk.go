package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"starkeys-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// BulkItem 是一次批量写入中的一条文档。ID 为空时由 Elasticsearch 分配。
type BulkItem struct {
	ID  string
	Doc any
}

// ItemError 是批量响应中单条失败的记录。
type ItemError struct {
	ID     string
	Status int
	Type   string
	Reason string
}

// BulkResult 汇总一次 bulk 调用的结果。
type BulkResult struct {
	Succeeded int
	Failed    []ItemError
}

// Sink 定义了批量写入搜索引擎的接口。
type Sink interface {
	// BulkIndex 以一次 _bulk 请求写入全部 items。
	// 单条失败记录在 BulkResult.Failed 中；请求本身失败时返回 error。
	BulkIndex(ctx context.Context, index string, items []BulkItem) (BulkResult, error)
}

type esSink struct {
	client *elasticsearch.Client
}

// NewSink 创建基于 go-elasticsearch 的 Sink。
func NewSink(client *elasticsearch.Client) Sink {
	return &esSink{client: client}
}

type bulkAction struct {
	Index bulkMeta `json:"index"`
}

type bulkMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id,omitempty"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// EncodeBulkBody 生成 NDJSON 格式的 bulk 请求体。
func EncodeBulkBody(index string, items []BulkItem) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		if err := enc.Encode(bulkAction{Index: bulkMeta{Index: index, ID: item.ID}}); err != nil {
			return nil, err
		}
		if err := enc.Encode(item.Doc); err != nil {
			return nil, fmt.Errorf("encode document %q: %w", item.ID, err)
		}
	}
	return buf.Bytes(), nil
}

func (s *esSink) BulkIndex(ctx context.Context, index string, items []BulkItem) (BulkResult, error) {
	if len(items) == 0 {
		return BulkResult{}, nil
	}
	body, err := EncodeBulkBody(index, items)
	if err != nil {
		return BulkResult{}, err
	}

	req := esapi.BulkRequest{
		Index: index,
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return BulkResult{}, fmt.Errorf("bulk request to %s failed: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return BulkResult{}, fmt.Errorf("bulk request to %s returned %s: %s", index, res.Status(), string(raw))
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return BulkResult{}, fmt.Errorf("decode bulk response: %w", err)
	}

	var result BulkResult
	for _, entry := range parsed.Items {
		for _, item := range entry {
			if item.Error == nil && item.Status < 300 {
				result.Succeeded++
				continue
			}
			ie := ItemError{ID: item.ID, Status: item.Status}
			if item.Error != nil {
				ie.Type = item.Error.Type
				ie.Reason = item.Error.Reason
			}
			result.Failed = append(result.Failed, ie)
		}
	}
	if len(result.Failed) > 0 {
		log.Warnw("[ES] bulk 写入存在单条失败", "index", index, "failed", len(result.Failed), "succeeded", result.Succeeded)
	}
	return result, nil
}
