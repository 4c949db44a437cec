package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"starkeys-go/internal/config"
	"starkeys-go/pkg/log"
)

// HTTPTagger 调用远端 NER 模型服务（例如以 HTTP 暴露的 scispaCy 模型）。
type HTTPTagger struct {
	name     string
	endpoint string
	client   *http.Client
}

// NewHTTPTagger 创建一个新的 HTTPTagger 实例。
func NewHTTPTagger(cfg config.TaggerConfig) *HTTPTagger {
	return &HTTPTagger{
		name:     cfg.Name,
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type tagRequest struct {
	Text string `json:"text"`
}

type tagResponse struct {
	Ents []Span `json:"ents"`
}

func (t *HTTPTagger) Name() string {
	return t.name
}

// Tag 将文本发送给模型服务并返回实体区间，每个区间都标记来源标注器。
func (t *HTTPTagger) Tag(ctx context.Context, text string) ([]Span, error) {
	reqBytes, err := json.Marshal(tagRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tag request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create tag request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		log.Errorf("[NER:%s] 调用标注服务失败, error: %v", t.name, err)
		return nil, fmt.Errorf("failed to call tagger %s: %w", t.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tagger %s returned non-200 status: %s", t.name, resp.Status)
	}

	var tagResp tagResponse
	if err := json.NewDecoder(resp.Body).Decode(&tagResp); err != nil {
		return nil, fmt.Errorf("failed to decode tagger %s response: %w", t.name, err)
	}

	for i := range tagResp.Ents {
		tagResp.Ents[i].Source = t.name
	}
	return tagResp.Ents, nil
}
