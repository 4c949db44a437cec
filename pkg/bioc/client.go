// Package bioc 提供了一个从 PMC BioC RESTful 接口拉取论文全文的客户端。
package bioc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"starkeys-go/internal/config"
	"strings"
)

// StatusError 表示接口返回了非 200 状态码。
type StatusError struct {
	ID         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bioc api returned status %d for %s", e.StatusCode, e.ID)
}

// Client 是 BioC 接口的客户端。
type Client struct {
	baseURL   string
	encoding  string
	userAgent string
	http      *http.Client
}

// NewClient 创建一个新的 BioC 客户端实例。
// Timeout 为 0 时不设超时，长时间批处理宁可等待也不主动失败。
func NewClient(cfg config.BioCConfig) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		encoding:  cfg.Encoding,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout},
	}
}

// URL 返回指定 ID 的请求地址。
func (c *Client) URL(id string) string {
	u := c.baseURL + "/" + url.PathEscape(id)
	if c.encoding != "" {
		u += "/" + c.encoding
	}
	return u
}

// Fetch 拉取指定 ID 的 BioC JSON 原文，不做解析。
// 非 200 状态返回 *StatusError，网络故障返回底层错误。
func (c *Client) Fetch(ctx context.Context, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("调用 BioC 接口失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{ID: id, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取 BioC 响应失败: %w", err)
	}
	return body, nil
}
