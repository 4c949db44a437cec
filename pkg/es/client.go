// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"starkeys-go/internal/config"
	"starkeys-go/pkg/log"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
)

// NewClient 创建 Elasticsearch 客户端。
func NewClient(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		APIKey:    esCfg.APIKey,
		Transport: &http.Transport{
			TLSClientConfig:       &tls.Config{InsecureSkipVerify: true},
			ResponseHeaderTimeout: esCfg.Timeout,
		},
	}
	return elasticsearch.NewClient(cfg)
}

// PaperMapping 是 papers 索引的映射，paperId 与 doi 作为精确匹配字段。
const PaperMapping = `{
	"mappings": {
		"properties": {
			"paperId":      { "type": "keyword" },
			"title":        { "type": "text" },
			"doi":          { "type": "keyword" },
			"abstract":     { "type": "text" },
			"introduction": { "type": "text" },
			"method":       { "type": "text" },
			"result":       { "type": "text" },
			"discussion":   { "type": "text" },
			"conclusion":   { "type": "text" },
			"fields":       { "type": "keyword" }
		}
	}
}`

// AuthorMapping 是 authors 索引的映射。
const AuthorMapping = `{
	"mappings": {
		"properties": {
			"name":    { "type": "text", "fields": { "raw": { "type": "keyword" } } },
			"paperId": { "type": "keyword" }
		}
	}
}`

// EnsureIndex 检查索引是否存在，如果不存在则按 mapping 创建它
func EnsureIndex(client *elasticsearch.Client, indexName, mapping string) error {
	res, err := client.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	// 如果 res.StatusCode 是 200，说明索引已存在
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	// 如果 res.StatusCode 是 404，说明索引不存在，需要创建
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
	}

	res, err = client.Indices.Create(
		indexName,
		client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}
