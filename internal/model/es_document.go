package model

// PaperDocument 是写入 papers 索引的论文投影，以 PaperID 作为文档 ID。
// 每次 publish 都会重新生成，搜索引擎不是系统记录。
type PaperDocument struct {
	PaperID      string   `json:"paperId"`
	Title        string   `json:"title"`
	DOI          string   `json:"doi"`
	Abstract     string   `json:"abstract"`
	Introduction string   `json:"introduction"`
	Method       string   `json:"method"`
	Result       string   `json:"result"`
	Discussion   string   `json:"discussion"`
	Conclusion   string   `json:"conclusion"`
	Fields       []string `json:"fields"`
	// Authors 只在解析阶段使用，写入索引前拆分为 AuthorRecord
	Authors []string `json:"-"`
}

// AuthorRecord 是写入 authors 索引的作者记录，不带文档 ID，跨论文不去重。
type AuthorRecord struct {
	Name    string `json:"name"`
	PaperID string `json:"paperId"`
}
