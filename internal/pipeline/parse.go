package pipeline

import (
	"sort"
	"starkeys-go/internal/model"
	"strings"
)

// sectionFields 将 BioC 的 section_type 映射到 PaperDocument 的字段名。
var sectionFields = map[string]string{
	"TITLE":    "title",
	"ABSTRACT": "abstract",
	"INTRO":    "introduction",
	"METHODS":  "method",
	"RESULTS":  "result",
	"DISCUSS":  "discussion",
	"CONCL":    "conclusion",
}

// ParseEntry 将一篇 BioC 文档投影为 PaperDocument（Fields 由调用方填充）。
//
// 除 TITLE 和 ABSTRACT 外，每种章节类型第一次出现的段落被丢弃（即使其文本为空），
// 视作章节标题之类的结构性段落；其余非空段落按顺序以换行拼接。
// TITLE 段落提供标题、DOI 以及作者。
func ParseEntry(doc *model.BioCDocument, paperID string) model.PaperDocument {
	texts := make(map[string][]string)
	seen := make(map[string]int)
	paper := model.PaperDocument{PaperID: paperID}

	for _, passage := range doc.Passages {
		sectionType := passage.SectionType()
		text := strings.TrimSpace(passage.Text)
		field, mapped := sectionFields[sectionType]

		if mapped && sectionType != "TITLE" && sectionType != "ABSTRACT" {
			seen[sectionType]++
			if seen[sectionType] == 1 {
				continue
			}
		}
		if mapped && text != "" {
			texts[field] = append(texts[field], text)
		}

		if sectionType == "TITLE" {
			paper.DOI = passage.Infons.Get("article-id_doi")
			paper.Authors = append(paper.Authors, parseAuthors(passage.Infons)...)
		}
	}

	paper.Title = strings.Join(texts["title"], "\n")
	paper.Abstract = strings.Join(texts["abstract"], "\n")
	paper.Introduction = strings.Join(texts["introduction"], "\n")
	paper.Method = strings.Join(texts["method"], "\n")
	paper.Result = strings.Join(texts["result"], "\n")
	paper.Discussion = strings.Join(texts["discussion"], "\n")
	paper.Conclusion = strings.Join(texts["conclusion"], "\n")
	return paper
}

// parseAuthors 从 name 前缀的 infon 中解析作者，
// 值形如 "surname:Smith;given-names:Jane"，结果为 "Smith Jane"。
func parseAuthors(infons model.Infons) []string {
	var keys []string
	for k := range infons {
		if strings.HasPrefix(k, "name") {
			keys = append(keys, k)
		}
	}
	// name_0, name_1, ..., name_10：先比长度再比字典序，保持原始编号顺序
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})

	var authors []string
	for _, k := range keys {
		if name := ParseAuthorName(infons.Get(k)); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

// ParseAuthorName 解析单个作者字段，surname 与 given-names 都为空时返回空串。
func ParseAuthorName(value string) string {
	var surname, givenNames string
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "surname"):
			surname = strings.TrimSpace(strings.Trim(strings.TrimPrefix(part, "surname"), ":"))
		case strings.HasPrefix(part, "given-names"):
			givenNames = strings.TrimSpace(strings.Trim(strings.TrimPrefix(part, "given-names"), ":"))
		}
	}
	return strings.TrimSpace(surname + " " + givenNames)
}
