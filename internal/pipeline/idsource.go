package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
)

var pmcIDPattern = regexp.MustCompile(`PMC\d+`)

// ReadIDs 从 CSV 的 column 列中提取 PMC ID，去重并保持首次出现的顺序。
func ReadIDs(r io.Reader, column string) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx := -1
	for i, name := range header {
		if name == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("csv has no column %q", column)
	}

	seen := make(map[string]struct{})
	var ids []string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if idx >= len(row) {
			continue
		}
		id := pmcIDPattern.FindString(row[idx])
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// DedupeIDs 去重并保持顺序，用于命令行直接传入的 ID。
func DedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
