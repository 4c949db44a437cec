package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"starkeys-go/internal/model"
)

// WriteFailureReport 将失败列表写成 CSV（表头 pmc_id,reason），供人工重跑。
// 没有失败时也会写出只有表头的文件，便于确认本次运行已结束。
func WriteFailureReport(path string, failures []model.Failure) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create failure report: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"pmc_id", "reason"}); err != nil {
		f.Close()
		return fmt.Errorf("write failure report header: %w", err)
	}
	for _, failure := range failures {
		if err := w.Write([]string{failure.ID, failure.Reason}); err != nil {
			f.Close()
			return fmt.Errorf("write failure report row %s: %w", failure.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write failure report: %w", err)
	}
	return f.Close()
}
