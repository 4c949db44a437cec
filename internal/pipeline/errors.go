package pipeline

import (
	"errors"
	"fmt"
	"starkeys-go/pkg/bioc"
)

var (
	// ErrFetch 表示外部接口返回非 200 或网络故障，记录后跳过。
	ErrFetch = errors.New("fetch failed")
	// ErrMalformedPayload 表示 payload 无法解析或缺少 documents 结构，记录后跳过。
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrStorageWrite 表示文档库写入失败，记录、重连后跳过。
	ErrStorageWrite = errors.New("storage write failed")
	// ErrAnnotate 表示单篇论文的标注或入库失败，记录后跳过。
	ErrAnnotate = errors.New("annotate failed")
	// ErrBulkSink 表示整批写入搜索引擎失败，终止本次运行并返回给调用方。
	ErrBulkSink = errors.New("bulk sink write failed")
)

// failureReason 将错误映射为失败报告中的原因字段。
func failureReason(err error) string {
	var statusErr *bioc.StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("status_code_%d", statusErr.StatusCode)
	case errors.Is(err, ErrFetch):
		return "fetch_error"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, ErrStorageWrite):
		return "storage_write"
	case errors.Is(err, ErrAnnotate):
		return "annotate_error"
	default:
		return "unknown_error"
	}
}
