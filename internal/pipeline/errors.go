package pipeline

import (
	"errors"
	"fmt"
)

// The two run failures a user ever sees. Every other failure degrades into
// partial results or a fallback text.
var (
	ErrNoURLs      = errors.New("无法获取相关信息，请检查搜索关键词或网络连接。")
	ErrNoDocuments = errors.New("爬取网页内容失败，请检查网络连接或URL有效性。")
)

// AnalysisError represents a failed analysis run
type AnalysisError struct {
	RunID   string
	Step    string
	Message string
	Cause   error
}

func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("analysis error (%s): %s: %v", e.Step, e.Message, e.Cause)
	}
	return fmt.Sprintf("analysis error (%s): %s", e.Step, e.Message)
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}
