package pipeline

import (
	"errors"
	"fmt"

	"github.com/RecoveryAshes/wescraper/internal/models"
)

var (
	// ErrLayoutMismatch 页面结构与预期不符,通常意味着上游改版
	ErrLayoutMismatch = errors.New("页面结构不匹配")

	// ErrMetadataMissing 文章页找不到对应的清单元数据
	ErrMetadataMissing = fmt.Errorf("%w: 文章元数据缺失", ErrLayoutMismatch)

	// ErrUnknownStage 任务携带了未知的阶段标记
	ErrUnknownStage = errors.New("未知的流水线阶段")
)

// LayoutError 描述缺失的页面元素
type LayoutError struct {
	Stage   models.Stage
	URL     string
	Element string
	Cause   error
}

// Error 实现error接口
func (e *LayoutError) Error() string {
	msg := fmt.Sprintf("页面结构不匹配 [%s] %s: 缺少 %s", e.Stage, e.URL, e.Element)
	if e.Cause != nil {
		msg += fmt.Sprintf(" (%v)", e.Cause)
	}
	return msg
}

// Unwrap 支持errors.Is(err, ErrLayoutMismatch)
func (e *LayoutError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrLayoutMismatch, e.Cause}
	}
	return []error{ErrLayoutMismatch}
}

func layoutError(stage models.Stage, url, element string, cause error) error {
	return &LayoutError{Stage: stage, URL: url, Element: element, Cause: cause}
}
