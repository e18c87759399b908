package models

import (
	"fmt"
	"time"
)

// DateLayout 输出记录中的时间格式 (YYYY-MM-DD HH:MM:SS)
const DateLayout = "2006-01-02 15:04:05"

// NotFound 页面元素缺失时使用的占位值
const NotFound = "Not Found"

// Record 输出流中的一条记录
type Record interface {
	// IsError 是否为错误记录
	IsError() bool
}

// ArticleRecord 完整的文章记录,所有字段均为必填
type ArticleRecord struct {
	Title   string `json:"title"`
	Account string `json:"account"`
	URL     string `json:"url"`
	Date    string `json:"date"`
	Cover   string `json:"cover"`
	Digest  string `json:"digest"`
	Content string `json:"content"`
}

// IsError 实现Record接口
func (r *ArticleRecord) IsError() bool { return false }

// Validate 检查必填字段
// 标题和公众号允许为NotFound占位值,其余字段不能为空
func (r *ArticleRecord) Validate() error {
	switch {
	case r.URL == "":
		return fmt.Errorf("文章记录缺少url")
	case r.Date == "":
		return fmt.Errorf("文章记录缺少date: %s", r.URL)
	case r.Title == "":
		return fmt.Errorf("文章记录缺少title: %s", r.URL)
	case r.Account == "":
		return fmt.Errorf("文章记录缺少account: %s", r.URL)
	}
	return nil
}

// ErrorRecord 写入输出流的错误记录
type ErrorRecord struct {
	Error string `json:"error"`
	Date  string `json:"date"`
}

// IsError 实现Record接口
func (r *ErrorRecord) IsError() bool { return true }

// NewErrorRecord 以当前时间创建错误记录
func NewErrorRecord(format string, args ...interface{}) *ErrorRecord {
	return &ErrorRecord{
		Error: fmt.Sprintf(format, args...),
		Date:  time.Now().Format(DateLayout),
	}
}

// ArticleMeta 公众号主页清单中解析出的文章元数据
// 以解码后的文章URL为键暂存,文章页返回后与页面内容合并
type ArticleMeta struct {
	Cover    string `json:"cover"`
	Date     string `json:"date"`
	Digest   string `json:"digest"`
	Nickname string `json:"nickname"`
}
