package models

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// HeaderConfig headers.yaml配置文件的结构
type HeaderConfig struct {
	// Headers 所有阶段共用的请求头部
	Headers map[string]string `mapstructure:"headers" yaml:"headers"`

	// Stages 按流水线阶段覆盖的头部 (键为 search/account/article)
	// 搜狗和公众号平台对Referer的检查不同,需要分别配置
	Stages map[string]map[string]string `mapstructure:"stages" yaml:"stages"`
}

// Validate 检查阶段名称是否合法
func (c *HeaderConfig) Validate() error {
	for name := range c.Stages {
		if !Stage(name).Valid() {
			return fmt.Errorf("未知的阶段 %q (可选: %s, %s, %s)", name, StageSearch, StageAccount, StageArticle)
		}
	}
	return nil
}

// CliHeaders 命令行传递的头部列表
// 每个字符串格式为 "Name: Value"
type CliHeaders []string

// Parse 将字符串列表解析为 http.Header
func (ch CliHeaders) Parse() (http.Header, error) {
	result := make(http.Header)
	for i, s := range ch {
		name, value, err := parseHeaderString(s)
		if err != nil {
			return nil, fmt.Errorf("参数 --header 第%d项格式错误: %w", i+1, err)
		}
		result.Set(name, value)
	}
	return result, nil
}

// parseHeaderString 解析单个头部字符串 "Name: Value"
func parseHeaderString(s string) (name, value string, err error) {
	name, value, found := strings.Cut(s, ":")
	if !found {
		return "", "", fmt.Errorf("格式错误: 缺少冒号分隔符,应为 'Name: Value'")
	}

	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if name == "" {
		return "", "", fmt.Errorf("头部名称不能为空")
	}
	// "Referer http://x" 会在URL的冒号处被切开
	if !httpguts.ValidHeaderFieldName(name) {
		return "", "", fmt.Errorf("头部名称 %q 包含非法字符,应为 'Name: Value'", name)
	}

	return name, value, nil
}

// HeaderProvider 按阶段提供请求头部
type HeaderProvider interface {
	// GetHeaders 返回某个阶段的请求头部
	// 合并优先级: 默认 < 配置文件 < 配置文件中的阶段覆盖 < 命令行
	// Cookie不在其中,由身份池单独注入
	GetHeaders(stage Stage) (http.Header, error)
}

// ValidationError 头部验证错误
type ValidationError struct {
	// Field 出错的字段 ("name" 或 "value")
	Field string

	HeaderName string
	Reason     string

	// Suggestion 修复建议 (可选)
	Suggestion string
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("头部验证失败 [%s]: %s", e.HeaderName, e.Reason)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (建议: %s)", e.Suggestion)
	}
	return msg
}

// ConfigError 配置文件错误
type ConfigError struct {
	FilePath string

	// Cause 底层错误 (如viper.ConfigParseError)
	Cause error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
