package utils

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/RecoveryAshes/wescraper/internal/models"
	"golang.org/x/net/http/httpguts"
)

// MaxHeaderValueLength HTTP头部值最大长度 (8KB)
const MaxHeaderValueLength = 8192

const (
	ownerTransport = "HTTP客户端"
	ownerPool      = "身份池"
)

// managedHeaders 不允许自定义的头部 -> 管理者
// Cookie由身份池按请求注入,其余由net/http根据连接状态生成
var managedHeaders = map[string]string{
	"Host":              ownerTransport,
	"Content-Length":    ownerTransport,
	"Transfer-Encoding": ownerTransport,
	"Connection":        ownerTransport,
	"Cookie":            ownerPool,
}

// SupportedEncodings 抓取器能解压的Content-Encoding
var SupportedEncodings = []string{"gzip", "deflate", "br", "identity"}

// HeaderValidator 验证HTTP头部
type HeaderValidator struct {
	maxValueLength int
}

// NewHeaderValidator 创建验证器
func NewHeaderValidator() *HeaderValidator {
	return &HeaderValidator{maxValueLength: MaxHeaderValueLength}
}

// ValidateName 名称必须是RFC 7230的token
func (hv *HeaderValidator) ValidateName(name string) error {
	if name == "" {
		return &models.ValidationError{Field: "name", HeaderName: name, Reason: "头部名称不能为空"}
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "头部名称包含非法字符",
			Suggestion: "使用字母、数字和连字符 (如 'User-Agent', 'X-Custom-Header')",
		}
	}
	return nil
}

// ValidateValue 值只能是可打印ASCII
func (hv *HeaderValidator) ValidateValue(name, value string) error {
	if len(value) > hv.maxValueLength {
		return &models.ValidationError{
			Field:      "value",
			HeaderName: name,
			Reason:     fmt.Sprintf("头部值过长: %d 字节 (最大 %d)", len(value), hv.maxValueLength),
			Suggestion: fmt.Sprintf("将值缩短至 %d 字节以内", hv.maxValueLength),
		}
	}
	// httpguts允许obs-text (0x80以上),搜狗会把这类字节当作乱码
	if !httpguts.ValidHeaderFieldValue(value) || !isASCII(value) {
		return &models.ValidationError{
			Field:      "value",
			HeaderName: name,
			Reason:     "头部值包含非法字符 (仅允许可打印ASCII字符)",
			Suggestion: "移除控制字符和非ASCII字符",
		}
	}
	return nil
}

// ValidateHeader 验证头部名称+值
func (hv *HeaderValidator) ValidateHeader(name, value string) error {
	if owner, ok := ManagedBy(name); ok {
		verr := &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     fmt.Sprintf("此头部由%s管理,不允许自定义", owner),
			Suggestion: fmt.Sprintf("移除 '%s' 头部配置", name),
		}
		if owner == ownerPool {
			verr.Suggestion = "通过 pool.default_snuid / pool.default_suid 配置初始身份"
		}
		return verr
	}
	if err := hv.ValidateName(name); err != nil {
		return err
	}
	if err := hv.ValidateValue(name, value); err != nil {
		return err
	}
	if http.CanonicalHeaderKey(name) == "Accept-Encoding" {
		return validateAcceptEncoding(value)
	}
	return nil
}

// ManagedBy 返回头部的管理者,可自定义的头部返回false
func ManagedBy(name string) (string, bool) {
	owner, ok := managedHeaders[http.CanonicalHeaderKey(name)]
	return owner, ok
}

// validateAcceptEncoding 声明了无法解压的编码时,响应会被当作非HTML丢弃
func validateAcceptEncoding(value string) error {
	for _, part := range strings.Split(value, ",") {
		coding, _, _ := strings.Cut(part, ";")
		coding = strings.ToLower(strings.TrimSpace(coding))
		if coding == "" {
			continue
		}
		supported := false
		for _, s := range SupportedEncodings {
			if coding == s {
				supported = true
				break
			}
		}
		if !supported {
			return &models.ValidationError{
				Field:      "value",
				HeaderName: "Accept-Encoding",
				Reason:     fmt.Sprintf("不支持解压的编码 %q", coding),
				Suggestion: "可选: " + strings.Join(SupportedEncodings, ", "),
			}
		}
	}
	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// Validate 验证http.Header中的所有头部,返回第一个错误
func (hv *HeaderValidator) Validate(headers http.Header) error {
	for name, values := range headers {
		for _, value := range values {
			if err := hv.ValidateHeader(name, value); err != nil {
				return err
			}
		}
	}
	return nil
}
