package utils

import (
	"net/http"
	"strings"

	"github.com/RecoveryAshes/wescraper/internal/models"
)

// 携带身份令牌的头部,按 name=value 逐项脱敏
var cookieHeaders = map[string]bool{
	"Cookie":     true,
	"Set-Cookie": true,
}

// 携带凭据的头部,保留认证方案 (如代理的 "Basic ***")
var credentialHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
}

// 名称中包含这些关键字的自定义头部也视为敏感
var sensitiveKeywords = []string{"token", "secret", "key", "password"}

// HeaderRedactor 头部脱敏器
// 身份令牌和凭据在日志中只保留能辨认身份的前缀
type HeaderRedactor struct{}

// NewHeaderRedactor 创建头部脱敏器
func NewHeaderRedactor() *HeaderRedactor {
	return &HeaderRedactor{}
}

// IsSensitiveHeader 检查头部是否为敏感头部
func (hr *HeaderRedactor) IsSensitiveHeader(name string) bool {
	name = http.CanonicalHeaderKey(name)
	if cookieHeaders[name] || credentialHeaders[name] {
		return true
	}
	lower := strings.ToLower(name)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// RedactHeaderValue 脱敏单个头部值,非敏感头部原样返回
func (hr *HeaderRedactor) RedactHeaderValue(name, value string) string {
	if !hr.IsSensitiveHeader(name) {
		return value
	}
	if strings.TrimSpace(value) == "" {
		return "***"
	}

	name = http.CanonicalHeaderKey(name)
	switch {
	case name == "Cookie":
		return redactCookiePairs(value, -1)
	case name == "Set-Cookie":
		// 只有第一项是Cookie, path/domain等属性保留
		return redactCookiePairs(value, 1)
	case credentialHeaders[name]:
		if scheme, _, ok := strings.Cut(value, " "); ok {
			return scheme + " ***"
		}
		return "***"
	default:
		return models.MaskToken(value)
	}
}

// redactCookiePairs 脱敏前limit项的值, limit<0表示全部
func redactCookiePairs(value string, limit int) string {
	parts := strings.Split(value, ";")
	for i, part := range parts {
		if limit >= 0 && i >= limit {
			break
		}
		name, v, ok := strings.Cut(part, "=")
		if !ok {
			parts[i] = " ***"
			continue
		}
		parts[i] = name + "=" + models.MaskToken(strings.TrimSpace(v))
	}
	return strings.Join(parts, ";")
}

// Redact 脱敏整个http.Header,返回安全的字符串map (用于日志)
// 每个头部只取第一个值
func (hr *HeaderRedactor) Redact(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		result[name] = hr.RedactHeaderValue(name, values[0])
	}
	return result
}

// RedactAll 脱敏同名头部的所有值,用于记录响应中的多条Set-Cookie
func (hr *HeaderRedactor) RedactAll(name string, values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = hr.RedactHeaderValue(name, v)
	}
	return out
}
