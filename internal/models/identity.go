package models

import (
	"fmt"
	"strings"
)

const (
	// TokenSNUID 搜狗会话轮换令牌A
	TokenSNUID = "SNUID"

	// TokenSUID 搜狗会话轮换令牌B
	TokenSUID = "SUID"
)

// Identity 一组会话轮换令牌
// 值类型,创建后不可修改;被服务端标记封禁后不得再使用
type Identity struct {
	SNUID string `json:"snuid"`
	SUID  string `json:"suid"`
}

// NewIdentity 由两个令牌创建身份
func NewIdentity(snuid, suid string) Identity {
	return Identity{SNUID: snuid, SUID: suid}
}

// IsZero 是否为空身份(匿名请求,不携带Cookie)
func (id Identity) IsZero() bool {
	return id.SNUID == "" && id.SUID == ""
}

// CookieHeader 生成请求使用的Cookie头部值
// 空身份返回空字符串
func (id Identity) CookieHeader() string {
	parts := make([]string, 0, 2)
	if id.SNUID != "" {
		parts = append(parts, TokenSNUID+"="+id.SNUID)
	}
	if id.SUID != "" {
		parts = append(parts, TokenSUID+"="+id.SUID)
	}
	return strings.Join(parts, "; ")
}

// String 日志友好的表示,令牌只保留前4位
func (id Identity) String() string {
	if id.IsZero() {
		return "Identity(anonymous)"
	}
	return fmt.Sprintf("Identity(SNUID=%s, SUID=%s)", MaskToken(id.SNUID), MaskToken(id.SUID))
}

// MaskToken 只保留令牌前4位,用于日志
func MaskToken(token string) string {
	if len(token) <= 4 {
		return "***"
	}
	return token[:4] + "***"
}

// ParseSessionHeaders 从原始Set-Cookie头部列表中提取两个轮换令牌
// 两个令牌都存在时ok为true;同名头部出现多次时以最后一次为准
func ParseSessionHeaders(headers []string) (id Identity, ok bool) {
	var snuid, suid string
	for _, header := range headers {
		name, rest, found := strings.Cut(header, "=")
		if !found {
			continue
		}
		value, _, _ := strings.Cut(rest, ";")
		switch strings.TrimSpace(name) {
		case TokenSNUID:
			snuid = strings.TrimSpace(value)
		case TokenSUID:
			suid = strings.TrimSpace(value)
		}
	}
	if snuid == "" || suid == "" {
		return Identity{}, false
	}
	return NewIdentity(snuid, suid), true
}
