package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/RecoveryAshes/wescraper/internal/models"
	"golang.org/x/net/html"
)

// trackingPrefixLen content_url开头固定的4个字符 (`\/s?`)
const trackingPrefixLen = 4

// UnescapeTwice 清单中的字段经过两次HTML实体转义
func UnescapeTwice(s string) string {
	return html.UnescapeString(html.UnescapeString(s))
}

// DecodeContentURL 还原文章的动态URL
func DecodeContentURL(articleBase, contentURL string) (string, error) {
	if len(contentURL) <= trackingPrefixLen {
		return "", fmt.Errorf("content_url过短: %q", contentURL)
	}
	return articleBase + UnescapeTwice(contentURL[trackingPrefixLen:]), nil
}

// DecodeCover 还原封面图URL
func DecodeCover(cover string) string {
	return strings.ReplaceAll(UnescapeTwice(cover), `\/`, "/")
}

// FormatDate 秒级时间戳转为本地时间字符串
func FormatDate(ts int64) string {
	return time.Unix(ts, 0).Format(models.DateLayout)
}
