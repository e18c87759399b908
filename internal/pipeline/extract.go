package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// 页面选择器
const (
	selResultLink = `div[class="results mt7"] > div[class*="wx-rb"]`
	selNickname   = `div > strong[class*="profile_nickname"]`
	selInlineJS   = `script[type="text/javascript"]`
	selTitle      = `div#page-content > div > h2`
	selAuthor     = `#post-user`
	selContent    = `#js_content`

	// manifestScriptIndex msgList所在的内联脚本位置
	manifestScriptIndex = 2
)

var (
	reMsgList = regexp.MustCompile(`var msgList = '(.*)'`)

	// canonicalParams 规范URL的四个参数,顺序即拼接顺序
	canonicalParams = []string{"biz", "sn", "mid", "idx"}
	canonicalRegexp = func() map[string]*regexp.Regexp {
		m := make(map[string]*regexp.Regexp, len(canonicalParams))
		for _, p := range canonicalParams {
			m[p] = regexp.MustCompile(`var ` + p + ` = .*"([^"]*)";`)
		}
		return m
	}()
)

// firstOwnText 匹配元素自身的第一个非空文本节点,不含子元素的文本
// 没有这样的文本节点时返回def
func firstOwnText(doc *goquery.Document, selector, def string) string {
	text, found := "", false
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for c := s.Get(0).FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.TextNode {
				continue
			}
			if t := strings.TrimSpace(c.Data); t != "" {
				text, found = t, true
				return false
			}
		}
		return true
	})
	if !found {
		return def
	}
	return text
}

// extractResultLink 搜索结果中第一个公众号的链接
func extractResultLink(doc *goquery.Document) (string, bool) {
	var href string
	doc.Find(selResultLink).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr("href"); ok && strings.TrimSpace(v) != "" {
			href = strings.TrimSpace(v)
			return false
		}
		return true
	})
	return href, href != ""
}

// extractManifestJSON 取固定位置内联脚本中的msgList字符串
// 只计入有内容的脚本, <script src=...> 外链脚本不占位置
// 返回值中的元素名用于构造LayoutError
func extractManifestJSON(doc *goquery.Document) (string, string, bool) {
	scripts := doc.Find(selInlineJS).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Text() != ""
	})
	if scripts.Length() <= manifestScriptIndex {
		return "", fmt.Sprintf("第%d个内联脚本", manifestScriptIndex+1), false
	}
	m := reMsgList.FindStringSubmatch(scripts.Eq(manifestScriptIndex).Text())
	if m == nil {
		return "", "msgList变量", false
	}
	return m[1], "", true
}

// extractCanonicalURL 从包含 "var biz =" 的脚本中重建规范URL
// 返回缺失的参数名
func extractCanonicalURL(doc *goquery.Document, articleBase string) (string, string) {
	script := doc.Find("script").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), "var biz =")
	}).First()
	if script.Length() == 0 {
		return "", `包含"var biz ="的脚本`
	}
	text := script.Text()

	values := make([]string, 0, len(canonicalParams))
	for _, p := range canonicalParams {
		m := canonicalRegexp[p].FindStringSubmatch(text)
		if m == nil {
			return "", "参数 " + p
		}
		values = append(values, p+"="+m[1])
	}
	return articleBase + strings.Join(values, "&"), ""
}

// extractContent 正文容器的完整HTML
func extractContent(doc *goquery.Document) string {
	parts := make([]string, 0, 1)
	doc.Find(selContent).Each(func(_ int, s *goquery.Selection) {
		if h, err := goquery.OuterHtml(s); err == nil {
			parts = append(parts, h)
		}
	})
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
