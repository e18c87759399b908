package pipeline

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// Page 一次响应中流水线关心的部分
type Page struct {
	// URL 跟随跳转后的最终URL,反爬跳转检测依赖它
	URL string

	// SetCookies 按原始顺序排列的Set-Cookie头部
	SetCookies []string

	Doc *goquery.Document
}

// NewPage 解析响应体
func NewPage(finalURL string, setCookies []string, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败 [%s]: %w", finalURL, err)
	}
	if u, err := url.Parse(finalURL); err == nil {
		doc.Url = u
	}
	return &Page{URL: finalURL, SetCookies: setCookies, Doc: doc}, nil
}

// AbsoluteURL 以页面URL为基准解析相对链接
func (p *Page) AbsoluteURL(ref string) (string, error) {
	base, err := url.Parse(p.URL)
	if err != nil {
		return "", err
	}
	target, err := base.Parse(ref)
	if err != nil {
		return "", err
	}
	return target.String(), nil
}
