package pipeline

import (
	"errors"
	"strings"

	"github.com/RecoveryAshes/wescraper/internal/cookiepool"
	"github.com/RecoveryAshes/wescraper/internal/models"
	"github.com/RecoveryAshes/wescraper/internal/utils"
)

// IsBlocked 最终URL是否落在反爬跳转页
func (d *Dispatcher) IsBlocked(finalURL string) bool {
	return strings.Contains(finalURL, d.opts.AntispiderMarker)
}

// handleSearch 搜索结果页
func (d *Dispatcher) handleSearch(page *Page, task *models.CrawlTask) (Result, error) {
	var res Result
	log := utils.TaskLogger(task)
	log.Debug().Str("identity", d.pool.CurrentDebugView().String()).Msg("当前身份")

	if d.IsBlocked(page.URL) {
		res.Blocked = true
		next, err := d.pool.ReportBlocked()
		if errors.Is(err, cookiepool.ErrPoolExhausted) {
			res.Exhausted = true
			log.Error().Str("url", page.URL).Msg("被反爬拦截且没有可用身份,终止该分支")
			res.emit(models.NewErrorRecord(
				"Seems our IP was banned. Caught by WeChat Antispider: %s (request %s)",
				page.URL, task.RequestURL))
			return res, nil
		}
		res.Rotated = true

		if task.Retries >= d.opts.MaxBlockRetries {
			// 本分支不再重发,切换后的身份只供之后的分支使用
			log.Error().
				Int("retries", task.Retries).
				Str("identity", next.String()).
				Msg("重发后仍被拦截,终止该分支,新身份留给后续搜索")
			res.emit(models.NewErrorRecord(
				"Blocked again after %d retries by WeChat Antispider: %s (request %s)",
				task.Retries, page.URL, task.RequestURL))
			return res, nil
		}

		log.Warn().Str("identity", next.String()).Msg("被反爬拦截,使用新身份重发")
		res.follow(Request{URL: task.RequestURL, Task: task.Retry(), Identity: &next})
		return res, nil
	}

	d.pool.AbsorbSessionHeaders(page.SetCookies)

	href, ok := extractResultLink(page.Doc)
	if !ok {
		log.Warn().Msg("搜索结果中没有公众号")
		res.emit(models.NewErrorRecord("no official account found for query %q", task.Query))
		return res, nil
	}
	accountURL, err := page.AbsoluteURL(href)
	if err != nil {
		return res, layoutError(models.StageSearch, page.URL, "公众号链接", err)
	}

	log.Debug().Str("account_url", accountURL).Msg("进入公众号主页")
	res.follow(Request{URL: accountURL, Task: task.Next(models.StageAccount, accountURL)})
	return res, nil
}

// handleAccount 公众号主页: 解析清单并为每篇文章登记元数据
func (d *Dispatcher) handleAccount(page *Page, task *models.CrawlTask) (Result, error) {
	res := Result{Resolved: true}

	nickname := firstOwnText(page.Doc, selNickname, models.NotFound)

	raw, element, ok := extractManifestJSON(page.Doc)
	if !ok {
		return Result{}, layoutError(models.StageAccount, page.URL, element, nil)
	}
	manifest, err := models.ParseManifest([]byte(raw))
	if err != nil {
		return Result{}, layoutError(models.StageAccount, page.URL, "有效的msgList", err)
	}

	items := manifest.Items()
	type pending struct {
		url  string
		meta models.ArticleMeta
	}
	batch := make([]pending, 0, len(items))
	for _, item := range items {
		articleURL, err := DecodeContentURL(d.opts.ArticleBaseURL, item.ContentURL)
		if err != nil {
			return Result{}, layoutError(models.StageAccount, page.URL, "content_url", err)
		}
		batch = append(batch, pending{
			url: articleURL,
			meta: models.ArticleMeta{
				Cover:    DecodeCover(item.Cover),
				Date:     FormatDate(item.Datetime),
				Digest:   item.Digest,
				Nickname: nickname,
			},
		})
	}

	parent := *task
	parent.Account = nickname
	for _, p := range batch {
		d.store.Put(p.url, p.meta)
		res.follow(Request{URL: p.url, Task: parent.Next(models.StageArticle, p.url)})
	}

	log := utils.TaskLogger(task)
	log.Info().
		Str("account", nickname).
		Int("articles", len(batch)).
		Msg("公众号清单解析完成")
	return res, nil
}

// handleArticle 文章页: 重建规范URL并与元数据合并成记录
func (d *Dispatcher) handleArticle(page *Page, task *models.CrawlTask) (Result, error) {
	var res Result

	article := ArticlePage{
		Title:   firstOwnText(page.Doc, selTitle, models.NotFound),
		Author:  firstOwnText(page.Doc, selAuthor, models.NotFound),
		Content: extractContent(page.Doc),
	}

	canonical, missing := extractCanonicalURL(page.Doc, d.opts.ArticleBaseURL)
	if missing != "" {
		d.store.Release(task.RequestURL)
		return res, layoutError(models.StageArticle, page.URL, missing, nil)
	}
	article.CanonicalURL = canonical

	// 按请求URL而不是规范URL查找:清单中登记的是动态URL
	meta, ok := d.store.Take(task.RequestURL)
	if !ok {
		return res, &LayoutError{
			Stage:   models.StageArticle,
			URL:     task.RequestURL,
			Element: "清单元数据",
			Cause:   ErrMetadataMissing,
		}
	}

	record, err := Assemble(article, meta)
	if err != nil {
		return res, layoutError(models.StageArticle, page.URL, "必填字段", err)
	}
	res.emit(record)
	return res, nil
}
