package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/RecoveryAshes/wescraper/internal/cookiepool"
	"github.com/RecoveryAshes/wescraper/internal/models"
	"github.com/RecoveryAshes/wescraper/internal/pipeline"
	"github.com/RecoveryAshes/wescraper/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

// colly上下文中的键
const (
	ctxKeyTask     = "task"
	ctxKeyIdentity = "identity"
)

// RecordSink 记录输出目标,实现必须是并发安全的
type RecordSink interface {
	Write(rec models.Record) error
}

// Spider 基于Colly的异步抓取器
// 负责发出请求、注入身份Cookie,并把响应交给流水线分发器
type Spider struct {
	collector  *colly.Collector
	config     models.CrawlConfig
	pool       *cookiepool.Pool
	dispatcher *pipeline.Dispatcher
	sink       RecordSink

	// HTTP头部提供者
	headerProvider models.HeaderProvider
	redactor       *utils.HeaderRedactor

	// OnBranchDone 一个搜索词的分支结束时回调(进入公众号主页或以错误记录终止)
	OnBranchDone func(query string)

	ctx context.Context

	mu        sync.Mutex
	stats     models.RunStats
	errs      []error
	errorMsgs []string
}

// NewSpider 创建抓取器
func NewSpider(config models.CrawlConfig, pool *cookiepool.Pool, dispatcher *pipeline.Dispatcher, sink RecordSink, headerProvider models.HeaderProvider) *Spider {
	c := colly.NewCollector(
		colly.Async(true),
		// 重发被拦截的请求和清单中重复的文章都需要重复访问同一URL
		colly.AllowURLRevisit(),
	)

	// 身份完全由Cookie池管理,不使用collector自带的cookie jar
	c.DisableCookies()

	workers := config.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: workers,
		Delay:       time.Duration(config.DelayMS) * time.Millisecond,
		RandomDelay: time.Duration(config.RandomDelayMS) * time.Millisecond,
	}); err != nil {
		utils.Warnf("设置并发限制失败: %v", err)
	}

	if config.Timeout > 0 {
		c.SetRequestTimeout(time.Duration(config.Timeout) * time.Second)
	}
	if config.UserAgent != "" {
		c.UserAgent = config.UserAgent
	}

	utils.Debugf("抓取器配置: 并发=%d, 间隔=%dms, 随机间隔=%dms, 超时=%ds",
		workers, config.DelayMS, config.RandomDelayMS, config.Timeout)

	s := &Spider{
		collector:      c,
		config:         config,
		pool:           pool,
		dispatcher:     dispatcher,
		sink:           sink,
		headerProvider: headerProvider,
		redactor:       utils.NewHeaderRedactor(),
		ctx:            context.Background(),
	}
	s.setupCallbacks()
	return s
}

// setupCallbacks 设置Colly回调
func (s *Spider) setupCallbacks() {
	// 访问前: 注入头部和身份
	s.collector.OnRequest(func(r *colly.Request) {
		if err := s.ctx.Err(); err != nil {
			utils.Debugf("任务已取消, 放弃请求: %s", r.URL)
			r.Abort()
			return
		}

		task := taskFromContext(r.Ctx)
		stage := models.StageSearch
		if task != nil {
			stage = task.Stage
		}

		if s.headerProvider != nil {
			headers, err := s.headerProvider.GetHeaders(stage)
			if err != nil {
				utils.Warnf("获取HTTP头部失败: %v", err)
			} else {
				for name, values := range headers {
					if len(values) > 0 {
						r.Headers.Set(name, values[0])
					}
				}
			}
		}

		if id, ok := s.identityFor(r.Ctx, task); ok {
			if cookie := id.CookieHeader(); cookie != "" {
				r.Headers.Set("Cookie", cookie)
			}
		}

		if stage == models.StageSearch {
			s.count(func(st *models.RunStats) { st.SearchRequests++ })
		}
		utils.Logger.Debug().
			Str("stage", string(stage)).
			Str("url", r.URL.String()).
			Str("cookie", s.redactor.RedactHeaderValue("Cookie", r.Headers.Get("Cookie"))).
			Msg("访问")
	})

	// 处理响应
	s.collector.OnResponse(func(r *colly.Response) {
		task := taskFromContext(r.Ctx)
		if task == nil {
			utils.Errorf("响应缺少任务上下文: %s", r.Request.URL)
			return
		}
		// 跟随跳转后的最终URL
		finalURL := r.Request.URL.String()

		body := r.Body
		if encoding := r.Headers.Get("Content-Encoding"); encoding != "" {
			decompressed, err := decompressResponse(encoding, r.Body)
			if err != nil {
				utils.Warnf("解压响应失败 [%s] (编码=%s): %v", finalURL, encoding, err)
			} else {
				body = decompressed
			}
		}

		if !isHTMLDocument(r.Headers.Get("Content-Type"), body) {
			s.fail(task, finalURL, fmt.Errorf("响应不是HTML页面 (Content-Type=%s)", r.Headers.Get("Content-Type")))
			return
		}

		setCookies := r.Headers.Values("Set-Cookie")
		if len(setCookies) > 0 {
			utils.Logger.Debug().
				Str("url", finalURL).
				Strs("set_cookie", s.redactor.RedactAll("Set-Cookie", setCookies)).
				Msg("响应下发Cookie")
		}
		page, err := pipeline.NewPage(finalURL, setCookies, body)
		if err != nil {
			s.fail(task, finalURL, err)
			return
		}
		s.handle(page, task)
	})

	// 错误处理
	s.collector.OnError(func(r *colly.Response, err error) {
		task := taskFromContext(r.Ctx)
		reqURL := ""
		if r.Request != nil {
			reqURL = r.Request.URL.String()
		}
		if task == nil {
			utils.Errorf("爬取错误 [%s]: %v", reqURL, err)
			s.count(func(st *models.RunStats) { st.FailedRequests++ })
			return
		}
		s.fail(task, reqURL, fmt.Errorf("HTTP %d: %w", r.StatusCode, err))
	})
}

// handle 分发响应并处理产出
func (s *Spider) handle(page *pipeline.Page, task *models.CrawlTask) {
	res, err := s.dispatcher.Dispatch(page, task)

	s.count(func(st *models.RunStats) {
		if res.Blocked {
			st.Blocks++
		}
		if res.Rotated {
			st.Rotations++
		}
		if res.Exhausted {
			st.PoolExhaustions++
		}
		if res.Resolved {
			st.AccountsResolved++
		}
		if task.Stage == models.StageAccount {
			st.ArticlesQueued += len(res.Next)
		}
	})

	if err != nil {
		s.recordFailure(task, err)
	}

	for _, rec := range res.Records {
		s.emit(rec)
	}

	searchRetry := false
	for _, req := range res.Next {
		if req.Task.Stage == models.StageSearch {
			searchRetry = true
		}
		if err := s.Visit(req); err != nil {
			utils.Errorf("提交请求失败 [%s]: %v", req.URL, err)
			s.count(func(st *models.RunStats) { st.FailedRequests++ })
		}
	}

	if task.Stage == models.StageSearch && !searchRetry {
		s.branchDone(task.Query)
	}
}

// recordFailure 记录单个任务的失败,不影响其他任务
func (s *Spider) recordFailure(task *models.CrawlTask, err error) {
	tl := utils.TaskLogger(task)
	log := tl.Error().Err(err).Str("url", task.RequestURL)

	s.mu.Lock()
	defer s.mu.Unlock()
	if errors.Is(err, pipeline.ErrLayoutMismatch) {
		s.stats.LayoutMismatches++
		log.Msg("页面结构不匹配")
	} else {
		log.Msg("处理响应失败")
	}
	s.errs = append(s.errs, err)
}

// fail 请求本身失败(网络错误、非HTML响应等)
func (s *Spider) fail(task *models.CrawlTask, reqURL string, err error) {
	tl := utils.TaskLogger(task)
	tl.Error().Err(err).Str("url", reqURL).Msg("请求失败")
	s.count(func(st *models.RunStats) { st.FailedRequests++ })

	switch task.Stage {
	case models.StageSearch:
		s.emit(models.NewErrorRecord("Search request failed for query %q: %v (request %s)",
			task.Query, err, task.RequestURL))
		s.branchDone(task.Query)
	case models.StageArticle:
		s.dispatcher.Store().Release(task.RequestURL)
	}
}

// emit 写入记录并计数
func (s *Spider) emit(rec models.Record) {
	if err := s.sink.Write(rec); err != nil {
		utils.Errorf("写入记录失败: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if errRec, ok := rec.(*models.ErrorRecord); ok {
		s.stats.ErrorRecords++
		s.errorMsgs = append(s.errorMsgs, errRec.Error)
	} else {
		s.stats.ArticlesEmitted++
	}
}

func (s *Spider) branchDone(query string) {
	if s.OnBranchDone != nil {
		s.OnBranchDone(query)
	}
}

func (s *Spider) count(fn func(st *models.RunStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.stats)
}

// identityFor 请求使用的身份
// 显式指定的身份优先;搜索请求未指定时使用池的当前身份;其余请求不带Cookie
func (s *Spider) identityFor(ctx *colly.Context, task *models.CrawlTask) (models.Identity, bool) {
	if id, ok := ctx.GetAny(ctxKeyIdentity).(models.Identity); ok {
		return id, true
	}
	if task != nil && task.Stage == models.StageSearch && s.pool != nil {
		return s.pool.FetchOne(), true
	}
	return models.Identity{}, false
}

// Visit 提交一个请求
func (s *Spider) Visit(req pipeline.Request) error {
	if req.Task == nil {
		return fmt.Errorf("请求缺少任务上下文: %s", req.URL)
	}
	ctx := colly.NewContext()
	ctx.Put(ctxKeyTask, req.Task)
	if req.Identity != nil {
		ctx.Put(ctxKeyIdentity, *req.Identity)
	}
	return s.collector.Request("GET", req.URL, nil, ctx, nil)
}

// Run 提交初始请求并等待所有分支结束
// 返回的error合并了所有任务级失败(页面结构不匹配等)
func (s *Spider) Run(ctx context.Context, seeds []pipeline.Request) error {
	if ctx != nil {
		s.ctx = ctx
	}
	for _, req := range seeds {
		if err := s.Visit(req); err != nil {
			utils.Errorf("提交请求失败 [%s]: %v", req.URL, err)
			s.count(func(st *models.RunStats) { st.FailedRequests++ })
		}
	}
	s.collector.Wait()

	if err := s.ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.errs...)
}

// GetStats 获取统计信息
func (s *Spider) GetStats() models.RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ErrorMessages 本次运行输出的错误记录内容
func (s *Spider) ErrorMessages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.errorMsgs))
	copy(out, s.errorMsgs)
	return out
}

func taskFromContext(ctx *colly.Context) *models.CrawlTask {
	if ctx == nil {
		return nil
	}
	task, _ := ctx.GetAny(ctxKeyTask).(*models.CrawlTask)
	return task
}

// isHTMLDocument 判断响应是否为HTML页面
// 部分反爬页面不带Content-Type,此时检查内容特征
func isHTMLDocument(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "html") {
		return true
	}
	if ct != "" && !strings.HasPrefix(ct, "text/plain") && !strings.Contains(ct, "octet-stream") {
		return false
	}

	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	lower := strings.ToLower(strings.TrimSpace(string(head)))
	for _, marker := range []string{"<!doctype html", "<html", "<head", "<body", "<script", "<div"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// decompressResponse 根据Content-Encoding头部解压响应体
// colly已经处理过的gzip响应直接返回
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			return body, nil
		}
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		reader := brotli.NewReader(bytes.NewReader(body))
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
