package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/RecoveryAshes/wescraper/internal/cookiepool"
	"github.com/RecoveryAshes/wescraper/internal/crawlers"
	"github.com/RecoveryAshes/wescraper/internal/models"
	"github.com/RecoveryAshes/wescraper/internal/pipeline"
	"github.com/RecoveryAshes/wescraper/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// searchQueryTemplates 搜索URL的两种写法,每个搜索词随机选一种
var searchQueryTemplates = []string{
	"?type=1&ie=utf8&_sug_=n&_sug_type_=&query=",
	"?query=",
}

// Scraper 主流程协调器
// 持有整个运行期间共享的Cookie池,把搜索词转换为初始请求并驱动抓取器
type Scraper struct {
	config         *Config
	headerProvider models.HeaderProvider
	sink           crawlers.RecordSink
	pool           *cookiepool.Pool
	reporter       *utils.Reporter
}

// NewScraper 创建协调器
func NewScraper(config *Config, sink crawlers.RecordSink, headerProvider models.HeaderProvider) (*Scraper, error) {
	if config == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	if sink == nil {
		return nil, fmt.Errorf("输出目标不能为空")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Scraper{
		config:         config,
		headerProvider: headerProvider,
		sink:           sink,
		pool:           cookiepool.New(config.Pool.DefaultIdentity()),
		reporter:       utils.NewReporter(config.Output.ReportDir),
	}, nil
}

// Pool 共享的Cookie池
func (s *Scraper) Pool() *cookiepool.Pool {
	return s.pool
}

// SearchURL 构造某个搜索词的搜索页URL
func (s *Scraper) SearchURL(query string) string {
	tmpl := searchQueryTemplates[rand.IntN(len(searchQueryTemplates))]
	return s.config.Search.BaseURL + tmpl + url.QueryEscape(query)
}

// seeds 为每个搜索词生成搜索任务
func (s *Scraper) seeds() ([]pipeline.Request, error) {
	if len(s.config.Accounts) == 0 {
		return nil, fmt.Errorf("没有需要搜索的公众号")
	}
	seeds := make([]pipeline.Request, 0, len(s.config.Accounts))
	for _, query := range s.config.Accounts {
		searchURL := s.SearchURL(query)
		task, err := models.NewCrawlTask(query, searchURL)
		if err != nil {
			return nil, fmt.Errorf("创建搜索任务失败 [%s]: %w", query, err)
		}
		seeds = append(seeds, pipeline.Request{URL: searchURL, Task: task})
	}
	return seeds, nil
}

// Run 执行一次完整的抓取
// 单个分支的失败不会中断其他分支;页面结构不匹配等任务级错误
// 被合并到返回的error中,报告在任何情况下都会返回
func (s *Scraper) Run(ctx context.Context) (*models.RunReport, error) {
	startTime := time.Now()
	report := &models.RunReport{
		RunID:     uuid.NewString(),
		Accounts:  s.config.Accounts,
		StartTime: startTime,
		Config:    s.config.Crawl,
	}

	seeds, err := s.seeds()
	if err != nil {
		return report, err
	}

	utils.Infof("🚀 开始抓取 %d 个公众号 (run=%s)", len(seeds), report.RunID)

	store := pipeline.NewMetaStore()
	dispatcher := pipeline.NewDispatcher(s.pool, store, s.config.PipelineOptions())
	spider := crawlers.NewSpider(s.config.Crawl, s.pool, dispatcher, s.sink, s.headerProvider)

	done := make(chan string, len(seeds))
	spider.OnBranchDone = func(query string) {
		select {
		case done <- query:
		default:
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		return spider.Run(gctx, seeds)
	})
	g.Go(func() error {
		if !s.config.Output.Progress {
			for range done {
			}
			return nil
		}
		bar := utils.NewProgressBar(len(seeds), "搜索公众号")
		for query := range done {
			_ = bar.Add(1)
			utils.Debugf("分支结束: %s", query)
		}
		_ = bar.Finish()
		return nil
	})
	runErr := g.Wait()

	report.EndTime = time.Now()
	report.Stats = spider.GetStats()
	report.Stats.Queries = len(seeds)
	report.Stats.Duration = report.EndTime.Sub(startTime).Seconds()
	report.Pool = s.pool.Snapshot()
	report.Errors = spider.ErrorMessages()

	if n := store.Len(); n > 0 {
		utils.Warnf("%d 篇文章的元数据未被取走", n)
	}

	s.logSummary(report)

	if _, err := s.reporter.SaveRunReport(report); err != nil {
		utils.Errorf("保存运行报告失败: %v", err)
		runErr = errors.Join(runErr, err)
	}

	return report, runErr
}

// logSummary 输出运行摘要
func (s *Scraper) logSummary(report *models.RunReport) {
	st := report.Stats
	utils.Infof("✅ 抓取完成, 耗时 %.1f 秒", st.Duration)
	utils.Infof("公众号: %d 个搜索词, %d 个成功解析", st.Queries, st.AccountsResolved)
	utils.Infof("文章: 入队 %d 篇, 输出 %d 篇", st.ArticlesQueued, st.ArticlesEmitted)
	utils.Infof("身份池: 拦截 %d 次, 切换 %d 次, 耗尽 %d 次, 已封禁 %d 个",
		st.Blocks, st.Rotations, st.PoolExhaustions, report.Pool.Banned)
	if st.ErrorRecords > 0 || st.LayoutMismatches > 0 || st.FailedRequests > 0 {
		utils.Warnf("错误记录 %d 条, 页面结构不匹配 %d 次, 请求失败 %d 次",
			st.ErrorRecords, st.LayoutMismatches, st.FailedRequests)
	}
}
