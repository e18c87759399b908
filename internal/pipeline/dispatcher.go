// Package pipeline 实现 搜索 → 公众号主页 → 文章页 三段流水线
//
// 每个响应按任务携带的阶段标记交给对应的处理函数,处理函数只返回
// 需要输出的记录和后续请求,真正的网络请求由crawlers包完成。
// 搜索阶段负责反爬检测:命中跳转后向Cookie池报告封禁,
// 换用新身份重发同一请求,池耗尽时输出错误记录并终止该分支。
package pipeline

import (
	"fmt"

	"github.com/RecoveryAshes/wescraper/internal/cookiepool"
	"github.com/RecoveryAshes/wescraper/internal/models"
)

const (
	// DefaultArticleBaseURL 文章URL前缀
	DefaultArticleBaseURL = "http://mp.weixin.qq.com/s?"

	// DefaultAntispiderMarker 反爬跳转页的路径特征
	DefaultAntispiderMarker = "/antispider/"
)

// Options 流水线参数
type Options struct {
	ArticleBaseURL   string
	AntispiderMarker string
	MaxBlockRetries  int
}

// DefaultOptions 默认参数,每个请求最多因封禁重发一次
func DefaultOptions() Options {
	return Options{
		ArticleBaseURL:   DefaultArticleBaseURL,
		AntispiderMarker: DefaultAntispiderMarker,
		MaxBlockRetries:  1,
	}
}

// Request 待发出的请求
type Request struct {
	URL  string
	Task *models.CrawlTask

	// Identity 非nil时以该身份的Cookie发出请求
	Identity *models.Identity
}

// Result 一次处理的产出
type Result struct {
	Records []models.Record
	Next    []Request

	// 以下标记用于统计
	Blocked   bool
	Rotated   bool
	Exhausted bool
	Resolved  bool
}

func (r *Result) emit(rec models.Record) {
	r.Records = append(r.Records, rec)
}

func (r *Result) follow(req Request) {
	r.Next = append(r.Next, req)
}

// Dispatcher 按阶段分发响应
type Dispatcher struct {
	pool  *cookiepool.Pool
	store *MetaStore
	opts  Options
}

// NewDispatcher 创建分发器,pool在所有并发任务间共享
func NewDispatcher(pool *cookiepool.Pool, store *MetaStore, opts Options) *Dispatcher {
	if opts.ArticleBaseURL == "" {
		opts.ArticleBaseURL = DefaultArticleBaseURL
	}
	if opts.AntispiderMarker == "" {
		opts.AntispiderMarker = DefaultAntispiderMarker
	}
	if opts.MaxBlockRetries < 0 {
		opts.MaxBlockRetries = 0
	}
	if store == nil {
		store = NewMetaStore()
	}
	return &Dispatcher{pool: pool, store: store, opts: opts}
}

// Store 返回元数据存储
func (d *Dispatcher) Store() *MetaStore {
	return d.store
}

// Dispatch 按任务阶段处理响应
// 返回的error只表示该任务本身失败(页面结构不匹配等),不影响其他任务
func (d *Dispatcher) Dispatch(page *Page, task *models.CrawlTask) (Result, error) {
	if task == nil {
		return Result{}, fmt.Errorf("%w: 任务上下文为空", ErrUnknownStage)
	}
	switch task.Stage {
	case models.StageSearch:
		return d.handleSearch(page, task)
	case models.StageAccount:
		return d.handleAccount(page, task)
	case models.StageArticle:
		return d.handleArticle(page, task)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownStage, task.Stage)
	}
}
