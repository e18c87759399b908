package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage 流水线阶段,决定响应由哪个处理函数消费
type Stage string

const (
	StageSearch  Stage = "search"  // 搜索结果页
	StageAccount Stage = "account" // 公众号主页
	StageArticle Stage = "article" // 文章页
)

// Valid 是否为已知阶段
func (s Stage) Valid() bool {
	switch s {
	case StageSearch, StageAccount, StageArticle:
		return true
	}
	return false
}

// CrawlTask 单个在途请求的上下文
type CrawlTask struct {
	ID         string    `json:"id"`          // 任务唯一ID (UUID)
	Stage      Stage     `json:"stage"`       // 所属阶段
	Query      string    `json:"query"`       // 触发此分支的搜索词
	RequestURL string    `json:"request_url"` // 逻辑请求URL(文章阶段同时是元数据键)
	Retries    int       `json:"retries"`     // 因封禁已重发的次数
	Account    string    `json:"account"`     // 公众号主页上解析出的昵称
	CreatedAt  time.Time `json:"created_at"`
}

// NewCrawlTask 创建搜索分支的首个任务
func NewCrawlTask(query, searchURL string) (*CrawlTask, error) {
	if query == "" {
		return nil, fmt.Errorf("搜索词不能为空")
	}
	if err := ValidateURL(searchURL); err != nil {
		return nil, err
	}
	return &CrawlTask{
		ID:         generateID(),
		Stage:      StageSearch,
		Query:      query,
		RequestURL: searchURL,
		CreatedAt:  time.Now(),
	}, nil
}

// Next 派生下一阶段的任务,继承搜索词与昵称,重试计数清零
func (t *CrawlTask) Next(stage Stage, requestURL string) *CrawlTask {
	return &CrawlTask{
		ID:         generateID(),
		Stage:      stage,
		Query:      t.Query,
		RequestURL: requestURL,
		Account:    t.Account,
		CreatedAt:  time.Now(),
	}
}

// Retry 派生同一逻辑请求的重发任务
func (t *CrawlTask) Retry() *CrawlTask {
	retry := *t
	retry.ID = generateID()
	retry.Retries = t.Retries + 1
	retry.CreatedAt = time.Now()
	return &retry
}

// CrawlConfig 爬取配置
type CrawlConfig struct {
	MaxWorkers      int    `json:"max_workers" mapstructure:"max_workers" yaml:"max_workers"`                   // 并发请求数
	Timeout         int    `json:"timeout" mapstructure:"timeout" yaml:"timeout"`                               // 单请求超时(秒)
	DelayMS         int    `json:"delay_ms" mapstructure:"delay_ms" yaml:"delay_ms"`                            // 请求间隔(毫秒)
	RandomDelayMS   int    `json:"random_delay_ms" mapstructure:"random_delay_ms" yaml:"random_delay_ms"`       // 额外随机间隔(毫秒)
	MaxBlockRetries int    `json:"max_block_retries" mapstructure:"max_block_retries" yaml:"max_block_retries"` // 遇到封禁后的重发上限
	UserAgent       string `json:"user_agent" mapstructure:"user_agent" yaml:"user_agent"`
}

// Validate 验证配置
func (c *CrawlConfig) Validate() error {
	if c.MaxWorkers < 1 || c.MaxWorkers > 100 {
		return fmt.Errorf("并发数必须在1-100之间")
	}
	if c.Timeout < 1 || c.Timeout > 300 {
		return fmt.Errorf("超时时间必须在1-300秒之间")
	}
	if c.DelayMS < 0 || c.RandomDelayMS < 0 {
		return fmt.Errorf("请求间隔不能为负数")
	}
	if c.MaxBlockRetries < 0 || c.MaxBlockRetries > 5 {
		return fmt.Errorf("封禁重试次数必须在0-5之间")
	}
	return nil
}

// generateID 生成唯一ID
func generateID() string {
	return uuid.New().String()
}
