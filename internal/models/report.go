package models

import (
	"encoding/json"
	"time"
)

// RunStats 一次运行的统计
type RunStats struct {
	Queries          int     `json:"queries"`           // 搜索词数量
	SearchRequests   int     `json:"search_requests"`   // 搜索请求数(含重发)
	Blocks           int     `json:"blocks"`            // 命中反爬跳转次数
	Rotations        int     `json:"rotations"`         // 成功切换身份次数
	PoolExhaustions  int     `json:"pool_exhaustions"`  // 无可用身份次数
	AccountsResolved int     `json:"accounts_resolved"` // 成功解析的公众号数
	ArticlesQueued   int     `json:"articles_queued"`   // 入队文章数
	ArticlesEmitted  int     `json:"articles_emitted"`  // 输出文章数
	ErrorRecords     int     `json:"error_records"`     // 输出错误记录数
	LayoutMismatches int     `json:"layout_mismatches"` // 页面结构不匹配次数
	FailedRequests   int     `json:"failed_requests"`   // 网络/HTTP失败数
	Duration         float64 `json:"duration"`          // 总耗时(秒)
}

// PoolSnapshot Cookie池状态快照
type PoolSnapshot struct {
	Generation uint64 `json:"generation"`
	Banned     int    `json:"banned"`
	Alternates int    `json:"alternates"`
	Current    string `json:"current"`
}

// RunReport 运行报告
type RunReport struct {
	RunID     string       `json:"run_id"`
	Accounts  []string     `json:"accounts"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
	Stats     RunStats     `json:"stats"`
	Pool      PoolSnapshot `json:"pool"`
	Errors    []string     `json:"errors,omitempty"`
	Config    CrawlConfig  `json:"config"`
}

// ToJSON 序列化为JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *RunReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
