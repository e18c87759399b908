// Package cookiepool 管理搜狗搜索请求使用的会话身份
//
// 池中同一时刻只有一个当前身份,外加按收割顺序排列的候补身份和封禁历史。
// 所有操作互斥:写操作持有写锁,FetchOne/CurrentDebugView走读锁,
// 多个并发爬取任务共享同一个Pool实例。
//
//	pool := cookiepool.New(models.NewIdentity(snuid, suid))
//	id := pool.FetchOne()
//	pool.AbsorbSessionHeaders(resp.Headers.Values("Set-Cookie"))
//	next, err := pool.ReportBlocked()
//	if errors.Is(err, cookiepool.ErrPoolExhausted) { /* 终止该分支 */ }
package cookiepool

import (
	"errors"
	"sync"

	"github.com/RecoveryAshes/wescraper/internal/models"
	"github.com/RecoveryAshes/wescraper/internal/utils"
)

// ErrPoolExhausted 封禁后没有可替换的身份
var ErrPoolExhausted = errors.New("cookie池已耗尽: 没有未被封禁的候补身份")

// Pool 进程内的身份池
type Pool struct {
	mu sync.RWMutex

	current    models.Identity
	alternates []models.Identity
	banned     map[models.Identity]struct{}

	// generation 每次当前身份变化时递增
	generation uint64
}

// New 创建身份池,defaultIdentity为启动时的默认身份(可为空身份)
func New(defaultIdentity models.Identity) *Pool {
	return &Pool{
		current: defaultIdentity,
		banned:  make(map[models.Identity]struct{}),
	}
}

// FetchOne 返回当前身份,无副作用
func (p *Pool) FetchOne() models.Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// CurrentDebugView 只读查看当前身份,用于日志
func (p *Pool) CurrentDebugView() models.Identity {
	return p.FetchOne()
}

// AbsorbSessionHeaders 从响应的Set-Cookie头部中收割新身份
//
// 两个令牌都存在时才会更新;已封禁的身份不会被恢复;
// 被替换下来的旧身份进入候补队列,供封禁后接替。
func (p *Pool) AbsorbSessionHeaders(headers []string) {
	id, ok := models.ParseSessionHeaders(headers)
	if !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, banned := p.banned[id]; banned {
		utils.Debugf("忽略已封禁身份的重新下发: %s", id)
		return
	}
	if id == p.current {
		return
	}

	p.removeAlternate(id)
	if !p.current.IsZero() {
		p.pushAlternate(p.current)
	}
	p.current = id
	p.generation++
	utils.Debugf("收割到新身份: %s (generation=%d)", id, p.generation)
}

// ReportBlocked 将当前身份移入封禁集合,并用最早收割的候补身份接替
// 没有候补时返回ErrPoolExhausted,此时当前身份被清空为匿名身份
func (p *Pool) ReportBlocked() (models.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	blocked := p.current
	if !blocked.IsZero() {
		p.banned[blocked] = struct{}{}
	}

	for len(p.alternates) > 0 {
		next := p.alternates[0]
		p.alternates = p.alternates[1:]
		if _, banned := p.banned[next]; banned {
			continue
		}
		p.current = next
		p.generation++
		utils.Warnf("身份被封禁: %s, 切换到: %s", blocked, next)
		return next, nil
	}

	if !p.current.IsZero() {
		p.current = models.Identity{}
		p.generation++
	}
	utils.Warnf("身份被封禁: %s, 没有可用的候补身份", blocked)
	return models.Identity{}, ErrPoolExhausted
}

// IsBanned 身份是否已被封禁
func (p *Pool) IsBanned(id models.Identity) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, banned := p.banned[id]
	return banned
}

// Snapshot 返回池状态快照
func (p *Pool) Snapshot() models.PoolSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return models.PoolSnapshot{
		Generation: p.generation,
		Banned:     len(p.banned),
		Alternates: len(p.alternates),
		Current:    p.current.String(),
	}
}

// pushAlternate 追加候补身份,调用者必须持有写锁
func (p *Pool) pushAlternate(id models.Identity) {
	if _, banned := p.banned[id]; banned {
		return
	}
	for _, alt := range p.alternates {
		if alt == id {
			return
		}
	}
	p.alternates = append(p.alternates, id)
}

// removeAlternate 调用者必须持有写锁
func (p *Pool) removeAlternate(id models.Identity) {
	for i, alt := range p.alternates {
		if alt == id {
			p.alternates = append(p.alternates[:i], p.alternates[i+1:]...)
			return
		}
	}
}
