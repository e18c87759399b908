package pipeline

import (
	"sync"

	"github.com/RecoveryAshes/wescraper/internal/models"
)

// MetaStore 以文章请求URL为键暂存清单元数据
// 同一URL可能在清单中出现多次,用引用计数保证每次文章请求都能取到
type MetaStore struct {
	mu      sync.Mutex
	entries map[string]*metaEntry
}

type metaEntry struct {
	meta models.ArticleMeta
	refs int
}

// NewMetaStore 创建元数据存储
func NewMetaStore() *MetaStore {
	return &MetaStore{entries: make(map[string]*metaEntry)}
}

// Put 登记一次待抓取的文章,后登记的元数据覆盖先前的
func (s *MetaStore) Put(url string, meta models.ArticleMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[url]; ok {
		e.meta = meta
		e.refs++
		return
	}
	s.entries[url] = &metaEntry{meta: meta, refs: 1}
}

// Take 取出元数据,最后一次引用被取走后删除条目
func (s *MetaStore) Take(url string) (models.ArticleMeta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[url]
	if !ok {
		return models.ArticleMeta{}, false
	}
	e.refs--
	if e.refs <= 0 {
		delete(s.entries, url)
	}
	return e.meta, true
}

// Release 放弃一次引用(文章请求失败时调用),不返回数据
func (s *MetaStore) Release(url string) {
	_, _ = s.Take(url)
}

// Len 尚未被取走的URL数量
func (s *MetaStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ArticlePage 文章页解析结果
type ArticlePage struct {
	Title        string
	Author       string
	CanonicalURL string
	Content      string
}

// Assemble 合并文章页内容与清单元数据
func Assemble(page ArticlePage, meta models.ArticleMeta) (*models.ArticleRecord, error) {
	account := page.Author
	if account == models.NotFound && meta.Nickname != "" {
		account = meta.Nickname
	}
	record := &models.ArticleRecord{
		Title:   page.Title,
		Account: account,
		URL:     page.CanonicalURL,
		Date:    meta.Date,
		Cover:   meta.Cover,
		Digest:  meta.Digest,
		Content: page.Content,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}
