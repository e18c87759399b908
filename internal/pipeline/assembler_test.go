package pipeline

import (
	"sync"
	"testing"

	"github.com/RecoveryAshes/wescraper/internal/models"
)

func TestMetaStore_DuplicateURL(t *testing.T) {
	store := NewMetaStore()
	store.Put(articleURL1, models.ArticleMeta{Digest: "old"})
	store.Put(articleURL1, models.ArticleMeta{Digest: "new"})

	for i := 0; i < 2; i++ {
		meta, ok := store.Take(articleURL1)
		if !ok {
			t.Fatalf("第%d次Take未命中", i+1)
		}
		if meta.Digest != "new" {
			t.Errorf("Digest = %q, want 后登记的值", meta.Digest)
		}
	}
	if _, ok := store.Take(articleURL1); ok {
		t.Error("引用用尽后应删除条目")
	}
}

func TestMetaStore_Release(t *testing.T) {
	store := NewMetaStore()
	store.Put(articleURL1, models.ArticleMeta{})
	store.Release(articleURL1)
	store.Release(articleURL2)
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestMetaStore_Concurrent(t *testing.T) {
	store := NewMetaStore()
	urls := []string{articleURL1, articleURL2, articleURL3}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		url := urls[i%len(urls)]
		store.Put(url, models.ArticleMeta{Digest: url})
	}
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			if meta, ok := store.Take(url); !ok || meta.Digest != url {
				t.Errorf("Take(%s) = %+v, %v", url, meta, ok)
			}
		}(urls[i%len(urls)])
	}
	wg.Wait()

	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestAssemble(t *testing.T) {
	meta := models.ArticleMeta{
		Cover:    "http://mmbiz.qpic.cn/a.jpg",
		Date:     "2017-07-14 10:40:00",
		Digest:   "first",
		Nickname: "ExampleCorp",
	}

	tests := []struct {
		name        string
		page        ArticlePage
		wantAccount string
		wantErr     bool
	}{
		{
			name:        "页面作者优先",
			page:        ArticlePage{Title: "T", Author: "Editor", CanonicalURL: canonicalURL},
			wantAccount: "Editor",
		},
		{
			name:        "作者缺失时使用昵称",
			page:        ArticlePage{Title: "T", Author: models.NotFound, CanonicalURL: canonicalURL},
			wantAccount: "ExampleCorp",
		},
		{
			name:    "缺少规范URL",
			page:    ArticlePage{Title: "T", Author: "Editor"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Assemble(tt.page, meta)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Assemble() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if rec.Account != tt.wantAccount {
				t.Errorf("Account = %q, want %q", rec.Account, tt.wantAccount)
			}
			if rec.Date != meta.Date || rec.Cover != meta.Cover || rec.Digest != meta.Digest {
				t.Errorf("元数据未合并: %+v", rec)
			}
		})
	}
}
