package cookiepool

import (
	"errors"
	"sync"
	"testing"

	"github.com/RecoveryAshes/wescraper/internal/models"
)

func setCookie(snuid, suid string) []string {
	return []string{
		"ABTEST=0|1500000000|v1; expires=Thu, 01-Jan-2030 00:00:00 GMT; path=/",
		"SNUID=" + snuid + "; expires=Thu, 01-Jan-2030 00:00:00 GMT; domain=.sogou.com; path=/",
		"SUID=" + suid + "; expires=Thu, 01-Jan-2030 00:00:00 GMT; domain=.sogou.com; path=/",
	}
}

func TestPool_FetchOneDefault(t *testing.T) {
	t.Run("默认身份", func(t *testing.T) {
		def := models.NewIdentity("default-a", "default-b")
		pool := New(def)
		if got := pool.FetchOne(); got != def {
			t.Errorf("FetchOne() = %v, want %v", got, def)
		}
		if got := pool.CurrentDebugView(); got != def {
			t.Errorf("CurrentDebugView() = %v, want %v", got, def)
		}
	})

	t.Run("空默认身份", func(t *testing.T) {
		pool := New(models.Identity{})
		if !pool.FetchOne().IsZero() {
			t.Error("期望返回匿名身份")
		}
	})
}

func TestPool_AbsorbSessionHeaders(t *testing.T) {
	tests := []struct {
		name    string
		rounds  [][]string
		want    models.Identity
		alterns int
	}{
		{
			name:    "单次收割",
			rounds:  [][]string{setCookie("sn1", "su1")},
			want:    models.NewIdentity("sn1", "su1"),
			alterns: 1,
		},
		{
			name:    "多次收割以最后一次为准",
			rounds:  [][]string{setCookie("sn1", "su1"), setCookie("sn2", "su2"), setCookie("sn3", "su3")},
			want:    models.NewIdentity("sn3", "su3"),
			alterns: 3,
		},
		{
			name:    "缺少SUID不更新",
			rounds:  [][]string{{"SNUID=only; path=/"}},
			want:    models.NewIdentity("d1", "d2"),
			alterns: 0,
		},
		{
			name:    "缺少SNUID不更新",
			rounds:  [][]string{{"SUID=only; path=/", "IPLOC=CN1100; path=/"}},
			want:    models.NewIdentity("d1", "d2"),
			alterns: 0,
		},
		{
			name:    "重复收割同一身份",
			rounds:  [][]string{setCookie("sn1", "su1"), setCookie("sn1", "su1")},
			want:    models.NewIdentity("sn1", "su1"),
			alterns: 1,
		},
		{
			name:    "空头部列表",
			rounds:  [][]string{nil},
			want:    models.NewIdentity("d1", "d2"),
			alterns: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := New(models.NewIdentity("d1", "d2"))
			for _, headers := range tt.rounds {
				pool.AbsorbSessionHeaders(headers)
			}
			if got := pool.FetchOne(); got != tt.want {
				t.Errorf("FetchOne() = %+v, want %+v", got, tt.want)
			}
			if got := pool.Snapshot().Alternates; got != tt.alterns {
				t.Errorf("候补数量 = %d, want %d", got, tt.alterns)
			}
		})
	}
}

func TestPool_ReportBlocked(t *testing.T) {
	t.Run("有候补时切换", func(t *testing.T) {
		def := models.NewIdentity("d1", "d2")
		pool := New(def)
		pool.AbsorbSessionHeaders(setCookie("sn1", "su1"))

		next, err := pool.ReportBlocked()
		if err != nil {
			t.Fatalf("ReportBlocked() error = %v", err)
		}
		if next != def {
			t.Errorf("ReportBlocked() = %v, want %v", next, def)
		}
		if pool.FetchOne() != def {
			t.Errorf("当前身份应切换为候补身份")
		}
		if !pool.IsBanned(models.NewIdentity("sn1", "su1")) {
			t.Error("被封禁的身份应进入封禁集合")
		}
	})

	t.Run("无候补时耗尽", func(t *testing.T) {
		def := models.NewIdentity("d1", "d2")
		pool := New(def)

		_, err := pool.ReportBlocked()
		if !errors.Is(err, ErrPoolExhausted) {
			t.Fatalf("期望ErrPoolExhausted, 实际: %v", err)
		}
		if pool.FetchOne() == def {
			t.Error("耗尽后FetchOne不应返回已封禁身份")
		}
		if !pool.FetchOne().IsZero() {
			t.Error("耗尽后应退化为匿名身份")
		}
	})

	t.Run("候补按收割顺序接替", func(t *testing.T) {
		pool := New(models.Identity{})
		pool.AbsorbSessionHeaders(setCookie("sn1", "su1"))
		pool.AbsorbSessionHeaders(setCookie("sn2", "su2"))
		pool.AbsorbSessionHeaders(setCookie("sn3", "su3"))

		want := []models.Identity{
			models.NewIdentity("sn1", "su1"),
			models.NewIdentity("sn2", "su2"),
		}
		for i, w := range want {
			got, err := pool.ReportBlocked()
			if err != nil {
				t.Fatalf("第%d次ReportBlocked() error = %v", i+1, err)
			}
			if got != w {
				t.Errorf("第%d次接替 = %v, want %v", i+1, got, w)
			}
		}
		if _, err := pool.ReportBlocked(); !errors.Is(err, ErrPoolExhausted) {
			t.Errorf("候补用尽后期望ErrPoolExhausted, 实际: %v", err)
		}
		if got := pool.Snapshot().Banned; got != 3 {
			t.Errorf("封禁数量 = %d, want 3", got)
		}
	})
}

func TestPool_BannedIdentityNeverResurrected(t *testing.T) {
	pool := New(models.Identity{})
	pool.AbsorbSessionHeaders(setCookie("sn1", "su1"))
	banned := pool.FetchOne()

	if _, err := pool.ReportBlocked(); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("期望ErrPoolExhausted, 实际: %v", err)
	}

	// 服务端再次下发完全相同的令牌
	for i := 0; i < 3; i++ {
		pool.AbsorbSessionHeaders(setCookie("sn1", "su1"))
		if pool.FetchOne() == banned {
			t.Fatalf("第%d次收割后已封禁身份被恢复", i+1)
		}
	}

	// 新令牌仍然可以收割
	pool.AbsorbSessionHeaders(setCookie("sn2", "su2"))
	if got := pool.FetchOne(); got != models.NewIdentity("sn2", "su2") {
		t.Errorf("FetchOne() = %v, want 新身份", got)
	}

	// 已封禁身份也不会进入候补
	if _, err := pool.ReportBlocked(); !errors.Is(err, ErrPoolExhausted) {
		t.Errorf("期望ErrPoolExhausted, 实际: %v", err)
	}
}

func TestPool_ConcurrentReportBlocked(t *testing.T) {
	for round := 0; round < 50; round++ {
		pool := New(models.Identity{})
		pool.AbsorbSessionHeaders(setCookie("alt", "alt"))
		pool.AbsorbSessionHeaders(setCookie("cur", "cur"))

		var (
			wg        sync.WaitGroup
			start     = make(chan struct{})
			results   = make([]models.Identity, 2)
			errs      = make([]error, 2)
			alternate = models.NewIdentity("alt", "alt")
		)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				results[i], errs[i] = pool.ReportBlocked()
			}(i)
		}
		close(start)
		wg.Wait()

		got, exhausted := 0, 0
		for i := 0; i < 2; i++ {
			switch {
			case errs[i] == nil && results[i] == alternate:
				got++
			case errors.Is(errs[i], ErrPoolExhausted):
				exhausted++
			default:
				t.Fatalf("意外结果: id=%v err=%v", results[i], errs[i])
			}
		}
		if got != 1 || exhausted != 1 {
			t.Fatalf("第%d轮: 获得候补=%d, 耗尽=%d, 期望各1次", round, got, exhausted)
		}
	}
}

func TestPool_ConcurrentAccess(t *testing.T) {
	pool := New(models.NewIdentity("d1", "d2"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			pool.AbsorbSessionHeaders(setCookie("sn", "su"))
		}()
		go func() {
			defer wg.Done()
			_, _ = pool.ReportBlocked()
		}()
		go func() {
			defer wg.Done()
			id := pool.FetchOne()
			if !id.IsZero() && pool.IsBanned(id) && pool.FetchOne() == id {
				t.Errorf("FetchOne返回了已封禁身份: %v", id)
			}
		}()
	}
	wg.Wait()

	if id := pool.FetchOne(); !id.IsZero() && pool.IsBanned(id) {
		t.Errorf("当前身份不应处于封禁集合: %v", id)
	}
}
