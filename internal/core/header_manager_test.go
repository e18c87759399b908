package core

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/RecoveryAshes/wescraper/internal/models"
)

func writeHeadersFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "headers.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入头部配置失败: %v", err)
	}
	return path
}

func TestHeaderManager_GetMergedHeaders(t *testing.T) {
	t.Run("默认头部存在", func(t *testing.T) {
		hm, err := NewHeaderManager("", nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		headers := hm.GetMergedHeaders(models.StageSearch)
		if headers.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("User-Agent = %q", headers.Get("User-Agent"))
		}
		if headers.Get("Cookie") != "" {
			t.Error("合并结果不应包含Cookie")
		}
	})

	t.Run("命令行头部覆盖默认", func(t *testing.T) {
		hm, err := NewHeaderManager("", []string{"User-Agent: CustomBot/1.0", "X-Custom: value1"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		for _, stage := range []models.Stage{models.StageSearch, models.StageAccount, models.StageArticle} {
			headers := hm.GetMergedHeaders(stage)
			if headers.Get("User-Agent") != "CustomBot/1.0" || headers.Get("X-Custom") != "value1" {
				t.Errorf("[%s] 命令行头部未生效: %v", stage, headers)
			}
		}
	})

	t.Run("优先级 默认<配置<阶段<命令行", func(t *testing.T) {
		path := writeHeadersFile(t, `headers:
  Accept: "text/html"
  Referer: "http://common.example/"
  X-Layer: "config"
stages:
  article:
    Referer: "http://mp.weixin.qq.com/"
    X-Layer: "stage"
`)
		hm, err := NewHeaderManager(path, []string{"X-Layer: cli"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		if err := hm.LoadConfig(); err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}

		search := hm.GetMergedHeaders(models.StageSearch)
		if search.Get("Accept") != "text/html" {
			t.Errorf("配置文件应覆盖默认Accept: %q", search.Get("Accept"))
		}
		if search.Get("Referer") != "http://common.example/" {
			t.Errorf("search阶段Referer = %q", search.Get("Referer"))
		}

		article := hm.GetMergedHeaders(models.StageArticle)
		if article.Get("Referer") != "http://mp.weixin.qq.com/" {
			t.Errorf("阶段覆盖应优先于公共配置: %q", article.Get("Referer"))
		}
		if article.Get("X-Layer") != "cli" {
			t.Errorf("命令行应优先于阶段覆盖: %q", article.Get("X-Layer"))
		}
	})
}

func TestHeaderManager_GetSafeHeaders(t *testing.T) {
	hm, err := NewHeaderManager("", []string{
		"User-Agent: CustomBot/1.0",
		"Authorization: Bearer secret-token-12345",
		"X-API-Key: api-key-67890",
	})
	if err != nil {
		t.Fatalf("创建HeaderManager失败: %v", err)
	}

	safe := hm.GetSafeHeaders(models.StageSearch)
	if safe["User-Agent"] != "CustomBot/1.0" {
		t.Error("普通头部不应该被脱敏")
	}
	if safe["Authorization"] != "Bearer ***" {
		t.Errorf("期望Authorization='Bearer ***', 实际='%s'", safe["Authorization"])
	}
	if safe["X-Api-Key"] == "api-key-67890" {
		t.Error("X-API-Key应该被脱敏")
	}
}

func TestHeaderManager_GetHeaders(t *testing.T) {
	t.Run("非法命令行参数返回错误", func(t *testing.T) {
		if _, err := NewHeaderManager("", []string{"InvalidFormat"}); err == nil {
			t.Error("期望返回错误, 但成功了")
		}
	})

	tests := []struct {
		name   string
		header string
		field  string
	}{
		{"禁止头部", "Host: example.com", "name"},
		{"Cookie由身份池管理", "Cookie: SNUID=abc; SUID=def", "name"},
		{"非ASCII值", "X-Note: 测试", "value"},
		{"无法解压的编码", "Accept-Encoding: zstd", "value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm, err := NewHeaderManager("", []string{tt.header})
			if err != nil {
				t.Fatalf("创建HeaderManager失败: %v", err)
			}

			_, err = hm.GetHeaders(models.StageSearch)
			var vErr *models.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("期望ValidationError, 实际: %v", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %s, want %s", vErr.Field, tt.field)
			}

			// 错误被缓存
			if _, err := hm.GetHeaders(models.StageArticle); err == nil {
				t.Error("第二次调用也应返回错误")
			}
		})
	}

	t.Run("配置文件中的Cookie被拒绝", func(t *testing.T) {
		path := writeHeadersFile(t, "headers:\n  Cookie: \"SNUID=abc\"\n")
		hm, err := NewHeaderManager(path, nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		if _, err := hm.GetHeaders(models.StageSearch); err == nil {
			t.Error("期望返回验证错误")
		}
	})

	t.Run("配置文件错误", func(t *testing.T) {
		path := writeHeadersFile(t, "stages:\n  login:\n    X: y\n")
		hm, err := NewHeaderManager(path, nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		_, err = hm.GetHeaders(models.StageSearch)
		var cfgErr *models.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("期望ConfigError, 实际: %v", err)
		}
	})

	t.Run("返回副本", func(t *testing.T) {
		hm, err := NewHeaderManager("", []string{"X-Custom: test-value"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		headers, err := hm.GetHeaders(models.StageAccount)
		if err != nil {
			t.Fatalf("GetHeaders失败: %v", err)
		}
		if headers.Get("X-Custom") != "test-value" {
			t.Error("X-Custom未正确设置")
		}

		headers.Set("X-Custom", "mutated")
		again, _ := hm.GetHeaders(models.StageAccount)
		if again.Get("X-Custom") != "test-value" {
			t.Error("修改返回值不应影响后续调用")
		}
	})

	t.Run("并发调用", func(t *testing.T) {
		path := writeHeadersFile(t, "headers:\n  Accept-Language: \"zh-CN\"\n")
		hm, err := NewHeaderManager(path, nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				stage := []models.Stage{models.StageSearch, models.StageAccount, models.StageArticle}[i%3]
				h, err := hm.GetHeaders(stage)
				if err != nil || h.Get("Accept-Language") != "zh-CN" {
					t.Errorf("GetHeaders(%s) = %v, %v", stage, h, err)
				}
			}(i)
		}
		wg.Wait()
	})
}
