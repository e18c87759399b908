package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RecoveryAshes/wescraper/internal/models"
)

func writeHeadersFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "headers.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入测试配置失败: %v", err)
	}
	return path
}

func TestLoadHeaders_GeneratesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "headers.yaml")

	file, err := LoadHeaders(path)
	if err != nil {
		t.Fatalf("LoadHeaders() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("配置文件应该被自动生成: %v", err)
	}
	if string(data) != Template() {
		t.Error("生成的文件应与内置模板一致")
	}

	if file.Common.Get("Accept-Language") == "" {
		t.Errorf("模板中的公共头部未加载: %v", file.Common)
	}
	refs := map[models.Stage]string{
		models.StageSearch:  "http://weixin.sogou.com/",
		models.StageAccount: "http://weixin.sogou.com/",
		models.StageArticle: "http://mp.weixin.qq.com/",
	}
	for stage, want := range refs {
		if got := file.ForStage(stage).Get("Referer"); got != want {
			t.Errorf("%s阶段Referer = %q, want %q", stage, got, want)
		}
	}
}

func TestLoadHeaders_CanonicalNames(t *testing.T) {
	path := writeHeadersFile(t, `headers:
  user-agent: "Test Bot/1.0"
  X-CUSTOM: "test value"
stages:
  account:
    referer: "http://example.com/"
`)

	file, err := LoadHeaders(path)
	if err != nil {
		t.Fatalf("LoadHeaders() error = %v", err)
	}
	for _, name := range []string{"User-Agent", "X-Custom"} {
		if _, ok := file.Common[name]; !ok {
			t.Errorf("头部名称应规范化为 %s: %v", name, file.Common)
		}
	}
	if file.Common.Get("User-Agent") != "Test Bot/1.0" {
		t.Errorf("User-Agent = %q", file.Common.Get("User-Agent"))
	}
	if got := file.ForStage(models.StageAccount)["Referer"]; len(got) != 1 || got[0] != "http://example.com/" {
		t.Errorf("account阶段覆盖 = %v", got)
	}
	if file.ForStage(models.StageSearch) != nil {
		t.Error("未配置的阶段应返回nil")
	}
}

func TestLoadHeaders_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "未知阶段",
			content: `stages:
  login:
    Referer: "http://example.com/"
`,
		},
		{
			name: "YAML格式错误",
			content: `headers:
  User-Agent: "Test Bot
  X-Custom: missing quote
`,
		},
		{
			name:    "文件过大",
			content: "# " + strings.Repeat("x", MaxHeadersFileSize),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeHeadersFile(t, tt.content)
			_, err := LoadHeaders(path)
			var cfgErr *models.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("期望ConfigError, 实际: %v", err)
			}
			if cfgErr.FilePath != path {
				t.Errorf("FilePath = %s, want %s", cfgErr.FilePath, path)
			}
		})
	}
}

func TestLoadHeaders_EmptyFile(t *testing.T) {
	for name, content := range map[string]string{"空headers": "headers:", "空文件": ""} {
		t.Run(name, func(t *testing.T) {
			file, err := LoadHeaders(writeHeadersFile(t, content))
			if err != nil {
				t.Fatalf("加载空配置失败: %v", err)
			}
			if len(file.Common) != 0 || len(file.Stages) != 0 {
				t.Errorf("空配置不应有头部: %+v", file)
			}
			if file.Common == nil || file.Stages == nil {
				t.Error("Common和Stages应该被初始化")
			}
		})
	}
}

func TestTemplate_NoCookie(t *testing.T) {
	for _, line := range strings.Split(Template(), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(strings.ToLower(trimmed), "cookie:") {
			t.Fatalf("模板不应配置Cookie: %s", line)
		}
	}
}
