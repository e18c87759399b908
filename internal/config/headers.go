package config

import (
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/wescraper/internal/models"
	"github.com/spf13/viper"
)

// MaxHeadersFileSize 头部配置文件最大大小 (1MB)
const MaxHeadersFileSize = 1 * 1024 * 1024

//go:embed headers_template.yaml
var headersTemplate string

// Template 返回内置的头部配置模板
func Template() string {
	return headersTemplate
}

// HeadersFile 解析后的头部配置文件
// 头部名称已规范化 (viper读出的键是小写的)
type HeadersFile struct {
	Path   string
	Common http.Header
	Stages map[models.Stage]http.Header
}

// ForStage 某个阶段的覆盖头部,未配置时返回nil
func (f *HeadersFile) ForStage(stage models.Stage) http.Header {
	return f.Stages[stage]
}

// LoadHeaders 加载头部配置文件
// 文件不存在时先写入内置模板,之后按模板加载
func LoadHeaders(path string) (*HeadersFile, error) {
	if err := writeTemplateIfMissing(path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &models.ConfigError{FilePath: path, Cause: err}
	}
	if info.Size() > MaxHeadersFileSize {
		return nil, &models.ConfigError{
			FilePath: path,
			Cause:    fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)", info.Size(), MaxHeadersFileSize),
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, &models.ConfigError{FilePath: path, Cause: err}
	}

	var raw models.HeaderConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, &models.ConfigError{FilePath: path, Cause: fmt.Errorf("配置绑定失败: %w", err)}
	}
	if err := raw.Validate(); err != nil {
		return nil, &models.ConfigError{FilePath: path, Cause: err}
	}

	file := &HeadersFile{
		Path:   path,
		Common: toHeader(raw.Headers),
		Stages: make(map[models.Stage]http.Header, len(raw.Stages)),
	}
	for name, overrides := range raw.Stages {
		file.Stages[models.Stage(name)] = toHeader(overrides)
	}
	return file, nil
}

func writeTemplateIfMissing(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("无法创建配置目录 [%s]: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(headersTemplate), 0644); err != nil {
		return fmt.Errorf("无法生成配置文件 [%s]: %w", path, err)
	}
	return nil
}

func toHeader(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for name, value := range m {
		h.Set(name, value)
	}
	return h
}
