package core

import (
	"net/http"
	"sync"

	"github.com/RecoveryAshes/wescraper/internal/config"
	"github.com/RecoveryAshes/wescraper/internal/models"
	"github.com/RecoveryAshes/wescraper/internal/utils"
)

const (
	// DefaultUserAgent 默认User-Agent
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"
)

// HeaderManager 管理各阶段请求头部
// 实现 models.HeaderProvider 接口
type HeaderManager struct {
	// defaults 系统默认头部 (硬编码)
	defaults http.Header

	// config 从配置文件加载的公共头部
	config http.Header

	// stages 从配置文件加载的阶段覆盖头部
	stages map[models.Stage]http.Header

	// cli 从命令行参数解析的头部
	cli http.Header

	validator   *utils.HeaderValidator
	redactor    *utils.HeaderRedactor
	headersFile string

	// 配置只加载一次,之后被并发请求读取
	loadOnce sync.Once
	loadErr  error
	merged   map[models.Stage]http.Header
}

// NewHeaderManager 创建头部管理器
// configFile为空时不读取头部配置文件,只使用默认头部和命令行头部
func NewHeaderManager(configFile string, cliHeaders []string) (*HeaderManager, error) {
	hm := &HeaderManager{
		defaults:    getDefaultHeaders(),
		config:      make(http.Header),
		stages:      make(map[models.Stage]http.Header),
		validator:   utils.NewHeaderValidator(),
		redactor:    utils.NewHeaderRedactor(),
		headersFile: configFile,
	}

	if len(cliHeaders) > 0 {
		parsed, err := models.CliHeaders(cliHeaders).Parse()
		if err != nil {
			return nil, err
		}
		hm.cli = parsed
	} else {
		hm.cli = make(http.Header)
	}

	return hm, nil
}

// getDefaultHeaders 返回系统默认头部
func getDefaultHeaders() http.Header {
	return http.Header{
		"User-Agent":      []string{DefaultUserAgent},
		"Accept":          []string{"text/html,application/xhtml+xml,*/*;q=0.8"},
		"Accept-Encoding": []string{"gzip, deflate, br"},
	}
}

// LoadConfig 加载头部配置文件
func (hm *HeaderManager) LoadConfig() error {
	if hm.headersFile == "" {
		return nil
	}

	file, err := config.LoadHeaders(hm.headersFile)
	if err != nil {
		utils.Errorf("加载HTTP头部配置失败: %v", err)
		return err
	}
	hm.config = file.Common
	for stage, h := range file.Stages {
		hm.stages[stage] = h
	}

	if len(file.Common) > 0 || len(file.Stages) > 0 {
		utils.Debugf("成功加载HTTP头部配置 [%s]: 公共%d个, 阶段覆盖%d组",
			file.Path, len(file.Common), len(file.Stages))
	}
	return nil
}

// Validate 验证所有头部的合法性
// 验证顺序: 默认 → 配置 → 阶段覆盖 → 命令行
func (hm *HeaderManager) Validate() error {
	if err := hm.validator.Validate(hm.defaults); err != nil {
		utils.Errorf("默认头部验证失败: %v", err)
		return err
	}

	if err := hm.validator.Validate(hm.config); err != nil {
		utils.Errorf("配置文件头部验证失败: %v", err)
		return err
	}

	for stage, h := range hm.stages {
		if err := hm.validator.Validate(h); err != nil {
			utils.Errorf("阶段[%s]头部验证失败: %v", stage, err)
			return err
		}
	}

	if err := hm.validator.Validate(hm.cli); err != nil {
		utils.Errorf("命令行头部验证失败: %v", err)
		return err
	}

	utils.Debugf("所有HTTP头部验证通过")
	return nil
}

// GetMergedHeaders 按优先级合并某个阶段的头部 (default < config < stage < cli)
func (hm *HeaderManager) GetMergedHeaders(stage models.Stage) http.Header {
	result := make(http.Header)

	for _, layer := range []http.Header{hm.defaults, hm.config, hm.stages[stage], hm.cli} {
		for name, values := range layer {
			result[name] = values
		}
	}

	return result
}

// GetSafeHeaders 返回脱敏后的头部 (用于日志)
func (hm *HeaderManager) GetSafeHeaders(stage models.Stage) map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders(stage))
}

// Prepare 加载并验证头部配置,结果被缓存
func (hm *HeaderManager) Prepare() error {
	hm.loadOnce.Do(func() {
		if err := hm.LoadConfig(); err != nil {
			hm.loadErr = err
			return
		}
		if err := hm.Validate(); err != nil {
			hm.loadErr = err
			return
		}
		hm.merged = make(map[models.Stage]http.Header, 3)
		for _, stage := range []models.Stage{models.StageSearch, models.StageAccount, models.StageArticle} {
			hm.merged[stage] = hm.GetMergedHeaders(stage)
		}
	})
	return hm.loadErr
}

// GetHeaders 实现 HeaderProvider 接口
// 返回的是副本,调用者可以修改
func (hm *HeaderManager) GetHeaders(stage models.Stage) (http.Header, error) {
	if err := hm.Prepare(); err != nil {
		return nil, err
	}
	if h, ok := hm.merged[stage]; ok {
		return h.Clone(), nil
	}
	return hm.GetMergedHeaders(stage), nil
}
