package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/wescraper/internal/models"
	"github.com/RecoveryAshes/wescraper/internal/pipeline"
	"github.com/RecoveryAshes/wescraper/internal/utils"
	"github.com/spf13/viper"
)

const (
	// DefaultSearchURL 搜狗微信搜索入口
	DefaultSearchURL = "http://weixin.sogou.com/weixin"

	// EnvPrefix 环境变量前缀,如 WESCRAPER_CRAWL_MAX_WORKERS
	EnvPrefix = "WESCRAPER"
)

// Config 应用程序配置
type Config struct {
	Accounts    []string           `mapstructure:"accounts" yaml:"accounts"`
	Search      SearchConfig       `mapstructure:"search" yaml:"search"`
	Article     ArticleConfig      `mapstructure:"article" yaml:"article"`
	Crawl       models.CrawlConfig `mapstructure:"crawl" yaml:"crawl"`
	Pool        PoolConfig         `mapstructure:"pool" yaml:"pool"`
	Output      OutputConfig       `mapstructure:"output" yaml:"output"`
	Logging     LoggingConfig      `mapstructure:"logging" yaml:"logging"`
	HeadersFile string             `mapstructure:"headers_file" yaml:"headers_file"`
}

// SearchConfig 搜索页配置
type SearchConfig struct {
	BaseURL          string `mapstructure:"base_url" yaml:"base_url"`
	AntispiderMarker string `mapstructure:"antispider_marker" yaml:"antispider_marker"`
}

// ArticleConfig 文章页配置
type ArticleConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// PoolConfig 启动时的默认身份,两个令牌都为空时以匿名身份开始
type PoolConfig struct {
	DefaultSNUID string `mapstructure:"default_snuid" yaml:"default_snuid"`
	DefaultSUID  string `mapstructure:"default_suid" yaml:"default_suid"`
}

// DefaultIdentity 配置中的默认身份
func (p PoolConfig) DefaultIdentity() models.Identity {
	return models.NewIdentity(p.DefaultSNUID, p.DefaultSUID)
}

// OutputConfig 输出配置
type OutputConfig struct {
	// File 记录输出文件,为空时写到stdout
	File string `mapstructure:"file" yaml:"file"`

	// ReportDir 运行报告目录,为空时不生成报告
	ReportDir string `mapstructure:"report_dir" yaml:"report_dir"`

	// Progress 在stderr显示进度条
	Progress bool `mapstructure:"progress" yaml:"progress"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level" yaml:"level"`
	LogDir   string         `mapstructure:"log_dir" yaml:"log_dir"`
	NoColor  bool           `mapstructure:"no_color" yaml:"no_color"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int  `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// LoadConfig 加载配置文件
// configPath为空时在默认位置查找config.yaml,找不到则全部使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".wescraper"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &models.ConfigError{FilePath: configPath, Cause: err}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &config, nil
}

// DefaultConfig 全部使用默认值的配置
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// 默认值的类型都是确定的,不会解析失败
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("accounts", []string{})

	v.SetDefault("search.base_url", DefaultSearchURL)
	v.SetDefault("search.antispider_marker", pipeline.DefaultAntispiderMarker)
	v.SetDefault("article.base_url", pipeline.DefaultArticleBaseURL)

	v.SetDefault("crawl.max_workers", 4)
	v.SetDefault("crawl.timeout", 30)
	v.SetDefault("crawl.delay_ms", 500)
	v.SetDefault("crawl.random_delay_ms", 1000)
	v.SetDefault("crawl.max_block_retries", 1)
	v.SetDefault("crawl.user_agent", "")

	v.SetDefault("pool.default_snuid", "")
	v.SetDefault("pool.default_suid", "")

	v.SetDefault("output.file", "")
	v.SetDefault("output.report_dir", "")
	v.SetDefault("output.progress", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.no_color", false)
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("headers_file", "configs/headers.yaml")
}

// Validate 检查配置
func (c *Config) Validate() error {
	if err := c.Crawl.Validate(); err != nil {
		return fmt.Errorf("crawl配置无效: %w", err)
	}
	if err := models.ValidateURL(c.Search.BaseURL); err != nil {
		return fmt.Errorf("search.base_url无效: %w", err)
	}
	if err := models.ValidateURL(c.Article.BaseURL); err != nil {
		return fmt.Errorf("article.base_url无效: %w", err)
	}
	if c.Search.AntispiderMarker == "" {
		return fmt.Errorf("search.antispider_marker不能为空")
	}
	if (c.Pool.DefaultSNUID == "") != (c.Pool.DefaultSUID == "") {
		return fmt.Errorf("pool.default_snuid和pool.default_suid必须同时配置")
	}
	return nil
}

// PipelineOptions 流水线参数
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		ArticleBaseURL:   c.Article.BaseURL,
		AntispiderMarker: c.Search.AntispiderMarker,
		MaxBlockRetries:  c.Crawl.MaxBlockRetries,
	}
}

// LogConfig 转换为utils.InitLogger使用的参数
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
		NoColor:    c.Logging.NoColor,
	}
}

// MergeCLIFlags 合并命令行参数到配置
// 命令行参数优先于配置文件,零值表示未指定
func (c *Config) MergeCLIFlags(accounts []string, outputFile string, maxWorkers int, logLevel string) {
	if len(accounts) > 0 {
		c.Accounts = mergeAccounts(c.Accounts, accounts)
	}
	if outputFile != "" {
		c.Output.File = outputFile
	}
	if maxWorkers > 0 {
		c.Crawl.MaxWorkers = maxWorkers
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// mergeAccounts 合并并去重,保持首次出现的顺序
func mergeAccounts(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, list := range lists {
		for _, a := range list {
			a = strings.TrimSpace(a)
			if a == "" {
				continue
			}
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}
