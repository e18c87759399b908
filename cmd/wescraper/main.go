package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/wescraper/internal/core"
	"github.com/RecoveryAshes/wescraper/internal/models"
	"github.com/RecoveryAshes/wescraper/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers        []string // 自定义HTTP请求头
	validateConfig bool     // 验证配置文件

	// 抓取参数
	accounts     []string
	accountsFile string
	outputFile   string
	maxWorkers   int
	noProgress   bool
)

// appConfig 在PersistentPreRunE中加载,子命令共用
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "wescraper",
	Short: "微信公众号文章抓取工具",
	Long: `wescraper - 通过搜狗微信搜索抓取公众号最近发布的文章

每个搜索词依次经过三个阶段:
  • 搜索页: 找到公众号主页链接 (携带SNUID/SUID身份Cookie)
  • 公众号主页: 解析内嵌的文章清单
  • 文章页: 抓取标题、正文和规范链接

结果以JSON Lines格式输出,每行一条文章记录或错误记录。
身份被反爬拦截时自动切换到候补身份并重发一次。

示例:
  # 抓取单个公众号,结果写到stdout
  wescraper -a 人民日报

  # 从文件读取搜索词,写到文件
  wescraper -f accounts.txt -o out/records.jsonl

  # 自定义请求头
  wescraper -a examplecorp -H "Accept-Language: zh-CN"

  # 验证配置文件
  wescraper --validate-config

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		appConfig = config

		// 命令行参数覆盖配置文件
		if verbose && logLevel == "" {
			logLevel = "debug"
		}
		appConfig.MergeCLIFlags(nil, "", 0, logLevel)

		if err := utils.InitLogger(appConfig.LogConfig()); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// 创建HTTP头部管理器
		headerManager, err := core.NewHeaderManager(appConfig.HeadersFile, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		if validateConfig {
			return runValidateConfig(headerManager)
		}

		if len(accounts) == 0 && accountsFile == "" && len(appConfig.Accounts) == 0 {
			return cmd.Help()
		}

		if err := ValidateFlags(accounts, maxWorkers); err != nil {
			return err
		}

		queries := accounts
		if accountsFile != "" {
			fromFile, err := utils.ReadAccountsFromFile(accountsFile)
			if err != nil {
				return err
			}
			queries = append(queries, fromFile...)
		}
		appConfig.MergeCLIFlags(queries, outputFile, maxWorkers, "")
		if noProgress {
			appConfig.Output.Progress = false
		}

		sink, err := utils.OpenSink(appConfig.Output.File)
		if err != nil {
			return err
		}
		defer func() {
			if err := sink.Close(); err != nil {
				utils.Errorf("关闭输出失败: %v", err)
			}
		}()

		scraper, err := core.NewScraper(appConfig, sink, headerManager)
		if err != nil {
			return fmt.Errorf("创建抓取器失败: %w", err)
		}

		// Ctrl+C: 停止发出新请求,已输出的记录保持完整
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := scraper.Run(ctx)
		printSummary(report, sink.Count())
		if err != nil {
			return fmt.Errorf("抓取未完全成功: %w", err)
		}

		utils.Info("✨ 抓取任务完成!")
		return nil
	},
}

// printSummary 统计输出到stderr, stdout留给记录流
func printSummary(report *models.RunReport, written int) {
	if report == nil {
		return
	}
	st := report.Stats
	fmt.Fprintln(os.Stderr, "\n==================================================")
	fmt.Fprintln(os.Stderr, "📊 抓取统计")
	fmt.Fprintln(os.Stderr, "==================================================")
	fmt.Fprintf(os.Stderr, "✅ 搜索词: %d (解析成功 %d)\n", st.Queries, st.AccountsResolved)
	fmt.Fprintf(os.Stderr, "✅ 文章: %d\n", st.ArticlesEmitted)
	fmt.Fprintf(os.Stderr, "❌ 错误记录: %d\n", st.ErrorRecords)
	fmt.Fprintf(os.Stderr, "🔄 拦截/切换身份: %d/%d\n", st.Blocks, st.Rotations)
	fmt.Fprintf(os.Stderr, "📦 输出记录: %d\n", written)
	fmt.Fprintf(os.Stderr, "⏱️  总耗时: %.2f秒\n", st.Duration)
	fmt.Fprintln(os.Stderr, "==================================================")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	// 不需要加载配置和日志
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wescraper %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径 (默认查找 ./configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	// 抓取参数
	rootCmd.Flags().StringArrayVarP(&accounts, "account", "a", []string{}, "公众号搜索词,可多次指定")
	rootCmd.Flags().StringVarP(&accountsFile, "accounts-file", "f", "", "搜索词列表文件,每行一个")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "记录输出文件 (默认stdout)")
	rootCmd.Flags().IntVar(&maxWorkers, "threads", 0, "并发请求数 (默认使用配置文件)")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "不显示进度条")

	// 添加子命令
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	err := rootCmd.Execute()
	utils.CloseLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
