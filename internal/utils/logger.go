package utils

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/wescraper/internal/models"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志文件名
const (
	mainLogName  = "wescraper.log"
	errorLogName = "wescraper_error.log"
)

// Logger 全局日志器
// InitLogger之前为零值,写入被丢弃
var Logger zerolog.Logger

// logFiles 当前打开的轮转文件, CloseLogger时关闭
var logFiles []*lumberjack.Logger

// LogConfig 日志配置
type LogConfig struct {
	Level      string // trace, debug, info, warn, error
	LogDir     string
	MaxSize    int // 单个日志文件最大大小(MB)
	MaxBackups int
	MaxAge     int // 天
	Compress   bool
	NoColor    bool

	// Console 控制台输出,默认stderr (stdout留给记录流)
	Console io.Writer
}

// InitLogger 初始化日志系统
// 控制台和主日志文件接收所有级别,错误日志文件只接收error及以上
func InitLogger(cfg LogConfig) error {
	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	CloseLogger()
	mainLog := rotatingFile(cfg, mainLogName)
	errorLog := rotatingFile(cfg, errorLogName)
	logFiles = []*lumberjack.Logger{mainLog, errorLog}

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	Logger = zerolog.New(zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339, NoColor: cfg.NoColor},
		mainLog,
		&minLevelWriter{w: errorLog, min: zerolog.ErrorLevel},
	)).With().Timestamp().Caller().Logger()

	Logger.Info().
		Str("level", level.String()).
		Str("log_dir", cfg.LogDir).
		Msg("日志系统初始化完成")
	return nil
}

// CloseLogger 关闭日志文件,之后的日志只丢弃
func CloseLogger() {
	for _, f := range logFiles {
		_ = f.Close()
	}
	logFiles = nil
	Logger = zerolog.Nop()
}

func rotatingFile(cfg LogConfig, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, name),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
}

// TaskLogger 带任务上下文的子日志器
// 同一搜索词的三个阶段可以按query字段串起来
func TaskLogger(task *models.CrawlTask) zerolog.Logger {
	ctx := Logger.With().
		Str("stage", string(task.Stage)).
		Str("query", task.Query).
		Str("task", task.ID)
	if task.Retries > 0 {
		ctx = ctx.Int("retry", task.Retries)
	}
	return ctx.Logger()
}

// minLevelWriter 只写入min及以上级别
type minLevelWriter struct {
	w   io.Writer
	min zerolog.Level
}

// Write 不带级别的写入无法判断级别,直接丢弃
func (lw *minLevelWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

func (lw *minLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < lw.min {
		return len(p), nil
	}
	return lw.w.Write(p)
}

func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Infof(format string, args ...interface{}) {
	Logger.Info().Msgf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	Logger.Warn().Msgf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	Logger.Error().Msgf(format, args...)
}

func Debugf(format string, args ...interface{}) {
	Logger.Debug().Msgf(format, args...)
}
