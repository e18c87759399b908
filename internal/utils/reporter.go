package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/wescraper/internal/models"
	"github.com/schollz/progressbar/v3"
)

// RunReportFile 运行报告文件名
const RunReportFile = "run_report.json"

// Reporter 报告生成器
type Reporter struct {
	outputDir string
}

// NewReporter 创建报告生成器,outputDir为空时不生成报告
func NewReporter(outputDir string) *Reporter {
	return &Reporter{outputDir: outputDir}
}

// Enabled 是否配置了报告目录
func (r *Reporter) Enabled() bool {
	return r.outputDir != ""
}

// SaveRunReport 保存运行报告,返回报告路径
func (r *Reporter) SaveRunReport(report *models.RunReport) (string, error) {
	if !r.Enabled() {
		return "", nil
	}
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	data, err := report.ToJSON()
	if err != nil {
		return "", fmt.Errorf("序列化JSON失败: %w", err)
	}

	path := filepath.Join(r.outputDir, RunReportFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("写入报告文件失败: %w", err)
	}

	Infof("✅ 运行报告已生成: %s", path)
	return path, nil
}

// NewProgressBar 创建进度条,输出到stderr
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
