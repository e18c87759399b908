package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RecoveryAshes/wescraper/internal/core"
	"github.com/RecoveryAshes/wescraper/internal/models"
	"github.com/RecoveryAshes/wescraper/internal/utils"
)

// ValidateFlags 验证命令行标志
// maxWorkers为0表示未指定
func ValidateFlags(accounts []string, maxWorkers int) error {
	for _, a := range accounts {
		a = strings.TrimSpace(a)
		if a == "" {
			return fmt.Errorf("搜索词不能为空")
		}
		if len(a) > utils.MaxAccountLength {
			return fmt.Errorf("搜索词过长: %d 字节 (最大 %d)", len(a), utils.MaxAccountLength)
		}
	}

	if maxWorkers != 0 && (maxWorkers < 1 || maxWorkers > 100) {
		return fmt.Errorf("并发数必须在1-100之间,当前值: %d", maxWorkers)
	}

	return nil
}

// runValidateConfig 验证配置并打印各阶段生效的头部(脱敏)
func runValidateConfig(hm *core.HeaderManager) error {
	utils.Info("🔍 验证配置...")

	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}
	if err := hm.Prepare(); err != nil {
		return fmt.Errorf("HTTP头部配置验证失败: %w", err)
	}

	utils.Info("✅ 配置验证通过!")
	for _, stage := range []models.Stage{models.StageSearch, models.StageAccount, models.StageArticle} {
		safe := hm.GetSafeHeaders(stage)
		names := make([]string, 0, len(safe))
		for name := range safe {
			names = append(names, name)
		}
		sort.Strings(names)

		utils.Infof("[%s] 有效的HTTP头部 (%d个):", stage, len(safe))
		for _, name := range names {
			utils.Infof("  %s: %s", name, safe[name])
		}
	}
	return nil
}
