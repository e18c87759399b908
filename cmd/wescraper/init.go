package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/wescraper/internal/config"
	"github.com/RecoveryAshes/wescraper/internal/core"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	initDir   string
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "生成默认配置文件",
	Long: `在指定目录生成 config.yaml 和 headers.yaml

config.yaml 包含所有配置项的默认值,headers.yaml 为HTTP头部模板。
已存在的文件不会被覆盖,除非指定 --force。`,
	// 不需要加载配置和日志
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := renderDefaultConfig()
		if err != nil {
			return err
		}

		files := []struct {
			name    string
			content []byte
		}{
			{"config.yaml", data},
			{"headers.yaml", []byte(config.Template())},
		}

		if err := os.MkdirAll(initDir, 0755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
		for _, f := range files {
			path := filepath.Join(initDir, f.name)
			written, err := writeIfAbsent(path, f.content, initForce)
			if err != nil {
				return err
			}
			if written {
				fmt.Fprintf(cmd.OutOrStdout(), "✅ 已生成: %s\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "⏭️  已存在,跳过: %s (使用 --force 覆盖)\n", path)
			}
		}
		return nil
	},
}

// renderDefaultConfig 默认配置序列化为YAML
func renderDefaultConfig() ([]byte, error) {
	cfg := core.DefaultConfig()
	cfg.HeadersFile = filepath.ToSlash(filepath.Join(initDir, "headers.yaml"))

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("序列化默认配置失败: %w", err)
	}
	header := "# wescraper 配置文件\n# 所有配置项都可以通过环境变量覆盖,如 " + core.EnvPrefix + "_CRAWL_MAX_WORKERS=8\n\n"
	return append([]byte(header), data...), nil
}

func writeIfAbsent(path string, content []byte, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return false, fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return true, nil
}

func init() {
	initCmd.Flags().StringVarP(&initDir, "output", "o", "configs", "配置文件目录")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "覆盖已存在的文件")
}
