package utils

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// MaxAccountLength 单个搜索词的最大长度(字节)
const MaxAccountLength = 256

// ReadAccountsFromFile 从文件中读取公众号搜索词,每行一个
// 跳过空行和#开头的注释行,重复的搜索词只保留第一次出现
func ReadAccountsFromFile(filepath string) ([]string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("打开公众号列表文件失败: %w", err)
	}
	defer file.Close()

	accounts := make([]string, 0)
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if len(line) > MaxAccountLength {
			Warnf("跳过过长的搜索词 (行 %d): %d 字节", lineNum, len(line))
			continue
		}

		if _, dup := seen[line]; dup {
			Debugf("跳过重复的搜索词 (行 %d): %s", lineNum, line)
			continue
		}
		seen[line] = struct{}{}
		accounts = append(accounts, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取公众号列表文件失败: %w", err)
	}

	if len(accounts) == 0 {
		return nil, fmt.Errorf("公众号列表文件中没有有效的搜索词")
	}

	Infof("从文件加载了 %d 个公众号搜索词", len(accounts))
	return accounts, nil
}
