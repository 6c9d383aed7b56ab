// Package service 批量设备任务的编排层：组织会话运行、输出落盘、
// 对象存储上传与运行记录。
package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/netsessionpro/netsessionpro/internal/config"
)

// scrubToken 清洗文件名片段：路径分隔符、点、冒号换成连字符，
// 管道与反斜杠直接去掉
func scrubToken(s string) string {
	replacer := strings.NewReplacer(
		"/", "-",
		".", "-",
		":", "-",
		"\\", "",
		"| ", "",
		"|", "",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

// BuildOutputPath 构造输出文件路径：<base_dir>/<hostname>-<desc>-<date>.txt。
// desc 通常是命令本身或一个用途标签。
func BuildOutputPath(cfg config.OutputConfig, hostname, desc string, now time.Time) (string, error) {
	baseDir := strings.TrimSpace(cfg.BaseDir)
	if baseDir == "" {
		baseDir = "./data/output"
	}
	if cfg.MkdirIfMissing {
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	} else if info, err := os.Stat(baseDir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("output directory %s does not exist and mkdir_if_missing is disabled", baseDir)
	}

	dateFormat := cfg.DateFormat
	if dateFormat == "" {
		dateFormat = "2006-01-02-15.04.05"
	}

	filename := fmt.Sprintf("%s-%s-%s.txt",
		scrubToken(hostname), scrubToken(desc), now.Format(dateFormat))
	return filepath.Join(baseDir, filename), nil
}
