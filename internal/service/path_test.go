package service

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/netsessionpro/netsessionpro/internal/config"
	"github.com/stretchr/testify/assert"
)

// TestScrubToken 文件名保留字符清洗
func TestScrubToken(t *testing.T) {
	assert.Equal(t, "show version", scrubToken("show version"))
	assert.Equal(t, "show ip route 10-0-0-0", scrubToken("show ip route 10.0.0.0"))
	assert.Equal(t, "show run i hostname", scrubToken("show run | i hostname"))
	assert.Equal(t, "corpsw", scrubToken("corp\\sw"))
	assert.Equal(t, "a-b-c", scrubToken("a/b:c"))
}

// TestBuildOutputPath 路径构造与目录创建
func TestBuildOutputPath(t *testing.T) {
	dir := t.TempDir()
	cfg := config.OutputConfig{
		BaseDir:        filepath.Join(dir, "out"),
		MkdirIfMissing: true,
		DateFormat:     "2006-01-02-15.04.05",
	}
	now := time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC)

	path, err := BuildOutputPath(cfg, "lab-sw-01", "show running-config", now)
	assert.NoError(t, err)
	assert.DirExists(t, cfg.BaseDir, "应自动创建输出目录")
	assert.True(t, strings.HasSuffix(path, ".txt"))
	assert.Equal(t, "lab-sw-01-show running-config-2026-08-26-10.30.00.txt", filepath.Base(path))
}

// TestBuildOutputPathNoMkdir 关闭自动建目录时目录缺失直接报错
func TestBuildOutputPathNoMkdir(t *testing.T) {
	dir := t.TempDir()
	cfg := config.OutputConfig{
		BaseDir:        filepath.Join(dir, "absent"),
		MkdirIfMissing: false,
	}
	_, err := BuildOutputPath(cfg, "sw", "show version", time.Now())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.NoDirExists(t, cfg.BaseDir)

	// 目录已存在时照常构造
	cfg.BaseDir = dir
	path, err := BuildOutputPath(cfg, "sw", "show version", time.Now())
	assert.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
}
