package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log *logrus.Logger

// Config 日志配置
type Config struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	Output     string `json:"output"`
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"`
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"`
	Compress   bool   `json:"compress"`
}

// Init 初始化日志
func Init(config Config) error {
	l := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if config.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:   "2006-01-02 15:04:05",
			DisableHTMLEscape: true, // 设备提示符中常见 <> 字符，禁用转义
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	var writers []io.Writer
	if config.Output == "console" || config.Output == "both" {
		writers = append(writers, os.Stdout)
	}
	if config.Output == "file" || config.Output == "both" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		})
	}
	if len(writers) > 0 {
		l.SetOutput(io.MultiWriter(writers...))
	}

	log = l
	return nil
}

// GetLogger 获取日志实例；未初始化时退回默认配置的实例
func GetLogger() *logrus.Logger {
	if log == nil {
		log = logrus.New()
	}
	return log
}

// entry 把 "消息, 键, 值, 键, 值..." 形式的参数拆成结构化字段。
// 键必须是字符串；落单的尾参数挂在 extra 字段上而不是丢掉。
func entry(args []interface{}) (*logrus.Entry, string) {
	if len(args) == 0 {
		return logrus.NewEntry(GetLogger()), ""
	}
	msg := fmt.Sprint(args[0])
	kv := args[1:]

	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields[key] = kv[i+1]
	}
	if len(kv)%2 == 1 {
		fields["extra"] = kv[len(kv)-1]
	}
	return GetLogger().WithFields(fields), msg
}

// Debug 调试日志，消息后跟键值对
func Debug(args ...interface{}) {
	e, msg := entry(args)
	e.Debug(msg)
}

// Info 信息日志，消息后跟键值对
func Info(args ...interface{}) {
	e, msg := entry(args)
	e.Info(msg)
}

// Warn 警告日志，消息后跟键值对
func Warn(args ...interface{}) {
	e, msg := entry(args)
	e.Warn(msg)
}

// Error 错误日志，消息后跟键值对
func Error(args ...interface{}) {
	e, msg := entry(args)
	e.Error(msg)
}

// Fatal 致命错误日志，消息后跟键值对，记录后退出进程
func Fatal(args ...interface{}) {
	e, msg := entry(args)
	e.Fatal(msg)
}
