package logger

import (
	"Downloads_Organizer/config"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// InitLogger 根据配置初始化全局的 slog 日志记录器。
// 日志写到 stderr，stdout 留给命令输出。配置了 logger.path 时同时写入运行日志文件，返回的 Closer 负责关闭它。
func InitLogger(cfg config.LoggerConfig, verbose bool) (io.Closer, error) {
	logLevel := new(slog.LevelVar)
	if err := setLogLevel(cfg.Level, logLevel); err != nil {
		return nil, err
	}
	if verbose {
		logLevel.Set(slog.LevelDebug)
	}

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("无法创建日志目录: %w", err)
		}
		file, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("无法打开运行日志: %w", err)
		}
		out = io.MultiWriter(os.Stderr, file)
		closer = file
	}

	handler, err := NewHandler(out, cfg.Format, logLevel)
	if err != nil {
		closer.Close()
		return nil, err
	}
	slog.SetDefault(slog.New(handler))
	return closer, nil
}

// NewHandler 根据格式 (text 或 json) 创建 handler。
func NewHandler(w io.Writer, format string, level slog.Leveler) (slog.Handler, error) {
	handlerOpts := &slog.HandlerOptions{
		Level: level,
		// AddSource: true, // 如果需要输出源码位置（文件名和行号），取消此行注释
	}
	switch format {
	case "json":
		return slog.NewJSONHandler(w, handlerOpts), nil
	case "text", "":
		return slog.NewTextHandler(w, handlerOpts), nil
	default:
		return nil, errors.New("无效的日志格式: " + format)
	}
}

// setLogLevel 将字符串形式的日志级别转换为 slog.Level 类型
func setLogLevel(levelStr string, levelVar *slog.LevelVar) error {
	switch levelStr {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "info", "":
		levelVar.Set(slog.LevelInfo)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		return errors.New("无效的日志级别: " + levelStr)
	}
	return nil
}

// Component 返回带 component 字段的 logger，取代原来每个模块单独的日志文件前缀。
func Component(base *slog.Logger, name string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("component", name)
}

// Discard 返回一个丢弃所有日志的 logger，主要用于测试，避免不必要的日志输出。
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
