// Package logger 创建 slog 日志记录器
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format 日志输出格式
type Format string

const (
	// FormatJSON 结构化输出，适合日志采集
	FormatJSON Format = "json"
	// FormatText 文本输出，适合本地调试
	FormatText Format = "text"
)

// Option 日志配置选项函数
type Option func(*config)

type config struct {
	level  slog.Level
	format Format
	output io.Writer
	attrs  []slog.Attr
}

// WithLevel 设置日志级别
func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithFormat 设置输出格式，非法格式直接 panic
func WithFormat(f Format) Option {
	return func(c *config) {
		switch f {
		case FormatJSON, FormatText:
			c.format = f
		default:
			panic(fmt.Errorf("无效的日志格式 %q: 只支持 %q 或 %q", f, FormatJSON, FormatText))
		}
	}
}

// WithOutput 设置输出目标，nil 被忽略
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithAttr 为每条日志附加固定属性
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// New 创建日志记录器，默认 JSON 格式、INFO 级别、输出到标准输出
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.level}
	var handler slog.Handler
	if cfg.format == FormatText {
		handler = slog.NewTextHandler(cfg.output, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(cfg.output, handlerOpts)
	}
	if len(cfg.attrs) > 0 {
		handler = handler.WithAttrs(cfg.attrs)
	}
	return slog.New(handler)
}

// Discard 返回丢弃所有输出的日志记录器
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// OrDiscard l 为 nil 时返回 Discard()
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// ParseLevel 解析日志级别字符串，大小写不敏感
// 支持 debug、info、warn、error，其余返回错误
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("无效的日志级别 %q: %w", s, err)
	}
	return l, nil
}
