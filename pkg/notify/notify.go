package notify

import (
	"Downloads_Organizer/config"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Notifier 尽力发送一条通知，不保证送达和顺序，也不重试。
type Notifier interface {
	Send(ctx context.Context, title, body string) error
}

// New 根据配置返回 Command 或 Noop。
func New(cfg config.NotifyConfig, logger *slog.Logger) Notifier {
	if !cfg.Enabled || cfg.Command == "" {
		return Noop{}
	}
	return NewCommand(cfg.Command, cfg.Args, cfg.Timeout, logger)
}

// Noop 丢弃所有通知。
type Noop struct{}

func (Noop) Send(context.Context, string, string) error { return nil }

// Command 调用外部程序发送通知，例如 notify-send 或 terminal-notifier。
// Args 中的 {title} 和 {body} 会被替换；都不出现时标题和正文追加在参数末尾。
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration
	logger  *slog.Logger
}

func NewCommand(path string, args []string, timeout time.Duration, logger *slog.Logger) *Command {
	if logger == nil {
		logger = slog.Default()
	}
	return &Command{Path: path, Args: args, Timeout: timeout, logger: logger.With("component", "notify")}
}

func (c *Command) Send(ctx context.Context, title, body string) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Path, c.buildArgs(title, body)...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		// 通知失败不影响文件处理，只在 debug 级别记录
		c.logger.Debug("发送通知失败", "title", title, "error", err, "stderr", strings.TrimSpace(stderr.String()))
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("发送通知超时: %w", err)
		}
		return fmt.Errorf("发送通知失败: %w", err)
	}
	return nil
}

func (c *Command) buildArgs(title, body string) []string {
	args := make([]string, 0, len(c.Args)+2)
	substituted := false
	for _, a := range c.Args {
		if strings.Contains(a, "{title}") || strings.Contains(a, "{body}") {
			substituted = true
			a = strings.ReplaceAll(a, "{title}", title)
			a = strings.ReplaceAll(a, "{body}", body)
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, title, body)
	}
	return args
}

// Message 是 Recorder 记录的一条通知。
type Message struct {
	Title string    `json:"title"`
	Body  string    `json:"body"`
	Sent  time.Time `json:"sent"`
}

// Recorder 把通知保存在内存中，供状态接口和测试查看。Limit > 0 时只保留最近的 Limit 条。
type Recorder struct {
	Limit int

	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Send(_ context.Context, title, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Title: title, Body: body, Sent: time.Now()})
	if r.Limit > 0 && len(r.messages) > r.Limit {
		r.messages = append(r.messages[:0:0], r.messages[len(r.messages)-r.Limit:]...)
	}
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Multi 依次发给多个 Notifier，返回所有错误的合并。
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, body string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, title, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Describe 返回通知方式的简短描述，用于 status 命令。
func Describe(n Notifier) string {
	switch v := n.(type) {
	case Noop:
		return "disabled"
	case *Command:
		return "command: " + v.Path
	case *Recorder:
		return "in-memory"
	case Multi:
		parts := make([]string, 0, len(v))
		for _, inner := range v {
			parts = append(parts, Describe(inner))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%T", n)
	}
}
