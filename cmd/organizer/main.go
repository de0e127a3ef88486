package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"Downloads_Organizer/config"
	"Downloads_Organizer/internal/cli"
	"Downloads_Organizer/internal/models"
	"Downloads_Organizer/pkg/lock"
	"Downloads_Organizer/pkg/logger"
	"Downloads_Organizer/pkg/notify"
	"Downloads_Organizer/pkg/organizer"

	"github.com/spf13/cobra"
)

var version = "dev"

// errFailures 表示批量扫描中有文件处理失败，只影响退出码。
var errFailures = errors.New("部分文件处理失败")

// app 保存全局参数和初始化后的依赖，各子命令共用。
type app struct {
	cfgFile   string
	logLevel  string
	logFormat string
	verbose   bool

	cfg    *config.Config
	closer io.Closer

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	// interactive 为 true 时显示进度条。
	interactive bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "organizer",
		Short: "Sort the Downloads folder into tax and media archives",
		Long: `organizer moves PDFs from the Downloads folder into a tax archive
(bank statements, tax forms, receipts, insurance) and photos, videos and
audio into a dated media archive. Every move is copy, verify, then delete.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.close,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./config.yaml or ~/.config/downloads-organizer/config.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (text, json)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output (same as --log-level debug)")

	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.AddCommand(batchCmd(a, "pdf", "Organize PDFs in the Downloads folder", models.FileTypePDF))
	root.AddCommand(batchCmd(a, "media", "Organize photos, videos and audio in the Downloads folder", models.FileTypeMedia))
	root.AddCommand(watchCmd(a))
	root.AddCommand(statusCmd(a))
	root.AddCommand(auditCmd(a))
	root.AddCommand(manifestCmd(a))
	root.AddCommand(configCmd(a))
	root.AddCommand(versionCmd(a))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := &app{
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		interactive: cli.IsTerminal(os.Stdout),
	}
	err := newRootCmd(a).ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errFailures) {
			fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		}
		os.Exit(1)
	}
}

// setup 加载配置并初始化日志。命令行参数覆盖配置文件中的日志设置。
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logger.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logger.Format = a.logFormat
	}

	closer, err := logger.InitLogger(cfg.Logger, a.verbose)
	if err != nil {
		return fmt.Errorf("无法初始化日志: %w", err)
	}
	a.cfg = cfg
	a.closer = closer
	slog.Debug("配置已加载", "command", cmd.Name(), "downloads", cfg.Paths.DownloadsFolder)
	return nil
}

func (a *app) close(*cobra.Command, []string) error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func (a *app) notifier() notify.Notifier {
	return notify.New(a.cfg.Notify, slog.Default())
}

func (a *app) locker() *lock.FileLock {
	return lock.New(a.cfg.Lock.Path, a.cfg.Lock.Timeout)
}

func (a *app) orchestrator() (*organizer.Orchestrator, error) {
	return organizer.NewOrchestrator(a.cfg, a.notifier(), a.locker(), slog.Default())
}

func (a *app) println(s string) {
	fmt.Fprintln(a.stdout, s)
}
