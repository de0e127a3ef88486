package main

import (
	"errors"
	"log/slog"

	"Downloads_Organizer/internal/api"
	"Downloads_Organizer/internal/cli"
	"Downloads_Organizer/internal/models"
	"Downloads_Organizer/internal/task"
	"Downloads_Organizer/pkg/notify"
	"Downloads_Organizer/pkg/watcher"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const recentNotifications = 50

func watchCmd(a *app) *cobra.Command {
	var pdfOnly, mediaOnly bool
	var listen string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the Downloads folder and organize files as they finish downloading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pdfOnly && mediaOnly {
				return errors.New("--pdf-only 和 --media-only 不能同时使用")
			}
			var types []models.FileType
			switch {
			case pdfOnly:
				types = []models.FileType{models.FileTypePDF}
			case mediaOnly:
				types = []models.FileType{models.FileTypeMedia}
			}
			if listen == "" {
				listen = a.cfg.Server.Listen
			}

			o, err := a.orchestrator()
			if err != nil {
				return err
			}
			// 最近的通知同时留在内存中，供状态接口查看
			recent := &notify.Recorder{Limit: recentNotifications}
			w := watcher.New(a.cfg.Paths.DownloadsFolder, a.cfg.Watcher, o.Eligibility(), o,
				notify.Multi{o.Notifier(), recent}, slog.Default(), types...)

			a.println(cli.FormatInfo("Watching " + a.cfg.Paths.DownloadsFolder + " (Ctrl+C to stop)"))

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return w.Run(ctx) })
			if listen != "" {
				tm := task.NewManager(ctx, o, slog.Default())
				router := api.RegisterRoutes(tm, w, recent, a.cfg, slog.Default())
				g.Go(func() error {
					defer tm.Wait()
					return api.Serve(ctx, listen, router, a.cfg.Server.Timeout, slog.Default())
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			a.println(cli.FormatSuccess("Watcher stopped"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&pdfOnly, "pdf-only", false, "only organize PDFs")
	cmd.Flags().BoolVar(&mediaOnly, "media-only", false, "only organize media files")
	cmd.Flags().StringVar(&listen, "listen", "", "serve the status API on this address, e.g. 127.0.0.1:8765")
	return cmd
}
