package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"Downloads_Organizer/internal/cli"
	"Downloads_Organizer/internal/models"
	"Downloads_Organizer/pkg/notify"
	"Downloads_Organizer/pkg/organizer"

	"github.com/spf13/cobra"
)

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pending files, destination folders and notification setup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			el, err := organizer.NewEligibility(a.cfg.Media, a.cfg.Watcher.IgnorePatterns)
			if err != nil {
				return err
			}

			var b strings.Builder
			downloads := a.cfg.Paths.DownloadsFolder
			fmt.Fprintf(&b, "Downloads folder: %s\n", downloads)
			for _, ft := range []models.FileType{models.FileTypePDF, models.FileTypeMedia} {
				files, err := el.Scan(downloads, ft)
				if err != nil {
					fmt.Fprintf(&b, "  %s pending: %s\n", ft, cli.ErrorStyle.Render(err.Error()))
					continue
				}
				fmt.Fprintf(&b, "  %s pending: %d\n", ft, len(files))
			}

			b.WriteString("\n")
			fmt.Fprintf(&b, "Tax folder:   %s (%s)\n", a.cfg.Paths.TaxBaseFolder, reachable(a.cfg.Paths.TaxBaseFolder))
			fmt.Fprintf(&b, "Media folder: %s (%s)\n", a.cfg.Paths.MediaBaseFolder, reachable(a.cfg.Paths.MediaBaseFolder))

			b.WriteString("\n")
			fmt.Fprintf(&b, "Notifications: %s\n", notify.Describe(notify.New(a.cfg.Notify, slog.Default())))
			exiftool := "not found, using built-in EXIF reader"
			if path, err := exec.LookPath(a.cfg.Media.ExifToolPath); err == nil {
				exiftool = path
			}
			fmt.Fprintf(&b, "ExifTool:      %s\n", exiftool)
			fmt.Fprintf(&b, "Lock file:     %s", a.cfg.Lock.Path)

			a.println(cli.RenderBox("Downloads Organizer Status", b.String()))
			return nil
		},
	}
}

// reachable 说明目标目录是否可用。云盘离线时目录通常不存在。
func reachable(dir string) string {
	info, err := os.Stat(dir)
	switch {
	case err != nil:
		return cli.WarningStyle.Render("missing")
	case !info.IsDir():
		return cli.ErrorStyle.Render("not a directory")
	default:
		return cli.SuccessStyle.Render("ok")
	}
}
