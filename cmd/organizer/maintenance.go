package main

import (
	"fmt"
	"log/slog"

	"Downloads_Organizer/internal/cli"
	"Downloads_Organizer/pkg/maintenance"

	"github.com/spf13/cobra"
)

// archiveRoots 根据参数选择归档根目录，默认两个都处理。
func (a *app) archiveRoots(args []string) ([]string, error) {
	if len(args) == 0 {
		return []string{a.cfg.Paths.TaxBaseFolder, a.cfg.Paths.MediaBaseFolder}, nil
	}
	switch args[0] {
	case "pdf":
		return []string{a.cfg.Paths.TaxBaseFolder}, nil
	case "media":
		return []string{a.cfg.Paths.MediaBaseFolder}, nil
	default:
		return nil, fmt.Errorf("未知的归档类型: %s (应为 pdf 或 media)", args[0])
	}
}

func auditCmd(a *app) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "audit [pdf|media]",
		Short: "Find files with identical content inside the archive folders",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, err := a.archiveRoots(args)
			if err != nil {
				return err
			}
			m := maintenance.NewMaintenance(slog.Default(), workers)
			for _, root := range roots {
				groups, err := m.AuditDuplicates(cmd.Context(), root)
				if err != nil {
					return err
				}
				if len(groups) == 0 {
					a.println(cli.FormatSuccess("No duplicates in " + root))
					continue
				}
				a.println(cli.FormatWarning(fmt.Sprintf("%d duplicate group(s) in %s", len(groups), root)))
				for _, g := range groups {
					a.println(cli.SubtleStyle.Render(fmt.Sprintf("  %s (%d bytes)", g.Fingerprint[:12], g.Size)))
					for _, p := range g.Paths {
						a.println("    " + p)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "number of hashing workers (default: number of CPUs)")
	return cmd
}

func manifestCmd(a *app) *cobra.Command {
	var output string
	var workers int
	cmd := &cobra.Command{
		Use:   "manifest [pdf|media]",
		Short: "Write a SHA-256 manifest of the archive folders",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, err := a.archiveRoots(args)
			if err != nil {
				return err
			}
			m := maintenance.NewMaintenance(slog.Default(), workers)
			for _, root := range roots {
				out := output
				if out == "" {
					out = root
				}
				path, err := m.GenerateFileManifest(cmd.Context(), root, out)
				if err != nil {
					return err
				}
				a.println(cli.FormatSuccess("Manifest written to " + path))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "directory for the manifest file (default: the archive root)")
	cmd.Flags().IntVar(&workers, "workers", 0, "number of hashing workers (default: number of CPUs)")
	return cmd
}
