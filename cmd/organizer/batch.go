package main

import (
	"errors"
	"fmt"

	"Downloads_Organizer/internal/cli"
	"Downloads_Organizer/internal/models"
	"Downloads_Organizer/pkg/organizer"

	"github.com/spf13/cobra"
)

func batchCmd(a *app, use, short string, fileType models.FileType) *cobra.Command {
	var dryRun, yes bool
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBatch(cmd, fileType, dryRun, yes)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be moved without touching any file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "move without asking for confirmation")
	return cmd
}

func (a *app) runBatch(cmd *cobra.Command, fileType models.FileType, dryRun, yes bool) error {
	o, err := a.orchestrator()
	if err != nil {
		return err
	}

	title := organizer.BatchTitle(fileType)
	a.println(cli.FormatTitle(title))
	if dryRun {
		a.println(cli.FormatInfo("Dry run: no files will be moved"))
	}

	opts := organizer.BatchOptions{DryRun: dryRun, Notify: true}
	if a.interactive {
		opts.Progress = cli.NewProgress(a.stderr, "Organizing")
	}
	if !yes && !dryRun {
		opts.Confirm = func(plan []models.MoveRecord) bool {
			if err := cli.RenderRecords(a.stdout, plan); err != nil {
				return false
			}
			n := 0
			for _, r := range plan {
				if r.Outcome == models.OutcomeWouldMove {
					n++
				}
			}
			return cli.Confirm(a.stdin, a.stdout, cli.MovePrompt(n))
		}
	}

	report, err := o.RunBatch(cmd.Context(), fileType, opts)
	if errors.Is(err, organizer.ErrAborted) {
		a.println(cli.FormatWarning("Aborted: nothing was moved"))
		return nil
	}
	if report != nil {
		if len(report.Records) == 0 && err == nil {
			a.println(cli.FormatSuccess("Nothing to organize in " + a.cfg.Paths.DownloadsFolder))
			return nil
		}
		if rerr := cli.RenderRecords(a.stdout, report.Records); rerr != nil {
			return rerr
		}
		if rerr := cli.RenderSummary(a.stdout, title, report.Summary, dryRun); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return fmt.Errorf("批量扫描失败: %w", err)
	}
	if report.Summary.HasFailures() {
		a.println(cli.FormatError(fmt.Sprintf("%d file(s) failed, see the log for details", report.Summary.Failed)))
		return errFailures
	}
	return nil
}
