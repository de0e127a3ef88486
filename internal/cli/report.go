package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"Downloads_Organizer/internal/models"
)

// FormatRecord 把一条移动记录渲染成一行。
func FormatRecord(r models.MoveRecord) string {
	name := filepath.Base(r.Source)
	label := r.Classification.Label()
	switch r.Outcome {
	case models.OutcomeMoved:
		return SuccessStyle.Render(fmt.Sprintf("%s %s [%s] → %s", SuccessIcon, name, label, r.Destination))
	case models.OutcomeWouldMove:
		return InfoStyle.Render(fmt.Sprintf("%s %s [%s] → %s", PlanIcon, name, label, r.Destination))
	case models.OutcomeFailed:
		return ErrorStyle.Render(fmt.Sprintf("%s %s [%s]: %s", ErrorIcon, name, label, r.ErrorText()))
	default:
		line := fmt.Sprintf("%s %s [%s] %s", SkipIcon, name, label, r.Outcome)
		if r.Outcome == models.OutcomeSkippedDuplicate && r.Destination != "" {
			line += " (" + r.Destination + ")"
		}
		return SubtleStyle.Render(line)
	}
}

// RenderRecords 按记录顺序逐行输出。
func RenderRecords(w io.Writer, records []models.MoveRecord) error {
	for _, r := range records {
		if _, err := fmt.Fprintln(w, FormatRecord(r)); err != nil {
			return fmt.Errorf("写入记录失败: %w", err)
		}
	}
	return nil
}

// RenderSummary 输出一次批量扫描的摘要框。
func RenderSummary(w io.Writer, title string, s models.Summary, dryRun bool) error {
	var b strings.Builder
	if dryRun {
		fmt.Fprintf(&b, "Would move:  %d\n", s.WouldMove)
	} else {
		fmt.Fprintf(&b, "Moved:      %d\n", s.Moved)
	}
	fmt.Fprintf(&b, "Duplicates: %d\n", s.SkippedDuplicate)
	fmt.Fprintf(&b, "Excluded:   %d\n", s.SkippedExcluded)
	fmt.Fprintf(&b, "Unknown:    %d\n", s.SkippedUnknown)
	failed := fmt.Sprintf("Failed:     %d", s.Failed)
	if s.HasFailures() {
		failed = ErrorStyle.Render(failed)
	}
	b.WriteString(failed)

	if dryRun {
		title += " (dry run)"
	}
	if _, err := fmt.Fprintln(w, RenderBox(title, b.String())); err != nil {
		return fmt.Errorf("写入摘要失败: %w", err)
	}
	return nil
}
