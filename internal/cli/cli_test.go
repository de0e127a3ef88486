package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"Downloads_Organizer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"y", true},
		{"n\n", false},
		{"\n", false},
		{"sure\n", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got := Confirm(strings.NewReader(tt.input), &out, MovePrompt(3))
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Move 3 file(s)?")
			assert.Contains(t, out.String(), "[y/N]")
		})
	}
}

func TestFormatRecord(t *testing.T) {
	moved := models.MoveRecord{
		Source:         "/dl/chase.pdf",
		Destination:    "/tax/2024 Tax Year/Bank Statements/Chase Credit Card/chase.pdf",
		Outcome:        models.OutcomeMoved,
		Classification: models.Classification{Type: models.FileTypePDF, Category: models.CategoryBankStatement},
	}
	line := FormatRecord(moved)
	assert.Contains(t, line, "chase.pdf")
	assert.Contains(t, line, "BankStatement")
	assert.Contains(t, line, "Chase Credit Card")

	failed := models.MoveRecord{
		Source:         "/dl/IMG_1.heic",
		Outcome:        models.OutcomeFailed,
		Err:            errors.New("disk full"),
		Classification: models.Classification{Type: models.FileTypeMedia, Kind: models.KindPhoto},
	}
	assert.Contains(t, FormatRecord(failed), "disk full")

	skipped := models.MoveRecord{
		Source:         "/dl/Q3_Proposal_SOW.pdf",
		Outcome:        models.OutcomeSkippedExcluded,
		Classification: models.Classification{Type: models.FileTypePDF, Category: models.CategoryWorkDocumentExcluded},
	}
	assert.Contains(t, FormatRecord(skipped), "skipped-excluded")
}

func TestRenderRecordsAndSummary(t *testing.T) {
	records := []models.MoveRecord{
		{Source: "/dl/a.pdf", Outcome: models.OutcomeWouldMove, Destination: "/tax/a.pdf",
			Classification: models.Classification{Type: models.FileTypePDF, Category: models.CategoryReceipt}},
		{Source: "/dl/b.pdf", Outcome: models.OutcomeSkippedUnknown,
			Classification: models.Classification{Type: models.FileTypePDF, Category: models.CategoryUnknown}},
	}
	var out bytes.Buffer
	require.NoError(t, RenderRecords(&out, records))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 2)

	out.Reset()
	require.NoError(t, RenderSummary(&out, "Tax Organizer", models.Summarize(records), true))
	assert.Contains(t, out.String(), "Tax Organizer (dry run)")
	assert.Contains(t, out.String(), "Would move:  1")
	assert.Contains(t, out.String(), "Unknown:    1")
}

func TestNewProgress(t *testing.T) {
	var out bytes.Buffer
	bar := NewProgress(&out, "Organizing")(2)
	require.NoError(t, bar.Add(1))
	require.NoError(t, bar.Add(1))
	require.NoError(t, bar.Finish())
	assert.Contains(t, out.String(), "2/2")
}
