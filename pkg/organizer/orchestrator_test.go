package organizer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Downloads_Organizer/internal/models"
	"Downloads_Organizer/pkg/extract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProgress struct {
	total, added int
	finished     bool
}

func (p *countingProgress) Add(n int) error { p.added += n; return nil }
func (p *countingProgress) Finish() error   { p.finished = true; return nil }

func pdfFixtures(t *testing.T, e *env) fakeText {
	t.Helper()
	old := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	e.write(t, "chase.pdf", "chase-bytes", old)
	e.write(t, "Q3_Proposal_SOW.pdf", "sow-bytes", old.Add(time.Hour))
	e.write(t, "menu.pdf", "menu-bytes", old.Add(2*time.Hour))
	e.write(t, "notes.txt", "not a pdf", old)
	e.write(t, "report.pdf.crdownload", "partial", old)
	return fakeText{
		"chase.pdf":           "Chase Credit Card Statement 03/15/2024",
		"Q3_Proposal_SOW.pdf": "quarterly plan",
		"menu.pdf":            "today's specials",
	}
}

func TestRunBatch_DryRunLeavesTreeUntouched(t *testing.T) {
	e := newEnv(t)
	text := pdfFixtures(t, e)
	o := e.orchestrator(t, text, fakeMeta{})

	before := snapshot(t, e.root)
	report, err := o.RunBatch(context.Background(), models.FileTypePDF, BatchOptions{DryRun: true, Notify: true})
	require.NoError(t, err)
	assert.Equal(t, before, snapshot(t, e.root))

	require.Len(t, report.Records, 3)
	assert.Equal(t, 1, report.Summary.WouldMove)
	assert.Equal(t, 1, report.Summary.SkippedExcluded)
	assert.Equal(t, 1, report.Summary.SkippedUnknown)
	assert.Empty(t, e.notifier.Messages(), "dry runs do not notify")
}

func TestRunBatch_LiveMovesAndNotifies(t *testing.T) {
	e := newEnv(t)
	text := pdfFixtures(t, e)
	o := e.orchestrator(t, text, fakeMeta{})

	var bars []*countingProgress
	report, err := o.RunBatch(context.Background(), models.FileTypePDF, BatchOptions{
		Notify: true,
		Progress: func(total int) Progress {
			p := &countingProgress{total: total}
			bars = append(bars, p)
			return p
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Summary.Moved)
	assert.False(t, report.Summary.HasFailures())
	assert.FileExists(t, filepath.Join(e.cfg.Paths.TaxBaseFolder, "2024 Tax Year", "Bank Statements", "Chase Credit Card", "chase.pdf"))
	assert.FileExists(t, filepath.Join(e.downloads, "Q3_Proposal_SOW.pdf"))
	assert.FileExists(t, filepath.Join(e.downloads, "menu.pdf"))
	assert.FileExists(t, filepath.Join(e.downloads, "report.pdf.crdownload"))

	for _, rec := range report.Records {
		assert.False(t, rec.DryRun)
	}

	msgs := e.notifier.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Tax Organizer", msgs[0].Title)
	assert.Equal(t, report.Summary.String(), msgs[0].Body)

	require.Len(t, bars, 2, "one bar for planning, one for moving")
	assert.Equal(t, 3, bars[0].added)
	assert.Equal(t, 1, bars[1].added)
	assert.True(t, bars[1].finished)
}

func TestRunBatch_ConfirmDeclined(t *testing.T) {
	e := newEnv(t)
	text := pdfFixtures(t, e)
	o := e.orchestrator(t, text, fakeMeta{})

	before := snapshot(t, e.root)
	var shown []models.MoveRecord
	report, err := o.RunBatch(context.Background(), models.FileTypePDF, BatchOptions{
		Confirm: func(plan []models.MoveRecord) bool {
			shown = plan
			return false
		},
	})
	assert.ErrorIs(t, err, ErrAborted)
	require.NotNil(t, report)
	assert.True(t, report.Aborted)
	assert.Len(t, shown, 3)
	assert.Equal(t, before, snapshot(t, e.root))
}

func TestRunBatch_DuplicateSkippedOnSecondRun(t *testing.T) {
	e := newEnv(t)
	when := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	e.write(t, "IMG_1.jpg", "same-photo", when)
	meta := fakeMeta{
		"IMG_1.jpg":     {extract.FieldDateTimeOriginal: "2023:07:04 10:00:00"},
		"IMG_1 (1).jpg": {extract.FieldDateTimeOriginal: "2023:07:04 10:00:00"},
	}
	o := e.orchestrator(t, fakeText{}, meta)

	first, err := o.RunBatch(context.Background(), models.FileTypeMedia, BatchOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, first.Summary.Moved)

	e.write(t, "IMG_1 (1).jpg", "same-photo", when)
	second, err := o.RunBatch(context.Background(), models.FileTypeMedia, BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Summary.SkippedDuplicate)
	assert.Equal(t, 0, second.Summary.Moved)

	photos := filepath.Join(e.cfg.Paths.MediaBaseFolder, "2023", "July", "Photos")
	entries, err := os.ReadDir(photos)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// outcomes 返回记录的结果和目标路径，便于比较 dry-run 与真正执行。
func outcomes(records []models.MoveRecord) ([]models.Outcome, []string) {
	var got []models.Outcome
	var dst []string
	for _, r := range records {
		got = append(got, r.Outcome)
		dst = append(dst, r.Destination)
	}
	return got, dst
}

func TestRunBatch_DryRunMatchesLiveForIdenticalPair(t *testing.T) {
	e := newEnv(t)
	when := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	e.write(t, "a.pdf", "same-receipt", when)
	e.write(t, "b.pdf", "same-receipt", when.Add(time.Minute))
	text := fakeText{
		"a.pdf": "Order Receipt 01/05/2024",
		"b.pdf": "Order Receipt 01/05/2024",
	}
	o := e.orchestrator(t, text, fakeMeta{})

	dry, err := o.RunBatch(context.Background(), models.FileTypePDF, BatchOptions{DryRun: true})
	require.NoError(t, err)
	dryOutcomes, dryDst := outcomes(dry.Records)
	assert.Equal(t, []models.Outcome{models.OutcomeWouldMove, models.OutcomeSkippedDuplicate}, dryOutcomes)
	assert.Equal(t, 1, dry.Summary.WouldMove)

	var prompted int
	live, err := o.RunBatch(context.Background(), models.FileTypePDF, BatchOptions{
		Confirm: func(plan []models.MoveRecord) bool {
			prompted = countOutcome(plan, models.OutcomeWouldMove)
			return true
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, prompted)
	liveOutcomes, liveDst := outcomes(live.Records)
	assert.Equal(t, []models.Outcome{models.OutcomeMoved, models.OutcomeSkippedDuplicate}, liveOutcomes)
	assert.Equal(t, dryDst, liveDst)
}

func TestRunBatch_DryRunPredictsRenamesWithinBatch(t *testing.T) {
	e := newEnv(t)
	receipts := filepath.Join(e.cfg.Paths.TaxBaseFolder, "2024 Tax Year", "Receipts")
	require.NoError(t, os.MkdirAll(receipts, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(receipts, "a.pdf"), []byte("older-receipt"), 0o644))

	when := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	e.write(t, "a.pdf", "receipt-one", when)
	e.write(t, "a_2.pdf", "receipt-two", when.Add(time.Minute))
	text := fakeText{
		"a.pdf":   "Order Receipt 01/05/2024",
		"a_2.pdf": "Order Receipt 01/06/2024",
	}
	o := e.orchestrator(t, text, fakeMeta{})

	dry, err := o.RunBatch(context.Background(), models.FileTypePDF, BatchOptions{DryRun: true})
	require.NoError(t, err)
	_, dryDst := outcomes(dry.Records)
	assert.Equal(t, []string{
		filepath.Join(receipts, "a_2.pdf"),
		filepath.Join(receipts, "a_2_2.pdf"),
	}, dryDst)

	live, err := o.RunBatch(context.Background(), models.FileTypePDF, BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, live.Summary.Moved)
	_, liveDst := outcomes(live.Records)
	assert.Equal(t, dryDst, liveDst)
}

func TestRunBatch_NothingToDo(t *testing.T) {
	e := newEnv(t)
	o := e.orchestrator(t, fakeText{}, fakeMeta{})

	report, err := o.RunBatch(context.Background(), models.FileTypeMedia, BatchOptions{Notify: true})
	require.NoError(t, err)
	assert.Empty(t, report.Records)
	assert.Empty(t, e.notifier.Messages())
}

func TestProcessFile(t *testing.T) {
	e := newEnv(t)
	src := e.write(t, "song.mp3", "mp3-bytes", time.Date(2022, 8, 8, 8, 8, 8, 0, time.UTC))
	o := e.orchestrator(t, fakeText{}, fakeMeta{})

	rec, err := o.ProcessFile(context.Background(), models.StableFile{Path: src, Ext: ".mp3", Type: models.FileTypeMedia})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeMoved, rec.Outcome)
	assert.Equal(t, filepath.Join("2022", "August", "Audio"), relDir(t, e.cfg.Paths.MediaBaseFolder, rec.Destination))

	_, err = o.ProcessFile(context.Background(), models.StableFile{Path: src, Type: "zip"})
	assert.Error(t, err)
}

func TestEligibility(t *testing.T) {
	e := newEnv(t)
	el := e.eligibility(t)

	ft, ext, ok := el.Resolve("/dl/Scan.PDF")
	assert.True(t, ok)
	assert.Equal(t, models.FileTypePDF, ft)
	assert.Equal(t, ".pdf", ext)

	ft, _, ok = el.Resolve("/dl/IMG_2000.HEIC")
	assert.True(t, ok)
	assert.Equal(t, models.FileTypeMedia, ft)
	assert.Equal(t, models.KindPhoto, el.Kind(".HEIC"))

	_, _, ok = el.Resolve("/dl/movie.mp4.crdownload")
	assert.False(t, ok)
	_, _, ok = el.Resolve("/dl/.hidden.pdf")
	assert.False(t, ok)
	_, _, ok = el.Resolve("/dl/archive.zip")
	assert.False(t, ok)
}
