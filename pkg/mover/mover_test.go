package mover

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Downloads_Organizer/internal/models"
	"Downloads_Organizer/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// snapshot 记录目录树中每个文件的内容，用于比较 dry-run 前后是否一致。
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		if d.IsDir() {
			tree[rel+"/"] = ""
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tree[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return tree
}

func newTestMover() *Mover {
	m := New(logger.Discard())
	m.retry = RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}
	return m
}

func TestSafeMove_Moves(t *testing.T) {
	root := t.TempDir()
	src := writeFile(t, filepath.Join(root, "Downloads", "statement.pdf"), "pdf bytes")
	mtime := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))
	dstDir := filepath.Join(root, "Archive", "2024 Tax Year", "Bank Statements")

	res := newTestMover().SafeMove(context.Background(), src, dstDir, "statement.pdf", false)

	require.NoError(t, res.Err)
	assert.Equal(t, models.OutcomeMoved, res.Outcome)
	assert.Equal(t, filepath.Join(dstDir, "statement.pdf"), res.Destination)
	assert.NoFileExists(t, src)

	data, err := os.ReadFile(res.Destination)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))

	info, err := os.Stat(res.Destination)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime), "modification time preserved")
}

func TestSafeMove_DuplicateSkipped(t *testing.T) {
	root := t.TempDir()
	dstDir := filepath.Join(root, "Archive")
	m := newTestMover()

	first := writeFile(t, filepath.Join(root, "Downloads", "a.pdf"), "identical")
	res := m.SafeMove(context.Background(), first, dstDir, "a.pdf", false)
	require.Equal(t, models.OutcomeMoved, res.Outcome)

	second := writeFile(t, filepath.Join(root, "Downloads", "a (1).pdf"), "identical")
	res = m.SafeMove(context.Background(), second, dstDir, "a (1).pdf", false)

	assert.Equal(t, models.OutcomeSkippedDuplicate, res.Outcome)
	assert.Equal(t, filepath.Join(dstDir, "a.pdf"), res.Destination)
	assert.FileExists(t, second, "duplicate source is left in place")

	entries, err := os.ReadDir(dstDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSafeMove_CollisionRenamed(t *testing.T) {
	root := t.TempDir()
	dstDir := filepath.Join(root, "Archive")
	writeFile(t, filepath.Join(dstDir, "scan.pdf"), "old content")
	writeFile(t, filepath.Join(dstDir, "scan_2.pdf"), "older content")
	src := writeFile(t, filepath.Join(root, "Downloads", "scan.pdf"), "new content")

	res := newTestMover().SafeMove(context.Background(), src, dstDir, "scan.pdf", false)

	require.NoError(t, res.Err)
	assert.Equal(t, models.OutcomeMoved, res.Outcome)
	assert.Equal(t, filepath.Join(dstDir, "scan_3.pdf"), res.Destination)

	data, err := os.ReadFile(filepath.Join(dstDir, "scan.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "old content", string(data), "existing file never overwritten")
}

func TestSafeMove_DryRunLeavesTreeUntouched(t *testing.T) {
	root := t.TempDir()
	src := writeFile(t, filepath.Join(root, "Downloads", "photo.jpg"), "jpeg")
	writeFile(t, filepath.Join(root, "Archive", "2023", "keep.txt"), "keep")
	dstDir := filepath.Join(root, "Archive", "2023", "July", "Photos")

	before := snapshot(t, root)
	res := newTestMover().SafeMove(context.Background(), src, dstDir, "photo.jpg", true)
	after := snapshot(t, root)

	require.NoError(t, res.Err)
	assert.Equal(t, models.OutcomeWouldMove, res.Outcome)
	assert.Equal(t, filepath.Join(dstDir, "photo.jpg"), res.Destination)
	assert.Equal(t, before, after)
	assert.NoDirExists(t, dstDir)
}

func TestSafeMove_VerificationFailureKeepsSource(t *testing.T) {
	root := t.TempDir()
	src := writeFile(t, filepath.Join(root, "Downloads", "w2.pdf"), "original")
	dstDir := filepath.Join(root, "Archive")

	m := newTestMover()
	m.copyFile = func(_ context.Context, _, dst string) error {
		return os.WriteFile(dst, []byte("corrupted"), 0o644)
	}

	res := m.SafeMove(context.Background(), src, dstDir, "w2.pdf", false)

	assert.Equal(t, models.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, models.ErrVerification)
	assert.FileExists(t, src)
	assert.FileExists(t, res.Destination, "the mismatching copy is kept for inspection")
}

func TestSafeMove_PartialCopyRemoved(t *testing.T) {
	root := t.TempDir()
	src := writeFile(t, filepath.Join(root, "Downloads", "big.mov"), "movie")
	dstDir := filepath.Join(root, "Archive")

	m := newTestMover()
	m.copyFile = func(_ context.Context, _, dst string) error {
		// 真实的 copyFile 在出错时会清理，这里模拟磁盘已满
		return errors.New("no space left on device")
	}

	res := m.SafeMove(context.Background(), src, dstDir, "big.mov", false)

	assert.Equal(t, models.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, models.ErrFilesystem)
	assert.FileExists(t, src)
	entries, err := os.ReadDir(dstDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSafeMove_MissingSource(t *testing.T) {
	root := t.TempDir()
	res := newTestMover().SafeMove(context.Background(), filepath.Join(root, "gone.pdf"), root, "gone.pdf", false)

	assert.Equal(t, models.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, models.ErrFilesystem)
}

func TestCopyFile_Cancelled(t *testing.T) {
	root := t.TempDir()
	src := writeFile(t, filepath.Join(root, "src.bin"), "payload")
	dst := filepath.Join(root, "dst.bin")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := copyFile(ctx, src, dst)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, dst)
	assert.FileExists(t, src)
}

func TestCopyFile_RefusesExisting(t *testing.T) {
	root := t.TempDir()
	src := writeFile(t, filepath.Join(root, "src.bin"), "new")
	dst := writeFile(t, filepath.Join(root, "dst.bin"), "old")

	err := copyFile(context.Background(), src, dst)
	assert.ErrorIs(t, err, fs.ErrExist)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()

	p, err := UniquePath(dir, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.pdf"), p)

	writeFile(t, filepath.Join(dir, "report.pdf"), "x")
	p, err = UniquePath(dir, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report_2.pdf"), p)

	p, err = UniquePath(filepath.Join(dir, "missing"), "a.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "missing", "a.tar.gz"), p)
}

func TestUniquePathFunc_SkipsTakenPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "report.pdf"), "x")
	taken := map[string]bool{filepath.Join(dir, "report_2.pdf"): true}

	p, err := UniquePathFunc(dir, "report.pdf", func(path string) bool { return taken[path] })
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report_3.pdf"), p)
}

func TestCandidateName(t *testing.T) {
	assert.Equal(t, "a.pdf", candidateName("a.pdf", 1))
	assert.Equal(t, "a_2.pdf", candidateName("a.pdf", 2))
	assert.Equal(t, "a.tar_3.gz", candidateName("a.tar.gz", 3))
	assert.Equal(t, "README_2", candidateName("README", 2))
}
