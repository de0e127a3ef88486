package organizer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Downloads_Organizer/config"
	"Downloads_Organizer/internal/models"
	"Downloads_Organizer/pkg/extract"
	"Downloads_Organizer/pkg/logger"
	"Downloads_Organizer/pkg/mover"
	"Downloads_Organizer/pkg/notify"

	"github.com/stretchr/testify/require"
)

// fakeText 按文件名返回预先设定的文本。
type fakeText map[string]string

func (f fakeText) ExtractText(_ context.Context, path string) (string, error) {
	text, ok := f[filepath.Base(path)]
	if !ok {
		return "", models.ErrExtraction
	}
	return text, nil
}

// fakeMeta 按文件名返回预先设定的元数据。
type fakeMeta map[string]extract.Metadata

func (f fakeMeta) Extract(_ context.Context, path string) (extract.Metadata, error) {
	meta, ok := f[filepath.Base(path)]
	if !ok {
		return nil, models.ErrExtraction
	}
	return meta, nil
}

type env struct {
	root      string
	downloads string
	cfg       *config.Config
	notifier  *notify.Recorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DownloadsFolder = filepath.Join(root, "Downloads")
	cfg.Paths.TaxBaseFolder = filepath.Join(root, "Drive", "Taxes")
	cfg.Paths.MediaBaseFolder = filepath.Join(root, "Drive", "Media")
	for _, dir := range []string{cfg.Paths.DownloadsFolder, cfg.Paths.TaxBaseFolder, cfg.Paths.MediaBaseFolder} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	return &env{root: root, downloads: cfg.Paths.DownloadsFolder, cfg: cfg, notifier: &notify.Recorder{}}
}

// write 在 Downloads 中创建文件，并把修改时间设为 mtime。
func (e *env) write(t *testing.T, name, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(e.downloads, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func (e *env) eligibility(t *testing.T) *Eligibility {
	t.Helper()
	el, err := NewEligibility(e.cfg.Media, e.cfg.Watcher.IgnorePatterns)
	require.NoError(t, err)
	return el
}

func (e *env) orchestrator(t *testing.T, text fakeText, meta fakeMeta) *Orchestrator {
	t.Helper()
	mv := mover.New(logger.Discard())
	pdfOrg, err := NewPDFOrganizer(e.cfg, text, mv, logger.Discard())
	require.NoError(t, err)
	el := e.eligibility(t)
	mediaOrg := NewMediaOrganizer(e.cfg, el, meta, mv, logger.Discard())
	return NewOrchestratorWith(e.cfg, el, map[models.FileType]Pipeline{
		models.FileTypePDF:   pdfOrg,
		models.FileTypeMedia: mediaOrg,
	}, e.notifier, nil, logger.Discard())
}

// snapshot 记录目录树中每个文件的内容。
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := map[string]string{}
	require.NoError(t, filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
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
	}))
	return tree
}
