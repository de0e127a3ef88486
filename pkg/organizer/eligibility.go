package organizer

import (
	"Downloads_Organizer/config"
	"Downloads_Organizer/internal/models"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Eligibility 根据扩展名和忽略模式判断 Downloads 中的文件属于哪条流水线。
type Eligibility struct {
	kinds  map[string]models.Kind
	ignore []glob.Glob
}

func NewEligibility(media config.MediaConfig, ignorePatterns []string) (*Eligibility, error) {
	e := &Eligibility{kinds: make(map[string]models.Kind)}
	for kind, exts := range map[models.Kind][]string{
		models.KindPhoto: media.PhotoExtensions,
		models.KindVideo: media.VideoExtensions,
		models.KindAudio: media.AudioExtensions,
	} {
		for _, ext := range exts {
			e.kinds[normalizeExt(ext)] = kind
		}
	}
	for _, p := range ignorePatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("无效的忽略模式 '%s': %w", p, err)
		}
		e.ignore = append(e.ignore, g)
	}
	return e, nil
}

// Resolve 返回文件的类型和小写扩展名。不属于任何流水线或被忽略时 ok 为 false。
func (e *Eligibility) Resolve(path string) (fileType models.FileType, ext string, ok bool) {
	base := filepath.Base(path)
	if e.Ignored(base) {
		return "", "", false
	}
	ext = strings.ToLower(filepath.Ext(base))
	if ext == ".pdf" {
		return models.FileTypePDF, ext, true
	}
	if _, isMedia := e.kinds[ext]; isMedia {
		return models.FileTypeMedia, ext, true
	}
	return "", ext, false
}

// Kind 严格按扩展名判断媒体类型。
func (e *Eligibility) Kind(ext string) models.Kind {
	if kind, ok := e.kinds[normalizeExt(ext)]; ok {
		return kind
	}
	return models.KindUnknown
}

// Ignored 报告文件名是否命中忽略模式，例如浏览器未完成的下载。
func (e *Eligibility) Ignored(base string) bool {
	for _, g := range e.ignore {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// Scan 列出 dir 中 (不递归) 属于 fileType 的文件，按修改时间从旧到新排列。
func (e *Eligibility) Scan(dir string, fileType models.FileType) ([]models.StableFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: 无法读取目录 %s: %w", models.ErrFilesystem, dir, err)
	}

	type candidate struct {
		file  models.StableFile
		mtime int64
	}
	var found []candidate
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		t, ext, ok := e.Resolve(entry.Name())
		if !ok || t != fileType {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{
			file:  models.StableFile{Path: filepath.Join(dir, entry.Name()), Ext: ext, Type: t},
			mtime: info.ModTime().UnixNano(),
		})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].mtime < found[j].mtime })
	files := make([]models.StableFile, len(found))
	for i, c := range found {
		files[i] = c.file
	}
	return files, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
