package organizer

import (
	"Downloads_Organizer/config"
	"Downloads_Organizer/internal/models"
	"Downloads_Organizer/pkg/extract"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// MediaOrganizer 按拍摄时间把照片、视频和音频归入媒体目录。
type MediaOrganizer struct {
	mediaBase   string
	rename      bool
	eligibility *Eligibility
	meta        extract.MetadataExtractor
	mover       SafeMover
	logger      *slog.Logger
	now         func() time.Time
}

func NewMediaOrganizer(cfg *config.Config, eligibility *Eligibility, meta extract.MetadataExtractor, mv SafeMover, logger *slog.Logger) *MediaOrganizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaOrganizer{
		mediaBase:   cfg.Paths.MediaBaseFolder,
		rename:      cfg.Media.RenameWithTimestamp,
		eligibility: eligibility,
		meta:        meta,
		mover:       mv,
		logger:      logger.With("component", "media"),
		now:         time.Now,
	}
}

// Classify 的类型只取决于扩展名；日期依次取元数据字段，全部不可用时用修改时间。
func (o *MediaOrganizer) Classify(ctx context.Context, path string) models.Classification {
	c := models.Classification{
		Type: models.FileTypeMedia,
		Kind: o.eligibility.Kind(filepath.Ext(path)),
	}
	now := o.now()

	meta, err := o.meta.Extract(ctx, path)
	if err != nil {
		o.logger.Debug("无法读取媒体元数据，使用修改时间", "path", path, "error", err)
		c.Reason = err.Error()
	}
	for _, field := range extract.DateFields {
		value, ok := meta[field]
		if !ok {
			continue
		}
		if t, ok := ParseMetadataDate(value, now); ok {
			setDate(&c, t, models.DateFromMetadata)
			c.Reason = "metadata: " + field
			return c
		}
	}

	if info, err := os.Stat(path); err == nil {
		setDate(&c, info.ModTime(), models.DateFromModTime)
	} else {
		setDate(&c, now, models.DateFromModTime)
	}
	if c.Reason == "" {
		c.Reason = "no capture date in metadata"
	}
	return c
}

func (o *MediaOrganizer) Move(ctx context.Context, path string, c models.Classification, dryRun bool) models.MoveRecord {
	rec := newRecord(path, c, dryRun, o.now())

	if c.Kind == models.KindUnknown {
		rec.Outcome = models.OutcomeFailed
		rec.Err = fmt.Errorf("不支持的媒体扩展名: %s", filepath.Ext(path))
		return rec
	}

	if err := checkArchiveRoot(o.mediaBase); err != nil {
		rec.Outcome = models.OutcomeFailed
		rec.Err = err
		return rec
	}
	dir, name, err := o.Target(path, c)
	if err != nil {
		rec.Outcome = models.OutcomeFailed
		rec.Err = err
		return rec
	}
	return applyResult(rec, o.mover.SafeMove(ctx, path, dir, name, dryRun))
}

func (o *MediaOrganizer) Target(path string, c models.Classification) (string, string, error) {
	dir, err := MediaDestination(o.mediaBase, c)
	if err != nil {
		return "", "", err
	}
	return dir, MediaFileName(path, c, o.rename), nil
}
