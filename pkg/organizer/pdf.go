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

// PDFOrganizer 按文本内容把 PDF 归入报税目录。
type PDFOrganizer struct {
	taxBase string
	text    extract.TextExtractor
	rules   *RuleSet
	mover   SafeMover
	logger  *slog.Logger
	now     func() time.Time
}

func NewPDFOrganizer(cfg *config.Config, text extract.TextExtractor, mv SafeMover, logger *slog.Logger) (*PDFOrganizer, error) {
	rules, err := CompileRules(cfg.PDF)
	if err != nil {
		return nil, fmt.Errorf("无法编译 PDF 规则: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFOrganizer{
		taxBase: cfg.Paths.TaxBaseFolder,
		text:    text,
		rules:   rules,
		mover:   mv,
		logger:  logger.With("component", "pdf"),
		now:     time.Now,
	}, nil
}

// Classify 提取文本并按规则表分类。提取失败不是致命错误，结果为 Unknown。
func (o *PDFOrganizer) Classify(ctx context.Context, path string) models.Classification {
	c := models.Classification{Type: models.FileTypePDF, Category: models.CategoryUnknown}
	now := o.now()

	var modTime time.Time
	if info, err := os.Stat(path); err == nil {
		modTime = info.ModTime()
	} else {
		o.logger.Warn("无法读取文件信息", "path", path, "error", err)
		modTime = now
	}

	raw, err := o.text.ExtractText(ctx, path)
	if err != nil {
		o.logger.Warn("PDF 文本提取失败，归为 Unknown", "path", path, "error", err)
		c.Reason = err.Error()
		setDate(&c, modTime, models.DateFromModTime)
		return c
	}

	text := NormalizeText(raw)
	fileName := NormalizeFileName(path)

	if rule, ok := o.rules.Match(fileName, text); ok {
		c.Category = rule.Category
		c.Source = rule.Source
		c.SourceFolder = rule.Folder
		c.Reason = "rule: " + rule.Name
	} else {
		c.Reason = "no rule matched"
	}

	if d, ok := FindDate(text, now); ok {
		setDate(&c, d, models.DateFromContent)
	} else {
		setDate(&c, modTime, models.DateFromModTime)
	}

	o.logger.Debug("PDF 已分类", "path", path, "category", c.Category, "source", c.Source, "year", c.Year, "dateSource", c.DateSource)
	return c
}

// Move 根据分类移动文件。排除的和未识别的文件原地保留。
func (o *PDFOrganizer) Move(ctx context.Context, path string, c models.Classification, dryRun bool) models.MoveRecord {
	rec := newRecord(path, c, dryRun, o.now())

	switch c.Category {
	case models.CategoryWorkDocumentExcluded:
		o.logger.Info("工作文档，保留在原处", "path", path)
		rec.Outcome = models.OutcomeSkippedExcluded
		return rec
	case models.CategoryUnknown:
		rec.Outcome = models.OutcomeSkippedUnknown
		return rec
	}

	if err := checkArchiveRoot(o.taxBase); err != nil {
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

// Target PDF 保留原文件名。
func (o *PDFOrganizer) Target(path string, c models.Classification) (string, string, error) {
	dir, err := PDFDestination(o.taxBase, c)
	if err != nil {
		return "", "", err
	}
	return dir, filepath.Base(path), nil
}

func setDate(c *models.Classification, t time.Time, source models.DateSource) {
	c.Date = t
	c.Year = t.Year()
	c.Month = t.Month()
	c.DateSource = source
}
