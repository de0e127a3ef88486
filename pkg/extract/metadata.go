package extract

import (
	"Downloads_Organizer/internal/models"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// 元数据字段名与 exiftool 的标签名一致。
const (
	FieldDateTimeOriginal  = "DateTimeOriginal"
	FieldCreateDate        = "CreateDate"
	FieldMediaCreateDate   = "MediaCreateDate"
	FieldDateTimeDigitized = "DateTimeDigitized"
)

// DateFields 是按优先级排列的拍摄日期字段。
var DateFields = []string{FieldDateTimeOriginal, FieldCreateDate, FieldMediaCreateDate, FieldDateTimeDigitized}

// Metadata 是字段名到原始字符串值的映射。
type Metadata map[string]string

// MetadataExtractor 读取媒体文件的元数据。
type MetadataExtractor interface {
	Extract(ctx context.Context, path string) (Metadata, error)
}

// ExifTool 通过外部 exiftool 进程读取元数据，支持 HEIC、MOV、MP4 等格式。
type ExifTool struct {
	Path    string
	Timeout time.Duration
}

// NewExifTool 在 PATH 中查找 exiftool，找不到时返回错误。
func NewExifTool(path string, timeout time.Duration) (*ExifTool, error) {
	if path == "" {
		path = "exiftool"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("找不到 exiftool (%s): %w", path, err)
	}
	return &ExifTool{Path: resolved, Timeout: timeout}, nil
}

func (e *ExifTool) Extract(ctx context.Context, path string) (Metadata, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := []string{"-json"}
	for _, f := range DateFields {
		args = append(args, "-"+f)
	}
	args = append(args, path)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w: exiftool %s", models.ErrExtraction, models.ErrExtractionTimeout, path)
		}
		return nil, fmt.Errorf("%w: exiftool %s: %w (%s)", models.ErrExtraction, path, err, strings.TrimSpace(stderr.String()))
	}
	return parseExifToolJSON(stdout.Bytes())
}

// parseExifToolJSON 解析 `exiftool -json` 的输出，它是每个文件一个对象的数组。
func parseExifToolJSON(data []byte) (Metadata, error) {
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: 无法解析 exiftool 输出: %w", models.ErrExtraction, err)
	}
	meta := Metadata{}
	if len(records) == 0 {
		return meta, nil
	}
	for key, value := range records[0] {
		if key == "SourceFile" || value == nil {
			continue
		}
		meta[key] = strings.TrimSpace(fmt.Sprint(value))
	}
	return meta, nil
}

// NativeEXIF 使用 goexif 直接读取 JPEG/TIFF 中的 EXIF，不依赖外部程序。
type NativeEXIF struct{}

func (NativeEXIF) Extract(_ context.Context, path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrExtraction, err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: 无法读取 EXIF %s: %w", models.ErrExtraction, path, err)
	}

	meta := Metadata{}
	for field, name := range map[string]exif.FieldName{
		FieldDateTimeOriginal:  exif.DateTimeOriginal,
		FieldDateTimeDigitized: exif.DateTimeDigitized,
	} {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		if value, err := tag.StringVal(); err == nil && strings.TrimSpace(value) != "" {
			meta[field] = strings.TrimSpace(value)
		}
	}
	return meta, nil
}

// Chain 依次调用多个提取器并合并结果，靠前的提取器优先。
// 只有全部失败时才返回错误。
type Chain struct {
	Extractors []MetadataExtractor
}

func NewChain(extractors ...MetadataExtractor) *Chain {
	return &Chain{Extractors: extractors}
}

func (c *Chain) Extract(ctx context.Context, path string) (Metadata, error) {
	merged := Metadata{}
	var errs []error
	for _, e := range c.Extractors {
		meta, err := e.Extract(ctx, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for k, v := range meta {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}
	if len(merged) == 0 && len(errs) > 0 && len(errs) == len(c.Extractors) {
		return nil, errors.Join(errs...)
	}
	return merged, nil
}

// DefaultMetadataExtractor 优先使用 exiftool，找不到时退回到 goexif。
func DefaultMetadataExtractor(exifToolPath string, timeout time.Duration, logger *slog.Logger) MetadataExtractor {
	tool, err := NewExifTool(exifToolPath, timeout)
	if err != nil {
		if logger != nil {
			logger.Warn("exiftool 不可用，只能读取 JPEG/TIFF 的 EXIF", "error", err)
		}
		return NewChain(NativeEXIF{})
	}
	return NewChain(tool, NativeEXIF{})
}
