package extract

import (
	"Downloads_Organizer/internal/models"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dslipak/pdf"
)

// TextExtractor 读取 PDF 前几页的纯文本。
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// PDFText 使用 dslipak/pdf 提取文本，并为每个文件设置超时。
type PDFText struct {
	MaxPages int
	Timeout  time.Duration
}

func NewPDFText(maxPages int, timeout time.Duration) *PDFText {
	return &PDFText{MaxPages: maxPages, Timeout: timeout}
}

type textResult struct {
	text string
	err  error
}

// ExtractText 超时或解析失败 (加密、损坏) 时返回包装了 models.ErrExtraction 的错误。
func (p *PDFText) ExtractText(ctx context.Context, path string) (string, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	// 解析库不支持取消，超时后让后台 goroutine 自行结束
	done := make(chan textResult, 1)
	go func() {
		text, err := readPages(path, p.MaxPages)
		done <- textResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("%w: %s: %w", models.ErrExtraction, path, res.err)
		}
		return res.text, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w: %s", models.ErrExtraction, models.ErrExtractionTimeout, path)
		}
		return "", ctx.Err()
	}
}

func readPages(path string, maxPages int) (text string, err error) {
	// 损坏的文件可能让解析库 panic
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("解析 PDF 时出错: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return "", err
	}

	pages := r.NumPage()
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("第 %d 页: %w", i, err)
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
