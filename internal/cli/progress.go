package cli

import (
	"fmt"
	"io"
	"os"

	"Downloads_Organizer/pkg/organizer"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// IsTerminal 判断 f 是否连着终端。非交互运行 (cron、管道) 不显示进度条。
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewProgress 返回批量扫描使用的进度条工厂。
func NewProgress(w io.Writer, description string) func(total int) organizer.Progress {
	return func(total int) organizer.Progress {
		return progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(w)
			}),
		)
	}
}
