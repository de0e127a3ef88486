package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm 打印提示并读取一行回答，只有 y 或 yes (不区分大小写) 算同意。
// 读取失败 (包括 EOF) 视为拒绝。
func Confirm(r io.Reader, w io.Writer, prompt string) bool {
	if _, err := fmt.Fprint(w, PromptStyle.Render(prompt)+" [y/N] "); err != nil {
		return false
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(w)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// MovePrompt 是批量移动前的确认问题。
func MovePrompt(n int) string {
	return fmt.Sprintf("Move %d file(s)?", n)
}
