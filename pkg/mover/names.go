package mover

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// candidateName 返回第 n 个候选文件名：n=1 时为原名，之后为 stem_n.ext。
func candidateName(name string, n int) string {
	if n <= 1 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%d%s", stem, n, ext)
}

// UniquePath 返回 dir 中第一个尚不存在的候选路径，不做任何修改。
func UniquePath(dir, name string) (string, error) {
	return UniquePathFunc(dir, name, nil)
}

// UniquePathFunc 同 UniquePath，但 taken 返回 true 的路径也视为已占用。
// 批量计划用它避开同一批次中已经预测过的目标路径。
func UniquePathFunc(dir, name string, taken func(path string) bool) (string, error) {
	for i := 1; i <= maxNameAttempts; i++ {
		path := filepath.Join(dir, candidateName(name, i))
		if taken != nil && taken(path) {
			continue
		}
		_, err := os.Lstat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("在 %s 中找不到可用的文件名 (%s)", dir, name)
}
