package organizer

import (
	"Downloads_Organizer/internal/models"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var categoryFolders = map[models.Category]string{
	models.CategoryBankStatement: "Bank Statements",
	models.CategoryTaxForm:       "Tax Forms",
	models.CategoryReceipt:       "Receipts",
	models.CategoryInsurance:     "Insurance",
}

var kindFolders = map[models.Kind]string{
	models.KindPhoto: "Photos",
	models.KindVideo: "Videos",
	models.KindAudio: "Audio",
}

// PDFDestination 返回 {taxBase}/{Year} Tax Year/{分类目录}[/{来源目录}]。
// 相同的分类、年份和来源总是得到相同的目录。
func PDFDestination(taxBase string, c models.Classification) (string, error) {
	folder, ok := categoryFolders[c.Category]
	if !ok {
		return "", fmt.Errorf("分类 %s 没有归档目录", c.Category)
	}
	if c.Year == 0 {
		return "", fmt.Errorf("分类结果缺少年份")
	}
	dir := filepath.Join(taxBase, fmt.Sprintf("%d Tax Year", c.Year), folder)
	if c.Category == models.CategoryBankStatement && c.SourceFolder != "" {
		dir = filepath.Join(dir, SanitizeName(c.SourceFolder))
	}
	return dir, nil
}

// MediaDestination 返回 {mediaBase}/{Year}/{Month}/{Photos|Videos|Audio}。
func MediaDestination(mediaBase string, c models.Classification) (string, error) {
	folder, ok := kindFolders[c.Kind]
	if !ok {
		return "", fmt.Errorf("媒体类型 %s 没有归档目录", c.Kind)
	}
	if c.Year == 0 || c.Month == 0 {
		return "", fmt.Errorf("分类结果缺少年份或月份")
	}
	return filepath.Join(mediaBase, strconv.Itoa(c.Year), c.Month.String(), folder), nil
}

var timestampPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}_`)

// MediaFileName 在原文件名前加上拍摄时间 YYYY-MM-DD_HH-MM-SS_。已经带前缀的名字保持不变。
func MediaFileName(name string, c models.Classification, rename bool) string {
	name = filepath.Base(name)
	if !rename || c.Date.IsZero() || timestampPrefix.MatchString(name) {
		return name
	}
	return c.Date.Format("2006-01-02_15-04-05") + "_" + name
}

var nameReplacer = strings.NewReplacer("<", " ", ">", " ", ":", " ", "\"", " ", "/", " ", "\\", " ", "|", " ", "?", " ", "*", " ")

// SanitizeName 把名字转成可以安全用作目录名的 ASCII 形式。
func SanitizeName(name string) string {
	sanitized := nameReplacer.Replace(unidecode.Unidecode(name))
	sanitized = strings.Join(strings.Fields(sanitized), " ")
	sanitized = strings.TrimRight(sanitized, ". ")
	return strings.TrimSpace(sanitized)
}
