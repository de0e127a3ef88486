package organizer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// 最早接受的年份。更早的“日期”通常是账号或金额。
const minPlausibleYear = 1970

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

type datePattern struct {
	name  string
	re    *regexp.Regexp
	parse func(m []string) (year, month, day int, ok bool)
}

// 依次尝试：ISO、美式、英文月份、紧凑格式。
var datePatterns = []datePattern{
	{
		name: "iso",
		re:   regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
		parse: func(m []string) (int, int, int, bool) {
			return atoi(m[1]), atoi(m[2]), atoi(m[3]), true
		},
	},
	{
		name: "us",
		re:   regexp.MustCompile(`\b(\d{2})[/-](\d{2})[/-](\d{4})\b`),
		parse: func(m []string) (int, int, int, bool) {
			return atoi(m[3]), atoi(m[1]), atoi(m[2]), true
		},
	},
	{
		name: "written",
		re:   regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+(\d{1,2}),?\s+(\d{4})\b`),
		parse: func(m []string) (int, int, int, bool) {
			month, ok := monthNames[strings.ToLower(m[1])[:3]]
			return atoi(m[3]), int(month), atoi(m[2]), ok
		},
	},
	{
		name: "compact",
		re:   regexp.MustCompile(`\b(\d{4})(\d{2})(\d{2})\b`),
		parse: func(m []string) (int, int, int, bool) {
			return atoi(m[1]), atoi(m[2]), atoi(m[3]), true
		},
	},
}

// FindDate 返回文本中第一个合理的日期。格式按固定顺序尝试，同一格式内取最先出现的合法日期。
// now 用于拒绝未来超过一年的日期。
func FindDate(text string, now time.Time) (time.Time, bool) {
	for _, p := range datePatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			y, mo, d, ok := p.parse(m)
			if !ok {
				continue
			}
			if t, ok := validDate(y, mo, d, now); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func validDate(year, month, day int, now time.Time) (time.Time, bool) {
	if year < minPlausibleYear || year > now.Year()+1 {
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date 会把 2月30日 规范化成 3月，这里拒绝这种情况
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// exiftool 和 EXIF 使用的时间格式。
var metadataLayouts = []string{
	"2006:01:02 15:04:05.999999999Z07:00",
	"2006:01:02 15:04:05Z07:00",
	"2006:01:02 15:04:05.999999999",
	"2006:01:02 15:04:05",
	"2006:01:02 15:04",
	"2006:01:02",
	time.RFC3339,
}

// ParseMetadataDate 解析元数据中的日期字段。全零或早于 1970 年的值视为无效。
func ParseMetadataDate(value string, now time.Time) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" || strings.HasPrefix(value, "0000") {
		return time.Time{}, false
	}
	for _, layout := range metadataLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if t.Year() < minPlausibleYear || t.Year() > now.Year()+1 {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
