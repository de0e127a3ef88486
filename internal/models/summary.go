package models

import (
	"fmt"
	"sort"
	"strings"
)

// Summary 汇总一次批处理（或监视器的一批文件）的移动结果。
type Summary struct {
	Moved            int            `json:"moved"`
	WouldMove        int            `json:"wouldMove"`
	SkippedDuplicate int            `json:"skippedDuplicate"`
	SkippedExcluded  int            `json:"skippedExcluded"`
	SkippedUnknown   int            `json:"skippedUnknown"`
	Failed           int            `json:"failed"`
	ByLabel          map[string]int `json:"byLabel,omitempty"`
}

// Add 把一条记录计入摘要。
func (s *Summary) Add(r MoveRecord) {
	switch r.Outcome {
	case OutcomeMoved:
		s.Moved++
	case OutcomeWouldMove:
		s.WouldMove++
	case OutcomeSkippedDuplicate:
		s.SkippedDuplicate++
	case OutcomeSkippedExcluded:
		s.SkippedExcluded++
	case OutcomeSkippedUnknown:
		s.SkippedUnknown++
	case OutcomeFailed:
		s.Failed++
	}
	if r.Outcome == OutcomeMoved || r.Outcome == OutcomeWouldMove {
		if s.ByLabel == nil {
			s.ByLabel = make(map[string]int)
		}
		s.ByLabel[r.Classification.Label()]++
	}
}

// Clone 返回不与 s 共享 ByLabel 的副本。
func (s Summary) Clone() Summary {
	c := s
	if s.ByLabel != nil {
		c.ByLabel = make(map[string]int, len(s.ByLabel))
		for k, v := range s.ByLabel {
			c.ByLabel[k] = v
		}
	}
	return c
}

// Summarize 从一组记录构建摘要。
func Summarize(records []MoveRecord) Summary {
	var s Summary
	for _, r := range records {
		s.Add(r)
	}
	return s
}

// Total 是记录总数。
func (s Summary) Total() int {
	return s.Moved + s.WouldMove + s.SkippedDuplicate + s.SkippedExcluded + s.SkippedUnknown + s.Failed
}

// Skipped 是所有跳过结果之和。
func (s Summary) Skipped() int {
	return s.SkippedDuplicate + s.SkippedExcluded + s.SkippedUnknown
}

// HasFailures 决定命令行的退出码。
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// String 生成命令行和通知共用的一行摘要。
func (s Summary) String() string {
	parts := []string{}
	if s.WouldMove > 0 {
		parts = append(parts, fmt.Sprintf("would move %d", s.WouldMove))
	}
	parts = append(parts,
		fmt.Sprintf("moved %d", s.Moved),
		fmt.Sprintf("skipped %d", s.Skipped()),
		fmt.Sprintf("failed %d", s.Failed),
	)
	line := strings.Join(parts, ", ")

	if len(s.ByLabel) > 0 {
		labels := make([]string, 0, len(s.ByLabel))
		for label := range s.ByLabel {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		detail := make([]string, 0, len(labels))
		for _, label := range labels {
			detail = append(detail, fmt.Sprintf("%s: %d", label, s.ByLabel[label]))
		}
		line += " (" + strings.Join(detail, ", ") + ")"
	}
	return line
}
