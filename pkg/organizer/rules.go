package organizer

import (
	"Downloads_Organizer/config"
	"Downloads_Organizer/internal/models"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// Rule 是有序规则表中的一项：谓词加上命中后的分类。
type Rule struct {
	Name     string
	Category models.Category
	// Source 和 Folder 只有银行规则才有。
	Source string
	Folder string

	match func(fileName, text string) bool
}

// Matches 报告规则是否命中。fileName 和 text 都应已经过 NormalizeText / NormalizeFileName。
func (r Rule) Matches(fileName, text string) bool {
	return r.match(fileName, text)
}

// RuleSet 按顺序求值，第一个命中的规则生效。
type RuleSet struct {
	rules []Rule
}

// CompileRules 按 银行规则、税表规则、工作文档排除、其余文档规则 的顺序构建规则表。
func CompileRules(cfg config.PDFConfig) (*RuleSet, error) {
	rs := &RuleSet{}

	for _, br := range cfg.BankRules {
		res, err := compileAll(br.Patterns)
		if err != nil {
			return nil, fmt.Errorf("银行规则 '%s': %w", br.Name, err)
		}
		folder := br.FolderName
		if folder == "" {
			folder = br.Name
		}
		rs.rules = append(rs.rules, Rule{
			Name:     br.Name,
			Category: models.CategoryBankStatement,
			Source:   br.Name,
			Folder:   folder,
			match: func(_, text string) bool {
				for _, re := range res {
					if !re.MatchString(text) {
						return false
					}
				}
				return true
			},
		})
	}

	// 税表规则在排除之前，其余文档规则 (收据、保险) 在排除之后，
	// 否则提到 invoice 或 insurance 的工作文档会被归档。
	var taxForms, others []Rule
	for _, dr := range cfg.DocumentRules {
		res, err := compileAll(dr.Patterns)
		if err != nil {
			return nil, fmt.Errorf("文档规则 '%s': %w", dr.Name, err)
		}
		rule := Rule{
			Name:     dr.Name,
			Category: models.Category(dr.Category),
			match: func(_, text string) bool {
				return anyMatch(res, text)
			},
		}
		if rule.Category == models.CategoryTaxForm {
			taxForms = append(taxForms, rule)
		} else {
			others = append(others, rule)
		}
	}
	rs.rules = append(rs.rules, taxForms...)

	if len(cfg.ExclusionPatterns) > 0 {
		res, err := compileAll(cfg.ExclusionPatterns)
		if err != nil {
			return nil, fmt.Errorf("排除规则: %w", err)
		}
		rs.rules = append(rs.rules, Rule{
			Name:     "Work Document",
			Category: models.CategoryWorkDocumentExcluded,
			match: func(fileName, text string) bool {
				return anyMatch(res, fileName) || anyMatch(res, text)
			},
		})
	}

	rs.rules = append(rs.rules, others...)

	return rs, nil
}

// Match 返回第一个命中的规则。
func (rs *RuleSet) Match(fileName, text string) (Rule, bool) {
	for _, r := range rs.rules {
		if r.Matches(fileName, text) {
			return r, true
		}
	}
	return Rule{}, false
}

// Rules 返回规则表的副本，按求值顺序排列。
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("无效的匹配模式 '%s': %w", p, err)
		}
		res = append(res, re)
	}
	return res, nil
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	if s == "" {
		return false
	}
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// NormalizeText 转为小写 ASCII 并合并空白，规则中的正则都针对这种形式编写。
func NormalizeText(s string) string {
	s = unidecode.Unidecode(s)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

var fileNameSeparators = strings.NewReplacer("_", " ", "-", " ", ".", " ")

// NormalizeFileName 去掉扩展名，把 _-. 换成空格，使 \b 能在 "Q3_Proposal_SOW" 这样的名字里生效。
func NormalizeFileName(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return NormalizeText(fileNameSeparators.Replace(base))
}
