package models

import (
	"encoding/json"
	"errors"
	"time"
)

// 每个文件在一次运行中的处理失败类型。
var (
	// ErrExtraction 表示 PDF 文本或媒体元数据读取失败，属于非致命错误。
	ErrExtraction = errors.New("extraction failed")
	// ErrExtractionTimeout 表示外部提取过程超出了允许的时间。
	ErrExtractionTimeout = errors.New("extraction timed out")
	// ErrVerification 表示复制后的指纹与源文件不一致，源文件和副本都会被保留。
	ErrVerification = errors.New("copy verification failed")
	// ErrFilesystem 表示权限、空间或目标目录离线等文件系统问题。
	ErrFilesystem = errors.New("filesystem failure")
)

// FileType 区分两条处理流水线。
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeMedia FileType = "media"
)

// WatchedEvent 是监视器为一个尚未稳定的文件维护的状态。
type WatchedEvent struct {
	Path       string
	Ext        string
	FirstSeen  time.Time
	LastSize   int64
	LastSizeAt time.Time
}

// StableFile 是大小已在静置间隔内保持不变的文件，一旦开始分类便不再变化。
type StableFile struct {
	Path string
	Ext  string
	Type FileType
}

// Category 是 PDF 的分类桶。
type Category string

const (
	CategoryBankStatement        Category = "BankStatement"
	CategoryTaxForm              Category = "TaxForm"
	CategoryReceipt              Category = "Receipt"
	CategoryInsurance            Category = "Insurance"
	CategoryWorkDocumentExcluded Category = "WorkDocument-excluded"
	CategoryUnknown              Category = "Unknown"
)

// Kind 是媒体文件的分类桶。
type Kind string

const (
	KindPhoto   Kind = "Photo"
	KindVideo   Kind = "Video"
	KindAudio   Kind = "Audio"
	KindUnknown Kind = "Unknown"
)

// DateSource 记录年份/月份是从哪里得出的。
type DateSource string

const (
	DateFromContent  DateSource = "content"
	DateFromMetadata DateSource = "metadata"
	DateFromModTime  DateSource = "modtime"
)

// Classification 是从文件内容或元数据推导出的结果，每次运行都会重新计算。
type Classification struct {
	Type     FileType `json:"type"`
	Category Category `json:"category,omitempty"`
	Kind     Kind     `json:"kind,omitempty"`

	Year  int        `json:"year"`
	Month time.Month `json:"month,omitempty"`

	// Source 和 SourceFolder 只对银行账单有意义。
	Source       string `json:"source,omitempty"`
	SourceFolder string `json:"sourceFolder,omitempty"`

	Date       time.Time  `json:"date"`
	DateSource DateSource `json:"dateSource"`

	// Reason 说明命中的规则，或提取失败的原因。
	Reason string `json:"reason,omitempty"`
}

// Label 返回分类在摘要中使用的名字。
func (c Classification) Label() string {
	if c.Type == FileTypeMedia {
		return string(c.Kind)
	}
	return string(c.Category)
}

// Outcome 是一次移动的结果。
type Outcome string

const (
	OutcomeMoved            Outcome = "moved"
	OutcomeWouldMove        Outcome = "would-move"
	OutcomeSkippedDuplicate Outcome = "skipped-duplicate"
	OutcomeSkippedExcluded  Outcome = "skipped-excluded"
	OutcomeSkippedUnknown   Outcome = "skipped-unknown"
	OutcomeFailed           Outcome = "failed"
)

// MoveRecord 只用于本次运行的摘要和通知，不会持久化。
type MoveRecord struct {
	Source         string         `json:"source"`
	Destination    string         `json:"destination,omitempty"`
	Fingerprint    string         `json:"fingerprint,omitempty"`
	Outcome        Outcome        `json:"outcome"`
	Err            error          `json:"-"`
	Classification Classification `json:"classification"`
	DryRun         bool           `json:"dryRun,omitempty"`
	At             time.Time      `json:"at"`
}

// ErrorText 返回错误信息，没有错误时为空字符串。
func (r MoveRecord) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// MarshalJSON 把 Err 展开成字符串字段，供状态接口使用。
func (r MoveRecord) MarshalJSON() ([]byte, error) {
	type alias MoveRecord
	return json.Marshal(struct {
		alias
		Error string `json:"error,omitempty"`
	}{alias: alias(r), Error: r.ErrorText()})
}
