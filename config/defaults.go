package config

// 默认的分类规则。顺序有意义：先匹配的规则优先。
var defaultBankRules = []BankRule{
	{Name: "Colonial Checking", Patterns: []string{`colonial`, `account.*0675`}, FolderName: "Colonial Checking - 0675"},
	{Name: "Colonial Savings", Patterns: []string{`colonial`, `account.*5934`}, FolderName: "Colonial Savings - 5934"},
	{Name: "American Express", Patterns: []string{`american express|\bamex\b`}, FolderName: "American Express"},
	// 支票账户对账单里常有信用卡广告，所以只认对账单标题和卡片名称
	{Name: "Chase Credit Card", Patterns: []string{`\bchase\b`, `credit card statement|\bsapphire\b|card ending in`}, FolderName: "Chase Credit Card"},
	{Name: "Chase Checking", Patterns: []string{`\bchase\b`, `checking`}, FolderName: "Chase Checking"},
}

var defaultDocumentRules = []DocumentRule{
	{Name: "Tax Forms", Category: "TaxForm", Patterns: []string{`\b1099\b`, `\bw-?2\b`, `\b1098\b`, `form 1040`}},
	{Name: "Receipts", Category: "Receipt", Patterns: []string{`\breceipt\b`, `\binvoice\b`, `payment confirmation`}},
	{Name: "Insurance", Category: "Insurance", Patterns: []string{`\binsurance\b`, `\bpolicy\b`, `\bcoverage\b`, `\bclaim\b`}},
}

// 工作文档永远不归档。
var defaultExclusionPatterns = []string{
	`\bproposal\b`,
	`\bsow\b`,
	`statement of work`,
	`\bcontract\b`,
	`\bagreement\b`,
	`\bpresentation\b`,
	`\bdeck\b`,
	`\bconsulting\b`,
}

var defaultPhotoExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif",
	".heic", ".heif",
	".raw", ".cr2", ".nef", ".arw", ".orf", ".rw2", ".dng",
	".raf", ".srw", ".pef", ".x3f", ".3fr", ".mef", ".mrw",
}

var defaultVideoExtensions = []string{
	".mp4", ".mov", ".avi", ".mkv", ".m4v", ".3gp", ".wmv",
	".flv", ".webm", ".mts", ".m2ts", ".mpg", ".mpeg",
}

var defaultAudioExtensions = []string{
	".mp3", ".m4a", ".wav", ".aac", ".flac", ".ogg", ".wma",
	".aiff", ".aif", ".m4b", ".opus",
}

// 浏览器下载过程中的临时文件。
var defaultIgnorePatterns = []string{
	"*.crdownload",
	"*.part",
	"*.partial",
	"*.download",
	"*.tmp",
	".*",
}
