package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// BankRule 描述如何识别某个银行账户的对账单。所有 Patterns 都命中才算匹配。
type BankRule struct {
	Name       string   `mapstructure:"name" yaml:"name" json:"name"`
	Patterns   []string `mapstructure:"patterns" yaml:"patterns" json:"patterns"`
	FolderName string   `mapstructure:"folderName" yaml:"folderName" json:"folderName"`
}

// DocumentRule 描述非银行类 PDF 的分类。任意一个 Pattern 命中即匹配。
type DocumentRule struct {
	Name     string   `mapstructure:"name" yaml:"name" json:"name"`
	Category string   `mapstructure:"category" yaml:"category" json:"category"`
	Patterns []string `mapstructure:"patterns" yaml:"patterns" json:"patterns"`
}

type PathsConfig struct {
	DownloadsFolder string `mapstructure:"downloadsFolder" yaml:"downloadsFolder" json:"downloadsFolder"`
	TaxBaseFolder   string `mapstructure:"taxBaseFolder" yaml:"taxBaseFolder" json:"taxBaseFolder"`
	MediaBaseFolder string `mapstructure:"mediaBaseFolder" yaml:"mediaBaseFolder" json:"mediaBaseFolder"`
}

type PDFConfig struct {
	MaxPages          int            `mapstructure:"maxPages" yaml:"maxPages" json:"maxPages"`
	ExtractTimeout    time.Duration  `mapstructure:"extractTimeout" yaml:"extractTimeout" json:"extractTimeout"`
	BankRules         []BankRule     `mapstructure:"bankRules" yaml:"bankRules" json:"bankRules"`
	DocumentRules     []DocumentRule `mapstructure:"documentRules" yaml:"documentRules" json:"documentRules"`
	ExclusionPatterns []string       `mapstructure:"exclusionPatterns" yaml:"exclusionPatterns" json:"exclusionPatterns"`
}

type MediaConfig struct {
	PhotoExtensions     []string      `mapstructure:"photoExtensions" yaml:"photoExtensions" json:"photoExtensions"`
	VideoExtensions     []string      `mapstructure:"videoExtensions" yaml:"videoExtensions" json:"videoExtensions"`
	AudioExtensions     []string      `mapstructure:"audioExtensions" yaml:"audioExtensions" json:"audioExtensions"`
	ExifToolPath        string        `mapstructure:"exifToolPath" yaml:"exifToolPath" json:"exifToolPath"`
	ExtractTimeout      time.Duration `mapstructure:"extractTimeout" yaml:"extractTimeout" json:"extractTimeout"`
	RenameWithTimestamp bool          `mapstructure:"renameWithTimestamp" yaml:"renameWithTimestamp" json:"renameWithTimestamp"`
}

type WatcherConfig struct {
	SettleInterval time.Duration `mapstructure:"settleInterval" yaml:"settleInterval" json:"settleInterval"`
	PollInterval   time.Duration `mapstructure:"pollInterval" yaml:"pollInterval" json:"pollInterval"`
	RescanInterval time.Duration `mapstructure:"rescanInterval" yaml:"rescanInterval" json:"rescanInterval"`
	QueueSize      int           `mapstructure:"queueSize" yaml:"queueSize" json:"queueSize"`
	RecentRecords  int           `mapstructure:"recentRecords" yaml:"recentRecords" json:"recentRecords"`
	IgnorePatterns []string      `mapstructure:"ignorePatterns" yaml:"ignorePatterns" json:"ignorePatterns"`
}

type NotifyConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Command string        `mapstructure:"command" yaml:"command" json:"command"`
	Args    []string      `mapstructure:"args" yaml:"args" json:"args"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	Path   string `mapstructure:"path" yaml:"path" json:"path"`
}

type ServerConfig struct {
	Listen  string        `mapstructure:"listen" yaml:"listen" json:"listen"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

type LockConfig struct {
	Path    string        `mapstructure:"path" yaml:"path" json:"path"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// Config 是整个程序的静态配置。构造后不再修改，通过参数传给各个组件。
type Config struct {
	Paths   PathsConfig   `mapstructure:"paths" yaml:"paths" json:"paths"`
	PDF     PDFConfig     `mapstructure:"pdf" yaml:"pdf" json:"pdf"`
	Media   MediaConfig   `mapstructure:"media" yaml:"media" json:"media"`
	Watcher WatcherConfig `mapstructure:"watcher" yaml:"watcher" json:"watcher"`
	Notify  NotifyConfig  `mapstructure:"notify" yaml:"notify" json:"notify"`
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger" json:"logger"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
	Lock    LockConfig    `mapstructure:"lock" yaml:"lock" json:"lock"`
}

const envPrefix = "ORGANIZER"

// LoadConfig 读取 YAML 配置文件和 ORGANIZER_* 环境变量。
// configFile 为空时在当前目录和 ~/.config/downloads-organizer 中查找 config.yaml，找不到则使用默认值。
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(ExpandPath(configFile))
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "downloads-organizer"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法解析配置: %w", err)
	}
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回不读取任何文件时的配置，主要用于测试。
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("默认配置无法解析: %v", err))
	}
	cfg.expandPaths()
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.downloadsFolder", "~/Downloads")
	v.SetDefault("paths.taxBaseFolder", "~/Google Drive/My Drive/Personal/Taxes")
	v.SetDefault("paths.mediaBaseFolder", "~/Google Drive/My Drive/Personal/Media")

	v.SetDefault("pdf.maxPages", 3)
	v.SetDefault("pdf.extractTimeout", 30*time.Second)
	v.SetDefault("pdf.bankRules", defaultBankRules)
	v.SetDefault("pdf.documentRules", defaultDocumentRules)
	v.SetDefault("pdf.exclusionPatterns", defaultExclusionPatterns)

	v.SetDefault("media.photoExtensions", defaultPhotoExtensions)
	v.SetDefault("media.videoExtensions", defaultVideoExtensions)
	v.SetDefault("media.audioExtensions", defaultAudioExtensions)
	v.SetDefault("media.exifToolPath", "exiftool")
	v.SetDefault("media.extractTimeout", 10*time.Second)
	v.SetDefault("media.renameWithTimestamp", true)

	v.SetDefault("watcher.settleInterval", 5*time.Second)
	v.SetDefault("watcher.pollInterval", time.Second)
	v.SetDefault("watcher.rescanInterval", time.Minute)
	v.SetDefault("watcher.queueSize", 64)
	v.SetDefault("watcher.recentRecords", 50)
	v.SetDefault("watcher.ignorePatterns", defaultIgnorePatterns)

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.command", "")
	v.SetDefault("notify.args", []string{})
	v.SetDefault("notify.timeout", 5*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.path", "")

	v.SetDefault("server.listen", "")
	v.SetDefault("server.timeout", 15*time.Second)

	v.SetDefault("lock.path", "~/.downloads_organizer.lock")
	v.SetDefault("lock.timeout", 30*time.Second)
}

func (c *Config) expandPaths() {
	c.Paths.DownloadsFolder = ExpandPath(c.Paths.DownloadsFolder)
	c.Paths.TaxBaseFolder = ExpandPath(c.Paths.TaxBaseFolder)
	c.Paths.MediaBaseFolder = ExpandPath(c.Paths.MediaBaseFolder)
	c.Logger.Path = ExpandPath(c.Logger.Path)
	c.Lock.Path = ExpandPath(c.Lock.Path)
}

// Validate 在启动时编译所有正则和通配符，避免运行到一半才发现规则写错。
func (c *Config) Validate() error {
	if c.Paths.DownloadsFolder == "" {
		return errors.New("配置错误: paths.downloadsFolder 不能为空")
	}
	if c.PDF.MaxPages <= 0 {
		return fmt.Errorf("配置错误: pdf.maxPages 必须大于 0 (当前 %d)", c.PDF.MaxPages)
	}
	if c.Watcher.SettleInterval <= 0 || c.Watcher.PollInterval <= 0 {
		return errors.New("配置错误: watcher.settleInterval 和 watcher.pollInterval 必须大于 0")
	}
	if c.Watcher.QueueSize <= 0 {
		return fmt.Errorf("配置错误: watcher.queueSize 必须大于 0 (当前 %d)", c.Watcher.QueueSize)
	}

	for _, rule := range c.PDF.BankRules {
		if rule.Name == "" || len(rule.Patterns) == 0 {
			return fmt.Errorf("配置错误: 银行规则 '%s' 缺少名称或匹配模式", rule.Name)
		}
		for _, p := range rule.Patterns {
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("无效的银行匹配模式 '%s' (%s): %w", p, rule.Name, err)
			}
		}
	}
	for _, rule := range c.PDF.DocumentRules {
		if !validDocumentCategory(rule.Category) {
			return fmt.Errorf("配置错误: 文档规则 '%s' 的分类 '%s' 无效", rule.Name, rule.Category)
		}
		for _, p := range rule.Patterns {
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("无效的文档匹配模式 '%s' (%s): %w", p, rule.Name, err)
			}
		}
	}
	for _, p := range c.PDF.ExclusionPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("无效的排除模式 '%s': %w", p, err)
		}
	}
	for _, p := range c.Watcher.IgnorePatterns {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("无效的忽略模式 '%s': %w", p, err)
		}
	}
	return nil
}

func validDocumentCategory(category string) bool {
	switch category {
	case "TaxForm", "Receipt", "Insurance":
		return true
	default:
		return false
	}
}

// YAML 返回生效配置的 YAML 表示。
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ExpandPath 展开路径中的 ~ 和环境变量。
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}
