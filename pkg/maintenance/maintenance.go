// Package maintenance 提供归档目录的维护工具：SHA-256 清单和重复文件审计。
package maintenance

import (
	"Downloads_Organizer/pkg/hasher"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Maintenance 定义了维护工具的接口
type Maintenance interface {
	GenerateFileManifest(ctx context.Context, root, outputDir string) (string, error)
	AuditDuplicates(ctx context.Context, root string) ([]DuplicateGroup, error)
}

// DuplicateGroup 是内容完全相同的一组文件。
type DuplicateGroup struct {
	Fingerprint string   `json:"fingerprint"`
	Size        int64    `json:"size"`
	Paths       []string `json:"paths"`
}

// entry 是工作池计算出的一个文件结果。
type entry struct {
	path string
	rel  string
	size int64
	hash string
}

type defaultMaintenance struct {
	logger     *slog.Logger
	numWorkers int
	now        func() time.Time
}

// NewMaintenance 创建一个新的维护模块实例。workerCount <= 0 时使用 CPU 数。
func NewMaintenance(logger *slog.Logger, workerCount int) Maintenance {
	if logger == nil {
		logger = slog.Default()
	}
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &defaultMaintenance{
		logger:     logger.With("component", "maintenance"),
		numWorkers: workerCount,
		now:        time.Now,
	}
}

// GenerateFileManifest 为 root 下所有文件生成 "sha256 *相对路径" 格式的清单，按路径排序。
// 返回清单文件路径。
func (m *defaultMaintenance) GenerateFileManifest(ctx context.Context, root, outputDir string) (string, error) {
	m.logger.Info("--- 开始生成文件清单 ---", "root", root)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("无法创建清单目录: %w", err)
	}
	manifestPath := filepath.Join(outputDir, fmt.Sprintf("manifest_%s.txt", m.now().Format("2006-01-02")))

	// 以前生成的清单不计入
	entries, err := m.hashTree(ctx, root, func(info fs.FileInfo) bool {
		return !isManifest(info.Name())
	})
	if err != nil {
		return "", err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s *%s\n", e.hash, filepath.ToSlash(e.rel))
	}
	if err := os.WriteFile(manifestPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("无法写入清单文件: %w", err)
	}

	m.logger.Info("--- 文件清单生成完毕 ---", "path", manifestPath, "files", len(entries))
	return manifestPath, nil
}

// AuditDuplicates 找出 root 下内容相同的文件。只对大小相同的文件计算哈希。
func (m *defaultMaintenance) AuditDuplicates(ctx context.Context, root string) ([]DuplicateGroup, error) {
	m.logger.Info("--- 开始审计重复文件 ---", "root", root)

	sizes := make(map[int64]int)
	err := walkFiles(root, func(path string, info fs.FileInfo) {
		sizes[info.Size()]++
	})
	if err != nil {
		return nil, err
	}

	entries, err := m.hashTree(ctx, root, func(info fs.FileInfo) bool {
		return sizes[info.Size()] > 1
	})
	if err != nil {
		return nil, err
	}

	type key struct {
		size int64
		hash string
	}
	groups := make(map[key][]string)
	for _, e := range entries {
		k := key{e.size, e.hash}
		groups[k] = append(groups[k], e.path)
	}

	var result []DuplicateGroup
	for k, paths := range groups {
		if len(paths) < 2 {
			continue
		}
		sort.Strings(paths)
		result = append(result, DuplicateGroup{Fingerprint: k.hash, Size: k.size, Paths: paths})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Paths[0] < result[j].Paths[0] })

	m.logger.Info("--- 重复文件审计完毕 ---", "groups", len(result))
	return result, nil
}

// hashTree 用工作池并发计算 root 下文件的哈希。filter 为 nil 时处理所有文件。
// 单个文件读取失败只记录警告。
func (m *defaultMaintenance) hashTree(ctx context.Context, root string, filter func(fs.FileInfo) bool) ([]entry, error) {
	var wg sync.WaitGroup
	tasks := make(chan entry, m.numWorkers)
	results := make(chan entry, m.numWorkers)

	for i := 0; i < m.numWorkers; i++ {
		wg.Add(1)
		go m.hashWorker(ctx, &wg, tasks, results)
	}

	// 单独的协程收集结果
	var collected []entry
	var collectWg sync.WaitGroup
	collectWg.Add(1)
	go func() {
		defer collectWg.Done()
		for e := range results {
			collected = append(collected, e)
		}
	}()

	walkErr := walkFiles(root, func(path string, info fs.FileInfo) {
		if filter != nil && !filter(info) {
			return
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		select {
		case tasks <- entry{path: path, rel: rel, size: info.Size()}:
		case <-ctx.Done():
		}
	})

	close(tasks)
	wg.Wait()
	close(results)
	collectWg.Wait()

	if walkErr != nil {
		return nil, walkErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return collected, nil
}

func (m *defaultMaintenance) hashWorker(ctx context.Context, wg *sync.WaitGroup, tasks <-chan entry, results chan<- entry) {
	defer wg.Done()
	for e := range tasks {
		hash, err := hasher.CalculateSHA256Context(ctx, e.path)
		if err != nil {
			m.logger.Warn("计算文件哈希失败", "path", e.path, "error", err)
			continue
		}
		e.hash = hash
		results <- e
	}
}

func isManifest(name string) bool {
	return strings.HasPrefix(name, "manifest_") && strings.HasSuffix(name, ".txt")
}

// walkFiles 遍历 root 下的普通文件，跳过隐藏文件和目录。
func walkFiles(root string, fn func(path string, info fs.FileInfo)) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		fn(path, info)
		return nil
	})
	if err != nil {
		return fmt.Errorf("扫描目录 %s 失败: %w", root, err)
	}
	return nil
}
