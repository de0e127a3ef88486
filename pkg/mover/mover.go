package mover

import (
	"Downloads_Organizer/internal/models"
	"Downloads_Organizer/pkg/hasher"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// maxNameAttempts 限制碰撞重命名的尝试次数。
const maxNameAttempts = 10000

// Result 是一次 SafeMove 的结果。
type Result struct {
	Outcome     models.Outcome
	Destination string
	Fingerprint string
	Err         error
}

// copyFunc 把 src 复制到一个尚不存在的 dst。dst 已存在时必须返回 fs.ErrExist 且不做任何修改。
type copyFunc func(ctx context.Context, src, dst string) error

// Mover 执行“复制、校验、删除”的安全移动。
type Mover struct {
	logger   *slog.Logger
	copyFile copyFunc
	retry    RetryOptions
}

func New(logger *slog.Logger) *Mover {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mover{
		logger:   logger.With("component", "mover"),
		copyFile: copyFile,
		retry:    DefaultRetryOptions(),
	}
}

// SafeMove 把 src 以 name 的名字移动到 dstDir。
// 目标目录中已有相同指纹的文件时跳过；只有副本的指纹与源文件一致时才删除源文件。
func (m *Mover) SafeMove(ctx context.Context, src, dstDir, name string, dryRun bool) Result {
	if err := ctx.Err(); err != nil {
		return Result{Outcome: models.OutcomeFailed, Err: err}
	}

	info, err := os.Stat(src)
	if err != nil {
		return failed("", "", fmt.Errorf("%w: 无法读取源文件 %s: %w", models.ErrFilesystem, src, err))
	}
	fingerprint, err := hasher.CalculateSHA256Context(ctx, src)
	if err != nil {
		return failed("", "", fmt.Errorf("%w: 无法计算源文件指纹 %s: %w", models.ErrFilesystem, src, err))
	}

	dup, err := FindDuplicate(ctx, dstDir, info.Size(), fingerprint)
	if err != nil {
		return failed("", fingerprint, fmt.Errorf("%w: 无法检查目标目录 %s: %w", models.ErrFilesystem, dstDir, err))
	}
	if dup != "" {
		m.logger.Info("目标目录已存在相同内容，跳过", "src", src, "existing", dup)
		return Result{Outcome: models.OutcomeSkippedDuplicate, Destination: dup, Fingerprint: fingerprint}
	}

	if dryRun {
		predicted, err := UniquePath(dstDir, name)
		if err != nil {
			return failed("", fingerprint, fmt.Errorf("%w: %w", models.ErrFilesystem, err))
		}
		return Result{Outcome: models.OutcomeWouldMove, Destination: predicted, Fingerprint: fingerprint}
	}

	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return failed("", fingerprint, fmt.Errorf("%w: 无法创建目标目录 %s: %w", models.ErrFilesystem, dstDir, err))
	}

	dst, err := m.copyToFreeName(ctx, src, dstDir, name)
	if err != nil {
		if ctx.Err() != nil {
			return failed("", fingerprint, err)
		}
		return failed("", fingerprint, fmt.Errorf("%w: 复制失败 %s: %w", models.ErrFilesystem, src, err))
	}

	copied, err := hasher.CalculateSHA256Context(ctx, dst)
	if err != nil {
		// 无法确认副本完整，两份都保留
		return failed(dst, fingerprint, fmt.Errorf("%w: 无法计算副本指纹 %s: %w", models.ErrVerification, dst, err))
	}
	if copied != fingerprint {
		m.logger.Error("副本校验失败，保留源文件和副本", "src", src, "dst", dst, "want", fingerprint, "got", copied)
		return failed(dst, fingerprint, fmt.Errorf("%w: %s 的指纹为 %s，期望 %s", models.ErrVerification, dst, copied, fingerprint))
	}

	if err := os.Remove(src); err != nil {
		return failed(dst, fingerprint, fmt.Errorf("%w: 副本已校验，但无法删除源文件 %s: %w", models.ErrFilesystem, src, err))
	}

	m.logger.Info("文件已移动", "src", src, "dst", dst)
	return Result{Outcome: models.OutcomeMoved, Destination: dst, Fingerprint: fingerprint}
}

// copyToFreeName 依次尝试 name、stem_2.ext、stem_3.ext ...，直到 O_EXCL 创建成功。
func (m *Mover) copyToFreeName(ctx context.Context, src, dstDir, name string) (string, error) {
	for i := 1; i <= maxNameAttempts; i++ {
		dst := filepath.Join(dstDir, candidateName(name, i))
		err := withRetry(ctx, m.logger, m.retry, func() error {
			return m.copyFile(ctx, src, dst)
		})
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		return dst, nil
	}
	return "", fmt.Errorf("在 %s 中找不到可用的文件名 (%s)", dstDir, name)
}

// FindDuplicate 在 dir 的直接子文件中查找内容指纹相同的文件，先比较大小再比较 SHA-256。
// dir 不存在时视为没有重复。
func FindDuplicate(ctx context.Context, dir string, size int64, fingerprint string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() != size {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		hash, err := hasher.CalculateSHA256Context(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		if hash == fingerprint {
			return path, nil
		}
	}
	return "", nil
}

// copyFile 以 O_EXCL 创建 dst 并复制内容，保留权限和修改时间。
// 复制中途失败或被取消时删除不完整的副本，源文件不受影响。
func copyFile(ctx context.Context, src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, hasher.ContextReader(ctx, in)); err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return err
	}
	if err = out.Chmod(info.Mode().Perm()); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func failed(dst, fingerprint string, err error) Result {
	return Result{Outcome: models.OutcomeFailed, Destination: dst, Fingerprint: fingerprint, Err: err}
}
