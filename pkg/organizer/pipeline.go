package organizer

import (
	"Downloads_Organizer/internal/models"
	"Downloads_Organizer/pkg/mover"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Pipeline 是一条“分类然后移动”的流水线。
type Pipeline interface {
	Classify(ctx context.Context, path string) models.Classification
	Move(ctx context.Context, path string, c models.Classification, dryRun bool) models.MoveRecord
	// Target 返回文件的目标目录和冲突重命名前的文件名。
	Target(path string, c models.Classification) (dir, name string, err error)
}

// SafeMover 由 mover.Mover 实现。
type SafeMover interface {
	SafeMove(ctx context.Context, src, dstDir, name string, dryRun bool) mover.Result
}

func newRecord(path string, c models.Classification, dryRun bool, now time.Time) models.MoveRecord {
	return models.MoveRecord{
		Source:         path,
		Classification: c,
		DryRun:         dryRun,
		At:             now,
	}
}

func applyResult(rec models.MoveRecord, res mover.Result) models.MoveRecord {
	rec.Outcome = res.Outcome
	rec.Destination = res.Destination
	rec.Fingerprint = res.Fingerprint
	rec.Err = res.Err
	return rec
}

// checkArchiveRoot 要求归档根目录已经存在。云盘离线或未挂载时不在本地重新创建它。
func checkArchiveRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: 归档目录不可用 (云盘可能离线): %w", models.ErrFilesystem, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: 归档目录不是目录: %s", models.ErrFilesystem, root)
	}
	return nil
}

type planKey struct {
	dir         string
	fingerprint string
}

// batchPlan 让 dry-run 计划考虑同一批次中排在前面的文件：
// 同一目录中内容相同的后一个文件预测为重复，已被预测占用的文件名继续顺延。
type batchPlan struct {
	claimed map[string]bool
	seen    map[planKey]string
}

func newBatchPlan() *batchPlan {
	return &batchPlan{claimed: make(map[string]bool), seen: make(map[planKey]string)}
}

func (b *batchPlan) adjust(p Pipeline, rec models.MoveRecord) models.MoveRecord {
	if rec.Outcome != models.OutcomeWouldMove || rec.Destination == "" {
		return rec
	}
	dir := filepath.Dir(rec.Destination)
	key := planKey{dir: dir, fingerprint: rec.Fingerprint}
	if first, ok := b.seen[key]; ok && rec.Fingerprint != "" {
		rec.Outcome = models.OutcomeSkippedDuplicate
		rec.Destination = first
		return rec
	}
	if b.claimed[rec.Destination] {
		_, name, err := p.Target(rec.Source, rec.Classification)
		if err == nil {
			var path string
			path, err = mover.UniquePathFunc(dir, name, func(path string) bool { return b.claimed[path] })
			if err == nil {
				rec.Destination = path
			}
		}
		if err != nil {
			rec.Outcome = models.OutcomeFailed
			rec.Err = fmt.Errorf("%w: %w", models.ErrFilesystem, err)
			return rec
		}
	}
	b.claimed[rec.Destination] = true
	b.seen[key] = rec.Destination
	return rec
}
