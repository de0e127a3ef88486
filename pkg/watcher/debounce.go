package watcher

import (
	"Downloads_Organizer/internal/models"
	"sort"
	"time"
)

// StatFunc 返回文件当前大小。文件已不存在 (或不再是普通文件) 时返回错误。
type StatFunc func(path string) (int64, error)

// pendingSet 记录尚未稳定的文件。文件大小在 settle 时间内保持不变才算稳定。
// 不是并发安全的，由 Watcher 的互斥锁保护。
type pendingSet struct {
	settle  time.Duration
	entries map[string]*models.WatchedEvent
}

func newPendingSet(settle time.Duration) *pendingSet {
	return &pendingSet{settle: settle, entries: make(map[string]*models.WatchedEvent)}
}

// Observe 记录一次文件系统通知。大小变化会重新开始计时。
func (p *pendingSet) Observe(path, ext string, size int64, now time.Time) {
	ev, ok := p.entries[path]
	if !ok {
		p.entries[path] = &models.WatchedEvent{
			Path:       path,
			Ext:        ext,
			FirstSeen:  now,
			LastSize:   size,
			LastSizeAt: now,
		}
		return
	}
	if ev.LastSize != size {
		ev.LastSize = size
		ev.LastSizeAt = now
	}
}

// Collect 重新检查每个待定文件：消失的直接丢弃，大小变化的重新计时，
// 静置满 settle 的按路径排序返回。返回的条目仍留在集合中，入队成功后由调用方 Remove。
func (p *pendingSet) Collect(now time.Time, stat StatFunc) []models.WatchedEvent {
	var stable []models.WatchedEvent
	for path, ev := range p.entries {
		size, err := stat(path)
		if err != nil {
			delete(p.entries, path)
			continue
		}
		if size != ev.LastSize {
			ev.LastSize = size
			ev.LastSizeAt = now
			continue
		}
		if now.Sub(ev.LastSizeAt) >= p.settle {
			stable = append(stable, *ev)
		}
	}
	sort.Slice(stable, func(i, j int) bool { return stable[i].Path < stable[j].Path })
	return stable
}

func (p *pendingSet) Remove(path string) {
	delete(p.entries, path)
}

func (p *pendingSet) Has(path string) bool {
	_, ok := p.entries[path]
	return ok
}

func (p *pendingSet) Len() int {
	return len(p.entries)
}

// Paths 按字母顺序返回待定文件。
func (p *pendingSet) Paths() []string {
	paths := make([]string, 0, len(p.entries))
	for path := range p.entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
