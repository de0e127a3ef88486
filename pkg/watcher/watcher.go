// Package watcher 监视 Downloads 目录，等文件写完后逐个交给协调器处理。
package watcher

import (
	"Downloads_Organizer/config"
	"Downloads_Organizer/internal/models"
	"Downloads_Organizer/pkg/notify"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

const notificationTitle = "Downloads Organizer"

// Dispatcher 处理一个稳定文件。返回错误表示文件没有被处理，之后可以重试。
type Dispatcher interface {
	ProcessFile(ctx context.Context, f models.StableFile) (models.MoveRecord, error)
}

// Resolver 判断文件属于哪条流水线，由 organizer.Eligibility 实现。
type Resolver interface {
	Resolve(path string) (models.FileType, string, bool)
}

// Snapshot 是监视器当前状态，供 status 接口使用。
type Snapshot struct {
	Directory    string              `json:"directory"`
	Running      bool                `json:"running"`
	Started      time.Time           `json:"started,omitempty"`
	Types        []models.FileType   `json:"types"`
	Pending      int                 `json:"pending"`
	PendingFiles []string            `json:"pendingFiles,omitempty"`
	// Dispatched 是已分发且仍在跟踪的路径数，已移走的文件不再计入。
	Dispatched   int                 `json:"dispatched"`
	QueueLength  int                 `json:"queueLength"`
	Batches      int                 `json:"batches"`
	Totals       models.Summary      `json:"totals"`
	Recent       []models.MoveRecord `json:"recent"`
}

// Watcher 把文件系统事件经过去抖动放入有界队列，由单个分发循环依次处理。
type Watcher struct {
	dir        string
	cfg        config.WatcherConfig
	types      []models.FileType
	allowed    map[models.FileType]bool
	resolver   Resolver
	dispatcher Dispatcher
	notifier   notify.Notifier
	logger     *slog.Logger

	now  func() time.Time
	stat StatFunc

	queue chan models.StableFile

	mu         sync.Mutex
	pending    *pendingSet
	dispatched map[string]struct{}
	batch      []models.MoveRecord
	batches    int
	totals     models.Summary
	recent     []models.MoveRecord
	running    bool
	started    time.Time
}

// New 创建监视器。types 为空时同时处理 PDF 和媒体文件。
func New(dir string, cfg config.WatcherConfig, resolver Resolver, dispatcher Dispatcher, notifier notify.Notifier, logger *slog.Logger, types ...models.FileType) *Watcher {
	if len(types) == 0 {
		types = []models.FileType{models.FileTypePDF, models.FileTypeMedia}
	}
	allowed := make(map[models.FileType]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Watcher{
		dir:        dir,
		cfg:        cfg,
		types:      types,
		allowed:    allowed,
		resolver:   resolver,
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger.With("component", "watcher"),
		now:        time.Now,
		stat:       statRegular,
		queue:      make(chan models.StableFile, queueSize),
		pending:    newPendingSet(cfg.SettleInterval),
		dispatched: make(map[string]struct{}),
	}
}

// Run 阻塞直到 ctx 被取消。取消时正在进行的移动会完成，队列中其余文件留待下次处理。
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("无法创建文件监视器: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("无法监视目录 %s: %w", w.dir, err)
	}

	w.mu.Lock()
	w.running = true
	w.started = w.now()
	w.mu.Unlock()

	w.logger.Info("监视器已启动", "dir", w.dir, "types", w.types, "settle", w.cfg.SettleInterval)
	w.send(ctx, "Watcher started", "Watching "+w.dir)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.dispatchLoop(ctx)
	}()

	w.Rescan()

	poll := time.NewTicker(w.cfg.PollInterval)
	defer poll.Stop()

	var rescan <-chan time.Time
	if w.cfg.RescanInterval > 0 {
		t := time.NewTicker(w.cfg.RescanInterval)
		defer t.Stop()
		rescan = t.C
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case ev, ok := <-fw.Events:
			if !ok {
				break loop
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				break loop
			}
			w.logger.Error("文件监视器错误", "error", err)
		case <-poll.C:
			w.Tick()
		case <-rescan:
			w.Rescan()
		}
	}

	wg.Wait()

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("监视器已停止")
	w.send(context.WithoutCancel(ctx), "Watcher stopped", "No longer watching "+w.dir)
	return nil
}

// handleEvent 只关心 Create 和 Write；重命名会为新名字产生 Create。
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if filepath.Dir(ev.Name) != filepath.Clean(w.dir) {
		return
	}
	w.Observe(ev.Name)
}

// Observe 把一个路径放入待定集合。不合格、已分发或已消失的文件会被忽略。
func (w *Watcher) Observe(path string) {
	fileType, ext, ok := w.resolver.Resolve(path)
	if !ok || !w.allowed[fileType] {
		return
	}
	size, err := w.stat(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, done := w.dispatched[path]; done {
		return
	}
	if !w.pending.Has(path) {
		w.logger.Debug("发现新文件", "path", path, "size", size)
	}
	w.pending.Observe(path, ext, size, w.now())
}

// Rescan 列出目录中的文件并放入待定集合，弥补漏掉的事件和启动前已存在的文件。
func (w *Watcher) Rescan() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("无法扫描目录", "dir", w.dir, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			w.Observe(filepath.Join(w.dir, entry.Name()))
		}
	}
}

// Tick 把已稳定的文件放入队列。队列满时文件留在待定集合，下次再试。
func (w *Watcher) Tick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, ev := range w.pending.Collect(w.now(), w.stat) {
		fileType, ext, ok := w.resolver.Resolve(ev.Path)
		if !ok || !w.allowed[fileType] {
			w.pending.Remove(ev.Path)
			continue
		}
		f := models.StableFile{Path: ev.Path, Ext: ext, Type: fileType}
		select {
		case w.queue <- f:
			w.pending.Remove(ev.Path)
			w.dispatched[ev.Path] = struct{}{}
			w.logger.Debug("文件已稳定，加入队列", "path", ev.Path, "waited", w.now().Sub(ev.FirstSeen))
		default:
			w.logger.Debug("队列已满，稍后重试", "path", ev.Path)
			return
		}
	}
}

// dispatchLoop 依次处理队列中的文件。队列排空时视为一批结束并发送一条汇总通知。
func (w *Watcher) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.flushBatch(context.WithoutCancel(ctx))
			return
		case f := <-w.queue:
			w.dispatch(ctx, f)
			if len(w.queue) == 0 {
				w.flushBatch(ctx)
			}
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, f models.StableFile) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("处理文件时发生 panic", "path", f.Path, "panic", r)
			w.record(models.MoveRecord{
				Source:  f.Path,
				Outcome: models.OutcomeFailed,
				Err:     fmt.Errorf("panic: %v", r),
				At:      w.now(),
			})
		}
	}()

	// 已经开始的移动不随 ctx 取消而中断
	rec, err := w.dispatcher.ProcessFile(context.WithoutCancel(ctx), f)
	if err != nil {
		w.logger.Warn("文件未处理，稍后重试", "path", f.Path, "error", err)
		w.mu.Lock()
		delete(w.dispatched, f.Path)
		w.mu.Unlock()
		return
	}
	if rec.Outcome == models.OutcomeMoved {
		// 源文件已不存在，之后同名的新下载应当再次处理
		w.mu.Lock()
		delete(w.dispatched, f.Path)
		w.mu.Unlock()
	}
	w.record(rec)
}

func (w *Watcher) record(rec models.MoveRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.batch = append(w.batch, rec)
	w.totals.Add(rec)

	limit := w.cfg.RecentRecords
	if limit <= 0 {
		return
	}
	w.recent = append(w.recent, rec)
	if len(w.recent) > limit {
		w.recent = w.recent[len(w.recent)-limit:]
	}
}

func (w *Watcher) flushBatch(ctx context.Context) {
	w.mu.Lock()
	batch := w.batch
	w.batch = nil
	if len(batch) > 0 {
		w.batches++
	}
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	summary := models.Summarize(batch)
	w.logger.Info("一批文件处理完成", "batch", uuid.NewString(), "summary", summary.String())
	w.send(ctx, notificationTitle, summary.String())
}

func (w *Watcher) send(ctx context.Context, title, body string) {
	if err := w.notifier.Send(ctx, title, body); err != nil {
		w.logger.Debug("通知发送失败", "title", title, "error", err)
	}
}

// Snapshot 返回当前状态的副本。
func (w *Watcher) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	recent := make([]models.MoveRecord, len(w.recent))
	copy(recent, w.recent)
	types := make([]models.FileType, len(w.types))
	copy(types, w.types)
	return Snapshot{
		Directory:    w.dir,
		Running:      w.running,
		Started:      w.started,
		Types:        types,
		Pending:      w.pending.Len(),
		PendingFiles: w.pending.Paths(),
		Dispatched:   len(w.dispatched),
		QueueLength:  len(w.queue),
		Batches:      w.batches,
		Totals:       w.totals.Clone(),
		Recent:       recent,
	}
}

func statRegular(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, errors.New("不是普通文件")
	}
	return info.Size(), nil
}
