package organizer

import (
	"Downloads_Organizer/config"
	"Downloads_Organizer/internal/models"
	"Downloads_Organizer/pkg/extract"
	"Downloads_Organizer/pkg/mover"
	"Downloads_Organizer/pkg/notify"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrAborted 表示用户在确认提示中拒绝了本次移动。
var ErrAborted = errors.New("用户取消了移动")

// Locker 提供跨进程互斥，由 lock.FileLock 实现。
type Locker interface {
	Acquire(ctx context.Context) (func(), error)
}

// Progress 由 progressbar 实现。
type Progress interface {
	Add(n int) error
	Finish() error
}

// BatchOptions 控制一次批量扫描。
type BatchOptions struct {
	DryRun bool
	// Confirm 在真正移动前展示计划并询问用户，为 nil 时不询问 (--yes)。
	Confirm func(plan []models.MoveRecord) bool
	// Progress 为 nil 时不显示进度。
	Progress func(total int) Progress
	// Notify 为 false 时本次批量不发通知。
	Notify bool
}

// BatchReport 是一次批量扫描的结果。
type BatchReport struct {
	ID       string              `json:"id"`
	Type     models.FileType     `json:"type"`
	DryRun   bool                `json:"dryRun"`
	Aborted  bool                `json:"aborted,omitempty"`
	Records  []models.MoveRecord `json:"records"`
	Summary  models.Summary      `json:"summary"`
	Started  time.Time           `json:"started"`
	Finished time.Time           `json:"finished"`
}

// Orchestrator 把扫描、分类、移动和通知串起来。所有文件操作都在同一个互斥锁下串行执行。
type Orchestrator struct {
	cfg         *config.Config
	eligibility *Eligibility
	pipelines   map[models.FileType]Pipeline
	notifier    notify.Notifier
	locker      Locker
	logger      *slog.Logger

	mu sync.Mutex
}

// NewOrchestrator 根据配置创建默认的两条流水线。
func NewOrchestrator(cfg *config.Config, notifier notify.Notifier, locker Locker, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("初始化协调器...")

	eligibility, err := NewEligibility(cfg.Media, cfg.Watcher.IgnorePatterns)
	if err != nil {
		return nil, fmt.Errorf("创建 Orchestrator 失败: %w", err)
	}

	mv := mover.New(logger)
	pdfOrganizer, err := NewPDFOrganizer(cfg, extract.NewPDFText(cfg.PDF.MaxPages, cfg.PDF.ExtractTimeout), mv, logger)
	if err != nil {
		return nil, fmt.Errorf("创建 Orchestrator 失败: %w", err)
	}
	meta := extract.DefaultMetadataExtractor(cfg.Media.ExifToolPath, cfg.Media.ExtractTimeout, logger)
	mediaOrganizer := NewMediaOrganizer(cfg, eligibility, meta, mv, logger)

	return NewOrchestratorWith(cfg, eligibility, map[models.FileType]Pipeline{
		models.FileTypePDF:   pdfOrganizer,
		models.FileTypeMedia: mediaOrganizer,
	}, notifier, locker, logger), nil
}

// NewOrchestratorWith 使用给定的流水线创建协调器，测试中用来注入假的提取器。
func NewOrchestratorWith(cfg *config.Config, eligibility *Eligibility, pipelines map[models.FileType]Pipeline, notifier notify.Notifier, locker Locker, logger *slog.Logger) *Orchestrator {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:         cfg,
		eligibility: eligibility,
		pipelines:   pipelines,
		notifier:    notifier,
		locker:      locker,
		logger:      logger.With("component", "orchestrator"),
	}
}

func (o *Orchestrator) Eligibility() *Eligibility { return o.eligibility }

func (o *Orchestrator) Notifier() notify.Notifier { return o.notifier }

// Pending 返回 Downloads 中等待处理的文件。
func (o *Orchestrator) Pending(fileType models.FileType) ([]models.StableFile, error) {
	return o.eligibility.Scan(o.cfg.Paths.DownloadsFolder, fileType)
}

// RunBatch 对 Downloads 做一次扫描。先用 dry-run 生成计划，确认后只对计划中 would-move 的文件执行移动。
func (o *Orchestrator) RunBatch(ctx context.Context, fileType models.FileType, opts BatchOptions) (*BatchReport, error) {
	if _, ok := o.pipelines[fileType]; !ok {
		return nil, fmt.Errorf("未知的文件类型: %s", fileType)
	}
	report := &BatchReport{ID: uuid.NewString(), Type: fileType, DryRun: opts.DryRun, Started: time.Now()}
	log := o.logger.With("batch", report.ID, "type", fileType)
	log.Info("--- 批量扫描开始 ---", "dryRun", opts.DryRun)

	files, err := o.Pending(fileType)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Info("没有需要处理的文件")
		report.Finished = time.Now()
		return report, nil
	}

	plan, classifications, err := o.plan(ctx, files, opts.Progress)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		report.Records = plan
		return o.finish(ctx, report, opts, log), nil
	}

	if opts.Confirm != nil && countOutcome(plan, models.OutcomeWouldMove) > 0 && !opts.Confirm(plan) {
		log.Info("用户取消，未移动任何文件")
		report.Aborted = true
		report.Records = plan
		report.Summary = models.Summarize(plan)
		report.Finished = time.Now()
		return report, ErrAborted
	}

	records, err := o.execute(ctx, plan, classifications, opts.Progress)
	report.Records = records
	if err != nil {
		report.Summary = models.Summarize(records)
		report.Finished = time.Now()
		return report, err
	}
	return o.finish(ctx, report, opts, log), nil
}

// plan 对每个文件分类并以 dry-run 方式求出结果，不修改文件系统。
// 同一批次中排在前面的文件也计入预测，使计划与真正执行的结果一致。
func (o *Orchestrator) plan(ctx context.Context, files []models.StableFile, progress func(int) Progress) ([]models.MoveRecord, []models.Classification, error) {
	release, err := o.acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	bar := startProgress(progress, len(files))
	defer bar.Finish()

	plan := make([]models.MoveRecord, 0, len(files))
	classifications := make([]models.Classification, 0, len(files))
	predicted := newBatchPlan()
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		p := o.pipelines[f.Type]
		c := p.Classify(ctx, f.Path)
		plan = append(plan, predicted.adjust(p, p.Move(ctx, f.Path, c, true)))
		classifications = append(classifications, c)
		bar.Add(1)
	}
	return plan, classifications, nil
}

// execute 对计划中 would-move 的文件执行真正的移动，其余记录原样保留。
func (o *Orchestrator) execute(ctx context.Context, plan []models.MoveRecord, classifications []models.Classification, progress func(int) Progress) ([]models.MoveRecord, error) {
	release, err := o.acquire(ctx)
	if err != nil {
		return plan, err
	}
	defer release()

	total := countOutcome(plan, models.OutcomeWouldMove)
	bar := startProgress(progress, total)
	defer bar.Finish()

	records := make([]models.MoveRecord, len(plan))
	for i, rec := range plan {
		if rec.Outcome != models.OutcomeWouldMove {
			rec.DryRun = false
			records[i] = rec
			continue
		}
		if err := ctx.Err(); err != nil {
			// 尚未处理的文件不记录，保持原样
			return records[:i], err
		}
		records[i] = o.pipelines[classifications[i].Type].Move(ctx, rec.Source, classifications[i], false)
		o.logRecord(records[i])
		bar.Add(1)
	}
	return records, nil
}

// ProcessFile 处理监视器交来的单个稳定文件。返回错误表示文件未被处理 (锁不可用或已取消)，可以稍后重试。
func (o *Orchestrator) ProcessFile(ctx context.Context, f models.StableFile) (models.MoveRecord, error) {
	p, ok := o.pipelines[f.Type]
	if !ok {
		return models.MoveRecord{}, fmt.Errorf("未知的文件类型: %s", f.Type)
	}

	release, err := o.acquire(ctx)
	if err != nil {
		return models.MoveRecord{}, err
	}
	defer release()

	c := p.Classify(ctx, f.Path)
	rec := p.Move(ctx, f.Path, c, false)
	o.logRecord(rec)
	return rec, nil
}

// acquire 先获取进程内互斥锁，再获取跨进程文件锁。
func (o *Orchestrator) acquire(ctx context.Context) (func(), error) {
	o.mu.Lock()
	if o.locker == nil {
		return o.mu.Unlock, nil
	}
	release, err := o.locker.Acquire(ctx)
	if err != nil {
		o.mu.Unlock()
		return nil, fmt.Errorf("无法获取进程锁: %w", err)
	}
	return func() {
		release()
		o.mu.Unlock()
	}, nil
}

func (o *Orchestrator) finish(ctx context.Context, report *BatchReport, opts BatchOptions, log *slog.Logger) *BatchReport {
	report.Summary = models.Summarize(report.Records)
	report.Finished = time.Now()
	log.Info("--- 批量扫描完成 ---", "summary", report.Summary.String())

	if opts.Notify && !opts.DryRun && report.Summary.Total() > 0 {
		title := BatchTitle(report.Type)
		if err := o.notifier.Send(ctx, title, report.Summary.String()); err != nil {
			log.Debug("通知发送失败", "error", err)
		}
	}
	return report
}

func (o *Orchestrator) logRecord(rec models.MoveRecord) {
	switch rec.Outcome {
	case models.OutcomeFailed:
		o.logger.Error("文件处理失败", "path", rec.Source, "label", rec.Classification.Label(), "error", rec.ErrorText())
	case models.OutcomeMoved:
		o.logger.Info("文件已归档", "path", rec.Source, "dst", rec.Destination, "label", rec.Classification.Label())
	default:
		o.logger.Info("文件已跳过", "path", rec.Source, "outcome", rec.Outcome, "label", rec.Classification.Label())
	}
}

// BatchTitle 返回批量通知的标题。
func BatchTitle(fileType models.FileType) string {
	switch fileType {
	case models.FileTypePDF:
		return "Tax Organizer"
	case models.FileTypeMedia:
		return "Media Organizer"
	default:
		return "Downloads Organizer"
	}
}

func countOutcome(records []models.MoveRecord, outcome models.Outcome) int {
	n := 0
	for _, r := range records {
		if r.Outcome == outcome {
			n++
		}
	}
	return n
}

type noProgress struct{}

func (noProgress) Add(int) error { return nil }
func (noProgress) Finish() error { return nil }

func startProgress(factory func(int) Progress, total int) Progress {
	if factory == nil || total == 0 {
		return noProgress{}
	}
	if p := factory(total); p != nil {
		return p
	}
	return noProgress{}
}
