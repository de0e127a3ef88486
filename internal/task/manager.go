package task

import (
	"Downloads_Organizer/internal/models"
	"Downloads_Organizer/pkg/organizer"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskStatus 定义了任务可能的状态。
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

var (
	// ErrBusy 表示已有扫描任务在进行。
	ErrBusy = errors.New("另一个扫描任务正在进行中")
	// ErrNotFound 表示任务ID不存在。
	ErrNotFound = errors.New("找不到任务")
)

// Runner 执行一次批量扫描，由 organizer.Orchestrator 实现。
type Runner interface {
	RunBatch(ctx context.Context, fileType models.FileType, opts organizer.BatchOptions) (*organizer.BatchReport, error)
}

// Task 代表一次通过 API 触发的批量扫描。
type Task struct {
	ID        string              `json:"id"`
	Type      models.FileType     `json:"type"`
	DryRun    bool                `json:"dryRun"`
	Status    TaskStatus          `json:"status"`
	Progress  float64             `json:"progress"`
	Error     string              `json:"error,omitempty"`
	StartTime time.Time           `json:"startTime"`
	EndTime   *time.Time          `json:"endTime,omitempty"`
	Summary   *models.Summary     `json:"summary,omitempty"`
	Records   []models.MoveRecord `json:"records,omitempty"`
}

// Manager 管理后台扫描任务，同一时间只允许一个任务运行。
type Manager struct {
	tasks map[string]*Task
	mu    sync.RWMutex

	ctx    context.Context
	runner Runner
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewManager 创建任务管理器。ctx 取消时正在运行的任务会在当前文件处理完后停止。
func NewManager(ctx context.Context, runner Runner, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		tasks:  make(map[string]*Task),
		ctx:    ctx,
		runner: runner,
		logger: logger.With("component", "task"),
	}
}

// StartNewScanTask 创建一个新的扫描任务，并立即在后台启动它。
func (m *Manager) StartNewScanTask(fileType models.FileType, dryRun bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, task := range m.tasks {
		if task.Status == StatusRunning || task.Status == StatusPending {
			return "", fmt.Errorf("%w (ID: %s)", ErrBusy, task.ID)
		}
	}

	task := &Task{
		ID:        uuid.New().String(),
		Type:      fileType,
		DryRun:    dryRun,
		Status:    StatusPending,
		StartTime: time.Now(),
	}
	m.tasks[task.ID] = task

	m.wg.Add(1)
	go m.runScan(task)

	return task.ID, nil
}

// GetTaskStatus 返回任务当前状态的副本。
func (m *Manager) GetTaskStatus(taskID string) (Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, exists := m.tasks[taskID]
	if !exists {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	return *task, nil
}

// Wait 等待所有后台任务结束。
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) runScan(task *Task) {
	defer m.wg.Done()

	m.mu.Lock()
	task.Status = StatusRunning
	m.mu.Unlock()

	log := m.logger.With("task", task.ID, "type", task.Type, "dryRun", task.DryRun)
	log.Info("任务启动")

	phases := 0
	report, err := m.runner.RunBatch(m.ctx, task.Type, organizer.BatchOptions{
		DryRun: task.DryRun,
		Notify: true,
		Progress: func(total int) organizer.Progress {
			phases++
			return &taskProgress{m: m, task: task, total: total, phase: phases}
		},
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	end := time.Now()
	task.EndTime = &end
	if report != nil {
		summary := report.Summary
		task.Summary = &summary
		task.Records = report.Records
	}
	if err != nil {
		task.Status = StatusFailed
		task.Error = err.Error()
		log.Error("任务失败", "error", err)
		return
	}
	task.Status = StatusCompleted
	task.Progress = 100
	log.Info("任务完成", "summary", task.Summary.String())
}

// taskProgress 把批量扫描的两个阶段 (分类、移动) 映射到 0-50 和 50-100。
type taskProgress struct {
	m     *Manager
	task  *Task
	total int
	done  int
	phase int
}

func (p *taskProgress) Add(n int) error {
	p.done += n
	base := 0.0
	if p.phase > 1 {
		base = 50
	}
	p.m.mu.Lock()
	p.task.Progress = base + 50*float64(p.done)/float64(p.total)
	p.m.mu.Unlock()
	return nil
}

func (p *taskProgress) Finish() error {
	return nil
}
