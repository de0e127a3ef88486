package api

import (
	"Downloads_Organizer/config"
	"Downloads_Organizer/internal/models"
	"Downloads_Organizer/internal/task"
	"Downloads_Organizer/pkg/notify"
	"Downloads_Organizer/pkg/watcher"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// StatusProvider 提供监视器状态，由 watcher.Watcher 实现。
type StatusProvider interface {
	Snapshot() watcher.Snapshot
}

// NotificationSource 提供最近发出的通知，由 notify.Recorder 实现。
type NotificationSource interface {
	Messages() []notify.Message
}

// APIHandlers 持有所有依赖
type APIHandlers struct {
	taskManager   *task.Manager
	status        StatusProvider
	notifications NotificationSource
	config        *config.Config
}

func NewAPIHandlers(tm *task.Manager, status StatusProvider, notifications NotificationSource, cfg *config.Config) *APIHandlers {
	return &APIHandlers{
		taskManager:   tm,
		status:        status,
		notifications: notifications,
		config:        cfg,
	}
}

// --- 辅助函数 ---

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

// --- 状态 ---

func (h *APIHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		respondError(w, http.StatusServiceUnavailable, "监视器未运行")
		return
	}
	respondJSON(w, http.StatusOK, h.status.Snapshot())
}

func (h *APIHandlers) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	messages := []notify.Message{}
	if h.notifications != nil {
		messages = append(messages, h.notifications.Messages()...)
	}
	respondJSON(w, http.StatusOK, messages)
}

// --- 任务处理器 ---

func (h *APIHandlers) HandleStartScanTask(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Type   models.FileType `json:"type"`
		DryRun bool            `json:"dryRun"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "无效的请求体: "+err.Error())
		return
	}
	if payload.Type != models.FileTypePDF && payload.Type != models.FileTypeMedia {
		respondError(w, http.StatusBadRequest, "'type' 必须是 pdf 或 media")
		return
	}
	taskID, err := h.taskManager.StartNewScanTask(payload.Type, payload.DryRun)
	if err != nil {
		if errors.Is(err, task.ErrBusy) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"taskId": taskID})
}

func (h *APIHandlers) HandleGetTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")
	status, err := h.taskManager.GetTaskStatus(taskID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// --- 配置处理器 ---

// HandleGetConfig 返回生效的配置，?format=yaml 时返回 YAML。
func (h *APIHandlers) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") != "yaml" {
		respondJSON(w, http.StatusOK, h.config)
		return
	}
	data, err := h.config.YAML()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "序列化配置为YAML失败: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
