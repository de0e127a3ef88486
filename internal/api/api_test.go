package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Downloads_Organizer/config"
	"Downloads_Organizer/internal/models"
	"Downloads_Organizer/internal/task"
	"Downloads_Organizer/pkg/logger"
	"Downloads_Organizer/pkg/notify"
	"Downloads_Organizer/pkg/organizer"
	"Downloads_Organizer/pkg/watcher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingRunner struct {
	release chan struct{}
}

func (b *blockingRunner) RunBatch(_ context.Context, fileType models.FileType, opts organizer.BatchOptions) (*organizer.BatchReport, error) {
	<-b.release
	return &organizer.BatchReport{Type: fileType, DryRun: opts.DryRun}, nil
}

type staticStatus struct{ snap watcher.Snapshot }

func (s staticStatus) Snapshot() watcher.Snapshot { return s.snap }

func newTestServer(t *testing.T) (*httptest.Server, *blockingRunner, *task.Manager) {
	t.Helper()
	runner := &blockingRunner{release: make(chan struct{})}
	tm := task.NewManager(context.Background(), runner, logger.Discard())
	status := staticStatus{snap: watcher.Snapshot{Directory: "/dl", Running: true, Pending: 2}}
	notes := &notify.Recorder{}
	require.NoError(t, notes.Send(context.Background(), "Downloads Organizer", "moved 1"))
	srv := httptest.NewServer(RegisterRoutes(tm, status, notes, config.Default(), logger.Discard()))
	t.Cleanup(srv.Close)
	return srv, runner, tm
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatus(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap watcher.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "/dl", snap.Directory)
	assert.True(t, snap.Running)
	assert.Equal(t, 2, snap.Pending)
}

func TestNotifications(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/v1/notifications")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []notify.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "Downloads Organizer", got[0].Title)
	assert.Equal(t, "moved 1", got[0].Body)
}

func TestScanTaskLifecycle(t *testing.T) {
	srv, runner, tm := newTestServer(t)

	post := func(body string) *http.Response {
		resp, err := http.Post(srv.URL+"/api/v1/tasks/scan", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		return resp
	}

	resp := post(`{"type":"pdf","dryRun":true}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var started map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	resp.Body.Close()
	id := started["taskId"]
	require.NotEmpty(t, id)

	busy := post(`{"type":"media"}`)
	busy.Body.Close()
	assert.Equal(t, http.StatusConflict, busy.StatusCode)

	close(runner.release)
	tm.Wait()

	resp, err := http.Get(srv.URL + "/api/v1/tasks/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got task.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, task.StatusCompleted, got.Status)
	assert.True(t, got.DryRun)
	assert.WithinDuration(t, time.Now(), got.StartTime, time.Minute)
}

func TestScanTaskRejectsBadRequests(t *testing.T) {
	srv, _, _ := newTestServer(t)
	for _, body := range []string{`not json`, `{"type":"zip"}`, `{}`} {
		resp, err := http.Post(srv.URL+"/api/v1/tasks/scan", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}

	resp, err := http.Get(srv.URL + "/api/v1/tasks/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConfigEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/config")
	require.NoError(t, err)
	var cfg map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	resp.Body.Close()
	assert.Contains(t, cfg, "paths")
	assert.Contains(t, cfg, "watcher")

	resp, err = http.Get(srv.URL + "/api/v1/config?format=yaml")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "downloadsFolder:")
}

func TestCORSAllowsLocalhost(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/status", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}
