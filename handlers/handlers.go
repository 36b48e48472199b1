package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"partsync/models"
	"partsync/scheduler"
)

// RunLister reads the run ledger
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]models.RunRecord, error)
}

// Options configures the handlers
type Options struct {
	UploadDir     string
	OutputDir     string
	MaxUploadSize int64

	// Browser serves normal uploads, Static serves test_mode uploads
	Browser scheduler.Driver
	Static  scheduler.Driver
}

type Handlers struct {
	taskManager *scheduler.TaskManager
	runs        RunLister
	hub         *Hub
	opts        Options
	started     time.Time
}

func NewHandlers(taskManager *scheduler.TaskManager, runs RunLister, hub *Hub, opts Options) *Handlers {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 10 << 20
	}
	return &Handlers{
		taskManager: taskManager,
		runs:        runs,
		hub:         hub,
		opts:        opts,
		started:     time.Now(),
	}
}

// Register mounts the routes on r. upload wraps the upload handler, for
// rate limiting.
func (h *Handlers) Register(r *mux.Router, upload func(http.Handler) http.Handler) {
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.Handle("/upload", upload(http.HandlerFunc(h.Upload))).Methods("POST")
	r.HandleFunc("/status", h.GetStatus).Methods("GET")
	r.HandleFunc("/cancel", h.Cancel).Methods("POST")
	r.HandleFunc("/download/{filename}", h.Download).Methods("GET")
	r.HandleFunc("/runs", h.GetRuns).Methods("GET")
	r.HandleFunc("/tasks/stats", h.GetTaskStats).Methods("GET")
	r.HandleFunc("/tasks/{taskId}", h.GetTaskStatus).Methods("GET")
	r.HandleFunc("/ws", h.Events)
}

// HealthCheck returns a simple health check response
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "partsync",
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	}
	writeJSON(w, http.StatusOK, response)
}

// Upload stores the posted export and starts a batch on it
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || !strings.EqualFold(filepath.Ext(name), ".csv") {
		writeError(w, http.StatusBadRequest, "Invalid file type. Please upload a CSV file.")
		return
	}

	testMode := r.FormValue("test_mode") == "true"
	driver := h.opts.Browser
	if testMode {
		driver = h.opts.Static
	}
	if driver.Factory == nil {
		writeError(w, http.StatusServiceUnavailable, "No browser driver configured")
		return
	}

	path, err := h.saveUpload(file, name)
	if err != nil {
		log.Error().Err(err).Str("file", name).Msg("Failed to save upload")
		writeError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}

	task, err := h.taskManager.Submit(path, driver)
	if err != nil {
		os.Remove(path)
		if errors.Is(err, scheduler.ErrBatchRunning) {
			writeError(w, http.StatusConflict, "Processing already in progress")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read CSV: %v", err))
		return
	}

	snapshot := task.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":     "Processing started",
		"task_id":     task.ID,
		"total_items": snapshot.TotalItems,
		"test_mode":   testMode,
	})
}

func (h *Handlers) saveUpload(src io.Reader, name string) (string, error) {
	if err := os.MkdirAll(h.opts.UploadDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(h.opts.UploadDir, time.Now().Format("20060102_150405")+"_"+name)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	return path, dst.Close()
}

// GetStatus returns the current batch snapshot, or idle
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	snapshot, _ := h.taskManager.Status()
	writeJSON(w, http.StatusOK, snapshot)
}

// Cancel asks the running batch to stop
func (h *Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskManager.Cancel()
	if err != nil {
		writeError(w, http.StatusBadRequest, "No active task to cancel")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Cancellation requested",
		"status":  task.Snapshot(),
	})
}

// Download serves a generated file from the output directory
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	// only plain names inside the output directory
	name := filepath.Base(filename)
	if name != filename || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	path := filepath.Join(h.opts.OutputDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

// GetRuns returns the most recent runs from the ledger
func (h *Handlers) GetRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(parsed, 100)
	}

	if h.runs == nil {
		writeJSON(w, http.StatusOK, []models.RunRecord{})
		return
	}

	runs, err := h.runs.RecentRuns(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load runs")
		writeError(w, http.StatusInternalServerError, "Failed to get runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetTaskStatus returns the status of a batch by ID
func (h *Handlers) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, exists := h.taskManager.GetTask(mux.Vars(r)["taskId"])
	if !exists {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	writeJSON(w, http.StatusOK, task.Snapshot())
}

// GetTaskStats returns statistics about the task manager
func (h *Handlers) GetTaskStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":     h.taskManager.GetStats(),
		"timestamp": time.Now(),
	})
}

// Events upgrades to the progress websocket
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	snapshot, _ := h.taskManager.Status()
	h.hub.ServeWS(w, r, models.Event{Type: models.EventStatusUpdate, Data: snapshot})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
