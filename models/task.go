package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the status of a batch task
type TaskStatus string

const (
	TaskStatusIdle       TaskStatus = "idle"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusError      TaskStatus = "error"
)

// BatchTask is the state of one batch run. It is owned by the goroutine
// that runs the batch; other goroutines only read snapshots or cancel.
type BatchTask struct {
	mu sync.RWMutex

	ID          string
	InputFile   string
	Status      TaskStatus
	Summary     Summary
	CurrentItem string
	OutputFile  string
	ReportFile  string
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	cancelled bool
}

// TaskSnapshot is the JSON view of a task
type TaskSnapshot struct {
	ID              string     `json:"id,omitempty"`
	Status          TaskStatus `json:"status"`
	TotalItems      int        `json:"total_items"`
	ProcessedItems  int        `json:"processed_items"`
	UpdatesCount    int        `json:"updates_count"`
	ErrorsCount     int        `json:"errors_count"`
	UnchangedCount  int        `json:"unchanged_count"`
	CurrentItem     string     `json:"current_item"`
	ProgressPercent float64    `json:"progress_percent"`
	OutputFile      string     `json:"output_file,omitempty"`
	ReportFile      string     `json:"report_file,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// NewBatchTask creates a new idle task for an input file
func NewBatchTask(inputFile string) *BatchTask {
	return &BatchTask{
		ID:        uuid.NewString(),
		InputFile: inputFile,
		Status:    TaskStatusIdle,
		CreatedAt: time.Now(),
	}
}

// Start marks the task as processing
func (t *BatchTask) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = TaskStatusProcessing
	t.Summary = Summary{Total: total}
	now := time.Now()
	t.StartedAt = &now
}

// SetTotal records the item count once the input has been read
func (t *BatchTask) SetTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Summary.Total = total
}

// Begin records the item about to be looked up
func (t *BatchTask) Begin(index int, item ItemRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Summary.Processed = index
	t.CurrentItem = item.Code + ": " + item.Name
}

// Record counts a finished item
func (t *BatchTask) Record(kind OutcomeKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Summary.Add(kind)
	t.Summary.Processed++
}

// Complete marks the task as completed with its output files
func (t *BatchTask) Complete(outputFile, reportFile string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = TaskStatusCompleted
	t.OutputFile = outputFile
	t.ReportFile = reportFile
	now := time.Now()
	t.CompletedAt = &now
}

// Fail marks the task as failed
func (t *BatchTask) Fail(err string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = TaskStatusError
	t.Error = err
	now := time.Now()
	t.CompletedAt = &now
}

// Cancel requests cooperative cancellation. The running batch stops
// before the next item; an in-flight lookup is not interrupted.
func (t *BatchTask) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.IsCompletedLocked() {
		return false
	}
	t.cancelled = true
	t.Status = TaskStatusCancelled
	return true
}

// Cancelled reports whether cancellation was requested
func (t *BatchTask) Cancelled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cancelled
}

// MarkCancelled closes a task that stopped because of Cancel
func (t *BatchTask) MarkCancelled() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = TaskStatusCancelled
	now := time.Now()
	t.CompletedAt = &now
}

// IsCompleted returns true if the task is in a final state
func (t *BatchTask) IsCompleted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.IsCompletedLocked()
}

// IsCompletedLocked is IsCompleted for callers already holding the lock
func (t *BatchTask) IsCompletedLocked() bool {
	return t.CompletedAt != nil
}

// IsActive returns true if the task is still running
func (t *BatchTask) IsActive() bool {
	return !t.IsCompleted()
}

// Duration returns the duration of the task
func (t *BatchTask) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.StartedAt == nil {
		return 0
	}

	endTime := time.Now()
	if t.CompletedAt != nil {
		endTime = *t.CompletedAt
	}

	return endTime.Sub(*t.StartedAt)
}

// Snapshot returns a consistent copy of the task state
func (t *BatchTask) Snapshot() TaskSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	progress := 0.0
	if t.Summary.Total > 0 {
		progress = float64(t.Summary.Processed) / float64(t.Summary.Total) * 100
	}

	return TaskSnapshot{
		ID:              t.ID,
		Status:          t.Status,
		TotalItems:      t.Summary.Total,
		ProcessedItems:  t.Summary.Processed,
		UpdatesCount:    t.Summary.Updated,
		ErrorsCount:     t.Summary.Errors,
		UnchangedCount:  t.Summary.Unchanged,
		CurrentItem:     t.CurrentItem,
		ProgressPercent: progress,
		OutputFile:      t.OutputFile,
		ReportFile:      t.ReportFile,
		Error:           t.Error,
	}
}

// Run converts the task into a run ledger record
func (t *BatchTask) Run() RunRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	started := t.CreatedAt
	if t.StartedAt != nil {
		started = *t.StartedAt
	}
	return RunRecord{
		ID:          t.ID,
		InputFile:   t.InputFile,
		OutputFile:  t.OutputFile,
		ReportFile:  t.ReportFile,
		Status:      t.Status,
		Total:       t.Summary.Total,
		Updated:     t.Summary.Updated,
		Unchanged:   t.Summary.Unchanged,
		Errors:      t.Summary.Errors,
		StartedAt:   started,
		CompletedAt: t.CompletedAt,
	}
}
