package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"partsync/config"
	"partsync/models"
	"partsync/report"
	"partsync/scraper"
	"partsync/services"
	"partsync/spreadsheet"
)

var (
	// ErrBatchRunning is returned when a batch is submitted while another runs
	ErrBatchRunning = errors.New("a batch is already running")
	// ErrNoActiveBatch is returned when there is nothing to cancel
	ErrNoActiveBatch = errors.New("no active batch")
)

const timestampLayout = "20060102_150405"

// RunStore records finished batches
type RunStore interface {
	SaveRun(ctx context.Context, run models.RunRecord) error
}

// Options configures batch execution
type Options struct {
	OutputDir string
	ItemDelay time.Duration
	Retry     scraper.RetryConfig
}

// Driver pairs a session factory with the catalog definitions tuned for it
type Driver struct {
	Factory  scraper.SessionFactory
	Catalogs config.Catalogs
}

// BrowserDriver drives a real browser with the full catalog timings
func BrowserDriver(factory scraper.SessionFactory, catalogs config.Catalogs) Driver {
	return Driver{Factory: factory, Catalogs: catalogs}
}

// StaticDriver drives plain HTTP fetches. Nothing renders client-side, so
// every wait and settle delay is dropped.
func StaticDriver(factory scraper.SessionFactory, catalogs config.Catalogs) Driver {
	return Driver{Factory: factory, Catalogs: catalogs.WithoutDelays()}
}

// TaskManager runs one batch at a time. Each batch gets its own task
// and browser session; the session is closed when the batch ends.
type TaskManager struct {
	mutex   sync.RWMutex
	current *models.BatchTask
	tasks   map[string]*models.BatchTask

	opts Options
	sink services.ProgressSink
	runs RunStore
	now  func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTaskManager creates a task manager. sink and runs may be nil.
func NewTaskManager(opts Options, sink services.ProgressSink, runs RunStore) *TaskManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskManager{
		tasks:  make(map[string]*models.BatchTask),
		opts:   opts,
		sink:   sink,
		runs:   runs,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit reads the sheet at inputPath and starts processing it in the
// background with a session from driver
func (tm *TaskManager) Submit(inputPath string, driver Driver) (*models.BatchTask, error) {
	task, sheet, err := tm.begin(inputPath)
	if err != nil {
		return nil, err
	}

	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		tm.execute(tm.ctx, task, sheet, driver)
	}()

	return task, nil
}

// Run processes the sheet at inputPath and returns when the batch ends
func (tm *TaskManager) Run(ctx context.Context, inputPath string, driver Driver) (*models.BatchTask, error) {
	task, sheet, err := tm.begin(inputPath)
	if err != nil {
		return nil, err
	}

	tm.execute(ctx, task, sheet, driver)
	return task, nil
}

func (tm *TaskManager) begin(inputPath string) (*models.BatchTask, *spreadsheet.Sheet, error) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if tm.current != nil && tm.current.IsActive() {
		return nil, nil, ErrBatchRunning
	}

	sheet, err := spreadsheet.ReadFile(inputPath)
	if err != nil {
		return nil, nil, err
	}

	task := models.NewBatchTask(filepath.Base(inputPath))
	task.Start(len(sheet.Rows))
	tm.current = task
	tm.tasks[task.ID] = task

	log.Info().Str("task_id", task.ID).Str("input", task.InputFile).Int("items", len(sheet.Rows)).Msg("Batch submitted")
	tm.publish(models.EventStatusUpdate, task.Snapshot())
	return task, sheet, nil
}

// execute owns the session for the whole batch and settles the task on
// every exit path
func (tm *TaskManager) execute(ctx context.Context, task *models.BatchTask, sheet *spreadsheet.Sheet, driver Driver) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("task_id", task.ID).Interface("panic", r).Msg("Batch panicked")
			tm.fail(task, fmt.Errorf("unexpected failure: %v", r))
		}
	}()

	session, err := scraper.StartSession(ctx, tm.opts.Retry, driver.Factory)
	if err != nil {
		tm.fail(task, fmt.Errorf("failed to start browser session: %w", err))
		return
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Str("task_id", task.ID).Msg("Failed to close browser session")
		}
	}()

	lookup, err := scraper.NewLookup(session.Page(), driver.Catalogs)
	if err != nil {
		tm.fail(task, err)
		return
	}

	result := services.NewProcessor(lookup, tm.sink, tm.opts.ItemDelay).Run(ctx, task, sheet)

	if result.Cancelled {
		task.MarkCancelled()
		log.Info().Str("task_id", task.ID).Msg("Batch cancelled, no files written")
		tm.publish(models.EventStatusUpdate, task.Snapshot())
		tm.saveRun(task)
		return
	}

	outputFile, reportFile, err := tm.writeOutputs(sheet, result)
	if err != nil {
		tm.fail(task, err)
		return
	}

	task.Complete(outputFile, reportFile)
	log.Info().
		Str("task_id", task.ID).
		Int("updated", result.Summary.Updated).
		Int("unchanged", result.Summary.Unchanged).
		Int("errors", result.Summary.Errors).
		Dur("duration", task.Duration()).
		Msg("Batch completed")

	snapshot := task.Snapshot()
	tm.publish(models.EventProcessingComplete, models.ProcessingComplete{
		OutputFile: outputFile,
		ReportFile: reportFile,
		Summary:    snapshot,
	})
	tm.publish(models.EventStatusUpdate, snapshot)
	tm.saveRun(task)
}

func (tm *TaskManager) writeOutputs(sheet *spreadsheet.Sheet, result *models.BatchResult) (string, string, error) {
	if err := os.MkdirAll(tm.opts.OutputDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create output dir: %w", err)
	}

	now := tm.now()
	timestamp := now.Format(timestampLayout)
	outputFile := "xero_import_" + timestamp + ".csv"
	reportFile := "price_update_report_" + timestamp + ".txt"

	if err := sheet.WriteFile(filepath.Join(tm.opts.OutputDir, outputFile)); err != nil {
		return "", "", err
	}
	if err := report.WriteFile(filepath.Join(tm.opts.OutputDir, reportFile), result, now); err != nil {
		return "", "", err
	}
	return outputFile, reportFile, nil
}

func (tm *TaskManager) fail(task *models.BatchTask, err error) {
	log.Error().Err(err).Str("task_id", task.ID).Msg("Batch failed")
	task.Fail(err.Error())
	tm.publish(models.EventProcessingError, models.ProcessingError{Error: err.Error()})
	tm.publish(models.EventStatusUpdate, task.Snapshot())
	tm.saveRun(task)
}

func (tm *TaskManager) saveRun(task *models.BatchTask) {
	if tm.runs == nil {
		return
	}
	if err := tm.runs.SaveRun(context.Background(), task.Run()); err != nil {
		log.Warn().Err(err).Str("task_id", task.ID).Msg("Failed to record run")
	}
}

func (tm *TaskManager) publish(eventType string, data interface{}) {
	if tm.sink != nil {
		tm.sink.Publish(models.Event{Type: eventType, Data: data})
	}
}

// Current returns the most recent task, if any
func (tm *TaskManager) Current() (*models.BatchTask, bool) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	return tm.current, tm.current != nil
}

// Status returns a snapshot of the most recent task
func (tm *TaskManager) Status() (models.TaskSnapshot, bool) {
	task, ok := tm.Current()
	if !ok {
		return models.TaskSnapshot{Status: models.TaskStatusIdle}, false
	}
	return task.Snapshot(), true
}

// Cancel asks the running batch to stop before its next item
func (tm *TaskManager) Cancel() (*models.BatchTask, error) {
	task, ok := tm.Current()
	if !ok || !task.Cancel() {
		return nil, ErrNoActiveBatch
	}
	log.Info().Str("task_id", task.ID).Msg("Cancellation requested")
	tm.publish(models.EventStatusUpdate, task.Snapshot())
	return task, nil
}

// GetTask returns a task by ID
func (tm *TaskManager) GetTask(taskID string) (*models.BatchTask, bool) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	task, exists := tm.tasks[taskID]
	return task, exists
}

// CleanupOldTasks forgets completed tasks older than maxAge
func (tm *TaskManager) CleanupOldTasks(maxAge time.Duration) int {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	removed := 0
	cutoff := tm.now().Add(-maxAge)
	for taskID, task := range tm.tasks {
		if task == tm.current || !task.IsCompleted() || !task.CreatedAt.Before(cutoff) {
			continue
		}
		delete(tm.tasks, taskID)
		removed++
		log.Debug().Str("task_id", taskID).Msg("Cleaned up old task")
	}
	return removed
}

// Wait blocks until background batches have finished
func (tm *TaskManager) Wait() {
	tm.wg.Wait()
}

// Stop interrupts background batches and waits for them to settle
func (tm *TaskManager) Stop() {
	log.Info().Msg("Task manager stopping...")
	tm.cancel()
	tm.wg.Wait()
}

// GetStats returns task manager statistics
func (tm *TaskManager) GetStats() map[string]interface{} {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	statusCounts := make(map[string]int)
	for _, task := range tm.tasks {
		statusCounts[string(task.Snapshot().Status)]++
	}

	return map[string]interface{}{
		"total_tasks":     len(tm.tasks),
		"active":          tm.current != nil && tm.current.IsActive(),
		"tasks_by_status": statusCounts,
	}
}
