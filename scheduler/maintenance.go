package scheduler

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// MaintenanceConfig configures the cron jobs
type MaintenanceConfig struct {
	Dirs            []string
	Retention       time.Duration
	CleanupSchedule string

	// ScheduledInput is processed on ScheduledCron when both are set
	ScheduledInput string
	ScheduledCron  string
}

// Maintenance runs retention cleanup and the optional scheduled batch
type Maintenance struct {
	cron    *cron.Cron
	manager *TaskManager
	driver  Driver
	cfg     MaintenanceConfig
	now     func() time.Time
}

// NewMaintenance creates the cron runner. driver is used for scheduled batches.
func NewMaintenance(manager *TaskManager, driver Driver, cfg MaintenanceConfig) *Maintenance {
	return &Maintenance{
		cron:    cron.New(cron.WithSeconds()),
		manager: manager,
		driver:  driver,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Start schedules the jobs and starts the cron
func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc(m.cfg.CleanupSchedule, func() { m.Cleanup() }); err != nil {
		return err
	}

	if m.cfg.ScheduledInput != "" && m.cfg.ScheduledCron != "" {
		if _, err := m.cron.AddFunc(m.cfg.ScheduledCron, m.runScheduled); err != nil {
			return err
		}
		log.Info().Str("input", m.cfg.ScheduledInput).Str("schedule", m.cfg.ScheduledCron).Msg("Scheduled batch enabled")
	}

	m.cron.Start()
	log.Info().Str("schedule", m.cfg.CleanupSchedule).Dur("retention", m.cfg.Retention).Msg("Maintenance scheduled")
	return nil
}

// Stop stops the cron and waits for running jobs
func (m *Maintenance) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
}

// Cleanup removes files older than the retention period and forgets old
// tasks. It returns the number of files removed.
func (m *Maintenance) Cleanup() int {
	cutoff := m.now().Add(-m.cfg.Retention)
	removed := 0

	for _, dir := range m.cfg.Dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("dir", dir).Msg("Failed to read directory")
			}
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if filepath.Clean(path) == filepath.Clean(m.cfg.ScheduledInput) {
				continue
			}
			if err := os.Remove(path); err != nil {
				log.Warn().Err(err).Str("file", path).Msg("Failed to remove expired file")
				continue
			}
			removed++
		}
	}

	tasks := m.manager.CleanupOldTasks(m.cfg.Retention)
	log.Info().Int("files", removed).Int("tasks", tasks).Msg("Cleanup finished")
	return removed
}

func (m *Maintenance) runScheduled() {
	log.Info().Str("input", m.cfg.ScheduledInput).Msg("Starting scheduled batch")

	task, err := m.manager.Submit(m.cfg.ScheduledInput, m.driver)
	if errors.Is(err, ErrBatchRunning) {
		log.Warn().Msg("Skipping scheduled batch, another batch is running")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to start scheduled batch")
		return
	}
	log.Info().Str("task_id", task.ID).Msg("Scheduled batch submitted")
}
