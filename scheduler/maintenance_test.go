package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"partsync/models"
	"partsync/scraper"
)

func TestMaintenanceCleanup(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	uploads := t.TempDir()
	outputs := t.TempDir()

	files := []struct {
		path string
		age  time.Duration
		kept bool
	}{
		{filepath.Join(uploads, "old_upload.csv"), 10 * 24 * time.Hour, false},
		{filepath.Join(uploads, "new_upload.csv"), time.Hour, true},
		{filepath.Join(outputs, "xero_import_20260301_100000.csv"), 13 * 24 * time.Hour, false},
		{filepath.Join(outputs, "price_update_report_20260314_110000.txt"), time.Hour, true},
		{filepath.Join(uploads, "nightly.csv"), 30 * 24 * time.Hour, true},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		modTime := now.Add(-f.age)
		if err := os.Chtimes(f.path, modTime, modTime); err != nil {
			t.Fatal(err)
		}
	}

	m := NewMaintenance(NewTaskManager(Options{}, nil, nil), Driver{}, MaintenanceConfig{
		Dirs:           []string{uploads, outputs, filepath.Join(t.TempDir(), "missing")},
		Retention:      7 * 24 * time.Hour,
		ScheduledInput: filepath.Join(uploads, "nightly.csv"),
	})
	m.now = func() time.Time { return now }

	if removed := m.Cleanup(); removed != 2 {
		t.Errorf("expected 2 files removed, got %d", removed)
	}

	for _, f := range files {
		_, err := os.Stat(f.path)
		if exists := err == nil; exists != f.kept {
			t.Errorf("%s: expected kept=%v, got exists=%v", filepath.Base(f.path), f.kept, exists)
		}
	}
}

func TestMaintenanceStartRejectsBadSchedule(t *testing.T) {
	m := NewMaintenance(NewTaskManager(Options{}, nil, nil), Driver{}, MaintenanceConfig{
		CleanupSchedule: "not a schedule",
	})
	if err := m.Start(); err == nil {
		m.Stop()
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestScheduledBatchSkipsWhileRunning(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	blocking := func(ctx context.Context) (scraper.Session, error) {
		<-release
		return f.session, nil
	}

	running, err := f.manager.Submit(f.input, f.driver(blocking))
	if err != nil {
		t.Fatal(err)
	}

	m := NewMaintenance(f.manager, f.driver(f.factory), MaintenanceConfig{ScheduledInput: f.input})
	m.runScheduled()

	current, _ := f.manager.Current()
	if current != running {
		t.Error("scheduled batch must not replace the running batch")
	}

	close(release)
	f.manager.Wait()

	m.runScheduled()
	f.manager.Wait()

	current, _ = f.manager.Current()
	if current == running || current.Snapshot().Status != models.TaskStatusCompleted {
		t.Errorf("expected a completed scheduled batch, got %+v", current.Snapshot())
	}
}
