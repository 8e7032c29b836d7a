package metastore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "meta.sqlite3"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGetBackupJob(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	job := &BackupJob{
		Name:             "nightly",
		DBType:           DBTypePostgres,
		BackupType:       BackupTypeFull,
		ConnectionParams: map[string]any{"host": "db", "password": "***"},
		StorageType:      StorageTypeLocal,
		Status:           StatusPending,
	}
	if err := store.CreateBackupJob(ctx, job); err != nil {
		t.Fatalf("CreateBackupJob: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := store.GetBackupJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetBackupJob: %v", err)
	}
	if got == nil || got.Name != "nightly" || got.ConnectionParams["host"] != "db" {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	job := &BackupJob{Name: "j", DBType: DBTypeSQLite, BackupType: BackupTypeFull, Status: StatusPending}
	if err := store.CreateBackupJob(ctx, job); err != nil {
		t.Fatalf("CreateBackupJob: %v", err)
	}
	sch := &Schedule{BackupJobID: job.ID, CronExpression: "* * * * *", IsActive: true, MaxRetries: 3, RetryBackoffSeconds: 60}
	if err := store.CreateSchedule(ctx, sch); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first, err := store.Claim(ctx, sch.ID, 300, now)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if first == nil {
		t.Fatal("expected first claim to succeed")
	}

	second, err := store.Claim(ctx, sch.ID, 300, now)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if second != nil {
		t.Fatal("expected second concurrent claim to see zero rows affected")
	}

	later := now.Add(301 * time.Second)
	third, err := store.Claim(ctx, sch.ID, 300, later)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if third == nil {
		t.Fatal("expected claim to succeed once the lease has expired")
	}
}

func TestMarkFailedBackoffThenNextCron(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	job := &BackupJob{Name: "j", DBType: DBTypeSQLite, BackupType: BackupTypeFull, Status: StatusPending}
	if err := store.CreateBackupJob(ctx, job); err != nil {
		t.Fatalf("CreateBackupJob: %v", err)
	}
	sch := &Schedule{BackupJobID: job.ID, CronExpression: "* * * * *", IsActive: true, MaxRetries: 2, RetryBackoffSeconds: 60}
	if err := store.CreateSchedule(ctx, sch); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	nextCron := now.Add(time.Hour)

	outcome, err := store.MarkFailed(ctx, sch.ID, errors.New("boom"), nextCron, now)
	if err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if outcome.State != "retrying" || outcome.DelaySeconds != 60 {
		t.Fatalf("unexpected first failure outcome: %+v", outcome)
	}

	outcome, err = store.MarkFailed(ctx, sch.ID, errors.New("boom again"), nextCron, now)
	if err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if outcome.State != "retrying" || outcome.DelaySeconds != 120 {
		t.Fatalf("unexpected second failure outcome: %+v", outcome)
	}

	outcome, err = store.MarkFailed(ctx, sch.ID, errors.New("boom thrice"), nextCron, now)
	if err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if outcome.State != "next_cron" || !outcome.NextRunAt.Equal(nextCron) {
		t.Fatalf("expected exhausted retries to fall back to next cron run: %+v", outcome)
	}

	got, err := store.GetSchedule(ctx, sch.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got.RetryCount != 0 {
		t.Fatalf("expected retry_count reset to 0, got %d", got.RetryCount)
	}
}

func TestBackoffDelayCapsAtOneHour(t *testing.T) {
	if d := backoffDelay(60, 10); d != maxBackoffSeconds {
		t.Fatalf("expected cap at %d, got %d", maxBackoffSeconds, d)
	}
}
