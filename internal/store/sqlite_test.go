package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/autocareer/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertThenExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Insert(ctx, model.Job{URL: "https://jobs.example.com/1", Title: "Backend Engineer", Score: model.IntPtr(85)})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if job.ID == 0 {
		t.Error("expected Insert to assign an ID")
	}
	if job.Status != model.StatusSuggested {
		t.Errorf("status = %q, want suggested", job.Status)
	}

	exists, err := s.Exists(ctx, "https://jobs.example.com/1")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Error("expected Exists to return true after Insert")
	}
}

func TestExistsUnknownReturnsFalse(t *testing.T) {
	s := newTestStore(t)

	exists, err := s.Exists(context.Background(), "https://nowhere.example.com")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("expected Exists to return false for unknown URL")
	}
}

func TestInsertDuplicateNeverOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, model.Job{URL: "https://x/1", Title: "first", Score: model.IntPtr(10)}); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	_, err := s.Insert(ctx, model.Job{URL: "https://x/1", Title: "second", Score: model.IntPtr(99)})
	if !errors.Is(err, model.ErrDuplicate) {
		t.Fatalf("second Insert err = %v, want ErrDuplicate", err)
	}

	jobs, err := s.ListJobs(ctx, "")
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	if jobs[0].Title != "first" || *jobs[0].Score != 10 {
		t.Errorf("duplicate insert overwrote row: %+v", jobs[0])
	}
}

func TestInsertConcurrentDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, dupes int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Insert(ctx, model.Job{URL: "https://race/1", Score: model.IntPtr(50)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, model.ErrDuplicate):
				dupes++
			default:
				t.Errorf("Insert: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || dupes != 7 {
		t.Errorf("ok=%d dupes=%d, want 1 and 7", ok, dupes)
	}
}

func TestInsertZeroScoreIsKept(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Insert(ctx, model.Job{URL: "https://x/zero", Score: model.IntPtr(0)})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Score == nil || *got.Score != 0 {
		t.Errorf("score = %v, want 0", got.Score)
	}
}

func TestGetJobNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetJob(context.Background(), 42)
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListJobsByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.Insert(ctx, model.Job{URL: "https://x/a"})
	s.Insert(ctx, model.Job{URL: "https://x/b"})
	if _, err := s.UpdateJobStatus(ctx, a.ID, model.StatusDismissed, ""); err != nil {
		t.Fatalf("UpdateJobStatus: %v", err)
	}

	suggested, err := s.ListJobs(ctx, model.StatusSuggested)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(suggested) != 1 || suggested[0].URL != "https://x/b" {
		t.Errorf("suggested = %+v", suggested)
	}

	all, _ := s.ListJobs(ctx, "")
	if len(all) != 2 || all[0].URL != "https://x/b" {
		t.Errorf("expected newest first, got %+v", all)
	}
}

func TestUpdateJobStatusTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, _ := s.Insert(ctx, model.Job{URL: "https://x/1"})

	if _, err := s.UpdateJobStatus(ctx, job.ID, model.StatusApplied, ""); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("suggested->applied err = %v, want ErrInvalidTransition", err)
	}

	if _, err := s.UpdateJobStatus(ctx, job.ID, model.StatusProcessing, ""); err != nil {
		t.Fatalf("suggested->processing: %v", err)
	}
	failed, err := s.UpdateJobStatus(ctx, job.ID, model.StatusFailed, "compile error")
	if err != nil {
		t.Fatalf("processing->failed: %v", err)
	}
	if failed.ErrorMessage != "compile error" {
		t.Errorf("error_message = %q", failed.ErrorMessage)
	}

	retry, err := s.UpdateJobStatus(ctx, job.ID, model.StatusProcessing, "")
	if err != nil {
		t.Fatalf("failed->processing: %v", err)
	}
	if retry.ErrorMessage != "" {
		t.Errorf("error_message should clear, got %q", retry.ErrorMessage)
	}

	if _, err := s.UpdateJobStatus(ctx, 999, model.StatusDismissed, ""); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown job err = %v, want ErrNotFound", err)
	}
}

func TestUpdateJobDetails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, _ := s.Insert(ctx, model.Job{URL: "https://x/1", Title: "Engineer"})
	job.Company = "Acme"
	job.Requirements = []string{"Go", "SQL"}
	job.DocumentPath = "/tmp/acme.pdf"
	if err := s.UpdateJobDetails(ctx, job); err != nil {
		t.Fatalf("UpdateJobDetails: %v", err)
	}

	got, _ := s.GetJob(ctx, job.ID)
	if got.Company != "Acme" || got.DocumentPath != "/tmp/acme.pdf" || len(got.Requirements) != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestSourcesCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateSource(ctx, model.Source{Name: "Board A", URL: "https://a.example.com/search"})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}
	b, _ := s.CreateSource(ctx, model.Source{Name: "Board B", URL: "https://b.example.com/search", FilterText: "remote"})

	all, err := s.ListSources(ctx)
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d sources, want 2", len(all))
	}

	subset, err := s.GetSources(ctx, []int64{b.ID, 999})
	if err != nil {
		t.Fatalf("GetSources: %v", err)
	}
	if len(subset) != 1 || subset[0].FilterText != "remote" {
		t.Errorf("subset = %+v", subset)
	}

	a.Name = "Board A2"
	if err := s.UpdateSource(ctx, a); err != nil {
		t.Fatalf("UpdateSource: %v", err)
	}
	got, _ := s.GetSource(ctx, a.ID)
	if got.Name != "Board A2" {
		t.Errorf("name = %q", got.Name)
	}

	when := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.MarkSourceScanned(ctx, a.ID, when); err != nil {
		t.Fatalf("MarkSourceScanned: %v", err)
	}
	got, _ = s.GetSource(ctx, a.ID)
	if got.LastScannedAt == nil || !got.LastScannedAt.Equal(when) {
		t.Errorf("last_scanned_at = %v", got.LastScannedAt)
	}

	job, _ := s.Insert(ctx, model.Job{URL: "https://a/1", SourceID: &a.ID})
	if err := s.DeleteSource(ctx, a.ID); err != nil {
		t.Fatalf("DeleteSource: %v", err)
	}
	kept, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("job should survive source deletion: %v", err)
	}
	if kept.SourceID != nil {
		t.Errorf("source_id = %v, want nil", *kept.SourceID)
	}
	if err := s.DeleteSource(ctx, a.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.GetSetting(ctx, model.SettingProfile)
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if v != "" {
		t.Errorf("unset setting = %q, want empty", v)
	}

	s.SetSetting(ctx, model.SettingProfile, "Go developer")
	s.SetSetting(ctx, model.SettingProfile, "Senior Go developer")
	v, _ = s.GetSetting(ctx, model.SettingProfile)
	if v != "Senior Go developer" {
		t.Errorf("profile = %q", v)
	}
}

func TestNopStoreNeverRemembers(t *testing.T) {
	s := NewNopStore()
	ctx := context.Background()

	s.Insert(ctx, model.Job{URL: "https://x/1"})
	exists, err := s.Exists(ctx, "https://x/1")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("NopStore should never report a job as existing")
	}
}
