package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amishk599/autocareer/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockFetcher serves canned pages keyed by URL. Unknown URLs get a generic
// description page.
type MockFetcher struct {
	mu    sync.Mutex
	Pages map[string]model.Page
	Errs  map[string]error
	calls map[string]int
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{Pages: map[string]model.Page{}, Errs: map[string]error{}, calls: map[string]int{}}
}

func (f *MockFetcher) Fetch(_ context.Context, url string, _ model.Format) (model.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if err, ok := f.Errs[url]; ok {
		return model.Page{}, err
	}
	if p, ok := f.Pages[url]; ok {
		return p, nil
	}
	return model.Page{URL: url, Content: "description of " + url}, nil
}

func (f *MockFetcher) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// MockDiscoverer returns canned listings keyed by page URL and records the
// filter it was given.
type MockDiscoverer struct {
	mu       sync.Mutex
	Listings map[string][]model.Listing
	Errs     map[string]error
	filters  map[string]string
}

func NewMockDiscoverer() *MockDiscoverer {
	return &MockDiscoverer{Listings: map[string][]model.Listing{}, Errs: map[string]error{}, filters: map[string]string{}}
}

func (d *MockDiscoverer) Discover(_ context.Context, page model.Page, filter string) ([]model.Listing, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filters[page.URL] = filter
	if err, ok := d.Errs[page.URL]; ok {
		return nil, err
	}
	return append([]model.Listing(nil), d.Listings[page.URL]...), nil
}

func (d *MockDiscoverer) Filter(url string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filters[url]
}

// InstrumentedModel scores by URL and tracks how many calls overlap.
type InstrumentedModel struct {
	Scores  map[string]int
	Errs    map[string]error
	Latency time.Duration
	Panics  map[string]bool

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	mu          sync.Mutex
	calls       map[string]int
}

func NewInstrumentedModel() *InstrumentedModel {
	return &InstrumentedModel{Scores: map[string]int{}, Errs: map[string]error{}, Panics: map[string]bool{}, calls: map[string]int{}}
}

func (m *InstrumentedModel) Score(ctx context.Context, l model.Listing, _, _, _ string) (int, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.maxInFlight.Load()
		if n <= peak || m.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls[l.URL]++
	m.mu.Unlock()

	if m.Panics[l.URL] {
		panic("model exploded")
	}
	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if err, ok := m.Errs[l.URL]; ok {
		return 0, err
	}
	if s, ok := m.Scores[l.URL]; ok {
		return s, nil
	}
	return 75, nil
}

func (m *InstrumentedModel) Calls(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[url]
}

func (m *InstrumentedModel) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// InMemoryStore implements the job, source and settings stores.
type InMemoryStore struct {
	mu         sync.Mutex
	jobs       map[string]model.Job
	nextID     int64
	sources    []model.Source
	settings   map[string]string
	scannedAt  map[int64]time.Time
	InsertErr  error
	SettingErr error
}

func NewInMemoryStore(sources ...model.Source) *InMemoryStore {
	return &InMemoryStore{
		jobs:      map[string]model.Job{},
		sources:   sources,
		settings:  map[string]string{},
		scannedAt: map[int64]time.Time{},
	}
}

func (s *InMemoryStore) Exists(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[url]
	return ok, nil
}

func (s *InMemoryStore) Insert(_ context.Context, job model.Job) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return model.Job{}, s.InsertErr
	}
	if _, ok := s.jobs[job.URL]; ok {
		return model.Job{}, model.ErrDuplicate
	}
	s.nextID++
	job.ID = s.nextID
	s.jobs[job.URL] = job
	return job, nil
}

func (s *InMemoryStore) Seed(urls ...string) {
	for _, u := range urls {
		s.Insert(context.Background(), model.Job{URL: u, Status: model.StatusSuggested})
	}
}

func (s *InMemoryStore) Job(url string) (model.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[url]
	return j, ok
}

func (s *InMemoryStore) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *InMemoryStore) ListSources(_ context.Context) ([]model.Source, error) {
	return append([]model.Source(nil), s.sources...), nil
}

func (s *InMemoryStore) GetSources(_ context.Context, ids []int64) ([]model.Source, error) {
	var out []model.Source
	for _, src := range s.sources {
		for _, id := range ids {
			if src.ID == id {
				out = append(out, src)
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkSourceScanned(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scannedAt[id] = at
	return nil
}

func (s *InMemoryStore) ScannedAt(id int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.scannedAt[id]
	return t, ok
}

func (s *InMemoryStore) GetSetting(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SettingErr != nil {
		return "", s.SettingErr
	}
	return s.settings[key], nil
}

func (s *InMemoryStore) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

// RecordingNotifier records which jobs were sent to Notify.
type RecordingNotifier struct {
	mu       sync.Mutex
	Notified []model.Job
}

func (n *RecordingNotifier) Notify(jobs []model.Job) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Notified = append(n.Notified, jobs...)
	return nil
}

// BlockingRunner holds every source until released or cancelled, and counts
// how many sources run at once.
type BlockingRunner struct {
	release     chan struct{}
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	started     chan string
	PanicOn     string
}

func NewBlockingRunner() *BlockingRunner {
	return &BlockingRunner{release: make(chan struct{}), started: make(chan string, 64)}
}

func (r *BlockingRunner) Release() { close(r.release) }

func (r *BlockingRunner) ScanSource(ctx context.Context, src model.Source, _ Criteria, sink ProgressSink) SourceResult {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		peak := r.maxInFlight.Load()
		if n <= peak || r.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	r.started <- src.Name

	if src.Name == r.PanicOn {
		panic(fmt.Sprintf("scanner bug in %s", src.Name))
	}

	select {
	case <-r.release:
	case <-ctx.Done():
		return SourceResult{SourceID: src.ID, SourceName: src.Name, Error: errors.New("scan aborted").Error()}
	}
	sink.AddFound(1)
	return SourceResult{
		SourceID:    src.ID,
		SourceName:  src.Name,
		SourceURL:   src.URL,
		Found:       1,
		Skipped:     1,
		SkippedJobs: []SkippedJob{{URL: src.URL + "/1", Reason: SkipAlreadyExists}},
	}
}
