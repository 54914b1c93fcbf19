package reports

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/johnrirwin/fieldreport/internal/cache"
	"github.com/johnrirwin/fieldreport/internal/drafts"
	"github.com/johnrirwin/fieldreport/internal/models"
	"github.com/johnrirwin/fieldreport/internal/observability"
	tu "github.com/johnrirwin/fieldreport/internal/testutil"
)

var (
	t0      = time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
	session = models.Session{UserID: "u-1", DisplayName: "Dana", Email: "dana@example.com"}
	sites   = []models.Site{
		{ID: "s1", Name: "North Yard", Location: "Block A"},
		{ID: "s2", Name: "South Pier", Location: "Dock 4"},
	}
)

type stubBlobStore struct {
	mu       sync.Mutex
	puts     []string
	deletes  []string
	putErr   error
	urlErr   error
	stubURL  string
	lastBody []byte
	onPut    func()
}

func (s *stubBlobStore) Put(_ context.Context, path string, data []byte, _ string) error {
	if s.onPut != nil {
		s.onPut()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, path)
	s.lastBody = data
	return s.putErr
}

func (s *stubBlobStore) URL(_ context.Context, path string) (string, error) {
	if s.urlErr != nil {
		return "", s.urlErr
	}
	if s.stubURL != "" {
		return s.stubURL, nil
	}
	return "https://blobs.example/" + path, nil
}

func (s *stubBlobStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, path)
	return nil
}

type failingReportStore struct {
	MemoryReportStore
	err error
}

func (s *failingReportStore) Create(context.Context, models.Report) (*models.Report, error) {
	return nil, s.err
}

type recordingPublisher struct {
	events []models.ReportSubmittedEvent
	err    error
}

func (p *recordingPublisher) PublishReportSubmitted(_ context.Context, e models.ReportSubmittedEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// stallingPublisher blocks until its context ends.
type stallingPublisher struct {
	deadline time.Time
}

func (p *stallingPublisher) PublishReportSubmitted(ctx context.Context, _ models.ReportSubmittedEvent) error {
	p.deadline, _ = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

func (p *stallingPublisher) Close() error { return nil }

type fixture struct {
	svc       *Service
	blobs     *stubBlobStore
	reports   ReportStore
	drafts    *drafts.Manager
	clock     *clockwork.FakeClock
	metrics   *observability.Metrics
	publisher *recordingPublisher
}

func newFixture(t *testing.T, reports ReportStore) *fixture {
	t.Helper()
	if reports == nil {
		reports = NewMemoryReportStore()
	}
	clock := clockwork.NewFakeClockAt(t0)
	f := &fixture{
		blobs:     &stubBlobStore{},
		reports:   reports,
		drafts:    drafts.NewManager(drafts.NewInMemoryStore(time.Hour), clock),
		clock:     clock,
		metrics:   observability.NewMetricsForTesting(),
		publisher: &recordingPublisher{},
	}
	f.svc = NewService(Deps{
		Reports: reports,
		Sites:   NewMemorySiteStore(sites...),
		Blobs:   f.blobs,
		Drafts:  f.drafts,
		Cache:   newCache(t),
		Events:  f.publisher,
		Metrics: f.metrics,
		Clock:   clock,
		Logger:  tu.NullLogger(),
	}, Options{})
	return f
}

func newCache(t *testing.T) *cache.MemoryCache {
	t.Helper()
	c := cache.NewMemory(time.Minute)
	t.Cleanup(c.Stop)
	return c
}

func completeDraft() *models.ReportDraft {
	return &models.ReportDraft{
		Title:       "Safety Check",
		SiteID:      "s1",
		CreatedAt:   t0.Add(-time.Hour),
		SubmittedBy: "Dana",
		Weather:     "Clear, 28°C, Humidity 65%",
		Description: "All clear",
		Image: &models.NormalizedImage{
			SourceURI:    "upload://IMG_0042.HEIC",
			TargetWidth:  512,
			TargetHeight: 384,
			MimeType:     "image/jpeg",
			FileName:     "IMG_0042.jpg",
			Data:         []byte("jpeg-bytes"),
		},
	}
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture(t, nil)
	f.blobs.stubURL = "https://blobs.example/stub.jpg"

	report, err := f.svc.Submit(context.Background(), session, completeDraft(), sites)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if report.ID == "" {
		t.Error("expected store-assigned ID")
	}
	if report.SiteName != "North Yard" || report.SiteLocation != "Block A" {
		t.Errorf("site = %q / %q", report.SiteName, report.SiteLocation)
	}
	if !report.Timestamp.Equal(t0) {
		t.Errorf("Timestamp = %v, want %v", report.Timestamp, t0)
	}
	if report.ImageURL != "https://blobs.example/stub.jpg" {
		t.Errorf("ImageURL = %q", report.ImageURL)
	}
	if report.Description != "All clear" || report.Title != "Safety Check" {
		t.Errorf("unexpected report %+v", report)
	}
	if report.UserID != "Dana" {
		t.Errorf("UserID = %q, want Dana", report.UserID)
	}

	stored, err := f.reports.ListByUser(context.Background(), "Dana", 10)
	if err != nil || len(stored) != 1 {
		t.Fatalf("stored = %v, %v", stored, err)
	}
	if stored[0] != *report {
		t.Errorf("stored record %+v differs from returned %+v", stored[0], *report)
	}

	if len(f.blobs.puts) != 1 || f.blobs.puts[0] != "reports/1717425000000_IMG_0042.jpg" {
		t.Errorf("puts = %v", f.blobs.puts)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].ReportID != report.ID {
		t.Errorf("events = %+v", f.publisher.events)
	}
	if got := testutil.ToFloat64(f.metrics.Submissions.WithLabelValues("success")); got != 1 {
		t.Errorf("success counter = %v", got)
	}
}

func TestSubmit_PreconditionsBeforeIO(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(d *models.ReportDraft)
		want  error
		label string
	}{
		{"no image", func(d *models.ReportDraft) { d.Image = nil }, ErrMissingImage, "missing_image"},
		{"no image and no title", func(d *models.ReportDraft) { d.Image = nil; d.Title = "" }, ErrMissingImage, "missing_image"},
		{"no title", func(d *models.ReportDraft) { d.Title = "" }, ErrMissingRequiredField, "missing_field"},
		{"blank title", func(d *models.ReportDraft) { d.Title = "   " }, ErrMissingRequiredField, "missing_field"},
		{"no site", func(d *models.ReportDraft) { d.SiteID = "" }, ErrMissingRequiredField, "missing_field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			draft := completeDraft()
			tt.edit(draft)

			_, err := f.svc.Submit(context.Background(), session, draft, sites)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if len(f.blobs.puts) != 0 {
				t.Errorf("expected no uploads, got %v", f.blobs.puts)
			}
			stored, _ := f.reports.ListByUser(context.Background(), "Dana", 10)
			if len(stored) != 0 {
				t.Errorf("expected no records, got %d", len(stored))
			}
			if got := testutil.ToFloat64(f.metrics.Submissions.WithLabelValues(tt.label)); got != 1 {
				t.Errorf("%s counter = %v", tt.label, got)
			}
		})
	}
}

func TestSubmit_SiteNotFoundAfterUpload(t *testing.T) {
	f := newFixture(t, nil)
	draft := completeDraft()
	draft.SiteID = "gone"

	_, err := f.svc.Submit(context.Background(), session, draft, sites)
	if !errors.Is(err, ErrSiteNotFound) {
		t.Fatalf("err = %v, want ErrSiteNotFound", err)
	}
	if len(f.blobs.puts) != 1 {
		t.Fatalf("expected exactly one upload, got %d", len(f.blobs.puts))
	}
	if len(f.blobs.deletes) != 1 || f.blobs.deletes[0] != f.blobs.puts[0] {
		t.Errorf("expected compensating delete of %v, got %v", f.blobs.puts, f.blobs.deletes)
	}
	stored, _ := f.reports.ListByUser(context.Background(), "Dana", 10)
	if len(stored) != 0 {
		t.Errorf("expected no records, got %d", len(stored))
	}
}

func TestSubmit_UploadFailures(t *testing.T) {
	t.Run("put", func(t *testing.T) {
		f := newFixture(t, nil)
		f.blobs.putErr = errors.New("connection reset")

		_, err := f.svc.Submit(context.Background(), session, completeDraft(), sites)
		if !errors.Is(err, ErrUploadFailed) {
			t.Fatalf("err = %v, want ErrUploadFailed", err)
		}
		stored, _ := f.reports.ListByUser(context.Background(), "Dana", 10)
		if len(stored) != 0 {
			t.Errorf("expected no records")
		}
	})

	t.Run("url", func(t *testing.T) {
		f := newFixture(t, nil)
		f.blobs.urlErr = errors.New("presign failed")

		_, err := f.svc.Submit(context.Background(), session, completeDraft(), sites)
		if !errors.Is(err, ErrUploadFailed) {
			t.Fatalf("err = %v, want ErrUploadFailed", err)
		}
		if len(f.blobs.deletes) != 1 {
			t.Errorf("expected the unreachable upload to be removed")
		}
	})
}

func TestSubmit_PersistFailed(t *testing.T) {
	cause := errors.New("db down")
	f := newFixture(t, &failingReportStore{err: cause})

	_, err := f.svc.Submit(context.Background(), session, completeDraft(), sites)
	if !errors.Is(err, ErrPersistFailed) || !errors.Is(err, cause) {
		t.Fatalf("err = %v, want ErrPersistFailed wrapping cause", err)
	}
	if len(f.blobs.deletes) != 1 {
		t.Errorf("expected compensating delete, got %v", f.blobs.deletes)
	}
	if len(f.publisher.events) != 0 {
		t.Errorf("no event expected on failure")
	}
}

func TestSubmit_EventFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, nil)
	f.publisher.err = errors.New("broker unavailable")

	if _, err := f.svc.Submit(context.Background(), session, completeDraft(), sites); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := testutil.ToFloat64(f.metrics.EventsFailed); got != 1 {
		t.Errorf("EventsFailed = %v", got)
	}
}

func TestSubmit_PublishHasItsOwnDeadline(t *testing.T) {
	publisher := &stallingPublisher{}
	metrics := observability.NewMetricsForTesting()
	svc := NewService(Deps{
		Reports: NewMemoryReportStore(),
		Sites:   NewMemorySiteStore(sites...),
		Blobs:   &stubBlobStore{},
		Events:  publisher,
		Metrics: metrics,
		Clock:   clockwork.NewFakeClockAt(t0),
		Logger:  tu.NullLogger(),
	}, Options{SubmitTimeout: time.Minute, PublishTimeout: 20 * time.Millisecond})

	// The caller's deadline is far away; publishing must still give up quickly.
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	start := time.Now()
	report, err := svc.Submit(ctx, session, completeDraft(), sites)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if report.ID == "" {
		t.Fatal("report was not stored")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Submit took %v waiting on the broker", elapsed)
	}
	if publisher.deadline.IsZero() || publisher.deadline.After(start.Add(time.Second)) {
		t.Errorf("publish deadline = %v, want about 20ms after %v", publisher.deadline, start)
	}
	if got := testutil.ToFloat64(metrics.EventsFailed); got != 1 {
		t.Errorf("EventsFailed = %v, want 1", got)
	}
}

func TestSubmit_TimestampMatchesStoredPrecision(t *testing.T) {
	f := newFixture(t, nil)
	f.clock.Advance(123456789 * time.Nanosecond)

	report, err := f.svc.Submit(context.Background(), session, completeDraft(), sites)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	want := t0.Add(123456 * time.Microsecond)
	if !report.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", report.Timestamp, want)
	}
	stored, _ := f.reports.ListByUser(context.Background(), "Dana", 10)
	if len(stored) != 1 || !stored[0].Timestamp.Equal(report.Timestamp) {
		t.Fatalf("stored %+v, returned timestamp %v", stored, report.Timestamp)
	}
	if len(f.publisher.events) != 1 || !f.publisher.events[0].SubmittedAt.Equal(want) {
		t.Errorf("event timestamp differs from report: %+v", f.publisher.events)
	}
}

func TestSubmitDraft_KeepsEditsMadeDuringSubmission(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, _ = f.drafts.Update(ctx, session, drafts.KeyTitle, "Safety Check")
	_, _ = f.drafts.Update(ctx, session, drafts.KeySiteID, "s1")
	if err := f.drafts.AttachImage(ctx, session, completeDraft().Image); err != nil {
		t.Fatal(err)
	}

	f.blobs.onPut = func() {
		if _, err := f.drafts.Update(ctx, session, drafts.KeyDescription, "Next inspection"); err != nil {
			t.Errorf("Update during submit: %v", err)
		}
	}

	report, err := f.svc.SubmitDraft(ctx, session)
	if err != nil {
		t.Fatalf("SubmitDraft: %v", err)
	}
	if report.Description != "" {
		t.Errorf("report picked up a later edit: %q", report.Description)
	}

	draft, _ := f.drafts.Current(ctx, session)
	if draft.Description != "Next inspection" {
		t.Errorf("edit made during submission was lost: %+v", draft)
	}
}

func TestSubmitDraft_ResetsOnlyOnSuccess(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.drafts.Update(ctx, session, drafts.KeyTitle, "Safety Check"); err != nil {
		t.Fatal(err)
	}

	// No image yet: the draft must survive the failure untouched.
	if _, err := f.svc.SubmitDraft(ctx, session); !errors.Is(err, ErrMissingImage) {
		t.Fatalf("err = %v, want ErrMissingImage", err)
	}
	draft, _ := f.drafts.Current(ctx, session)
	if draft.Title != "Safety Check" {
		t.Fatalf("draft was modified by failed submit: %+v", draft)
	}

	if _, err := f.drafts.Update(ctx, session, drafts.KeySiteID, "s2"); err != nil {
		t.Fatal(err)
	}
	if err := f.drafts.AttachImage(ctx, session, completeDraft().Image); err != nil {
		t.Fatal(err)
	}

	report, err := f.svc.SubmitDraft(ctx, session)
	if err != nil {
		t.Fatalf("SubmitDraft: %v", err)
	}
	if report.SiteName != "South Pier" {
		t.Errorf("SiteName = %q", report.SiteName)
	}

	draft, _ = f.drafts.Current(ctx, session)
	if draft.Title != "" || draft.Image != nil || draft.Weather != models.DefaultWeather {
		t.Errorf("draft not reset: %+v", draft)
	}
}

func TestSubmitDraft_IgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	_, _ = f.drafts.Update(ctx, session, drafts.KeyTitle, "Safety Check")
	_, _ = f.drafts.Update(ctx, session, drafts.KeySiteID, "s1")
	_ = f.drafts.AttachImage(ctx, session, completeDraft().Image)
	cancel()

	if _, err := f.svc.SubmitDraft(ctx, session); err != nil {
		t.Fatalf("SubmitDraft after cancel: %v", err)
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		d := completeDraft()
		d.Title = title
		if _, err := f.svc.Submit(ctx, session, d, sites); err != nil {
			t.Fatal(err)
		}
		f.clock.Advance(time.Minute)
	}

	other := models.Session{UserID: "u-2", Email: "lee@example.com"}
	if _, err := f.svc.Submit(ctx, other, completeDraft(), sites); err != nil {
		t.Fatal(err)
	}

	resp, err := f.svc.History(ctx, session, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if resp.Count != 3 {
		t.Fatalf("Count = %d, want 3", resp.Count)
	}
	if resp.Reports[0].Title != "third" || resp.Reports[2].Title != "first" {
		t.Errorf("order = %s, %s, %s", resp.Reports[0].Title, resp.Reports[1].Title, resp.Reports[2].Title)
	}
}

type countingSiteStore struct {
	*MemorySiteStore
	lists int
}

func (s *countingSiteStore) List(ctx context.Context) ([]models.Site, error) {
	s.lists++
	return s.MemorySiteStore.List(ctx)
}

func TestSites_CachedUntilCreate(t *testing.T) {
	store := &countingSiteStore{MemorySiteStore: NewMemorySiteStore(sites...)}
	svc := NewService(Deps{
		Reports: NewMemoryReportStore(),
		Sites:   store,
		Blobs:   &stubBlobStore{},
		Cache:   newCache(t),
		Logger:  tu.NullLogger(),
	}, Options{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := svc.Sites(ctx)
		if err != nil || len(got) != 2 {
			t.Fatalf("Sites = %v, %v", got, err)
		}
	}
	if store.lists != 1 {
		t.Errorf("lists = %d, want 1", store.lists)
	}

	if _, err := svc.CreateSite(ctx, models.CreateSiteParams{Name: "East Gate"}); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.Sites(ctx)
	if len(got) != 3 || store.lists != 2 {
		t.Errorf("after create: %d sites, %d lists", len(got), store.lists)
	}

	if _, err := svc.CreateSite(ctx, models.CreateSiteParams{Name: "  "}); err == nil {
		t.Error("expected blank site name to be rejected")
	}
}
