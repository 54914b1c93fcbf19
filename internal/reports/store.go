package reports

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnrirwin/fieldreport/internal/database"
	"github.com/johnrirwin/fieldreport/internal/models"
)

// ReportStore is the append-only report log.
type ReportStore interface {
	Create(ctx context.Context, report models.Report) (*models.Report, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Report, error)
}

// SiteStore holds site reference data.
type SiteStore interface {
	List(ctx context.Context) ([]models.Site, error)
	Create(ctx context.Context, params models.CreateSiteParams) (*models.Site, error)
}

var (
	_ ReportStore = (*database.ReportStore)(nil)
	_ SiteStore   = (*database.SiteStore)(nil)
)

// MemoryReportStore keeps reports in process memory.
type MemoryReportStore struct {
	mu      sync.RWMutex
	reports []models.Report
}

// NewMemoryReportStore creates an empty report store.
func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{}
}

func (s *MemoryReportStore) Create(ctx context.Context, report models.Report) (*models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report.ID = uuid.NewString()

	s.mu.Lock()
	s.reports = append(s.reports, report)
	s.mu.Unlock()

	return &report, nil
}

func (s *MemoryReportStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := []models.Report{}
	for _, r := range s.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemorySiteStore keeps sites in process memory, ordered by name.
type MemorySiteStore struct {
	mu    sync.RWMutex
	sites []models.Site
	now   func() time.Time
}

// NewMemorySiteStore creates a store seeded with sites.
func NewMemorySiteStore(seed ...models.Site) *MemorySiteStore {
	s := &MemorySiteStore{now: time.Now}
	s.sites = append(s.sites, seed...)
	return s
}

func (s *MemorySiteStore) List(ctx context.Context) ([]models.Site, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]models.Site, len(s.sites))
	copy(out, s.sites)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemorySiteStore) Create(ctx context.Context, params models.CreateSiteParams) (*models.Site, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	site := models.Site{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(params.Name),
		Location:  strings.TrimSpace(params.Location),
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.sites = append(s.sites, site)
	s.mu.Unlock()

	return &site, nil
}
