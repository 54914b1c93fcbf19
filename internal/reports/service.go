// Package reports runs the submission pipeline and serves report history
// and site reference data.
package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/johnrirwin/fieldreport/internal/blob"
	"github.com/johnrirwin/fieldreport/internal/cache"
	"github.com/johnrirwin/fieldreport/internal/drafts"
	"github.com/johnrirwin/fieldreport/internal/events"
	"github.com/johnrirwin/fieldreport/internal/logging"
	"github.com/johnrirwin/fieldreport/internal/models"
	"github.com/johnrirwin/fieldreport/internal/observability"
)

const (
	defaultUploadPrefix   = "reports"
	defaultSubmitTimeout  = 60 * time.Second
	defaultPublishTimeout = 5 * time.Second
	defaultHistoryLimit   = 100
	cleanupTimeout        = 10 * time.Second
	sitesCacheKey         = "sites:all"
)

// Deps are the collaborators of the report service. Cache, Events, Metrics
// and Clock are optional.
type Deps struct {
	Reports ReportStore
	Sites   SiteStore
	Blobs   blob.Store
	Drafts  *drafts.Manager
	Cache   cache.Cache
	Events  events.Publisher
	Metrics *observability.Metrics
	Clock   clockwork.Clock
	Logger  *logging.Logger
}

// Options tune the submission pipeline.
type Options struct {
	UploadPrefix   string
	SiteCacheTTL   time.Duration
	SubmitTimeout  time.Duration
	PublishTimeout time.Duration
}

// Service coordinates report submission, history and sites.
type Service struct {
	reports ReportStore
	sites   SiteStore
	blobs   blob.Store
	drafts  *drafts.Manager
	cache   cache.Cache
	events  events.Publisher
	metrics *observability.Metrics
	clock   clockwork.Clock
	logger  *logging.Logger

	prefix         string
	siteCacheTTL   time.Duration
	submitTimeout  time.Duration
	publishTimeout time.Duration
}

// NewService creates a report service.
func NewService(deps Deps, opts Options) *Service {
	s := &Service{
		reports:       deps.Reports,
		sites:         deps.Sites,
		blobs:         deps.Blobs,
		drafts:        deps.Drafts,
		cache:         deps.Cache,
		events:        deps.Events,
		metrics:       deps.Metrics,
		clock:         deps.Clock,
		logger:        deps.Logger,
		prefix:         opts.UploadPrefix,
		siteCacheTTL:   opts.SiteCacheTTL,
		submitTimeout:  opts.SubmitTimeout,
		publishTimeout: opts.PublishTimeout,
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetricsForTesting()
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.prefix == "" {
		s.prefix = defaultUploadPrefix
	}
	if s.submitTimeout <= 0 {
		s.submitTimeout = defaultSubmitTimeout
	}
	if s.publishTimeout <= 0 {
		s.publishTimeout = defaultPublishTimeout
	}
	return s
}

// Submit uploads the draft's image and writes the report. Preconditions are
// checked before any I/O. On success the returned report carries the
// store-assigned ID; the draft itself is not touched.
func (s *Service) Submit(ctx context.Context, session models.Session, draft *models.ReportDraft, sites []models.Site) (report *models.Report, err error) {
	defer func() {
		s.metrics.Submissions.WithLabelValues(outcome(err)).Inc()
	}()

	if draft == nil || draft.Image == nil || len(draft.Image.Data) == 0 {
		return nil, ErrMissingImage
	}
	if strings.TrimSpace(draft.Title) == "" || strings.TrimSpace(draft.SiteID) == "" {
		return nil, ErrMissingRequiredField
	}

	objectPath := blob.ObjectPath(s.prefix, s.clock.Now(), draft.Image.FileName)
	imageURL, err := s.upload(ctx, objectPath, draft.Image)
	if err != nil {
		return nil, err
	}

	site := models.FindSite(sites, draft.SiteID)
	if site == nil {
		s.discardBlob(ctx, objectPath)
		return nil, ErrSiteNotFound
	}

	// One instant for the stored record and the returned value, at the
	// microsecond precision PostgreSQL keeps.
	now := s.clock.Now().UTC().Truncate(time.Microsecond)

	created, err := s.reports.Create(ctx, models.Report{
		Title:        draft.Title,
		SiteName:     site.Name,
		SiteLocation: site.Location,
		Timestamp:    now,
		UserID:       session.Label(),
		SubmittedBy:  draft.SubmittedBy,
		Weather:      draft.Weather,
		Description:  draft.Description,
		ImageURL:     imageURL,
	})
	if err != nil {
		s.logger.Error("Failed to persist report", logging.WithFields(map[string]interface{}{
			"userId": session.UserID,
			"path":   objectPath,
			"error":  err.Error(),
		}))
		s.discardBlob(ctx, objectPath)
		return nil, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	s.publish(ctx, created)

	s.logger.Info("Report submitted", logging.WithFields(map[string]interface{}{
		"reportId": created.ID,
		"userId":   session.UserID,
		"site":     created.SiteName,
	}))

	return created, nil
}

// SubmitDraft submits the session's current draft and resets it on
// success. The pipeline runs detached from ctx's cancellation so a client
// disconnect does not abort an upload midway.
func (s *Service) SubmitDraft(ctx context.Context, session models.Session) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.submitTimeout)
	defer cancel()

	draft, err := s.drafts.Current(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	revision := draft.Revision

	sites, err := s.Sites(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sites: %w", err)
	}

	report, err := s.Submit(ctx, session, draft, sites)
	if err != nil {
		return nil, err
	}

	// Edits made while the submission ran belong to the next report.
	reset, err := s.drafts.ResetIfUnchanged(ctx, session, revision)
	switch {
	case err != nil:
		s.logger.Warn("Failed to reset draft after submission", logging.WithFields(map[string]interface{}{
			"userId": session.UserID,
			"error":  err.Error(),
		}))
	case !reset:
		s.logger.Info("Draft changed during submission, keeping edits", logging.WithField("userId", session.UserID))
	}

	return report, nil
}

// History returns the session user's reports, newest first.
func (s *Service) History(ctx context.Context, session models.Session, limit int) (*models.ReportsResponse, error) {
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}

	reports, err := s.reports.ListByUser(ctx, session.Label(), limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	return &models.ReportsResponse{Reports: reports, Count: len(reports)}, nil
}

// Sites returns the site list, served from cache when possible.
func (s *Service) Sites(ctx context.Context) ([]models.Site, error) {
	if s.cache != nil {
		var cached []models.Site
		if cache.GetJSON(s.cache, sitesCacheKey, &cached) {
			return cached, nil
		}
	}

	sites, err := s.sites.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := cache.SetJSON(s.cache, sitesCacheKey, sites, s.siteCacheTTL); err != nil {
			s.logger.Warn("Failed to cache sites", logging.WithField("error", err.Error()))
		}
	}
	return sites, nil
}

// CreateSite adds a site and drops the cached site list.
func (s *Service) CreateSite(ctx context.Context, params models.CreateSiteParams) (*models.Site, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, &models.ValidationError{Field: "name", Message: "site name is required"}
	}

	site, err := s.sites.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Delete(sitesCacheKey)
	}
	return site, nil
}

func (s *Service) upload(ctx context.Context, objectPath string, img *models.NormalizedImage) (string, error) {
	contentType := img.MimeType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	start := s.clock.Now()
	err := s.blobs.Put(ctx, objectPath, img.Data, contentType)
	s.metrics.UploadDuration.Observe(s.clock.Since(start).Seconds())
	if err != nil {
		s.logger.Error("Image upload failed", logging.WithFields(map[string]interface{}{
			"path":  objectPath,
			"error": err.Error(),
		}))
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	url, err := s.blobs.URL(ctx, objectPath)
	if err != nil {
		s.discardBlob(ctx, objectPath)
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	return url, nil
}

// discardBlob removes an upload whose report was never written.
func (s *Service) discardBlob(ctx context.Context, objectPath string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.blobs.Delete(ctx, objectPath); err != nil && !errors.Is(err, blob.ErrNotFound) {
		s.metrics.BlobCleanups.WithLabelValues("failed").Inc()
		s.logger.Warn("Failed to delete orphaned image", logging.WithFields(map[string]interface{}{
			"path":  objectPath,
			"error": err.Error(),
		}))
		return
	}
	s.metrics.BlobCleanups.WithLabelValues("deleted").Inc()
}

// publish runs on its own deadline, detached from the submission's.
func (s *Service) publish(ctx context.Context, report *models.Report) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	err := s.events.PublishReportSubmitted(ctx, models.ReportSubmittedEvent{
		ReportID:    report.ID,
		UserID:      report.UserID,
		SiteName:    report.SiteName,
		Title:       report.Title,
		ImageURL:    report.ImageURL,
		SubmittedAt: report.Timestamp,
	})
	if err != nil {
		s.metrics.EventsFailed.Inc()
		s.logger.Warn("Failed to publish report event", logging.WithFields(map[string]interface{}{
			"reportId": report.ID,
			"error":    err.Error(),
		}))
	}
}
