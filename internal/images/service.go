package images

import (
	"context"
	"fmt"
	"time"

	"github.com/johnrirwin/fieldreport/internal/logging"
	"github.com/johnrirwin/fieldreport/internal/models"
)

// Moderator defines the moderation abstraction used by acquisition.
type Moderator interface {
	ModerateImageBytes(ctx context.Context, imageBytes []byte) (*models.ModerationDecision, error)
}

// DraftImageSink receives normalized images for a user's current draft.
type DraftImageSink interface {
	AttachImage(ctx context.Context, session models.Session, img *models.NormalizedImage) error
}

// AcquireRequest is one captured or picked photo.
type AcquireRequest struct {
	FileName string
	Data     []byte
	Source   Source
}

// Service runs acquisition: validate, moderate, normalize, attach.
type Service struct {
	moderator Moderator
	processor *Processor
	drafts    DraftImageSink
	timeout   time.Duration
	logger    *logging.Logger

	bound   int
	quality float64
}

// NewService creates a new acquisition service. A nil moderator approves
// every image.
func NewService(moderator Moderator, drafts DraftImageSink, timeout time.Duration, logger *logging.Logger) *Service {
	return &Service{
		moderator: moderator,
		processor: NewProcessor(0),
		drafts:    drafts,
		timeout:   timeout,
		logger:    logger,
	}
}

// WithCaptureDefaults overrides the normalization bound and JPEG quality used
// for every capture. Zero values keep the defaults.
func (s *Service) WithCaptureDefaults(bound int, quality float64) *Service {
	s.bound = bound
	s.quality = quality
	return s
}

// WithMaxPixels overrides the decoded pixel cap. Zero keeps the default.
func (s *Service) WithMaxPixels(n int) *Service {
	s.processor.WithMaxPixels(n)
	return s
}

// Acquire turns uploaded bytes into the session draft's normalized image,
// replacing any previous one. Images that fail moderation are reported in
// the decision and never reach the draft.
func (s *Service) Acquire(ctx context.Context, session models.Session, req AcquireRequest) (*models.AcquireResponse, error) {
	source := req.Source
	if source == "" {
		source = SourceLibrary
	}
	opts := DefaultCaptureOptions(source)
	if s.bound > 0 {
		opts.MaxWidth, opts.MaxHeight = s.bound, s.bound
	}
	if s.quality > 0 {
		opts.Quality = s.quality
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(req.Data) == 0 {
		return nil, ErrEmptyImage
	}

	contentType, ok := DetectContentType(req.Data)
	if !ok {
		return nil, ErrUnsupportedContentType
	}

	decoded, err := s.processor.Decode(req.Data)
	if err != nil {
		return nil, err
	}
	bounds := decoded.Bounds()

	fileName := req.FileName
	if fileName == "" {
		fileName = DefaultFileName
	}
	asset := &models.ImageAsset{
		SourceURI: "upload://" + fileName,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		MimeType:  contentType,
		FileName:  fileName,
	}

	decision := s.moderate(ctx, req.Data)
	if decision.Status != models.ImageModerationApproved {
		s.logger.Info("Image not attached", logging.WithFields(map[string]interface{}{
			"userId": session.UserID,
			"status": string(decision.Status),
		}))
		return &models.AcquireResponse{Moderation: *decision, Asset: asset}, nil
	}

	normalized, err := NormalizeAsset(*asset, opts.Bound())
	if err != nil {
		return nil, err
	}

	processor := s.processor
	if q := opts.JPEGQuality(); q != processor.quality {
		processor = NewProcessor(q)
	}
	data, err := processor.Resize(decoded, normalized.TargetWidth, normalized.TargetHeight)
	if err != nil {
		return nil, err
	}
	normalized.Data = data

	if err := s.drafts.AttachImage(ctx, session, normalized); err != nil {
		return nil, fmt.Errorf("attach image to draft: %w", err)
	}

	s.logger.Debug("Image attached to draft", logging.WithFields(map[string]interface{}{
		"userId": session.UserID,
		"source": string(opts.Source),
		"width":  normalized.TargetWidth,
		"height": normalized.TargetHeight,
	}))

	return &models.AcquireResponse{
		Moderation: *decision,
		Asset:      asset,
		Image: &models.ImageView{
			FileName: normalized.FileName,
			Width:    normalized.TargetWidth,
			Height:   normalized.TargetHeight,
			Bytes:    len(normalized.Data),
		},
	}, nil
}

func (s *Service) moderate(ctx context.Context, imageBytes []byte) *models.ModerationDecision {
	if s.moderator == nil {
		return &models.ModerationDecision{
			Status: models.ImageModerationApproved,
			Reason: "Approved",
		}
	}

	timeout := s.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	moderationCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	decision, err := s.moderator.ModerateImageBytes(moderationCtx, imageBytes)
	if err != nil || decision == nil {
		if err != nil {
			s.logger.Warn("Image moderation failed", logging.WithField("error", err.Error()))
		}
		return &models.ModerationDecision{
			Status: models.ImageModerationPendingReview,
			Reason: "Unable to verify right now",
		}
	}

	return decision
}
