// Package moderation screens captured photos before they join a report.
package moderation

import (
	"context"
	"fmt"

	"github.com/johnrirwin/fieldreport/internal/config"
	"github.com/johnrirwin/fieldreport/internal/models"
)

// Detector is the low-level provider abstraction that fetches moderation labels.
type Detector interface {
	DetectModerationLabels(ctx context.Context, imageBytes []byte) ([]models.ModerationLabel, error)
}

// Service evaluates moderation labels into APPROVED/REJECTED decisions.
type Service struct {
	detector         Detector
	rejectConfidence float64
}

// NewService creates a moderation service using the configured detector.
func NewService(detector Detector, rejectConfidence float64) *Service {
	if rejectConfidence <= 0 {
		rejectConfidence = 70
	}
	return &Service{
		detector:         detector,
		rejectConfidence: rejectConfidence,
	}
}

// NewFromConfig builds a Rekognition-backed service, or returns nil when
// moderation is disabled.
func NewFromConfig(ctx context.Context, cfg config.ModerationConfig) (*Service, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	detector, err := NewAWSDetector(ctx, cfg.AWSRegion, cfg.RejectConfidence)
	if err != nil {
		return nil, err
	}
	return NewService(detector, cfg.RejectConfidence), nil
}

// ModerateImageBytes moderates a report photo.
func (s *Service) ModerateImageBytes(ctx context.Context, imageBytes []byte) (*models.ModerationDecision, error) {
	labels, err := s.detector.DetectModerationLabels(ctx, imageBytes)
	if err != nil {
		return nil, err
	}
	return Evaluate(labels, s.rejectConfidence), nil
}

// Evaluate rejects when any label reaches threshold. The reason names the
// strongest offending label so the worker knows why the photo was refused.
func Evaluate(labels []models.ModerationLabel, threshold float64) *models.ModerationDecision {
	decision := &models.ModerationDecision{
		Status: models.ImageModerationApproved,
		Reason: "Approved",
		Labels: labels,
	}

	var worst *models.ModerationLabel
	for i := range labels {
		l := &labels[i]
		if l.Confidence > decision.MaxConfidence {
			decision.MaxConfidence = l.Confidence
		}
		if l.Confidence >= threshold && (worst == nil || l.Confidence > worst.Confidence) {
			worst = l
		}
	}

	if worst != nil {
		decision.Status = models.ImageModerationRejected
		name := worst.Name
		if worst.ParentName != "" {
			name = worst.ParentName
		}
		decision.Reason = fmt.Sprintf("Photo not allowed (%s)", name)
	}

	return decision
}
