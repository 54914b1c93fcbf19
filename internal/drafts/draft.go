// Package drafts holds the in-progress report for each capture session.
package drafts

import (
	"errors"
	"fmt"
	"time"

	"github.com/johnrirwin/fieldreport/internal/models"
)

// Field keys accepted by Update.
const (
	KeyTitle       = "title"
	KeySiteID      = "siteId"
	KeyWeather     = "weather"
	KeyDescription = "description"
	KeySubmittedBy = "submittedBy"
)

// ErrUnknownField is returned by Update for a key the draft does not have.
var ErrUnknownField = errors.New("unknown draft field")

// New returns a draft with defaults for the session.
func New(session models.Session, now time.Time) *models.ReportDraft {
	return &models.ReportDraft{
		CreatedAt:   now,
		SubmittedBy: session.Label(),
		Weather:     models.DefaultWeather,
	}
}

// Update replaces exactly one field. Values are stored as given.
func Update(d *models.ReportDraft, key, value string) error {
	switch key {
	case KeyTitle:
		d.Title = value
	case KeySiteID:
		d.SiteID = value
	case KeyWeather:
		d.Weather = value
	case KeyDescription:
		d.Description = value
	case KeySubmittedBy:
		d.SubmittedBy = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	return nil
}

func clone(d *models.ReportDraft) *models.ReportDraft {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func draftSize(d *models.ReportDraft) int {
	n := len(d.Title) + len(d.SiteID) + len(d.Weather) + len(d.Description) + len(d.SubmittedBy)
	if d.Image != nil {
		n += len(d.Image.Data)
	}
	return n
}
