package drafts

import (
	"context"
	"time"

	"github.com/johnrirwin/fieldreport/internal/models"
)

const defaultDraftTTL = 24 * time.Hour

// Store persists one draft per user.
type Store interface {
	Get(ctx context.Context, userID string) (*models.ReportDraft, bool, error)
	Put(ctx context.Context, userID string, draft *models.ReportDraft) error
	Delete(ctx context.Context, userID string) error
}
