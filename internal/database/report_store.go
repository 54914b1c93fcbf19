package database

import (
	"context"
	"fmt"

	"github.com/johnrirwin/fieldreport/internal/models"
)

const defaultHistoryLimit = 100

// ReportStore persists submitted reports. Rows are never updated.
type ReportStore struct {
	db *DB
}

// NewReportStore creates a new report store
func NewReportStore(db *DB) *ReportStore {
	return &ReportStore{db: db}
}

// Create writes a report and returns it with the database-assigned ID and
// the timestamp as stored, which PostgreSQL keeps to the microsecond.
func (s *ReportStore) Create(ctx context.Context, report models.Report) (*models.Report, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO reports (title, site_name, site_location, timestamp, user_id, submitted_by, weather, description, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, timestamp
	`,
		report.Title, report.SiteName, report.SiteLocation, report.Timestamp.UTC(),
		report.UserID, report.SubmittedBy, report.Weather, report.Description, report.ImageURL,
	).Scan(&report.ID, &report.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	report.Timestamp = report.Timestamp.UTC()
	return &report, nil
}

// ListByUser returns a user's reports, newest first.
func (s *ReportStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.Report, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, site_name, site_location, timestamp, user_id, submitted_by, weather, description, image_url
		FROM reports
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		var r models.Report
		if err := rows.Scan(
			&r.ID, &r.Title, &r.SiteName, &r.SiteLocation, &r.Timestamp,
			&r.UserID, &r.SubmittedBy, &r.Weather, &r.Description, &r.ImageURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
