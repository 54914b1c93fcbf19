package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/johnrirwin/fieldreport/internal/models"
)

// SiteStore handles site reference data
type SiteStore struct {
	db *DB
}

// NewSiteStore creates a new site store
func NewSiteStore(db *DB) *SiteStore {
	return &SiteStore{db: db}
}

// List returns all sites ordered by name
func (s *SiteStore) List(ctx context.Context) ([]models.Site, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, location, created_at
		FROM sites
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	sites := []models.Site{}
	for rows.Next() {
		var site models.Site
		if err := rows.Scan(&site.ID, &site.Name, &site.Location, &site.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// Create inserts a new site
func (s *SiteStore) Create(ctx context.Context, params models.CreateSiteParams) (*models.Site, error) {
	site := &models.Site{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sites (name, location)
		VALUES ($1, $2)
		RETURNING id, name, location, created_at
	`, strings.TrimSpace(params.Name), strings.TrimSpace(params.Location)).Scan(
		&site.ID, &site.Name, &site.Location, &site.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create site: %w", err)
	}
	return site, nil
}
