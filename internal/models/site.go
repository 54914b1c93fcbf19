package models

import "time"

// Site is a work location reports are filed against. Sites are shared
// reference data and are never modified by the capture flow.
type Site struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// CreateSiteParams represents parameters for creating a site
type CreateSiteParams struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// FindSite returns the site with the given ID, or nil.
func FindSite(sites []Site, id string) *Site {
	for i := range sites {
		if sites[i].ID == id {
			return &sites[i]
		}
	}
	return nil
}
