package models

import "time"

// Report is a persisted field report. Site name and location are copied in
// at submission time so history rows do not depend on the site list.
type Report struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	SiteName     string    `json:"site"`
	SiteLocation string    `json:"siteLocation"`
	Timestamp    time.Time `json:"timestamp"`
	UserID       string    `json:"userId"`
	SubmittedBy  string    `json:"worker"`
	Weather      string    `json:"weather"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"imageUrl"`
}

// ReportsResponse is a page of a user's report history
type ReportsResponse struct {
	Reports []Report `json:"reports"`
	Count   int      `json:"count"`
}

// ReportSubmittedEvent is published after a report has been written.
type ReportSubmittedEvent struct {
	ReportID    string    `json:"reportId"`
	UserID      string    `json:"userId"`
	SiteName    string    `json:"site"`
	Title       string    `json:"title"`
	ImageURL    string    `json:"imageUrl"`
	SubmittedAt time.Time `json:"submittedAt"`
}
