package models

import (
	"testing"
	"time"
)

func TestReportDraft_ViewOmitsBytes(t *testing.T) {
	d := ReportDraft{
		Title:     "Safety Check",
		SiteID:    "s1",
		CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Weather:   DefaultWeather,
		Image: &NormalizedImage{
			FileName:     "photo.jpg",
			TargetWidth:  512,
			TargetHeight: 384,
			Data:         []byte{1, 2, 3},
		},
	}

	v := d.View()
	if v.Image == nil {
		t.Fatal("expected image view")
	}
	if v.Image.Bytes != 3 || v.Image.Width != 512 || v.Image.Height != 384 {
		t.Errorf("unexpected image view: %+v", v.Image)
	}
	if v.Weather != "Sunny" {
		t.Errorf("Weather = %q, want Sunny", v.Weather)
	}
}

func TestFindSite(t *testing.T) {
	sites := []Site{{ID: "s1", Name: "North Yard"}, {ID: "s2", Name: "Dock"}}

	if got := FindSite(sites, "s2"); got == nil || got.Name != "Dock" {
		t.Errorf("FindSite(s2) = %+v", got)
	}
	if got := FindSite(sites, "missing"); got != nil {
		t.Errorf("FindSite(missing) = %+v, want nil", got)
	}
}
