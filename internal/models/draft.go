package models

import "time"

// Weather options offered by the capture form.
const (
	WeatherSunny  = "Sunny"
	WeatherCloudy = "Cloudy"
	WeatherRainy  = "Rainy"
	WeatherStormy = "Stormy"

	DefaultWeather = WeatherSunny
)

// WeatherOptions lists the manual weather choices in display order.
var WeatherOptions = []string{WeatherSunny, WeatherCloudy, WeatherRainy, WeatherStormy}

// ReportDraft is the in-progress report for one capture session.
type ReportDraft struct {
	Title       string           `json:"title"`
	SiteID      string           `json:"siteId"`
	CreatedAt   time.Time        `json:"createdAt"`
	SubmittedBy string           `json:"submittedBy"`
	Weather     string           `json:"weather"`
	Description string           `json:"description"`
	Image       *NormalizedImage `json:"image,omitempty"`

	// Revision counts stored writes. It is not part of the client view.
	Revision int64 `json:"revision"`
}

// DraftView is the client-facing shape of a draft; image bytes are not echoed back.
type DraftView struct {
	Title       string     `json:"title"`
	SiteID      string     `json:"siteId"`
	CreatedAt   time.Time  `json:"createdAt"`
	SubmittedBy string     `json:"submittedBy"`
	Weather     string     `json:"weather"`
	Description string     `json:"description"`
	Image       *ImageView `json:"image,omitempty"`
}

// ImageView describes the attached image without its bytes.
type ImageView struct {
	FileName string `json:"fileName"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Bytes    int    `json:"bytes"`
}

// View returns the client-facing representation of the draft.
func (d *ReportDraft) View() DraftView {
	v := DraftView{
		Title:       d.Title,
		SiteID:      d.SiteID,
		CreatedAt:   d.CreatedAt,
		SubmittedBy: d.SubmittedBy,
		Weather:     d.Weather,
		Description: d.Description,
	}
	if d.Image != nil {
		v.Image = &ImageView{
			FileName: d.Image.FileName,
			Width:    d.Image.TargetWidth,
			Height:   d.Image.TargetHeight,
			Bytes:    len(d.Image.Data),
		}
	}
	return v
}

// UpdateDraftParams is a single-field draft update.
type UpdateDraftParams struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
