package models

// ImageModerationStatus is the moderation outcome returned to clients.
type ImageModerationStatus string

const (
	ImageModerationApproved      ImageModerationStatus = "APPROVED"
	ImageModerationRejected      ImageModerationStatus = "REJECTED"
	ImageModerationPendingReview ImageModerationStatus = "PENDING_REVIEW"
)

// ModerationLabel captures a single Rekognition moderation label.
type ModerationLabel struct {
	Name       string  `json:"name"`
	ParentName string  `json:"parentName,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ModerationDecision is the server-side decision used by acquisition.
type ModerationDecision struct {
	Status        ImageModerationStatus `json:"status"`
	Reason        string                `json:"reason,omitempty"`
	Labels        []ModerationLabel     `json:"labels,omitempty"`
	MaxConfidence float64               `json:"maxConfidence,omitempty"`
}

// ImageAsset is a captured or picked image before normalization.
type ImageAsset struct {
	SourceURI string `json:"sourceUri"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	MimeType  string `json:"mimeType"`
	FileName  string `json:"fileName"`
}

// NormalizedImage is an image resized so its longer side equals the target
// bound. Data holds the re-encoded JPEG bytes.
type NormalizedImage struct {
	SourceURI    string `json:"sourceUri"`
	TargetWidth  int    `json:"targetWidth"`
	TargetHeight int    `json:"targetHeight"`
	MimeType     string `json:"mimeType"`
	FileName     string `json:"fileName"`
	Data         []byte `json:"data"`
}

// AcquireResponse is returned after an image is attached to a draft.
type AcquireResponse struct {
	Moderation ModerationDecision `json:"moderation"`
	Asset      *ImageAsset        `json:"asset,omitempty"`
	Image      *ImageView         `json:"image,omitempty"`
}
