package reports

import "errors"

// Submission failures. Each aborts the submission and leaves the draft as it was.
var (
	ErrMissingImage         = errors.New("a photo is required")
	ErrMissingRequiredField = errors.New("title and site are required")
	ErrSiteNotFound         = errors.New("selected site no longer exists")
	ErrUploadFailed         = errors.New("image upload failed")
	ErrPersistFailed        = errors.New("report could not be saved")
)

// outcome is the metrics label for a submission result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrMissingImage):
		return "missing_image"
	case errors.Is(err, ErrMissingRequiredField):
		return "missing_field"
	case errors.Is(err, ErrUploadFailed):
		return "upload_failed"
	case errors.Is(err, ErrSiteNotFound):
		return "site_not_found"
	case errors.Is(err, ErrPersistFailed):
		return "persist_failed"
	default:
		return "error"
	}
}
