package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for caller input the services reject.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidDataURL is returned for image payloads that are not base64 data URLs.
	ErrInvalidDataURL = errors.New("invalid data URL")

	// ErrUnsupportedImage is returned when an image cannot be decoded or is too large.
	ErrUnsupportedImage = errors.New("unsupported image")

	// ErrProviderDisabled is returned when a provider has no API key configured.
	ErrProviderDisabled = errors.New("provider not configured")

	// ErrEmptyResult is returned when a provider answered without usable content.
	ErrEmptyResult = errors.New("provider returned no content")
)

// UpstreamError is a non-success answer from an external API.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s API returned error: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s API returned error: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Unauthorized reports whether the upstream rejected the credentials.
func (e *UpstreamError) Unauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsUnauthorized reports whether err wraps an UpstreamError rejecting credentials.
func IsUnauthorized(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Unauthorized()
}

// truncate shortens upstream bodies quoted in errors and logs.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
