package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// maxNameLength bounds resource names and ids accepted from callers.
const maxNameLength = 256

// ValidateResourceName validates a resource name or id supplied by a caller.
// It rejects empty names, control characters and overly long values.
func ValidateResourceName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidInput, "resource name cannot be empty")
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidInput, "resource name too long (max %d characters)", maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "resource name contains invalid control characters")
		}
	}

	return nil
}

// ValidateURL validates a resource URL for safety.
// It ensures the URL parses and has an http or https scheme and a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidURL, "URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidURL, err, "URL does not parse")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidURL, "URL must use http or https scheme")
	}
	if u.Host == "" {
		return New(ErrCodeInvalidURL, "URL must have a host")
	}

	return nil
}

// ValidateSource validates the location of an SLD document.
// Remote documents must be http(s) URLs; file:// URLs and plain paths are
// accepted for local use and must not contain NUL bytes.
func ValidateSource(source string) error {
	if source == "" {
		return New(ErrCodeInvalidURL, "source cannot be empty")
	}
	if strings.ContainsRune(source, '\x00') {
		return New(ErrCodeInvalidURL, "source contains invalid characters")
	}

	lower := strings.ToLower(source)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return ValidateURL(source)
	case strings.HasPrefix(lower, "file://"):
		return nil
	case strings.Contains(source, "://"):
		return New(ErrCodeInvalidURL, "unsupported source scheme: %q", source)
	}
	return nil
}
