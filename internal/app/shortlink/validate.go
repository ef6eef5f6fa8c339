package shortlink

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidURL 是领域层对“URL 不合法”的统一错误，HTTP 层稳定地映射成 400。
var ErrInvalidURL = errors.New("invalid url")

// MaxURLLength is the longest URL the service accepts.
const MaxURLLength = 2048

// ValidateURL checks that raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	if raw == "" || len(raw) > MaxURLLength {
		return ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}
	if strings.TrimSpace(u.Host) == "" {
		return ErrInvalidURL
	}
	return nil
}
