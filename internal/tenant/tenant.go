package tenant

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxIDLength bounds tenant identifiers to keep derived filesystem
// paths well under PATH_MAX on every supported platform.
const MaxIDLength = 64

// idPattern allows alphanumeric, hyphens, underscores. Anything else
// (separators, dots, whitespace) is rejected so a tenant id can never
// influence path resolution.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID validates an opaque tenant identifier as supplied by the
// authentication layer.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("tenant id is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("tenant id must not exceed %d characters", MaxIDLength)
	}
	if strings.Contains(id, "\x00") {
		return fmt.Errorf("tenant id contains invalid characters")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("tenant id contains invalid characters (only alphanumeric, hyphens, and underscores allowed)")
	}
	return nil
}
