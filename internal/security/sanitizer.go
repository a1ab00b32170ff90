package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips markup from free-text fields (remark descriptions,
// rejection reasons) before they are persisted or echoed back.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *Sanitizer) Clean(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}

// CleanPtr sanitizes an optional field in place, preserving nil.
func (s *Sanitizer) CleanPtr(input *string) *string {
	if input == nil {
		return nil
	}
	cleaned := s.Clean(*input)
	return &cleaned
}
