package validation

import (
	"fmt"

	dErrors "trialgate/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size (64 KB).
	// Sufficient for the trial form while preventing memory exhaustion
	// attacks.
	MaxBodySize = 64 * 1024
)

// String element length limits
const (
	// MaxNameLength is the maximum length of the submitted name.
	MaxNameLength = 200

	// MaxCountryLength is the maximum length of the submitted country.
	MaxCountryLength = 100

	// MaxEmailLength is the maximum length of an email address.
	MaxEmailLength = 255

	// MaxInitDataLength is the maximum length of a Telegram init data
	// blob. Telegram keeps these small; anything larger is hostile.
	MaxInitDataLength = 4096
)

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}
