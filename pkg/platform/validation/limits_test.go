package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "trialgate/pkg/domain-errors"
)

// LimitsSuite tests the validation helper functions.
//
// Justification: These are trust-boundary validators. The invariants
// "max+1 must fail" and "max must pass" are security-critical.
type LimitsSuite struct {
	suite.Suite
}

func TestLimitsSuite(t *testing.T) {
	suite.Run(t, new(LimitsSuite))
}

func (s *LimitsSuite) TestCheckStringLength() {
	s.Run("passes at max", func() {
		err := CheckStringLength("name", strings.Repeat("a", MaxNameLength), MaxNameLength)
		s.NoError(err)
	})

	s.Run("fails above max", func() {
		err := CheckStringLength("name", strings.Repeat("a", MaxNameLength+1), MaxNameLength)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("passes when empty", func() {
		s.NoError(CheckStringLength("email", "", MaxEmailLength))
	})
}
