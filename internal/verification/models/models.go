package models

import "time"

// StatusStep1Passed is the status tag written on a completed first-step
// verification. Later onboarding steps extend this enum.
const StatusStep1Passed = "step1_passed"

// Record is the durable per-user verification outcome. The user ID is the
// externally supplied messaging-platform identifier; the gate never generates
// one. At most one Record exists per user ID, last write wins.
type Record struct {
	UserID         int64     `json:"user_id"`
	Name           string    `json:"name"`
	Country        string    `json:"country"`
	Email          string    `json:"email,omitempty"`
	SourceIP       string    `json:"ip"`
	UserAgent      string    `json:"user_agent,omitempty"`
	MarketingOptIn bool      `json:"marketing_opt_in"`
	Step1OK        bool      `json:"step1_ok"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Submission carries the raw form input plus the request metadata the flow
// controller validates and re-checks before writing a Record.
type Submission struct {
	UserID         int64  `validate:"gt=0"`
	Name           string `validate:"required,notblank,max=200"`
	Country        string `validate:"required,notblank,max=100"`
	Email          string `validate:"max=255"`
	MarketingOptIn bool
	IP             string
	UserAgent      string
}
