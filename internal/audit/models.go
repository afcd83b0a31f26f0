package audit

import "time"

// Event names recorded in the trial log.
const (
	EventStep1Passed    = "step1_passed"
	EventVPNRejected    = "vpn_rejected"
	EventCountryBlocked = "country_blocked"
	EventRecordCleared  = "record_cleared"
)

// Entry is one append-only trial-log record for historical and abuse
// tracking. Entries are never mutated or removed once written; ordering is
// append order and nothing more.
type Entry struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	UserID    int64          `json:"user_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
