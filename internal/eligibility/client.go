package eligibility

import "context"

// Client resolves an IP address to a LookupResult via an external
// geolocation provider.
//
// Implementations must be safe for concurrent use. Errors are advisory:
// callers degrade to an open decision when a lookup fails.
type Client interface {
	Lookup(ctx context.Context, ip string) (*LookupResult, error)
}
