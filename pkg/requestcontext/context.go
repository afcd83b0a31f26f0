package requestcontext

import "context"

type clientMetadataKey struct{}

type clientMetadata struct {
	ip        string
	userAgent string
}

// WithClientMetadata stores the resolved client IP and User-Agent on the
// context for use by handlers and services.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientMetadataKey{}, clientMetadata{ip: ip, userAgent: userAgent})
}

// ClientIP returns the client IP stored on the context, or "" if absent.
func ClientIP(ctx context.Context) string {
	if md, ok := ctx.Value(clientMetadataKey{}).(clientMetadata); ok {
		return md.ip
	}
	return ""
}

// UserAgent returns the client User-Agent stored on the context, or "" if absent.
func UserAgent(ctx context.Context) string {
	if md, ok := ctx.Value(clientMetadataKey{}).(clientMetadata); ok {
		return md.userAgent
	}
	return ""
}

type requestIDKey struct{}

// WithRequestID stores the request correlation ID on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request correlation ID, or "" if absent.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
