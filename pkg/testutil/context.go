package testutil

import (
	"net/http"
	"time"

	id "signet/pkg/domain"
	"signet/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, simulating what the auth
// middleware does for authenticated requests. Invalid UUIDs are ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// WithRequestTime pins the request time, making expiration checks and status
// history stamps deterministic.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithClientMetadata sets the IP and user agent the audit publisher records.
func WithClientMetadata(req *http.Request, ip, userAgent string) *http.Request {
	ctx := requestcontext.WithClientIP(req.Context(), ip)
	ctx = requestcontext.WithUserAgent(ctx, userAgent)
	return req.WithContext(ctx)
}
