// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them. Keeping this package free of
// net/http lets services depend on it without pulling in transport code.
//
// Usage in services (read values):
//
//	actor := requestcontext.Actor(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithActor(ctx, requestcontext.ActorInfo{ID: userID, Role: "executive"})
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "fitgap/pkg/domain"
)

type (
	actorKey       struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
	authMethodKey  struct{}
	mfaVerifiedKey struct{}
)

// ActorInfo is the authenticated caller as supplied by the session layer.
type ActorInfo struct {
	ID    id.UserID
	Email string
	Role  string
}

// IsZero reports whether no actor was established.
func (a ActorInfo) IsZero() bool {
	return a.ID.IsNil() && a.Email == ""
}

// Actor retrieves the authenticated actor. Returns the zero value if unset.
func Actor(ctx context.Context) ActorInfo {
	if a, ok := ctx.Value(actorKey{}).(ActorInfo); ok {
		return a
	}
	return ActorInfo{}
}

// WithActor injects the authenticated actor into the context.
func WithActor(ctx context.Context, a ActorInfo) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// -----------------------------------------------------------------------------
// Authentication provenance
// -----------------------------------------------------------------------------

// AuthMethod returns how the actor authenticated (e.g. "jwt"), empty if unknown.
func AuthMethod(ctx context.Context) string {
	if m, ok := ctx.Value(authMethodKey{}).(string); ok {
		return m
	}
	return ""
}

// MFAVerified reports whether the session layer attested a second factor.
func MFAVerified(ctx context.Context) bool {
	v, _ := ctx.Value(mfaVerifiedKey{}).(bool)
	return v
}

// WithAuthProvenance records the authentication method and MFA state.
func WithAuthProvenance(ctx context.Context, method string, mfa bool) context.Context {
	ctx = context.WithValue(ctx, authMethodKey{}, method)
	return context.WithValue(ctx, mfaVerifiedKey{}, mfa)
}

// -----------------------------------------------------------------------------
// Client metadata (IP, User-Agent)
// -----------------------------------------------------------------------------

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() when unset (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
