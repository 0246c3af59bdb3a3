package internal

import (
	"context"
	"errors"
	"net"
	"time"
)

// DefaultOperationTimeout bounds registry and storage calls whose configured timeout is unset.
const DefaultOperationTimeout = 5 * time.Second

type requesterKey struct{}

// ContextWithUserID marks ctx as acting for userID. Auth middleware is the only production caller.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, requesterKey{}, userID)
}

// UserIDFromContext returns the requester set by ContextWithUserID, or "" for an anonymous request.
// Anonymous requesters only ever see public documents.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	userID, _ := ctx.Value(requesterKey{}).(string)
	return userID
}

// WithTimeout bounds a single downstream call. A non-positive d falls back to DefaultOperationTimeout.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultOperationTimeout
	}
	return context.WithTimeout(ctx, d)
}

// IsTimeout reports whether err came from an expired deadline, either the context's own or a
// network timeout raised by a driver or HTTP client underneath it.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
