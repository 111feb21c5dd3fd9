package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "secure-auth context key " + string(c)
}

const (
	// UserIDKey carries the authenticated user's ID.
	UserIDKey = contextKey("userID")
	// SessionIDKey carries the ID of the session that authorized the request.
	SessionIDKey = contextKey("sessionID")
	// RequestIDKey carries the per-request correlation ID.
	RequestIDKey = contextKey("requestID")
	// ClientIPKey carries the resolved client IP address.
	ClientIPKey = contextKey("clientIP")
	// ComponentKey names the component emitting a log line.
	ComponentKey = contextKey("component")
	// OperationKey names the operation being performed.
	OperationKey = contextKey("operation")
)
