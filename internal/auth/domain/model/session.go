package model

import "time"

// Revocation reasons persisted on a session when it leaves the active state.
const (
	RevokeReasonMaxSessions = "max concurrent sessions reached"
	RevokeReasonExpired     = "session expired"
	RevokeReasonSuspicious  = "suspicious activity detected (IP/device mismatch)"
	RevokeReasonLogout      = "user logout"
	RevokeReasonLogoutAll   = "revoked by user (logout all devices)"
	RevokeReasonManual      = "manually revoked by user"
)

// DeviceInfo is the parsed form of a user agent.
type DeviceInfo struct {
	Browser string `json:"browser" bson:"browser"`
	OS      string `json:"os" bson:"os"`
	Device  string `json:"device" bson:"device"`
}

// Location is a best-effort geolocation of the client IP. Any field may be empty.
type Location struct {
	Country     string   `json:"country,omitempty" bson:"country,omitempty"`
	State       string   `json:"state,omitempty" bson:"state,omitempty"`
	City        string   `json:"city,omitempty" bson:"city,omitempty"`
	Street      string   `json:"street,omitempty" bson:"street,omitempty"`
	HouseNumber string   `json:"houseNumber,omitempty" bson:"house_number,omitempty"`
	PostalCode  string   `json:"postalCode,omitempty" bson:"postal_code,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty" bson:"longitude,omitempty"`
}

// IsZero reports whether no field of the location is known.
func (l *Location) IsZero() bool {
	if l == nil {
		return true
	}
	return *l == Location{}
}

// Session is the server-side record bound to one issued token.
type Session struct {
	SessionID     string     `json:"sessionId" bson:"session_id"`
	UserID        string     `json:"userId" bson:"user_id"`
	Token         string     `json:"-" bson:"token"`
	IPAddress     string     `json:"ipAddress" bson:"ip_address"`
	UserAgent     string     `json:"userAgent" bson:"user_agent"`
	DeviceInfo    DeviceInfo `json:"deviceInfo" bson:"device_info"`
	Location      *Location  `json:"location,omitempty" bson:"location,omitempty"`
	LoginTime     time.Time  `json:"loginTime" bson:"login_time"`
	LastActivity  time.Time  `json:"lastActivity" bson:"last_activity"`
	ExpiresAt     time.Time  `json:"expiresAt" bson:"expires_at"`
	IsActive      bool       `json:"isActive" bson:"is_active"`
	RevokedAt     *time.Time `json:"revokedAt,omitempty" bson:"revoked_at,omitempty"`
	RevokedReason string     `json:"revokedReason,omitempty" bson:"revoked_reason,omitempty"`
}

// IsExpired reports whether expiresAt is at or before now.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// IsUsable reports whether the session may authenticate a request at now.
func (s *Session) IsUsable(now time.Time) bool {
	return s.IsActive && !s.IsExpired(now)
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Location != nil {
		loc := *s.Location
		c.Location = &loc
	}
	if s.RevokedAt != nil {
		at := *s.RevokedAt
		c.RevokedAt = &at
	}
	return &c
}

// Revoke moves an active session to its terminal state. It returns false when the
// session was already inactive, leaving the record untouched.
func (s *Session) Revoke(reason string, at time.Time) bool {
	if !s.IsActive {
		return false
	}
	s.IsActive = false
	s.RevokedAt = &at
	s.RevokedReason = reason
	return true
}
