package testutil

import (
	"fmt"
	"time"

	"secure-auth/internal/auth/domain/model"

	"golang.org/x/crypto/bcrypt"
)

// Fingerprints used across scenario tests.
const (
	PublicIP        = "203.0.113.5"
	OtherPublicIP   = "198.51.100.9"
	LoopbackIP      = "127.0.0.1"
	PrivateIP       = "192.168.1.20"
	ChromeUserAgent = "Chrome/1"
	FirefoxUA       = "Firefox/2"
	DefaultPassword = "password123"
)

// UserFixture provides test data for User model
type UserFixture struct{}

// NewUserFixture creates a new UserFixture instance
func NewUserFixture() *UserFixture {
	return &UserFixture{}
}

// ValidUser returns a user whose password is DefaultPassword.
func (f *UserFixture) ValidUser() *model.User {
	return f.UserWithPassword("test@example.com", DefaultPassword)
}

// UserWithEmail returns a user with specific email
func (f *UserFixture) UserWithEmail(email string) *model.User {
	return f.UserWithPassword(email, DefaultPassword)
}

// UserWithPassword returns a user with specific password, hashed at minimum cost.
func (f *UserFixture) UserWithPassword(email, password string) *model.User {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	now := time.Now().UTC()
	return &model.User{
		ID:           "user-" + email,
		Name:         "Test User",
		Email:        email,
		Role:         model.DefaultRole,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SessionFixture provides test data for Session model
type SessionFixture struct{}

// NewSessionFixture creates a new SessionFixture instance
func NewSessionFixture() *SessionFixture {
	return &SessionFixture{}
}

// ActiveSession returns an active session for userID logged in at loginTime from PublicIP.
func (f *SessionFixture) ActiveSession(id, userID string, loginTime time.Time) *model.Session {
	return &model.Session{
		SessionID:    id,
		UserID:       userID,
		Token:        "token-" + id,
		IPAddress:    PublicIP,
		UserAgent:    ChromeUserAgent,
		DeviceInfo:   model.DeviceInfo{Browser: "Chrome 1", OS: "Linux", Device: "desktop"},
		LoginTime:    loginTime,
		LastActivity: loginTime,
		ExpiresAt:    loginTime.Add(7 * 24 * time.Hour),
		IsActive:     true,
	}
}

// ExpiredSession returns a session still flagged active whose expiry has passed at now.
func (f *SessionFixture) ExpiredSession(id, userID string, now time.Time) *model.Session {
	s := f.ActiveSession(id, userID, now.Add(-8*24*time.Hour))
	s.ExpiresAt = now.Add(-time.Hour)
	return s
}

// SessionsForUser returns n active sessions logged in one minute apart starting at start.
func (f *SessionFixture) SessionsForUser(userID string, n int, start time.Time) []*model.Session {
	out := make([]*model.Session, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, f.ActiveSession(fmt.Sprintf("%s-s%d", userID, i+1), userID, start.Add(time.Duration(i)*time.Minute)))
	}
	return out
}

// ClientFixture provides client contexts.
type ClientFixture struct{}

// Client returns a client context with the given fingerprint.
func (ClientFixture) Client(ip, ua string) model.ClientContext {
	return model.ClientContext{
		IPAddress:  ip,
		UserAgent:  ua,
		DeviceInfo: model.DeviceInfo{Browser: "Unknown", OS: "Unknown", Device: "desktop"},
	}
}

// Default returns the client that matches ActiveSession's fingerprint.
func (c ClientFixture) Default() model.ClientContext {
	return c.Client(PublicIP, ChromeUserAgent)
}

// TestData provides all fixtures
type TestData struct {
	Users    *UserFixture
	Sessions *SessionFixture
	Clients  ClientFixture
}

// NewTestData creates a new TestData instance with all fixtures
func NewTestData() *TestData {
	return &TestData{
		Users:    NewUserFixture(),
		Sessions: NewSessionFixture(),
	}
}

// Common test emails for validation testing
var (
	ValidEmails = []string{
		"test@example.com",
		"user.name@domain.co.uk",
		"user+tag@example.org",
		"firstname.lastname@company.com",
	}

	InvalidEmails = []string{
		"invalid-email",
		"@example.com",
		"test@",
		"test.example.com",
		"test@.com",
		"test@com.",
		"test space@example.com",
	}
)
