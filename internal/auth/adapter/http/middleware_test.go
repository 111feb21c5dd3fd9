package http_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authhttp "secure-auth/internal/auth/adapter/http"
	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/usecase"
	"secure-auth/internal/shared/contextkeys"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func testAuthenticated() *usecase.Authenticated {
	return &usecase.Authenticated{
		User: &model.User{ID: "user-123", Name: "Ada", Email: "ada@example.com", Role: model.DefaultRole},
		Session: &model.Session{
			SessionID: "session-1",
			UserID:    "user-123",
			IsActive:  true,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
}

type MiddlewareTestSuite struct {
	suite.Suite
	app        *fiber.App
	mockUC     *mockSessionUsecase
	middleware *authhttp.AuthMiddleware
}

func (suite *MiddlewareTestSuite) SetupTest() {
	suite.mockUC = &mockSessionUsecase{}
	suite.middleware = authhttp.NewAuthMiddleware(suite.mockUC, authhttp.NewClientContextResolver(true), nil)
	suite.app = fiber.New()
	suite.app.Get("/protected", suite.middleware.Protect(), func(c *fiber.Ctx) error {
		user, ok := authhttp.CurrentUser(c)
		if !ok {
			return c.Status(500).JSON(fiber.Map{"error": "user not found"})
		}
		session, ok := authhttp.CurrentSession(c)
		if !ok {
			return c.Status(500).JSON(fiber.Map{"error": "session not found"})
		}
		return c.JSON(fiber.Map{
			"userId":       user.ID,
			"sessionId":    session.SessionID,
			"ctxUserId":    c.UserContext().Value(contextkeys.UserIDKey),
			"ctxSessionId": c.UserContext().Value(contextkeys.SessionIDKey),
			"ctxClientIp":  c.UserContext().Value(contextkeys.ClientIPKey),
		})
	})
}

func (suite *MiddlewareTestSuite) TestProtect_Success() {
	suite.mockUC.On("Validate", mock.Anything, "valid-token", mock.MatchedBy(func(cc model.ClientContext) bool {
		return cc.IPAddress == "198.51.100.7" && cc.UserAgent == "test-agent/1.0"
	})).Return(testAuthenticated(), nil)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	req.Header.Set("User-Agent", "test-agent/1.0")
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")

	resp, err := suite.app.Test(req)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	body := decodeBody(suite.T(), resp)
	assert.Equal(suite.T(), "user-123", body["userId"])
	assert.Equal(suite.T(), "session-1", body["sessionId"])
	assert.Equal(suite.T(), "user-123", body["ctxUserId"])
	assert.Equal(suite.T(), "session-1", body["ctxSessionId"])
	assert.Equal(suite.T(), "198.51.100.7", body["ctxClientIp"])
	suite.mockUC.AssertExpectations(suite.T())
}

func (suite *MiddlewareTestSuite) TestProtect_Rejections() {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
		wantReason string
	}{
		{"no token", usecase.ErrNoToken, http.StatusUnauthorized, authhttp.MsgNoToken, ""},
		{"token failed", usecase.ErrTokenFailed, http.StatusUnauthorized, authhttp.MsgTokenFailed, ""},
		{"expired or invalid", usecase.ErrSessionExpiredOrInvalid, http.StatusUnauthorized, authhttp.MsgSessionExpiredInvalid, ""},
		{"expired", usecase.ErrSessionExpired, http.StatusUnauthorized, authhttp.MsgSessionExpired, ""},
		{
			"terminated",
			&usecase.SessionTerminatedError{Reason: usecase.ReasonIPOrDeviceMismatch},
			http.StatusUnauthorized,
			authhttp.MsgSessionTerminated,
			usecase.ReasonIPOrDeviceMismatch,
		},
		{"store down", fmt.Errorf("find: %w", usecase.ErrStoreUnavailable), http.StatusServiceUnavailable, authhttp.MsgUnavailable, ""},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, authhttp.MsgInternal, ""},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			suite.SetupTest()
			suite.mockUC.On("Validate", mock.Anything, "some-token", mock.Anything).Return(nil, tc.err)

			req := httptest.NewRequest("GET", "/protected", nil)
			req.Header.Set("Authorization", "Bearer some-token")

			resp, err := suite.app.Test(req)

			require.NoError(suite.T(), err)
			assert.Equal(suite.T(), tc.wantStatus, resp.StatusCode)
			body := decodeBody(suite.T(), resp)
			assert.Equal(suite.T(), tc.wantMsg, body["message"])
			if tc.wantReason != "" {
				assert.Equal(suite.T(), tc.wantReason, body["reason"])
			} else {
				assert.NotContains(suite.T(), body, "reason")
			}
		})
	}
}

func (suite *MiddlewareTestSuite) TestProtect_MissingHeaderPassesEmptyToken() {
	suite.mockUC.On("Validate", mock.Anything, "", mock.Anything).Return(nil, usecase.ErrNoToken)

	req := httptest.NewRequest("GET", "/protected", nil)
	resp, err := suite.app.Test(req)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(suite.T(), authhttp.MsgNoToken, decodeBody(suite.T(), resp)["message"])
}

func (suite *MiddlewareTestSuite) TestProtect_NonBearerSchemeIgnored() {
	suite.mockUC.On("Validate", mock.Anything, "", mock.Anything).Return(nil, usecase.ErrNoToken)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	resp, err := suite.app.Test(req)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)
	suite.mockUC.AssertExpectations(suite.T())
}

func (suite *MiddlewareTestSuite) TestProtect_QueryTokenOnlyForWebsocketUpgrade() {
	suite.mockUC.On("Validate", mock.Anything, "", mock.Anything).Return(nil, usecase.ErrNoToken).Once()

	req := httptest.NewRequest("GET", "/protected?token=query-token", nil)
	resp, err := suite.app.Test(req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)

	suite.mockUC.On("Validate", mock.Anything, "query-token", mock.Anything).Return(testAuthenticated(), nil).Once()

	req = httptest.NewRequest("GET", "/protected?token=query-token", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, err = suite.app.Test(req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	suite.mockUC.AssertExpectations(suite.T())
}

func (suite *MiddlewareTestSuite) TestSecurityHeaders() {
	app := fiber.New()
	app.Use(suite.middleware.SecurityHeaders())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(suite.T(), "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(suite.T(), "no-store", resp.Header.Get("Cache-Control"))
}

func (suite *MiddlewareTestSuite) TestRateLimiter() {
	app := fiber.New()
	app.Post("/login", suite.middleware.RateLimiter(2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/login", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		resp, err := app.Test(req)
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	}

	req := httptest.NewRequest("POST", "/login", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	resp, err := app.Test(req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusTooManyRequests, resp.StatusCode)

	// A different client has its own budget.
	req = httptest.NewRequest("POST", "/login", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.10")
	resp, err = app.Test(req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
}

func (suite *MiddlewareTestSuite) TestRequestID() {
	app := fiber.New()
	app.Use(suite.middleware.RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))

	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), resp.Header.Get("X-Request-ID"))
}

func TestMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareTestSuite))
}
