package http_test

import (
	"context"

	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/usecase"

	"github.com/stretchr/testify/mock"
)

// mockAuthUsecase is a shared mock type for the AuthUsecaseInterface
type mockAuthUsecase struct {
	mock.Mock
}

func (m *mockAuthUsecase) Register(ctx context.Context, req usecase.RegisterRequest, cc model.ClientContext) (*usecase.AuthResult, error) {
	args := m.Called(ctx, req, cc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.AuthResult), args.Error(1)
}

func (m *mockAuthUsecase) Login(ctx context.Context, req usecase.LoginRequest, cc model.ClientContext) (*usecase.AuthResult, error) {
	args := m.Called(ctx, req, cc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.AuthResult), args.Error(1)
}

func (m *mockAuthUsecase) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockAuthUsecase) Logout(ctx context.Context, session *model.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// mockSessionUsecase mocks usecase.SessionUsecaseInterface, which includes the validator.
type mockSessionUsecase struct {
	mock.Mock
}

func (m *mockSessionUsecase) Validate(ctx context.Context, token string, cc model.ClientContext) (*usecase.Authenticated, error) {
	args := m.Called(ctx, token, cc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.Authenticated), args.Error(1)
}

func (m *mockSessionUsecase) ListActive(ctx context.Context, userID, currentSessionID string) ([]usecase.SessionView, error) {
	args := m.Called(ctx, userID, currentSessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.SessionView), args.Error(1)
}

func (m *mockSessionUsecase) ListHistory(ctx context.Context, userID, currentSessionID string, limit int) ([]usecase.SessionView, error) {
	args := m.Called(ctx, userID, currentSessionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.SessionView), args.Error(1)
}

func (m *mockSessionUsecase) Revoke(ctx context.Context, sessionID, requestingUserID, reason string) error {
	args := m.Called(ctx, sessionID, requestingUserID, reason)
	return args.Error(0)
}

func (m *mockSessionUsecase) RevokeAllOthers(ctx context.Context, userID, currentSessionID string) (int64, error) {
	args := m.Called(ctx, userID, currentSessionID)
	return args.Get(0).(int64), args.Error(1)
}

var (
	_ usecase.AuthUsecaseInterface    = (*mockAuthUsecase)(nil)
	_ usecase.SessionUsecaseInterface = (*mockSessionUsecase)(nil)
)
