package http

import (
	"errors"

	"secure-auth/internal/auth/usecase"
	apperrors "secure-auth/internal/shared/errors"

	"github.com/gofiber/fiber/v2"
)

// Client-facing messages.
const (
	MsgNoToken               = "Not authorized, no token"
	MsgTokenFailed           = "Not authorized, token failed"
	MsgSessionExpiredInvalid = "Session expired or invalid"
	MsgSessionExpired        = "Session expired"
	MsgSessionTerminated     = "Suspicious activity detected. Session terminated for security."
	MsgInvalidCredentials    = "Invalid credentials"
	MsgUserExists            = "User already exists"
	MsgInvalidBody           = "Invalid request body"
	MsgUnavailable           = "Service temporarily unavailable"
	MsgInternal              = "Internal server error"
)

// toAppError maps a usecase error onto the shared application error type.
func toAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	var terminated *usecase.SessionTerminatedError
	switch {
	case errors.Is(err, usecase.ErrNoToken):
		return apperrors.NewAuthenticationError(MsgNoToken).WithCode("no_token")
	case errors.Is(err, usecase.ErrUnauthenticated):
		return apperrors.NewAuthenticationError(MsgTokenFailed).WithCode("token_failed")
	case errors.Is(err, usecase.ErrSessionExpiredOrInvalid):
		return apperrors.NewAuthenticationError(MsgSessionExpiredInvalid).WithCode("session_invalid")
	case errors.Is(err, usecase.ErrSessionExpired):
		return apperrors.NewAuthenticationError(MsgSessionExpired).WithCode("session_expired")
	case errors.As(err, &terminated):
		return apperrors.NewAuthenticationError(MsgSessionTerminated).WithCode(terminated.Reason)
	case errors.Is(err, usecase.ErrSessionNotFound):
		return apperrors.NewNotFoundError("Session").WithCode("session_not_found")
	case errors.Is(err, usecase.ErrUserNotFound):
		return apperrors.NewNotFoundError("User").WithCode("user_not_found")
	case errors.Is(err, usecase.ErrInvalidCredentials):
		return apperrors.NewAuthenticationError(MsgInvalidCredentials).WithCode("invalid_credentials")
	case errors.Is(err, usecase.ErrEmailTaken):
		return apperrors.NewValidationError(MsgUserExists).WithCode("user_exists")
	case errors.Is(err, usecase.ErrInvalidEmailFormat), errors.Is(err, usecase.ErrMissingFields):
		return apperrors.NewValidationError(err.Error()).WithCode("invalid_input")
	case errors.Is(err, usecase.ErrStoreUnavailable):
		return apperrors.NewUnavailableError(MsgUnavailable).WithCode("store_unavailable").WithCause(err)
	default:
		return apperrors.NewInternalError(MsgInternal).WithCause(err)
	}
}

// writeError sends err as {message, code}. Session terminations also carry reason.
func writeError(c *fiber.Ctx, err error) error {
	appErr := toAppError(err)
	body := fiber.Map{"message": appErr.Message}
	if appErr.Code != "" {
		body["code"] = appErr.Code
	}
	if errors.Is(err, usecase.ErrSessionTerminated) {
		body["reason"] = appErr.Code
	}
	return c.Status(appErr.HTTPCode).JSON(body)
}
