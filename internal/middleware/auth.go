package middleware

import (
	"context"
	"time"

	"flashcards/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const authTimeout = 5 * time.Second

// AuthMiddleware lets only authorized users through to next
func AuthMiddleware(authService *service.AuthService, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			userID := c.Sender().ID

			ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
			defer cancel()

			// Ensure user exists
			if err := authService.EnsureUserExists(ctx, userID); err != nil {
				logger.Error("Failed to ensure user exists in middleware", zap.Error(err))
				return c.Send("Something went wrong. Try again later.")
			}

			// Check authorization
			authorized, err := authService.IsAuthorized(ctx, userID)
			if err != nil {
				logger.Error("Failed to check authorization in middleware", zap.Error(err))
				return c.Send("Something went wrong. Try again later.")
			}

			// If not authorized and not /start command, prompt for password
			if !authorized && c.Text() != "/start" {
				if c.Callback() != nil {
					_ = c.Respond()
				}
				return c.Send("Enter the password first:")
			}

			// User is authorized or using /start, continue
			return next(c)
		}
	}
}
