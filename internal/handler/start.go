package handler

import (
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const mainMenuText = "🏠 Main menu\n\nChoose an action:"

// handleStart handles /start command
func (h *Handler) handleStart(c tele.Context) error {
	userID := c.Sender().ID

	h.logger.Info("User started bot",
		zap.Int64("user_id", userID),
		zap.String("username", c.Sender().Username),
	)

	ctx, cancel := requestContext()
	defer cancel()

	// Ensure user exists in storage
	if err := h.authService.EnsureUserExists(ctx, userID); err != nil {
		h.logger.Error("Failed to ensure user exists", zap.Error(err))
		return c.Send("Something went wrong. Try again later.")
	}

	// Check if authorized
	authorized, err := h.authService.IsAuthorized(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to check authorization", zap.Error(err))
		return c.Send("Something went wrong. Try again later.")
	}

	if !authorized {
		// Request password
		h.ResetState(userID)
		return c.Send("Hi! Enter the password to continue:")
	}

	// Show main menu
	h.ResetState(userID)
	return h.show(c, mainMenuText, mainMenuMarkup())
}
