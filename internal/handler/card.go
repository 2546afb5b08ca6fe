package handler

import (
	"fmt"
	"strings"

	"flashcards/internal/domain"
	"flashcards/internal/flashcards"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// handleText handles all text messages based on state
func (h *Handler) handleText(c tele.Context) error {
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())

	// Ignore commands (starting with /)
	if strings.HasPrefix(text, "/") {
		return nil
	}

	ctx, cancel := requestContext()
	defer cancel()

	// Ensure user exists
	if err := h.authService.EnsureUserExists(ctx, userID); err != nil {
		h.logger.Error("Failed to ensure user exists", zap.Error(err))
		return nil
	}

	// Check authorization first
	authorized, err := h.authService.IsAuthorized(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to check authorization", zap.Error(err))
		return c.Send("Something went wrong. Try again later.")
	}

	// If not authorized, check password
	if !authorized {
		if !h.authService.CheckPassword(text) {
			return c.Send("Wrong password")
		}

		if err := h.authService.AuthorizeUser(ctx, userID); err != nil {
			h.logger.Error("Failed to authorize user", zap.Error(err))
			return c.Send("Something went wrong. Try again later.")
		}

		h.logger.Info("User authorized", zap.Int64("user_id", userID))
		h.ResetState(userID)
		return c.Send("✅ Access granted!\n\n"+mainMenuText, mainMenuMarkup())
	}

	// User is authorized, handle based on state
	state := h.GetState(userID)

	switch state.State {
	case domain.StateWaitingBack:
		// User sent the back side, save the card
		store, err := h.storeFor(ctx, userID)
		if err != nil {
			h.logger.Error("Failed to open flashcard store", zap.Error(err), zap.Int64("user_id", userID))
			return c.Send("Something went wrong. Try again later.")
		}

		card, err := store.Store(ctx, domain.Flashcard{
			FrontText: state.CurrentFront,
			BackText:  text,
			Group:     h.currentGroup(userID),
		})
		if err != nil {
			h.logger.Error("Failed to store flashcard",
				zap.Error(err),
				zap.Int64("user_id", userID),
			)
			return c.Send("Could not save the card. Try again.")
		}

		h.logger.Info("Flashcard saved",
			zap.Int64("user_id", userID),
			zap.String("group", card.Group),
			zap.String("id", card.ID),
		)

		h.ResetState(userID)
		return c.Send(fmt.Sprintf("✅ Saved to %q!\n\nSend the next front side or go back with /start", card.Group))

	case domain.StateWaitingGroup:
		return h.selectGroup(c, userID, text)

	case domain.StateReviewing:
		return c.Send("You are reviewing cards. Use the buttons, or cancel to add new ones", cancelMarkup())

	default:
		// Idle state - the text is the front side of a new card
		h.SetState(userID, &domain.StateData{
			State:        domain.StateWaitingBack,
			CurrentFront: text,
			CurrentGroup: state.CurrentGroup,
		})

		return c.Send("Now send the back side", cancelMarkup())
	}
}

// handleGroupCommand handles /group [name]
func (h *Handler) handleGroupCommand(c tele.Context) error {
	userID := c.Sender().ID
	name := strings.TrimSpace(c.Message().Payload)

	if name == "" {
		h.SetState(userID, &domain.StateData{
			State:        domain.StateWaitingGroup,
			CurrentGroup: h.GetState(userID).CurrentGroup,
		})
		return c.Send(fmt.Sprintf("Current group: %q\n\nSend the name of the group for new cards", h.currentGroup(userID)), cancelMarkup())
	}

	return h.selectGroup(c, userID, name)
}

// handleAddCard prompts for the front side of a new card
func (h *Handler) handleAddCard(c tele.Context) error {
	userID := c.Sender().ID
	h.ResetState(userID)

	text := fmt.Sprintf("➕ New card in %q\n\nSend the front side", h.currentGroup(userID))
	return h.show(c, text, cancelMarkup())
}

func (h *Handler) selectGroup(c tele.Context, userID int64, name string) error {
	if !validGroupName(name) {
		return c.Send(fmt.Sprintf("Group names must be 1 to %d bytes long and cannot contain \"/\"", maxGroupBytes))
	}

	h.SetState(userID, &domain.StateData{State: domain.StateIdle, CurrentGroup: name})
	return c.Send(fmt.Sprintf("📂 New cards go to %q", name))
}

// Telegram rejects inline buttons whose callback data exceeds 64 bytes
const maxCallbackData = 64

// maxGroupBytes keeps the longest card callback, "\fflip_<group>/<id>", in bounds
const maxGroupBytes = maxCallbackData - len("\f") - len(prefixFlip) - len("/") - len(flashcards.IDLayout)

// fitsCallback reports whether data can be sent as button callback data
func fitsCallback(data string) bool {
	return len("\f")+len(data) <= maxCallbackData
}

func validGroupName(name string) bool {
	return name != "" && len(name) <= maxGroupBytes && !strings.Contains(name, "/")
}
