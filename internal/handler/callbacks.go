package handler

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"unicode"

	"flashcards/internal/domain"
	"flashcards/internal/storage"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Callback data prefixes of dynamic buttons
const (
	prefixGroup  = "group_"
	prefixUse    = "use_"
	prefixReview = "review_"
	prefixFlip   = "flip_"
	prefixYes    = "yes_"
	prefixNo     = "no_"
	prefixDelete = "del_"
)

// cleanCallbackData removes all non-printable characters from callback data
func cleanCallbackData(data string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(data))
}

// parseCardRef splits "group/id" callback payloads
func parseCardRef(ref string) (group, id string, ok bool) {
	group, id, ok = strings.Cut(ref, "/")
	if !ok || group == "" || id == "" || strings.Contains(id, "/") {
		return "", "", false
	}
	return group, id, true
}

// handleEditError handles errors from c.Edit() - if message is not modified, just acknowledge callback
// Otherwise, acknowledge callback and return error so caller can send new message
func (h *Handler) handleEditError(err error, c tele.Context, userID int64) error {
	if err == nil {
		return nil
	}

	// If message is not modified, it means it was already edited by another callback
	// Just acknowledge and return nil - don't send new message
	if strings.Contains(err.Error(), "message is not modified") {
		h.logger.Debug("Message already modified by another callback, acknowledging",
			zap.Int64("user_id", userID),
			zap.String("callback_id", c.Callback().ID),
		)
		_ = c.Respond()
		return nil
	}

	h.logger.Warn("Failed to edit message, sending new",
		zap.Error(err),
		zap.Int64("user_id", userID),
		zap.String("callback_id", c.Callback().ID),
	)
	// Always acknowledge callback before sending new message
	if ackErr := c.Respond(); ackErr != nil {
		h.logger.Warn("Failed to acknowledge callback", zap.Error(ackErr))
	}
	return err
}

// handleCallback handles ALL callback queries
func (h *Handler) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		h.logger.Warn("handleCallback: callback is nil")
		return nil
	}

	// Clean data from all non-printable characters
	data := cleanCallbackData(callback.Data)
	h.logger.Debug("handleCallback: Processing callback",
		zap.String("data", data),
		zap.String("unique", callback.Unique),
		zap.Int64("user_id", c.Sender().ID),
	)

	// Static buttons whose Unique didn't come through
	switch data {
	case btnGroups.Unique, btnBackToGroups.Unique:
		return h.handleViewGroups(c)
	case btnAddCard.Unique:
		return h.handleAddCard(c)
	case btnCancel.Unique:
		return h.handleCancel(c)
	case btnBack.Unique, btnMainMenu.Unique:
		return h.handleStart(c)
	}

	// Handle by Data prefix (dynamic buttons)
	switch {
	case strings.HasPrefix(data, prefixGroup):
		return h.handleGroupSelection(c, strings.TrimPrefix(data, prefixGroup))
	case strings.HasPrefix(data, prefixUse):
		return h.handleUseGroup(c, strings.TrimPrefix(data, prefixUse))
	case strings.HasPrefix(data, prefixReview):
		return h.handleReview(c, strings.TrimPrefix(data, prefixReview))
	case strings.HasPrefix(data, prefixFlip):
		return h.handleFlip(c, strings.TrimPrefix(data, prefixFlip))
	case strings.HasPrefix(data, prefixYes):
		return h.handleAnswer(c, strings.TrimPrefix(data, prefixYes), true)
	case strings.HasPrefix(data, prefixNo):
		return h.handleAnswer(c, strings.TrimPrefix(data, prefixNo), false)
	case strings.HasPrefix(data, prefixDelete):
		return h.handleDelete(c, strings.TrimPrefix(data, prefixDelete))
	}

	// If it's not handled, acknowledge it anyway
	h.logger.Warn("Unhandled callback in handleCallback",
		zap.String("data", data),
		zap.String("unique", callback.Unique),
	)
	return c.Respond()
}

// handleViewGroups shows the list of groups
func (h *Handler) handleViewGroups(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	store, err := h.storeFor(ctx, c.Sender().ID)
	if err != nil {
		return h.respondStoreError(c, err)
	}

	groups, err := store.ListGroups(ctx)
	if err != nil {
		h.logger.Error("Failed to list groups", zap.Error(err))
		return c.Respond(&tele.CallbackResponse{Text: "Failed to load groups"})
	}

	if len(groups) == 0 {
		return c.Respond(&tele.CallbackResponse{
			Text:      "You have no cards yet",
			ShowAlert: true,
		})
	}

	h.ResetState(c.Sender().ID)

	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(groups)+1)
	for _, group := range groups {
		if !validGroupName(group) {
			h.logger.Warn("Skipping group that does not fit in a button", zap.String("group", group))
			continue
		}
		rows = append(rows, markup.Row(markup.Data("📂 "+group, prefixGroup+group)))
	}
	rows = append(rows, markup.Row(btnBack))
	markup.Inline(rows...)

	return h.show(c, "📚 Your groups:", markup)
}

// handleGroupSelection lists the cards of a group
func (h *Handler) handleGroupSelection(c tele.Context, group string) error {
	ctx, cancel := requestContext()
	defer cancel()

	store, err := h.storeFor(ctx, c.Sender().ID)
	if err != nil {
		return h.respondStoreError(c, err)
	}

	cards, err := store.GetAllByGroup(ctx, group)
	if err != nil {
		h.logger.Error("Failed to get group", zap.Error(err), zap.String("group", group))
		return c.Respond(&tele.CallbackResponse{Text: "Failed to load cards"})
	}

	if len(cards) == 0 {
		return c.Respond(&tele.CallbackResponse{Text: "No cards in this group"})
	}

	h.ResetState(c.Sender().ID)

	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(markup.Data("🎲 Review", prefixReview+group)),
		markup.Row(markup.Data("➕ Add cards here", prefixUse+group)),
		markup.Row(btnBackToGroups, btnMainMenu),
	)

	return h.show(c, formatGroup(group, cards), markup)
}

// handleUseGroup makes group the target of new cards
func (h *Handler) handleUseGroup(c tele.Context, group string) error {
	userID := c.Sender().ID
	if !validGroupName(group) {
		return c.Respond(&tele.CallbackResponse{Text: "Invalid group"})
	}

	h.SetState(userID, &domain.StateData{State: domain.StateIdle, CurrentGroup: group})
	return c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf("New cards go to %q", group)})
}

// handleReview shows the front of a random card of the group
func (h *Handler) handleReview(c tele.Context, group string) error {
	userID := c.Sender().ID

	ctx, cancel := requestContext()
	defer cancel()

	store, err := h.storeFor(ctx, c.Sender().ID)
	if err != nil {
		return h.respondStoreError(c, err)
	}

	cards, err := store.GetAllByGroup(ctx, group)
	if err != nil {
		h.logger.Error("Failed to get group for review", zap.Error(err), zap.String("group", group))
		return c.Respond(&tele.CallbackResponse{Text: "Failed to load cards"})
	}

	card, ok := pickCard(cards)
	if !ok {
		return c.Respond(&tele.CallbackResponse{
			Text:      "No cards in this group",
			ShowAlert: true,
		})
	}

	h.SetState(userID, &domain.StateData{
		State:        domain.StateReviewing,
		CurrentGroup: h.GetState(userID).CurrentGroup,
	})

	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(markup.Data("🔄 Flip", prefixFlip+card.Path())),
		markup.Row(btnBackToGroups, btnMainMenu),
	)

	return h.show(c, formatFront(card), markup)
}

// handleFlip shows both sides of a card
func (h *Handler) handleFlip(c tele.Context, ref string) error {
	group, id, ok := parseCardRef(ref)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "Invalid card"})
	}

	ctx, cancel := requestContext()
	defer cancel()

	store, err := h.storeFor(ctx, c.Sender().ID)
	if err != nil {
		return h.respondStoreError(c, err)
	}

	card, err := store.Get(ctx, group, id)
	if err != nil {
		return h.respondCardError(c, err, ref)
	}

	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(
			markup.Data("✅ Remembered", prefixYes+ref),
			markup.Data("❌ Forgot", prefixNo+ref),
		),
		markup.Row(markup.Data("🗑 Delete", prefixDelete+ref)),
		markup.Row(btnBackToGroups, btnMainMenu),
	)

	return h.show(c, formatBack(*card), markup)
}

// handleAnswer records a review and moves on to the next card
func (h *Handler) handleAnswer(c tele.Context, ref string, remembered bool) error {
	group, id, ok := parseCardRef(ref)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "Invalid card"})
	}

	ctx, cancel := requestContext()
	defer cancel()

	store, err := h.storeFor(ctx, c.Sender().ID)
	if err != nil {
		return h.respondStoreError(c, err)
	}

	card, err := store.Review(ctx, group, id, remembered)
	if err != nil {
		return h.respondCardError(c, err, ref)
	}

	h.logger.Info("Flashcard reviewed",
		zap.Int64("user_id", c.Sender().ID),
		zap.String("path", card.Path()),
		zap.Bool("remembered", remembered),
	)

	return h.handleReview(c, group)
}

// handleDelete removes a card and returns to its group
func (h *Handler) handleDelete(c tele.Context, ref string) error {
	group, id, ok := parseCardRef(ref)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "Invalid card"})
	}

	ctx, cancel := requestContext()
	defer cancel()

	store, err := h.storeFor(ctx, c.Sender().ID)
	if err != nil {
		return h.respondStoreError(c, err)
	}

	if err := store.Remove(ctx, group, id); err != nil {
		return h.respondCardError(c, err, ref)
	}

	h.logger.Info("Flashcard deleted",
		zap.Int64("user_id", c.Sender().ID),
		zap.String("path", ref),
	)

	cards, err := store.GetAllByGroup(ctx, group)
	if err != nil || len(cards) == 0 {
		return h.handleViewGroups(c)
	}
	return h.handleGroupSelection(c, group)
}

// handleCancel cancels current operation and resets state
func (h *Handler) handleCancel(c tele.Context) error {
	h.ResetState(c.Sender().ID)
	return h.show(c, mainMenuText, mainMenuMarkup())
}

func (h *Handler) respondCardError(c tele.Context, err error, ref string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return c.Respond(&tele.CallbackResponse{Text: "This card no longer exists"})
	}

	h.logger.Error("Failed to process card", zap.Error(err), zap.String("path", ref))
	return c.Respond(&tele.CallbackResponse{Text: "Something went wrong"})
}

func (h *Handler) respondStoreError(c tele.Context, err error) error {
	h.logger.Error("Failed to open flashcard store", zap.Error(err), zap.Int64("user_id", c.Sender().ID))
	return c.Respond(&tele.CallbackResponse{Text: "Something went wrong"})
}

// pickCard returns a random card that fits in a button, preferring the least
// familiar ones
func pickCard(cards map[string]domain.Flashcard) (domain.Flashcard, bool) {
	if len(cards) == 0 {
		return domain.Flashcard{}, false
	}

	lowest := 0.0
	candidates := make([]string, 0, len(cards))
	for id, card := range cards {
		if !fitsCallback(prefixFlip + card.Path()) {
			continue
		}
		familiarity := 0.0
		if card.Familiarity != nil {
			familiarity = *card.Familiarity
		}
		switch {
		case len(candidates) == 0 || familiarity < lowest:
			lowest = familiarity
			candidates = append(candidates[:0], id)
		case familiarity == lowest:
			candidates = append(candidates, id)
		}
	}

	if len(candidates) == 0 {
		return domain.Flashcard{}, false
	}
	return cards[candidates[rand.Intn(len(candidates))]], true
}

func sortedIDs(cards map[string]domain.Flashcard) []string {
	ids := make([]string, 0, len(cards))
	for id := range cards {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func formatGroup(group string, cards map[string]domain.Flashcard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📂 %s (%d):\n\n", group, len(cards))
	for i, id := range sortedIDs(cards) {
		card := cards[id]
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, card.FrontText, card.BackText)
	}
	return b.String()
}

func formatFront(card domain.Flashcard) string {
	text := "🃏 " + card.FrontText
	if card.Hint != "" {
		text += "\n\n💡 " + card.Hint
	}
	return text
}

func formatBack(card domain.Flashcard) string {
	text := fmt.Sprintf("🃏 %s\n\n🔄 %s", card.FrontText, card.BackText)
	if card.ReviewedCount != nil && *card.ReviewedCount > 0 {
		familiarity := 0.0
		if card.Familiarity != nil {
			familiarity = *card.Familiarity
		}
		text += fmt.Sprintf("\n\n📈 Familiarity %.0f after %d reviews", familiarity, *card.ReviewedCount)
	}
	return text
}
