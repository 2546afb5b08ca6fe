package handler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"flashcards/internal/domain"
	"flashcards/internal/flashcards"
	"flashcards/internal/middleware"
	"flashcards/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const requestTimeout = 10 * time.Second

// Handler manages all bot interactions
type Handler struct {
	bot         *tele.Bot
	authService *service.AuthService
	stores      *flashcards.Stores
	logger      *zap.Logger

	// User states (in-memory state machine)
	states   map[int64]*domain.StateData
	stateMux sync.RWMutex
}

// NewHandler creates a new handler instance
func NewHandler(
	bot *tele.Bot,
	authService *service.AuthService,
	stores *flashcards.Stores,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		bot:         bot,
		authService: authService,
		stores:      stores,
		logger:      logger,
		states:      make(map[int64]*domain.StateData),
	}
}

// RegisterHandlers registers all bot handlers
func (h *Handler) RegisterHandlers() {
	auth := middleware.AuthMiddleware(h.authService, h.logger)

	// Commands
	h.bot.Handle("/start", h.handleStart)
	h.bot.Handle("/group", h.handleGroupCommand, auth)

	// Text messages
	h.bot.Handle(tele.OnText, h.handleText)

	// Callback queries (inline buttons)
	h.bot.Handle(&btnGroups, h.handleViewGroups, auth)
	h.bot.Handle(&btnAddCard, h.handleAddCard, auth)
	h.bot.Handle(&btnCancel, h.handleCancel, auth)
	h.bot.Handle(&btnBack, h.handleStart)
	h.bot.Handle(&btnBackToGroups, h.handleViewGroups, auth)
	h.bot.Handle(&btnMainMenu, h.handleStart)

	// Generic callback handler for dynamic data
	h.bot.Handle(tele.OnCallback, h.handleCallback, auth)
}

// GetState returns user's current state
func (h *Handler) GetState(userID int64) *domain.StateData {
	h.stateMux.RLock()
	defer h.stateMux.RUnlock()

	state, exists := h.states[userID]
	if !exists {
		return &domain.StateData{State: domain.StateIdle}
	}
	copied := *state
	return &copied
}

// SetState sets user's state
func (h *Handler) SetState(userID int64, state *domain.StateData) {
	h.stateMux.Lock()
	defer h.stateMux.Unlock()
	h.states[userID] = state
}

// ResetState resets user to idle state, keeping the selected group
func (h *Handler) ResetState(userID int64) {
	h.SetState(userID, &domain.StateData{
		State:        domain.StateIdle,
		CurrentGroup: h.GetState(userID).CurrentGroup,
	})
}

// currentGroup returns the group new cards of the user go into
func (h *Handler) currentGroup(userID int64) string {
	if group := h.GetState(userID).CurrentGroup; group != "" {
		return group
	}
	return domain.DefaultGroup
}

// storeFor returns the flashcard store of userID
func (h *Handler) storeFor(ctx context.Context, userID int64) (*flashcards.Store, error) {
	return h.stores.For(ctx, strconv.FormatInt(userID, 10))
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// show edits the message behind a callback, or sends a new one for commands
func (h *Handler) show(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if c.Callback() != nil {
		if err := c.Edit(text, markup); err != nil {
			if handleErr := h.handleEditError(err, c, c.Sender().ID); handleErr == nil {
				return nil // Message was already modified, just acknowledged
			}
			return c.Send(text, markup)
		}
		return c.Respond()
	}
	return c.Send(text, markup)
}

// Inline keyboard buttons
var (
	btnGroups = tele.Btn{
		Unique: "groups",
		Text:   "📚 Groups",
	}
	btnAddCard = tele.Btn{
		Unique: "add_card",
		Text:   "➕ Add card",
	}
	btnCancel = tele.Btn{
		Unique: "cancel",
		Text:   "❌ Cancel",
	}
	btnBack = tele.Btn{
		Unique: "back",
		Text:   "🏠 Back",
	}
	btnBackToGroups = tele.Btn{
		Unique: "back_to_groups",
		Text:   "◀️ To groups",
	}
	btnMainMenu = tele.Btn{
		Unique: "main_menu",
		Text:   "🏠 Main menu",
	}
)

// mainMenuMarkup returns the main menu keyboard
func mainMenuMarkup() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(btnGroups),
		menu.Row(btnAddCard),
	)
	return menu
}

func cancelMarkup() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(btnCancel))
	return markup
}
