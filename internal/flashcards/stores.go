package flashcards

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"flashcards/internal/domain"
	"flashcards/internal/storage"

	"go.uber.org/zap"
)

type subscription struct {
	event   string
	handler storage.Handler
}

// Stores hands out one Store per owner, each rooted at its own folder of the
// shared client. Owners never see each other's groups.
type Stores struct {
	client storage.Client
	logger *zap.Logger

	mu            sync.Mutex
	stores        map[string]*Store
	subscriptions []subscription
}

// NewStores declares the flashcard schema on client and returns an empty set
// of per-owner stores over it
func NewStores(ctx context.Context, client storage.Client, logger *zap.Logger) (*Stores, error) {
	if err := client.DeclareType(ctx, domain.FlashcardType, Schema); err != nil {
		return nil, fmt.Errorf("failed to declare flashcard schema: %w", err)
	}

	return &Stores{
		client: client,
		logger: logger,
		stores: make(map[string]*Store),
	}, nil
}

// For returns the store of owner, creating it on first use
func (s *Stores) For(ctx context.Context, owner string) (*Store, error) {
	if owner == "" || strings.Contains(owner, "/") {
		return nil, fmt.Errorf("%w: owner %q", storage.ErrInvalidPath, owner)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if store, ok := s.stores[owner]; ok {
		return store, nil
	}

	store, err := New(ctx, storage.Scope(s.client, owner), s.logger.With(zap.String("owner", owner)))
	if err != nil {
		return nil, err
	}
	for _, sub := range s.subscriptions {
		store.On(sub.event, sub.handler)
	}

	s.stores[owner] = store
	return store, nil
}

// On subscribes handler to event on every current and future store
func (s *Stores) On(event string, handler storage.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions = append(s.subscriptions, subscription{event: event, handler: handler})
	for _, store := range s.stores {
		store.On(event, handler)
	}
}
