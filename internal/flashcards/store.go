// Package flashcards stores flashcards in an injected storage.Client under
// <group>/<id> paths.
package flashcards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"flashcards/internal/domain"
	"flashcards/internal/storage"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// IDLayout formats generated flashcard ids (UTC, second resolution)
const IDLayout = "20060102-150405"

var ErrInvalidFlashcard = errors.New("invalid flashcard")

// Store is the flashcard facade over a storage client
type Store struct {
	client   storage.Client
	logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

// New declares the flashcard schema on client and returns a store using it.
// A rejected declaration means the store cannot be used.
func New(ctx context.Context, client storage.Client, logger *zap.Logger) (*Store, error) {
	if err := client.DeclareType(ctx, domain.FlashcardType, Schema); err != nil {
		return nil, fmt.Errorf("failed to declare flashcard schema: %w", err)
	}

	return &Store{
		client:   client,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}, nil
}

// Store normalizes card and writes it, then returns the stored copy read back
// from the client.
//
// Missing ids are generated from the current time, a missing group becomes
// "default". CreatedAt is set on first write only, later writes set UpdatedAt.
func (s *Store) Store(ctx context.Context, card domain.Flashcard) (*domain.Flashcard, error) {
	now := s.now().UTC().Truncate(time.Millisecond)

	if card.ID == "" {
		card.ID = now.Format(IDLayout)
	}
	if card.Group == "" {
		card.Group = domain.DefaultGroup
	}
	card.Type = domain.FlashcardType

	if card.Familiarity == nil {
		zero := 0.0
		card.Familiarity = &zero
	}
	if card.ReviewedCount == nil {
		zero := 0
		card.ReviewedCount = &zero
	}

	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	} else {
		card.UpdatedAt = &now
	}

	if err := s.validate.Struct(card); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFlashcard, err)
	}

	if err := s.client.StoreObject(ctx, domain.FlashcardType, card.Path(), card); err != nil {
		return nil, fmt.Errorf("failed to store flashcard %s: %w", card.Path(), err)
	}

	s.logger.Debug("Flashcard stored",
		zap.String("group", card.Group),
		zap.String("id", card.ID),
	)

	return s.Get(ctx, card.Group, card.ID)
}

// Get returns the flashcard at group/id. Absent cards fail with storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, group, id string) (*domain.Flashcard, error) {
	path, err := cardPath(group, id)
	if err != nil {
		return nil, err
	}

	body, err := s.client.GetObject(ctx, path)
	if err != nil {
		return nil, err
	}

	var card domain.Flashcard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("failed to decode flashcard %s: %w", path, err)
	}
	return &card, nil
}

// Remove deletes the flashcard at group/id
func (s *Store) Remove(ctx context.Context, group, id string) error {
	path, err := cardPath(group, id)
	if err != nil {
		return err
	}

	if err := s.client.Remove(ctx, path); err != nil {
		return err
	}

	s.logger.Debug("Flashcard removed", zap.String("group", group), zap.String("id", id))
	return nil
}

// ListGroups returns the names of all groups holding flashcards
func (s *Store) ListGroups(ctx context.Context) ([]string, error) {
	listing, err := s.client.GetListing(ctx, "/")
	if err != nil {
		return nil, err
	}

	groups := make([]string, 0, len(listing))
	for _, name := range listing {
		if strings.HasSuffix(name, "/") {
			groups = append(groups, strings.TrimSuffix(name, "/"))
		}
	}
	sort.Strings(groups)
	return groups, nil
}

// GetAllByGroup returns every flashcard in group keyed by id. An empty group
// means "default".
func (s *Store) GetAllByGroup(ctx context.Context, group string) (map[string]domain.Flashcard, error) {
	if group == "" {
		group = domain.DefaultGroup
	}
	if strings.Contains(group, "/") {
		return nil, fmt.Errorf("%w: group %q", storage.ErrInvalidPath, group)
	}

	objects, err := s.client.GetAll(ctx, group+"/")
	if err != nil {
		return nil, err
	}

	cards := make(map[string]domain.Flashcard, len(objects))
	for id, body := range objects {
		var card domain.Flashcard
		if err := json.Unmarshal(body, &card); err != nil {
			return nil, fmt.Errorf("failed to decode flashcard %s/%s: %w", group, id, err)
		}
		cards[id] = card
	}
	return cards, nil
}

// On subscribes handler to change events of the underlying client
func (s *Store) On(event string, handler storage.Handler) {
	s.client.On(event, handler)
}

func cardPath(group, id string) (string, error) {
	if group == "" || id == "" || strings.Contains(group, "/") || strings.Contains(id, "/") {
		return "", fmt.Errorf("%w: group %q id %q", storage.ErrInvalidPath, group, id)
	}
	return group + "/" + id, nil
}
