package flashcards

import (
	"context"
	"time"

	"flashcards/internal/domain"

	"go.uber.org/zap"
)

// Review records one review of the flashcard at group/id. A remembered card
// gains one familiarity point, a forgotten one drops back to zero.
func (s *Store) Review(ctx context.Context, group, id string, remembered bool) (*domain.Flashcard, error) {
	card, err := s.Get(ctx, group, id)
	if err != nil {
		return nil, err
	}

	count := 1
	if card.ReviewedCount != nil {
		count += *card.ReviewedCount
	}
	card.ReviewedCount = &count

	familiarity := 0.0
	if remembered {
		if card.Familiarity != nil {
			familiarity = *card.Familiarity
		}
		familiarity++
	}
	card.Familiarity = &familiarity

	reviewedAt := s.now().UTC().Truncate(time.Millisecond)
	card.ReviewedAt = &reviewedAt

	s.logger.Debug("Flashcard reviewed",
		zap.String("group", group),
		zap.String("id", id),
		zap.Bool("remembered", remembered),
	)

	return s.Store(ctx, *card)
}
