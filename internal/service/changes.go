package service

import (
	"flashcards/internal/storage"

	"go.uber.org/zap"
)

// ChangeLogger returns a handler that logs flashcard change events
func ChangeLogger(logger *zap.Logger) storage.Handler {
	return func(ev storage.Event) {
		action := "updated"
		switch {
		case ev.NewValue == nil:
			action = "removed"
		case ev.OldValue == nil:
			action = "stored"
		}

		logger.Info("Flashcard "+action,
			zap.String("path", ev.Path),
			zap.String("origin", ev.Origin),
		)
	}
}
