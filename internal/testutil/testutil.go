package testutil

import (
	"time"

	"flashcards/internal/domain"

	"go.uber.org/zap"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestUser creates a test user
func NewTestUser(userID int64, authorized bool) *domain.User {
	return &domain.User{
		UserID:     userID,
		Authorized: authorized,
		CreatedAt:  time.Now().UTC(),
	}
}

// NewTestFlashcard creates an unsaved flashcard with only texts and group set
func NewTestFlashcard(group, front, back string) domain.Flashcard {
	return domain.Flashcard{
		Group:     group,
		FrontText: front,
		BackText:  back,
	}
}

// FixedClock returns a clock that always reports t
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
