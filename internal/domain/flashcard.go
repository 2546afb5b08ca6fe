package domain

import "time"

// FlashcardType is the schema name flashcards are stored under
const FlashcardType = "flashcard"

// DefaultGroup is used when a flashcard has no group
const DefaultGroup = "default"

// Flashcard is a front/back text pair with review metadata
type Flashcard struct {
	ID            string     `json:"@id" validate:"required,excludes=/"`
	Type          string     `json:"@type" validate:"required,eq=flashcard"`
	FrontText     string     `json:"frontText" validate:"required"`
	BackText      string     `json:"backText,omitempty"`
	Hint          string     `json:"hint,omitempty"`
	Familiarity   *float64   `json:"familiarity,omitempty"`
	ReviewedCount *int       `json:"reviewedCount,omitempty"`
	Group         string     `json:"group" validate:"required,excludes=/"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" validate:"required"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// Path returns the storage path of the flashcard
func (f Flashcard) Path() string {
	return f.Group + "/" + f.ID
}
