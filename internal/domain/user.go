package domain

import "time"

// UserType is the schema name bot users are stored under
const UserType = "user"

// User represents a bot user
type User struct {
	UserID     int64     `json:"userId"`
	Authorized bool      `json:"authorized"`
	CreatedAt  time.Time `json:"createdAt"`
}

// UserState represents user's current interaction state
type UserState string

const (
	StateIdle         UserState = "idle"
	StateWaitingBack  UserState = "waiting_back"
	StateWaitingGroup UserState = "waiting_group"
	StateReviewing    UserState = "reviewing"
)

// StateData holds temporary data for user's current state
type StateData struct {
	State        UserState
	CurrentFront string
	CurrentGroup string // Group new cards are added to
}
