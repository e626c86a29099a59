package domain

import "time"

// RatingValue is the thumbs up / down a user gives an assistant answer.
type RatingValue string

const (
	RatingUp   RatingValue = "up"
	RatingDown RatingValue = "down"
)

// ParseRatingValue accepts the spellings the console has used over time.
func ParseRatingValue(s string) (RatingValue, bool) {
	switch s {
	case "up", "like", "positive", "1":
		return RatingUp, true
	case "down", "dislike", "negative", "-1", "0":
		return RatingDown, true
	default:
		return "", false
	}
}

// Rating is feedback on one assistant message, stored by agent
type Rating struct {
	ID        string    `json:"id"`
	SessionID SessionID `json:"session_id"`
	MessageID MessageID `json:"message_id"`
	UserID    UserID    `json:"user_id"`
	AgentID   AgentID   `json:"agent_id"`

	Value   RatingValue `json:"value"`
	Comment string      `json:"comment,omitempty"`

	// Snapshot of what was rated, the live session is not persisted
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Key identifies a rating by the message it rates; it doubles as the rating id.
func (r *Rating) Key() string {
	return string(r.SessionID) + "_" + string(r.MessageID)
}
