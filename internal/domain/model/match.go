package model

import "time"

// MatchRecord is the shared artifact of a formed connection, keyed by
// the canonical pairing key of the two users. UserAID sorts before
// UserBID; both are identity fields and are written exactly once.
type MatchRecord struct {
	Key          string    `json:"key"`
	UserAID      string    `json:"user_a_id"`
	UserBID      string    `json:"user_b_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity string    `json:"last_activity"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Other returns the counterpart of userID in the pair, or empty when
// userID is not part of the match.
func (m MatchRecord) Other(userID string) string {
	switch userID {
	case m.UserAID:
		return m.UserBID
	case m.UserBID:
		return m.UserAID
	default:
		return ""
	}
}
