package dto

import "time"

type MatchItemResponse struct {
	Key          string    `json:"key"`
	OtherUserID  string    `json:"other_user_id"`
	LastActivity string    `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type MatchesResponse struct {
	Items []MatchItemResponse `json:"items"`
}

type ChatAllowanceResponse struct {
	Allowed bool            `json:"allowed"`
	Denial  *DenialResponse `json:"denial,omitempty"`
}
