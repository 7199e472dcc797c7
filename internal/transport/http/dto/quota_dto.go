package dto

import "time"

type QuotaResponse struct {
	SwipesLeft      int       `json:"swipes_left"`
	SuperLikesLeft  int       `json:"superlikes_left"`
	SwipesLimit     int       `json:"swipes_limit"`
	SuperLikesLimit int       `json:"superlikes_limit"`
	Unlimited       bool      `json:"unlimited"`
	Tier            string    `json:"tier"`
	ResetAt         time.Time `json:"reset_at"`
}
