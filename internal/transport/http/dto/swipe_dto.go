package dto

type DragRequest struct {
	DX       float64 `json:"dx"`
	DY       float64 `json:"dy"`
	Released bool    `json:"released"`
}

type PressRequest struct {
	Action string `json:"action"`
}

type SettledRequest struct {
	CardID string `json:"card_id"`
}

type OffsetResponse struct {
	DX       float64 `json:"dx"`
	DY       float64 `json:"dy"`
	Rotation float64 `json:"rotation"`
}

type DenialResponse struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Tier    string `json:"tier"`
}

// OutcomeResponse reports what an allowed release, press or rewind
// did. Card is set when a card was popped; an unset Card with
// popped=false means a spring-back. Denied actions never produce an
// outcome, they answer 402 with the upsell payload.
type OutcomeResponse struct {
	OK       bool               `json:"ok"`
	Action   string             `json:"action,omitempty"`
	Popped   bool               `json:"popped"`
	Card     *CandidateResponse `json:"card,omitempty"`
	Offset   OffsetResponse     `json:"offset"`
	DeckSize int                `json:"deck_size"`
	Quota    *QuotaResponse     `json:"quota,omitempty"`
}
