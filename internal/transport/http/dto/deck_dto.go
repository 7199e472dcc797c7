package dto

type CandidateResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Age       int      `json:"age,omitempty"`
	Photos    []string `json:"photos,omitempty"`
	Bio       string   `json:"bio,omitempty"`
	Job       string   `json:"job,omitempty"`
	Company   string   `json:"company,omitempty"`
	School    string   `json:"school,omitempty"`
	City      string   `json:"city,omitempty"`
	Interests []string `json:"interests,omitempty"`
}

type DeckTopResponse struct {
	Card     *CandidateResponse `json:"card"`
	DeckSize int                `json:"deck_size"`
}

type RefillResponse struct {
	OK       bool `json:"ok"`
	Added    int  `json:"added"`
	DeckSize int  `json:"deck_size"`
}
