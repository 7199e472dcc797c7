package model

// CandidateProfile is one entry of the discovery deck. Immutable once
// fetched; the deck owns it while it is visible.
type CandidateProfile struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Age       int      `json:"age"`
	Photos    []string `json:"photos"`
	Bio       string   `json:"bio"`
	Job       string   `json:"job"`
	Company   string   `json:"company"`
	School    string   `json:"school"`
	City      string   `json:"city"`
	Interests []string `json:"interests"`
}
