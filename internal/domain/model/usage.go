package model

// UsageCounter is the per-user, per-calendar-day record of quota
// consuming actions. A counter whose Date is not today's day key is
// semantically zero; stores never reset it eagerly.
type UsageCounter struct {
	Date       string `json:"date"`
	Swipes     int    `json:"swipes"`
	SuperLikes int    `json:"superlikes"`
}

// IsZero reports whether the counter carries no usage at all.
func (c UsageCounter) IsZero() bool {
	return c.Date == "" && c.Swipes == 0 && c.SuperLikes == 0
}
