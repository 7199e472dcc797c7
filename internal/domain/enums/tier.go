package enums

import "strings"

// Tier is the subscription level. Each tier is a capability superset of
// the one before it.
type Tier string

const (
	TierFree    Tier = "free"
	TierPlus    Tier = "plus"
	TierPremium Tier = "premium"
)

var tierRank = map[Tier]int{
	TierFree:    0,
	TierPlus:    1,
	TierPremium: 2,
}

// ParseTier maps stored tier values to a known tier. Unknown or empty
// values degrade to free rather than failing.
func ParseTier(input string) Tier {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case string(TierPlus), "gold":
		return TierPlus
	case string(TierPremium), "platinum":
		return TierPremium
	default:
		return TierFree
	}
}

// AtLeast reports whether t grants everything other grants.
func (t Tier) AtLeast(other Tier) bool {
	return tierRank[t] >= tierRank[other]
}
