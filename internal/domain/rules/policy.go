package rules

import (
	"fmt"

	"github.com/dkudrin/iskra/internal/domain/enums"
	"github.com/dkudrin/iskra/internal/domain/model"
)

// Access is what a tier may do with an action kind.
type Access int

const (
	AccessDenied Access = iota
	AccessCapped
	AccessUnlimited
)

// Policy is one cell of the entitlement table.
type Policy struct {
	Access Access
	PerDay int
}

// PolicyTable maps tier and action kind to a policy. All entitlement
// behavior is driven from this table; adding a tier or a kind is a
// table edit, not scattered branching.
type PolicyTable map[enums.Tier]map[enums.ActionKind]Policy

// Limits carries the configurable daily caps.
type Limits struct {
	FreeSwipesPerDay     int
	FreeSuperLikesPerDay int
	PlusSuperLikesPerDay int
}

func (l Limits) withDefaults() Limits {
	if l.FreeSwipesPerDay <= 0 {
		l.FreeSwipesPerDay = FreeSwipesPerDay
	}
	if l.FreeSuperLikesPerDay <= 0 {
		l.FreeSuperLikesPerDay = FreeSuperLikesPerDay
	}
	if l.PlusSuperLikesPerDay <= 0 {
		l.PlusSuperLikesPerDay = PlusSuperLikesPerDay
	}
	return l
}

// DefaultTable builds the entitlement table for the three tiers.
func DefaultTable(limits Limits) PolicyTable {
	limits = limits.withDefaults()

	return PolicyTable{
		enums.TierFree: {
			enums.ActionPass:      {Access: AccessCapped, PerDay: limits.FreeSwipesPerDay},
			enums.ActionLike:      {Access: AccessCapped, PerDay: limits.FreeSwipesPerDay},
			enums.ActionSuperLike: {Access: AccessCapped, PerDay: limits.FreeSuperLikesPerDay},
			enums.ActionRewind:    {Access: AccessDenied},
			enums.ActionMessage:   {Access: AccessDenied},
		},
		enums.TierPlus: {
			enums.ActionPass:      {Access: AccessUnlimited},
			enums.ActionLike:      {Access: AccessUnlimited},
			enums.ActionSuperLike: {Access: AccessCapped, PerDay: limits.PlusSuperLikesPerDay},
			enums.ActionRewind:    {Access: AccessDenied},
			enums.ActionMessage:   {Access: AccessUnlimited},
		},
		enums.TierPremium: {
			enums.ActionPass:      {Access: AccessUnlimited},
			enums.ActionLike:      {Access: AccessUnlimited},
			enums.ActionSuperLike: {Access: AccessUnlimited},
			enums.ActionRewind:    {Access: AccessUnlimited},
			enums.ActionMessage:   {Access: AccessUnlimited},
		},
	}
}

// Decision is the outcome of an entitlement check. When denied it
// carries a code plus a human upsell message specific to the tier and
// action kind; denial is a normal product flow, not a fault.
type Decision struct {
	Allowed bool
	Kind    enums.ActionKind
	Tier    enums.Tier
	Code    string
	Title   string
	Message string
}

const (
	CodeSwipeLimitReached     = "SWIPE_LIMIT_REACHED"
	CodeSuperLikeLimitReached = "SUPERLIKE_LIMIT_REACHED"
	CodeRewindLocked          = "REWIND_LOCKED"
	CodeMessageLocked         = "MESSAGE_LOCKED"
	CodeActionUnknown         = "ACTION_UNKNOWN"
)

// Decide evaluates the table against a usage counter for the given day
// key. A counter dated to another day is treated as zero; the stored
// value is never trusted across a day boundary. The evaluation is pure:
// it never mutates the counter and never touches I/O.
func Decide(table PolicyTable, tier enums.Tier, kind enums.ActionKind, counter model.UsageCounter, dayKey string) Decision {
	tierPolicies, ok := table[tier]
	if !ok {
		tierPolicies = table[enums.TierFree]
	}

	policy, ok := tierPolicies[kind]
	if !ok {
		return Decision{
			Kind:    kind,
			Tier:    tier,
			Code:    CodeActionUnknown,
			Title:   "Not available",
			Message: "This action is not available.",
		}
	}

	switch policy.Access {
	case AccessUnlimited:
		return Decision{Allowed: true, Kind: kind, Tier: tier}
	case AccessDenied:
		return denial(tier, kind, policy)
	default:
		if counter.Date != dayKey {
			counter = model.UsageCounter{Date: dayKey}
		}
		if usedFor(kind, counter) >= policy.PerDay {
			return denial(tier, kind, policy)
		}
		return Decision{Allowed: true, Kind: kind, Tier: tier}
	}
}

func usedFor(kind enums.ActionKind, counter model.UsageCounter) int {
	switch kind {
	case enums.ActionPass, enums.ActionLike:
		return counter.Swipes
	case enums.ActionSuperLike:
		return counter.SuperLikes
	default:
		return 0
	}
}

func denial(tier enums.Tier, kind enums.ActionKind, policy Policy) Decision {
	d := Decision{Kind: kind, Tier: tier}

	switch kind {
	case enums.ActionPass, enums.ActionLike:
		d.Code = CodeSwipeLimitReached
		d.Title = "Daily Limit Reached"
		d.Message = fmt.Sprintf("You've used your %d daily swipes. Upgrade for unlimited swiping!", policy.PerDay)
	case enums.ActionSuperLike:
		d.Code = CodeSuperLikeLimitReached
		if tier == enums.TierPlus {
			d.Title = "Out of Super Likes"
			d.Message = "Get Premium for unlimited Super Likes!"
		} else {
			d.Title = "Daily Super Likes Reached"
			d.Message = fmt.Sprintf("You've used your %d Super Likes today. Upgrade for more!", policy.PerDay)
		}
	case enums.ActionRewind:
		d.Code = CodeRewindLocked
		if tier == enums.TierPlus {
			d.Title = "Upgrade to Premium"
			d.Message = "Rewind is exclusive to Premium members!"
		} else {
			d.Title = "Rewind is Premium"
			d.Message = "Upgrade to undo your last swipe."
		}
	case enums.ActionMessage:
		d.Code = CodeMessageLocked
		d.Title = "Chat Locked"
		d.Message = "Upgrade to Plus to message instantly."
	default:
		d.Code = CodeActionUnknown
		d.Title = "Not available"
		d.Message = "This action is not available."
	}

	return d
}
