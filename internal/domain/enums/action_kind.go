package enums

import "strings"

// ActionKind is a user decision type. Each kind is rate-limited
// independently of the others.
type ActionKind string

const (
	ActionPass      ActionKind = "pass"
	ActionLike      ActionKind = "like"
	ActionSuperLike ActionKind = "superlike"
	ActionRewind    ActionKind = "rewind"
	ActionMessage   ActionKind = "message"
)

// ParseActionKind normalizes client input ("SUPER_LIKE", "Like", ...) into
// a known kind.
func ParseActionKind(input string) (ActionKind, bool) {
	value := strings.ToLower(strings.TrimSpace(input))
	value = strings.ReplaceAll(value, "_", "")
	value = strings.ReplaceAll(value, "-", "")

	switch value {
	case "pass", "nope", "dislike":
		return ActionPass, true
	case "like":
		return ActionLike, true
	case "superlike":
		return ActionSuperLike, true
	case "rewind", "undo":
		return ActionRewind, true
	case "message", "chat":
		return ActionMessage, true
	default:
		return "", false
	}
}

// IsSwipe reports whether the kind removes the top card from the deck.
func (k ActionKind) IsSwipe() bool {
	return k == ActionPass || k == ActionLike || k == ActionSuperLike
}

// FormsMatch reports whether the kind creates a match record with the
// acted-on candidate.
func (k ActionKind) FormsMatch() bool {
	return k == ActionLike || k == ActionSuperLike
}
