package gesture

import (
	"errors"
	"math"

	"github.com/dkudrin/iskra/internal/domain/enums"
)

var (
	ErrNotDragging     = errors.New("no drag in progress")
	ErrAlreadyDragging = errors.New("drag already in progress")
)

const (
	defaultDXThreshold = 100
	defaultDYThreshold = 100

	// Card rotation follows horizontal displacement, as the card
	// presentation renders it.
	rotationDivisor = 20
)

type Config struct {
	DXThreshold float64
	DYThreshold float64
}

func (c Config) withDefaults() Config {
	if c.DXThreshold <= 0 {
		c.DXThreshold = defaultDXThreshold
	}
	if c.DYThreshold <= 0 {
		c.DYThreshold = defaultDYThreshold
	}
	return c
}

// Offset is the continuous drag report used for presentation only; it
// carries no side effects.
type Offset struct {
	DX       float64 `json:"dx"`
	DY       float64 `json:"dy"`
	Rotation float64 `json:"rotation"`
}

// Classification is the discrete outcome of releasing a drag. When no
// threshold is crossed, Actionable is false and Offset is reset to the
// origin (spring-back).
type Classification struct {
	Action     enums.ActionKind
	Actionable bool
	Offset     Offset
}

// Classify turns a release position into a discrete action. Horizontal
// wins when it dominates and crosses the dx threshold; an upward
// dominant pull crossing the dy threshold is a super like; anything
// else is a no-op.
func Classify(dx, dy float64, cfg Config) Classification {
	cfg = cfg.withDefaults()

	if math.Abs(dx) > cfg.DXThreshold && math.Abs(dx) > math.Abs(dy) {
		action := enums.ActionPass
		if dx > 0 {
			action = enums.ActionLike
		}
		return Classification{
			Action:     action,
			Actionable: true,
			Offset:     offsetAt(dx, dy),
		}
	}

	if dy < -cfg.DYThreshold && math.Abs(dy) > math.Abs(dx) {
		return Classification{
			Action:     enums.ActionSuperLike,
			Actionable: true,
			Offset:     offsetAt(dx, dy),
		}
	}

	return Classification{}
}

// Tracker is the continuous-input half of the classifier: it follows
// one pointer drag from start to release. Positions are relative to the
// drag-start origin. A Tracker is owned by a single swipe controller
// and is not safe for concurrent use on its own.
type Tracker struct {
	cfg      Config
	dragging bool
	dx, dy   float64
}

func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg.withDefaults()}
}

func (t *Tracker) Start() error {
	if t.dragging {
		return ErrAlreadyDragging
	}
	t.dragging = true
	t.dx, t.dy = 0, 0
	return nil
}

// Move records the latest pointer position and reports the presentation
// offset.
func (t *Tracker) Move(dx, dy float64) (Offset, error) {
	if !t.dragging {
		return Offset{}, ErrNotDragging
	}
	t.dx, t.dy = dx, dy
	return offsetAt(dx, dy), nil
}

// Release closes the drag and classifies the final position.
func (t *Tracker) Release() (Classification, error) {
	if !t.dragging {
		return Classification{}, ErrNotDragging
	}
	t.dragging = false
	return Classify(t.dx, t.dy, t.cfg), nil
}

// Dragging reports whether a drag is in progress.
func (t *Tracker) Dragging() bool {
	return t.dragging
}

func offsetAt(dx, dy float64) Offset {
	return Offset{DX: dx, DY: dy, Rotation: dx / rotationDivisor}
}
