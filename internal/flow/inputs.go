package flow

import (
	"context"
	"errors"

	"github.com/driftline/tidecall/internal/board"
	"github.com/driftline/tidecall/internal/geometry"
)

// ErrCanceled is returned by input surfaces when the user dismisses a
// prompt. Implementations must also return it when ctx is canceled, so an
// abandoned flow never leaves a pending prompt behind.
var ErrCanceled = errors.New("flow: input canceled")

// PointPicker blocks until the user selects a point on the board.
type PointPicker interface {
	PickPoint(ctx context.Context, prompt string) (geometry.Point, error)
}

// Choice is one entry in a selection dialog.
type Choice struct {
	ID    string
	Label string
}

// ChoicePicker blocks until the user picks one choice from a presented set.
type ChoicePicker interface {
	PickChoice(ctx context.Context, title string, choices []Choice) (string, error)
}

// Notifier is the transient user-facing notice surface.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// TargetMarker updates the user's marked-target set. Purely cosmetic;
// failures are logged and ignored.
type TargetMarker interface {
	SetTargets(ids []board.EntityID) error
}

// Pinger draws a transient marker at a board point. Purely cosmetic.
type Pinger interface {
	Ping(p geometry.Point)
}

// Session exposes the participant's runtime role in the shared session.
type Session interface {
	// ParticipantID identifies this process on the bus.
	ParticipantID() string
	// CoordinatorActive reports whether any privileged coordinator is
	// currently part of the session.
	CoordinatorActive() bool
	// LocalPrivileged reports whether this process itself may mutate the
	// board directly, enabling the local spawn fast path.
	LocalPrivileged() bool
}
