// Package flow drives the end-to-end summon-and-strike sequence: capture a
// point, validate range and sight, resolve placement, choose a target,
// clear the owner's prior summon, spawn, attack. Each step advances a
// linear state machine; any failed check resolves the flow to Aborted
// without board mutation.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/driftline/tidecall/internal/board"
	"github.com/driftline/tidecall/internal/geometry"
	"github.com/driftline/tidecall/internal/placement"
	"github.com/driftline/tidecall/internal/relay"
	"github.com/driftline/tidecall/internal/summon"
)

// State is the flow's position in the summon sequence.
type State int

const (
	StateIdle State = iota
	StateAwaitingPointInput
	StateValidated
	StatePlacementResolved
	StateAwaitingTargetSelection
	StateTargetsUpdated
	StatePriorSummonCleared
	StateSpawnRequested
	StateSpawnConfirmed
	StateAttackRequested
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPointInput:
		return "awaiting_point_input"
	case StateValidated:
		return "validated"
	case StatePlacementResolved:
		return "placement_resolved"
	case StateAwaitingTargetSelection:
		return "awaiting_target_selection"
	case StateTargetsUpdated:
		return "targets_updated"
	case StatePriorSummonCleared:
		return "prior_summon_cleared"
	case StateSpawnRequested:
		return "spawn_requested"
	case StateSpawnConfirmed:
		return "spawn_confirmed"
	case StateAttackRequested:
		return "attack_requested"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ErrUserAbort marks a clean early termination: a failed pre-check or a
// dismissed prompt. No board mutation has happened when it is returned.
var ErrUserAbort = errors.New("flow: aborted")

// Deps are the collaborators one flow runs against.
type Deps struct {
	Store   board.Store
	Client  *relay.Client
	Session Session
	Points  PointPicker
	Choices ChoicePicker
	Notify  Notifier
	// Targets and Ping are optional cosmetic surfaces.
	Targets TargetMarker
	Ping    Pinger
	Logger  *slog.Logger
}

// Flow is one run of the summon sequence. Not safe for reuse; create a new
// Flow per trigger.
type Flow struct {
	opts  Options
	deps  Deps
	state State
	trace []State
}

// New validates the options and prepares a flow.
func New(opts Options, deps Deps) (*Flow, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Flow{opts: opts, deps: deps, state: StateIdle}, nil
}

// State returns the flow's current state.
func (f *Flow) State() State {
	return f.state
}

// Trace returns every state the flow has passed through, in order.
func (f *Flow) Trace() []State {
	out := make([]State, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *Flow) transition(s State) {
	f.deps.Logger.Debug("Flow transition", "from", f.state, "to", s)
	f.state = s
	f.trace = append(f.trace, s)
}

func (f *Flow) abort(msg string) error {
	f.deps.Notify.Warn(msg)
	f.transition(StateAborted)
	return fmt.Errorf("%w: %s", ErrUserAbort, msg)
}

// Run executes the sequence for the given acting entity. It blocks across
// the user-input await points and the relay calls; cancel ctx to abandon
// the flow at any await.
func (f *Flow) Run(ctx context.Context, actorID board.EntityID) error {
	actor, err := f.deps.Store.Entity(actorID)
	if err != nil {
		return f.abort("Select an acting token first.")
	}

	// Without a live coordinator a relay call would stall; refuse before
	// asking the user for anything.
	if !f.deps.Session.CoordinatorActive() {
		return f.abort("No privileged coordinator is active in this session.")
	}

	grid := f.deps.Store.Grid()
	source := actor.Center()

	f.transition(StateAwaitingPointInput)
	f.deps.Notify.Info(fmt.Sprintf("Click a point on the board (max %.0f units%s).", f.opts.MaxDistance, sightSuffix(f.opts.RequireSight)))
	picked, err := f.deps.Points.PickPoint(ctx, "summon point")
	if errors.Is(err, ErrCanceled) {
		return f.abort("Point selection canceled.")
	}
	if err != nil {
		f.transition(StateAborted)
		return fmt.Errorf("pick point: %w", err)
	}
	desired := grid.SnapToCellCenter(picked)

	dist := grid.Distance(source, desired)
	if dist > f.opts.MaxDistance+placement.Epsilon {
		return f.abort(fmt.Sprintf("Too far: %.1f units (max %.0f).", dist, f.opts.MaxDistance))
	}
	if f.opts.RequireSight && !board.LineOfSight(f.deps.Store, source, desired) {
		return f.abort("Spawn point is not visible (line of sight blocked).")
	}
	f.transition(StateValidated)

	if f.deps.Ping != nil {
		f.deps.Ping.Ping(desired)
	}

	spot, err := placement.Find(placement.Request{
		Desired:      desired,
		Source:       source,
		MaxDistance:  f.opts.MaxDistance,
		RequireSight: f.opts.RequireSight,
		Grid:         grid,
		Occupied:     func(p geometry.Point) bool { return board.OccupiedAt(f.deps.Store, p) },
		Sighted:      func(from, to geometry.Point) bool { return board.LineOfSight(f.deps.Store, from, to) },
	})
	if errors.Is(err, placement.ErrNoPlacement) {
		return f.abort("No free cell near that point is in range.")
	}
	if err != nil {
		f.transition(StateAborted)
		return fmt.Errorf("resolve placement: %w", err)
	}
	f.transition(StatePlacementResolved)

	targets := f.eligibleTargets(actor, spot)
	if len(targets) == 0 {
		return f.abort(fmt.Sprintf("No opposing creature within %.0f units of the spawn point.", f.opts.TargetRadius))
	}

	f.transition(StateAwaitingTargetSelection)
	choices := make([]Choice, 0, len(targets))
	byID := make(map[string]*board.Entity, len(targets))
	for _, e := range targets {
		choices = append(choices, Choice{ID: string(e.ID), Label: e.Name})
		byID[string(e.ID)] = e
	}
	chosen, err := f.deps.Choices.PickChoice(ctx, "Choose a target", choices)
	if errors.Is(err, ErrCanceled) {
		return f.abort("Target selection canceled.")
	}
	if err != nil {
		f.transition(StateAborted)
		return fmt.Errorf("pick target: %w", err)
	}
	target, ok := byID[chosen]
	if !ok {
		return f.abort("Invalid target.")
	}

	if f.deps.Targets != nil {
		if err := f.deps.Targets.SetTargets([]board.EntityID{target.ID}); err != nil {
			f.deps.Logger.Debug("Target marking skipped", "error", err)
		}
	}
	f.transition(StateTargetsUpdated)

	// The owner key is derived locally from the actor's stable id; no
	// round trip needed, and it survives for the summon's whole lifetime.
	ownerKey := string(actor.ID)

	// Clear any prior summon through the coordinator even though Spawn
	// will do it again; an explicit despawn keeps the board clean when the
	// spawn that follows fails.
	if _, err := f.deps.Client.Despawn(ctx, ownerKey); err != nil {
		f.transition(StateAborted)
		return fmt.Errorf("clear prior summon: %w", err)
	}
	f.transition(StatePriorSummonCleared)

	spawnPos := grid.CellTopLeft(spot)
	f.transition(StateSpawnRequested)
	entityID, err := f.spawn(ctx, ownerKey, spawnPos)
	if err != nil {
		if errors.Is(err, relay.ErrNotFound) {
			f.deps.Notify.Error(fmt.Sprintf("Template %q not found.", f.opts.TemplateName))
		}
		f.transition(StateAborted)
		return err
	}
	f.transition(StateSpawnConfirmed)

	f.transition(StateAttackRequested)
	res, err := f.deps.Client.Attack(ctx, relay.AttackRequest{
		EntityID:   string(entityID),
		ActionName: f.opts.ActionName,
		TargetID:   string(target.ID),
	})
	if err != nil {
		f.transition(StateAborted)
		return fmt.Errorf("attack: %w", err)
	}
	if err := res.Err(); err != nil {
		f.deps.Notify.Error("Attack could not start: " + err.Error())
		f.transition(StateAborted)
		return err
	}

	f.transition(StateDone)
	return nil
}

// spawn places the summon through the local fast path when this process
// holds create privilege, and through the relay otherwise. Both paths run
// the same despawn-then-create sequence in summon.Place.
func (f *Flow) spawn(ctx context.Context, ownerKey string, pos geometry.Point) (board.EntityID, error) {
	if f.deps.Session.LocalPrivileged() {
		id, err := summon.Place(ctx, f.deps.Store, summon.PlaceRequest{
			TemplateName: f.opts.TemplateName,
			Position:     pos,
			Disposition:  f.opts.SpawnDisposition,
			Linked:       f.opts.SpawnLinked,
			OwnerKey:     ownerKey,
		})
		if errors.Is(err, board.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", relay.ErrNotFound, err)
		}
		if err != nil {
			return "", fmt.Errorf("spawn locally: %w", err)
		}
		return id, nil
	}

	res, err := f.deps.Client.Spawn(ctx, relay.SpawnRequest{
		TemplateName: f.opts.TemplateName,
		Position:     pos,
		Disposition:  f.opts.SpawnDisposition,
		Linked:       f.opts.SpawnLinked,
		OwnerKey:     ownerKey,
	})
	if err != nil {
		return "", fmt.Errorf("spawn via coordinator: %w", err)
	}
	if err := res.Err(); err != nil {
		return "", err
	}
	return board.EntityID(res.EntityID), nil
}

// eligibleTargets returns opposing, actor-backed entities within the target
// radius of the placement point.
func (f *Flow) eligibleTargets(actor *board.Entity, spot geometry.Point) []*board.Entity {
	grid := f.deps.Store.Grid()
	return f.deps.Store.Query(func(e *board.Entity) bool {
		if !e.HasActor || e.ID == actor.ID {
			return false
		}
		if e.Disposition == actor.Disposition {
			return false
		}
		return grid.Distance(spot, e.Center()) <= f.opts.TargetRadius+placement.Epsilon
	})
}

func sightSuffix(required bool) string {
	if required {
		return ", with line of sight"
	}
	return ""
}
