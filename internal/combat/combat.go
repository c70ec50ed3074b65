// Package combat resolves an attack action against a target. Resolution is
// a closed strategy choice made once per attack: an external resolver
// add-on when one is registered and active, the engine's native use-action
// capability when the store offers it, and a manual d20 fallback otherwise.
package combat

import (
	"context"

	"github.com/driftline/tidecall/internal/board"
	"github.com/driftline/tidecall/internal/registry"
)

// OutcomeKind distinguishes the possible results of a resolved attack.
type OutcomeKind int

const (
	// OutcomeMiss means the attack roll failed to meet the target's defense.
	OutcomeMiss OutcomeKind = iota
	// OutcomeHit means the attack landed and damage was applied.
	OutcomeHit
	// OutcomeCrit is a critical hit with doubled damage dice.
	OutcomeCrit
	// OutcomeDelegated means an external or native capability handled the
	// whole resolution, including its own hit/miss bookkeeping.
	OutcomeDelegated
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeMiss:
		return "miss"
	case OutcomeHit:
		return "hit"
	case OutcomeCrit:
		return "critical hit"
	case OutcomeDelegated:
		return "delegated"
	default:
		return "unknown"
	}
}

// Outcome is the result of one resolved attack.
type Outcome struct {
	Kind        OutcomeKind `json:"kind"`
	AttackRoll  int         `json:"attack_roll"` // natural die result
	AttackTotal int         `json:"attack_total"`
	Damage      int         `json:"damage"`
	Narrative   string      `json:"narrative"`
}

// Resolver is one resolution strategy.
type Resolver interface {
	Resolve(ctx context.Context, attacker *board.Entity, action *board.Action, target *board.Entity) (Outcome, error)
}

// ExternalCapability is the surface of an optional third-party
// combat-resolution add-on, detected at runtime through the registry.
type ExternalCapability interface {
	// Active reports whether the add-on is currently enabled. Checked on
	// every attack, not cached, since add-ons toggle mid-session.
	Active() bool
	// ResolveUse performs the full action-use workflow against the target.
	ResolveUse(ctx context.Context, attacker board.EntityID, action *board.Action, target board.EntityID) error
}

// ExternalResolverKey is where a session registers its external resolver.
const ExternalResolverKey registry.Key[ExternalCapability] = "combat.external"

// ActionUser is the engine's native "use action" capability. Stores that
// support it are preferred over the manual fallback.
type ActionUser interface {
	UseAction(ctx context.Context, attacker board.EntityID, actionID string, target board.EntityID) error
}

// Select picks the resolution strategy for one attack.
func Select(reg *registry.Registry, store board.Store, manual *ManualResolver) Resolver {
	if ext, ok := registry.Get(reg, ExternalResolverKey); ok && ext.Active() {
		return &externalResolver{cap: ext}
	}
	if user, ok := store.(ActionUser); ok {
		return &nativeResolver{user: user}
	}
	return manual
}

type externalResolver struct {
	cap ExternalCapability
}

func (r *externalResolver) Resolve(ctx context.Context, attacker *board.Entity, action *board.Action, target *board.Entity) (Outcome, error) {
	if err := r.cap.ResolveUse(ctx, attacker.ID, action, target.ID); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeDelegated, Narrative: attacker.Name + " uses " + action.Name + " via external resolver"}, nil
}

type nativeResolver struct {
	user ActionUser
}

func (r *nativeResolver) Resolve(ctx context.Context, attacker *board.Entity, action *board.Action, target *board.Entity) (Outcome, error) {
	if err := r.user.UseAction(ctx, attacker.ID, action.ID, target.ID); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeDelegated, Narrative: attacker.Name + " uses " + action.Name}, nil
}

// SynthesizeStrike builds the transient "basic ranged touch" action used
// when an entity has no action matching the configured name. The caller
// must delete it after the attack resolves.
func SynthesizeStrike(name string) board.Action {
	return board.Action{
		Name:        name,
		DamageDice:  1,
		DamageSides: 8,
		DamageType:  "cold",
		RangeUnits:  10,
		Ephemeral:   true,
	}
}
