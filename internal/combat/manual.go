package combat

import (
	"context"
	"fmt"

	"github.com/driftline/tidecall/internal/board"
	"github.com/driftline/tidecall/internal/dice"
)

// DamageInput feeds the pluggable damage calculation.
type DamageInput struct {
	RolledTotal int
	Crit        bool
	DamageType  string
}

// DamageCalculator maps rolled dice to final damage. The game-rules math
// lives behind this interface so a session can swap in scripted rules
// without touching the resolver.
type DamageCalculator interface {
	Damage(ctx context.Context, in DamageInput) (int, error)
}

// FlatDamage is the default calculator: damage equals the rolled total.
type FlatDamage struct{}

func (FlatDamage) Damage(_ context.Context, in DamageInput) (int, error) {
	return in.RolledTotal, nil
}

// ManualResolver is the fallback strategy: roll an attack die against the
// target's defense, roll and apply damage on a hit, doubling the damage
// dice on a natural 20.
type ManualResolver struct {
	store  board.Store
	roller *dice.Roller
	damage DamageCalculator
}

// NewManualResolver builds the manual fallback. A nil calculator falls back
// to FlatDamage.
func NewManualResolver(store board.Store, roller *dice.Roller, damage DamageCalculator) *ManualResolver {
	if damage == nil {
		damage = FlatDamage{}
	}
	return &ManualResolver{store: store, roller: roller, damage: damage}
}

func (r *ManualResolver) Resolve(ctx context.Context, attacker *board.Entity, action *board.Action, target *board.Entity) (Outcome, error) {
	natural := r.roller.D20()
	total := natural + attacker.AttackBonus

	out := Outcome{AttackRoll: natural, AttackTotal: total}

	crit := natural == 20
	if !crit && total < target.Defense {
		out.Kind = OutcomeMiss
		out.Narrative = fmt.Sprintf("%s's %s misses %s (%d vs defense %d)",
			attacker.Name, action.Name, target.Name, total, target.Defense)
		return out, nil
	}

	count := action.DamageDice
	if crit {
		out.Kind = OutcomeCrit
		count *= 2
	} else {
		out.Kind = OutcomeHit
	}

	roll, err := r.roller.Roll(count, action.DamageSides)
	if err != nil {
		return Outcome{}, fmt.Errorf("roll damage: %w", err)
	}
	dmg, err := r.damage.Damage(ctx, DamageInput{
		RolledTotal: roll.Total,
		Crit:        crit,
		DamageType:  action.DamageType,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("calculate damage: %w", err)
	}
	if err := r.store.ApplyDamage(ctx, target.ID, dmg); err != nil {
		return Outcome{}, fmt.Errorf("apply damage: %w", err)
	}

	out.Damage = dmg
	if crit {
		out.Narrative = fmt.Sprintf("%s's %s critically hits %s for %d %s damage",
			attacker.Name, action.Name, target.Name, dmg, action.DamageType)
	} else {
		out.Narrative = fmt.Sprintf("%s's %s hits %s for %d %s damage (%d vs defense %d)",
			attacker.Name, action.Name, target.Name, dmg, action.DamageType, total, target.Defense)
	}
	return out, nil
}
