package flow

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Options carries the operator configuration for one summon flow. It is
// captured once at flow start and never re-read mid-flow.
type Options struct {
	// TemplateName is the summon template to spawn.
	TemplateName string `validate:"required"`
	// ActionName is the attack action looked up on the spawned entity.
	ActionName string `validate:"required"`
	// MaxDistance is the range limit for the spawn point, in world units.
	MaxDistance float64 `validate:"gt=0"`
	// RequireSight rejects spawn points not visible from the acting entity.
	RequireSight bool
	// SpawnDisposition is the disposition assigned to the summon.
	SpawnDisposition int `validate:"oneof=-1 0 1"`
	// SpawnLinked links the summon to its template's actor data.
	SpawnLinked bool
	// TargetRadius is how far from the placement point eligible targets
	// may stand, in world units.
	TargetRadius float64 `validate:"gt=0"`
}

// DefaultOptions mirrors the shipped settings.
func DefaultOptions() Options {
	return Options{
		TemplateName:     "Fathomless Tentacle",
		ActionName:       "Tentacle Strike",
		MaxDistance:      60,
		RequireSight:     true,
		SpawnDisposition: 1,
		TargetRadius:     10,
	}
}

var validate = validator.New()

// Validate checks the options are usable before the flow starts.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("flow options: %w", err)
	}
	return nil
}
