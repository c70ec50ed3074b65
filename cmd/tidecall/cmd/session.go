package cmd

import (
	"github.com/driftline/tidecall/internal/board"
	"github.com/driftline/tidecall/internal/config"
	"github.com/driftline/tidecall/internal/geometry"
	"github.com/driftline/tidecall/internal/pubsub"
	"github.com/driftline/tidecall/internal/summon"
)

// buildSession wires the bus and the scene store for a standalone
// coordinator. The in-memory pair serves single-machine sessions; a
// deployment embedded in the game engine swaps in the engine's store and a
// networked watermill backend behind the same interfaces.
func buildSession(cfg *config.Config) (pubsub.Bus, board.Store) {
	bus := pubsub.NewWatermillBridge()

	store := board.NewMemoryBoard(geometry.Grid{CellPx: 100, UnitsPerCell: 5})
	store.AddTemplate(&board.Template{
		Name:        cfg.Flow.TemplateName,
		Defense:     12,
		HP:          20,
		AttackBonus: 5,
	})
	store.AddTemplate(&board.Template{
		Name:        summon.DefaultTemplateName,
		Defense:     12,
		HP:          20,
		AttackBonus: 5,
	})

	return bus, store
}
