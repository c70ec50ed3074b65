// Package board defines the contract this module needs from the game
// engine's scene store: entity queries, create/delete, per-entity
// attributes, attached actions, templates and the sight-blocking wall
// layer. The engine side is out of scope; MemoryBoard provides an
// in-process implementation used by the coordinator and by tests.
package board

import (
	"context"
	"errors"

	"github.com/driftline/tidecall/internal/geometry"
)

// EntityID identifies a board entity (a token on the shared scene).
type EntityID string

// Entity is a placed board token. Entities wider than one cell occupy the
// full rect spanned by Width and Height.
type Entity struct {
	ID          EntityID          `json:"id"`
	Name        string            `json:"name"`
	TemplateID  string            `json:"template_id"`
	Pos         geometry.Point    `json:"pos"` // top-left corner, pixels
	Width       float64           `json:"width"`
	Height      float64           `json:"height"`
	Disposition int               `json:"disposition"`
	Linked      bool              `json:"linked"`
	HasActor    bool              `json:"has_actor"`
	Defense     int               `json:"defense"`
	HP          int               `json:"hp"`
	AttackBonus int               `json:"attack_bonus"`
	Attrs       map[string]string `json:"attrs,omitempty"`
}

// Center returns the center of the entity's occupied region.
func (e *Entity) Center() geometry.Point {
	return geometry.Point{X: e.Pos.X + e.Width/2, Y: e.Pos.Y + e.Height/2}
}

// Bounds returns the entity's occupied region.
func (e *Entity) Bounds() geometry.Rect {
	return geometry.Rect{X: e.Pos.X, Y: e.Pos.Y, Width: e.Width, Height: e.Height}
}

// Template is a prototype an entity is instantiated from.
type Template struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Defense int     `json:"defense"`
	HP      int     `json:"hp"`
	// AttackBonus is applied to attack rolls made by entities spawned
	// from this template.
	AttackBonus int `json:"attack_bonus"`
}

// Action is a named sub-entity attached to an entity, describing one thing
// the entity can do. Ephemeral actions are synthesized for a single use and
// removed afterwards.
type Action struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	DamageDice  int     `json:"damage_dice"`  // number of damage dice
	DamageSides int     `json:"damage_sides"` // sides per damage die
	DamageType  string  `json:"damage_type"`
	RangeUnits  float64 `json:"range_units"`
	Ephemeral   bool    `json:"ephemeral"`
}

// ErrNotFound is returned when an entity, template or action lookup misses.
var ErrNotFound = errors.New("board: not found")

// Store is the scene-store surface the relay coordinator and the flow
// depend on. All methods must be safe for concurrent use.
type Store interface {
	// Query returns all entities matching the predicate.
	Query(pred func(*Entity) bool) []*Entity

	// Entity looks up a single entity by id.
	Entity(id EntityID) (*Entity, error)

	// CreateEntity instantiates a template at the given position and
	// returns the new entity's id.
	CreateEntity(ctx context.Context, tpl *Template, pos geometry.Point, disposition int, linked bool) (EntityID, error)

	// DeleteEntities removes the listed entities, ignoring ids that no
	// longer exist, and returns how many were removed.
	DeleteEntities(ctx context.Context, ids []EntityID) (int, error)

	// Attr reads an arbitrary attribute from an entity.
	Attr(id EntityID, key string) (string, bool)

	// SetAttr writes an arbitrary attribute on an entity.
	SetAttr(ctx context.Context, id EntityID, key, value string) error

	// Template resolves a template by name.
	Template(name string) (*Template, error)

	// ActionByName looks up an action attached to an entity.
	ActionByName(owner EntityID, name string) (*Action, error)

	// CreateAction attaches an action to an entity and returns its id.
	CreateAction(ctx context.Context, owner EntityID, a Action) (string, error)

	// DeleteActions removes attached actions by id, ignoring misses, and
	// returns how many were removed.
	DeleteActions(ctx context.Context, owner EntityID, ids []string) (int, error)

	// ApplyDamage reduces an entity's hit points.
	ApplyDamage(ctx context.Context, id EntityID, amount int) error

	// Grid returns the board's cell scale.
	Grid() geometry.Grid

	// Walls returns the sight-blocking obstacle layer.
	Walls() []geometry.Segment
}

// OccupiedAt reports whether any entity's bounds contain the point.
func OccupiedAt(s Store, p geometry.Point) bool {
	for _, e := range s.Query(func(*Entity) bool { return true }) {
		if e.Bounds().Contains(p) {
			return true
		}
	}
	return false
}

// LineOfSight reports whether two points are mutually visible on the board.
func LineOfSight(s Store, from, to geometry.Point) bool {
	return geometry.LineOfSight(s.Walls(), from, to)
}
