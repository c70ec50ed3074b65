package board

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/driftline/tidecall/internal/geometry"
)

// MemoryBoard is an in-process Store implementation. The coordinator runs
// against the real engine in production; MemoryBoard stands in for it in
// tests and in single-process sessions.
type MemoryBoard struct {
	mu        sync.RWMutex
	grid      geometry.Grid
	walls     []geometry.Segment
	entities  map[EntityID]*Entity
	actions   map[EntityID][]*Action
	templates map[string]*Template
}

// NewMemoryBoard creates an empty board with the given cell scale.
func NewMemoryBoard(grid geometry.Grid) *MemoryBoard {
	return &MemoryBoard{
		grid:      grid,
		entities:  make(map[EntityID]*Entity),
		actions:   make(map[EntityID][]*Action),
		templates: make(map[string]*Template),
	}
}

// AddTemplate registers a template under its name.
func (b *MemoryBoard) AddTemplate(tpl *Template) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
	}
	b.templates[tpl.Name] = tpl
}

// AddWall appends a sight-blocking segment.
func (b *MemoryBoard) AddWall(w geometry.Segment) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.walls = append(b.walls, w)
}

// PlaceEntity inserts a pre-built entity, assigning an id if needed.
// Used to seed scenes in tests and demos.
func (b *MemoryBoard) PlaceEntity(e *Entity) EntityID {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e.ID == "" {
		e.ID = EntityID(uuid.New().String())
	}
	if e.Attrs == nil {
		e.Attrs = make(map[string]string)
	}
	if e.Width == 0 {
		e.Width = b.grid.CellPx
	}
	if e.Height == 0 {
		e.Height = b.grid.CellPx
	}
	b.entities[e.ID] = e
	return e.ID
}

func (b *MemoryBoard) Query(pred func(*Entity) bool) []*Entity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*Entity
	for _, e := range b.entities {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

func (b *MemoryBoard) Entity(id EntityID) (*Entity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %q: %w", id, ErrNotFound)
	}
	return e, nil
}

func (b *MemoryBoard) CreateEntity(ctx context.Context, tpl *Template, pos geometry.Point, disposition int, linked bool) (EntityID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	width := tpl.Width
	if width == 0 {
		width = b.grid.CellPx
	}
	height := tpl.Height
	if height == 0 {
		height = b.grid.CellPx
	}
	e := &Entity{
		ID:          EntityID(uuid.New().String()),
		Name:        tpl.Name,
		TemplateID:  tpl.ID,
		Pos:         pos,
		Width:       width,
		Height:      height,
		Disposition: disposition,
		Linked:      linked,
		HasActor:    true,
		Defense:     tpl.Defense,
		HP:          tpl.HP,
		AttackBonus: tpl.AttackBonus,
		Attrs:       make(map[string]string),
	}
	b.entities[e.ID] = e
	return e.ID, nil
}

func (b *MemoryBoard) DeleteEntities(ctx context.Context, ids []EntityID) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for _, id := range ids {
		if _, ok := b.entities[id]; ok {
			delete(b.entities, id)
			delete(b.actions, id)
			removed++
		}
	}
	return removed, nil
}

func (b *MemoryBoard) Attr(id EntityID, key string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entities[id]
	if !ok {
		return "", false
	}
	v, ok := e.Attrs[key]
	return v, ok
}

func (b *MemoryBoard) SetAttr(ctx context.Context, id EntityID, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entities[id]
	if !ok {
		return fmt.Errorf("entity %q: %w", id, ErrNotFound)
	}
	if e.Attrs == nil {
		e.Attrs = make(map[string]string)
	}
	e.Attrs[key] = value
	return nil
}

func (b *MemoryBoard) Template(name string) (*Template, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tpl, ok := b.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q: %w", name, ErrNotFound)
	}
	return tpl, nil
}

func (b *MemoryBoard) ActionByName(owner EntityID, name string) (*Action, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, a := range b.actions[owner] {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("action %q on %q: %w", name, owner, ErrNotFound)
}

func (b *MemoryBoard) CreateAction(ctx context.Context, owner EntityID, a Action) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entities[owner]; !ok {
		return "", fmt.Errorf("entity %q: %w", owner, ErrNotFound)
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	b.actions[owner] = append(b.actions[owner], &a)
	return a.ID, nil
}

func (b *MemoryBoard) DeleteActions(ctx context.Context, owner EntityID, ids []string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	existing := b.actions[owner]
	removed := 0
	for _, id := range ids {
		for i, a := range existing {
			if a.ID == id {
				existing = append(existing[:i], existing[i+1:]...)
				removed++
				break
			}
		}
	}
	b.actions[owner] = existing
	return removed, nil
}

// Actions returns all actions attached to an entity. Test helper.
func (b *MemoryBoard) Actions(owner EntityID) []*Action {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Action, len(b.actions[owner]))
	copy(out, b.actions[owner])
	return out
}

func (b *MemoryBoard) ApplyDamage(ctx context.Context, id EntityID, amount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entities[id]
	if !ok {
		return fmt.Errorf("entity %q: %w", id, ErrNotFound)
	}
	e.HP -= amount
	return nil
}

func (b *MemoryBoard) Grid() geometry.Grid {
	return b.grid
}

func (b *MemoryBoard) Walls() []geometry.Segment {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]geometry.Segment, len(b.walls))
	copy(out, b.walls)
	return out
}
