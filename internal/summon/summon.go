// Package summon owns the single-live-summon invariant: at most one
// summoned entity per owner key exists on the board at any time. Both the
// relay coordinator and the local-privileged fast path go through Place, so
// the despawn-then-create sequence cannot drift between the two mutation
// paths.
package summon

import (
	"context"
	"fmt"

	"github.com/driftline/tidecall/internal/board"
	"github.com/driftline/tidecall/internal/geometry"
)

// OwnerKeyAttr is the durable entity attribute tying a summoned entity back
// to the entity that summoned it.
const OwnerKeyAttr = "tidecall.ownerKey"

// DefaultTemplateName is tried when the configured template is missing.
const DefaultTemplateName = "Tentacle of the Deeps"

// PlaceRequest describes one spawn.
type PlaceRequest struct {
	TemplateName string
	Position     geometry.Point // top-left corner of the target cell
	Disposition  int
	Linked       bool
	OwnerKey     string
}

// DespawnByOwner deletes every live summoned entity tagged with the owner
// key and returns how many were removed. Removing zero entities is success,
// not an error, which makes the call safe to repeat on duplicate requests.
func DespawnByOwner(ctx context.Context, store board.Store, ownerKey string) (int, error) {
	owned := store.Query(func(e *board.Entity) bool {
		return e.Attrs[OwnerKeyAttr] == ownerKey
	})
	if len(owned) == 0 {
		return 0, nil
	}
	ids := make([]board.EntityID, 0, len(owned))
	for _, e := range owned {
		ids = append(ids, e.ID)
	}
	removed, err := store.DeleteEntities(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("despawn for owner %s: %w", ownerKey, err)
	}
	return removed, nil
}

// Place removes any prior summon for the owner, resolves the template
// (falling back to the well-known default name), creates the entity and
// tags it with the owner key. Despawn runs unconditionally, so duplicated
// or reordered requests cannot leave two live summons.
func Place(ctx context.Context, store board.Store, req PlaceRequest) (board.EntityID, error) {
	if _, err := DespawnByOwner(ctx, store, req.OwnerKey); err != nil {
		return "", err
	}

	tpl, err := store.Template(req.TemplateName)
	if err != nil {
		tpl, err = store.Template(DefaultTemplateName)
	}
	if err != nil {
		return "", fmt.Errorf("resolve template %q: %w", req.TemplateName, err)
	}

	id, err := store.CreateEntity(ctx, tpl, req.Position, req.Disposition, req.Linked)
	if err != nil {
		return "", fmt.Errorf("create summon: %w", err)
	}
	if err := store.SetAttr(ctx, id, OwnerKeyAttr, req.OwnerKey); err != nil {
		// Never leave a half-created summon: an untagged entity would
		// escape every future despawn.
		_, _ = store.DeleteEntities(ctx, []board.EntityID{id})
		return "", fmt.Errorf("tag summon owner: %w", err)
	}
	return id, nil
}

// LiveFor returns the live summoned entities for an owner key. Test and
// inspection helper.
func LiveFor(store board.Store, ownerKey string) []*board.Entity {
	return store.Query(func(e *board.Entity) bool {
		return e.Attrs[OwnerKeyAttr] == ownerKey
	})
}
